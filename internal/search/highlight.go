// Copyright (c) 2026 Shelfmark. All rights reserved.

package search

import "sort"

// highlightLocked renders match segments for one document across the
// requested fields. Fields without a recorded match are omitted.
func (index *Index[T]) highlightLocked(pos int, fields []Field[T], byField map[string][]string) []FieldMatch {
	if len(byField) == 0 {
		return nil
	}
	doc := index.docs[pos]
	var rendered []FieldMatch
	for _, field := range fields {
		tokens := byField[field.Name]
		if len(tokens) == 0 {
			continue
		}
		segments := highlightText(field.Extract(doc), tokens)
		if len(segments) == 0 {
			continue
		}
		rendered = append(rendered, FieldMatch{Field: field.Name, Segments: segments})
	}
	return rendered
}

type span struct {
	start int
	end   int
}

/*
highlightText splits text into alternating matched and unmatched runs.

Each matched token claims its first occurrence at or after the previous
claim's end, so spans come out in text order and never overlap. Matching
runs on a rune-aligned folded copy of the text, which finds "cafe" inside
"Café" while the emitted segments still slice the original string.
*/
func highlightText(text string, tokens []string) []Segment {
	folded := foldRunes(text)
	original := []rune(text)

	// order tokens by where they first appear; ties prefer the longer
	// token so the wider span wins
	type located struct {
		token []rune
		at    int
	}
	locations := make([]located, 0, len(tokens))
	for _, token := range tokens {
		runes := []rune(token)
		at := indexRunes(folded, runes, 0)
		if at < 0 {
			continue
		}
		locations = append(locations, located{token: runes, at: at})
	}
	sort.SliceStable(locations, func(i, j int) bool {
		if locations[i].at != locations[j].at {
			return locations[i].at < locations[j].at
		}
		return len(locations[i].token) > len(locations[j].token)
	})

	var spans []span
	cursor := 0
	for _, loc := range locations {
		at := loc.at
		if at < cursor {
			at = indexRunes(folded, loc.token, cursor)
			if at < 0 {
				continue
			}
		}
		spans = append(spans, span{start: at, end: at + len(loc.token)})
		cursor = at + len(loc.token)
	}
	if len(spans) == 0 {
		return nil
	}

	segments := make([]Segment, 0, 2*len(spans)+1)
	prev := 0
	for _, s := range spans {
		if s.start > prev {
			segments = append(segments, Segment{Text: string(original[prev:s.start])})
		}
		segments = append(segments, Segment{Text: string(original[s.start:s.end]), Matched: true})
		prev = s.end
	}
	if prev < len(original) {
		segments = append(segments, Segment{Text: string(original[prev:])})
	}
	return segments
}

// indexRunes finds the first occurrence of needle in haystack at or after
// from, by rune position.
func indexRunes(haystack, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		matched := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				matched = false
				break
			}
		}
		if matched {
			return i
		}
	}
	return -1
}
