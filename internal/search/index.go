// Copyright (c) 2026 Shelfmark. All rights reserved.

/*
Package search implements the in-memory full-text index over the book
collection.

# Shape

The index keeps one postings map per searchable field — normalized token
to the positions of the documents containing it — next to a backing slice
of the documents themselves. Everything is brute force on purpose: a
personal library tops out in the low thousands of records, so rebuilding
the whole index on removal is cheaper than keeping incremental
bookkeeping honest. Known scaling limit, revisit if collections grow
past that.

# Query model

Queries are tokenized the same way fields are, scored per (field, token)
pair, and normalized against the theoretical maximum so scores stay
comparable across queries. Fuzzy matching is bounded Levenshtein with a
length-scaled allowance: short tokens must match exactly, longer ones
tolerate roughly a third of their length in edits.

The index never fails on query input. A blank query lists every document,
an unmatchable one returns nothing, and unknown field names are ignored.
*/
package search

import (
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// FieldAll selects every indexed field when it appears in Options.Fields.
const FieldAll = "all"

// Field wires one searchable document attribute into the index.
type Field[T any] struct {
	Name    string
	Extract func(T) string
}

// Options shape a single search call. The zero value means: all fields,
// tokenized query, case-insensitive, exact tokens, no result cap.
type Options struct {
	// Fields restricts the search to the named fields. Empty, or
	// containing FieldAll, means every indexed field.
	Fields []string
	// Fuzzy enables bounded edit-distance matching.
	Fuzzy bool
	// CaseSensitive keeps the query's case. Indexed tokens are stored
	// lower-cased, so an upper-case query can only lose matches.
	CaseSensitive bool
	// ExactMatch treats the whole query as one token instead of
	// tokenizing it.
	ExactMatch bool
	// Limit caps the number of results. Zero means no cap.
	Limit int
}

// Segment is one run of a field's text, matched or not. Concatenating a
// field's segments reproduces the original text.
type Segment struct {
	Text    string `json:"text"`
	Matched bool   `json:"matched"`
}

// FieldMatch carries the highlighted rendering of one matched field.
type FieldMatch struct {
	Field    string    `json:"field"`
	Segments []Segment `json:"segments"`
}

// Result is one ranked search hit.
type Result[T any] struct {
	Item    T            `json:"item"`
	Score   float64      `json:"score"`
	Matches []FieldMatch `json:"matches,omitempty"`
}

// Index is a concurrency-safe in-memory inverted index over documents of
// type T. Mutations take the write lock; Search takes the read lock and
// is otherwise pure computation, no I/O.
type Index[T any] struct {
	mu     sync.RWMutex
	id     func(T) string
	fields []Field[T]
	docs   []T
	// postings: field name → token → ordered set of document positions.
	postings map[string]map[string][]int
}

// NewIndex creates an empty index. id extracts each document's unique
// identifier; fields name the searchable attributes.
func NewIndex[T any](id func(T) string, fields ...Field[T]) *Index[T] {
	return &Index[T]{
		id:       id,
		fields:   fields,
		postings: emptyPostings(fields),
	}
}

func emptyPostings[T any](fields []Field[T]) map[string]map[string][]int {
	postings := make(map[string]map[string][]int, len(fields))
	for _, field := range fields {
		postings[field.Name] = make(map[string][]int)
	}
	return postings
}

// Add indexes doc at the next position.
func (index *Index[T]) Add(doc T) {
	index.mu.Lock()
	defer index.mu.Unlock()
	index.addLocked(doc)
}

// Build replaces the entire index contents with docs, in order.
func (index *Index[T]) Build(docs []T) {
	index.mu.Lock()
	defer index.mu.Unlock()
	index.docs = nil
	index.postings = emptyPostings(index.fields)
	for _, doc := range docs {
		index.addLocked(doc)
	}
}

// Remove drops the document with the given id and rebuilds the postings
// from the remaining documents. An unknown id is a silent no-op.
//
// The full rebuild is deliberate: postings hold slice positions, and
// removal shifts every later document. See the package comment for why
// that trade is acceptable here.
func (index *Index[T]) Remove(id string) {
	index.mu.Lock()
	defer index.mu.Unlock()
	pos := index.findLocked(id)
	if pos < 0 {
		return
	}
	index.docs = append(index.docs[:pos], index.docs[pos+1:]...)
	index.rebuildLocked()
}

// Update reindexes doc under its existing id, equivalent to Remove
// followed by Add: the document moves to the end of the backing array.
// An unknown id is a silent no-op.
func (index *Index[T]) Update(doc T) {
	index.mu.Lock()
	defer index.mu.Unlock()
	pos := index.findLocked(index.id(doc))
	if pos < 0 {
		return
	}
	index.docs = append(index.docs[:pos], index.docs[pos+1:]...)
	index.rebuildLocked()
	index.addLocked(doc)
}

// Len returns the number of indexed documents.
func (index *Index[T]) Len() int {
	index.mu.RLock()
	defer index.mu.RUnlock()
	return len(index.docs)
}

func (index *Index[T]) addLocked(doc T) {
	pos := len(index.docs)
	index.docs = append(index.docs, doc)
	for _, field := range index.fields {
		seen := make(map[string]struct{})
		for _, raw := range Tokenize(field.Extract(doc)) {
			token := normalizeToken(raw, false)
			if token == "" {
				continue
			}
			// positions form a set: a token repeated within one
			// field still counts once
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			index.postings[field.Name][token] = append(index.postings[field.Name][token], pos)
		}
	}
}

func (index *Index[T]) rebuildLocked() {
	docs := index.docs
	index.docs = nil
	index.postings = emptyPostings(index.fields)
	for _, doc := range docs {
		index.addLocked(doc)
	}
}

func (index *Index[T]) findLocked(id string) int {
	for pos, doc := range index.docs {
		if index.id(doc) == id {
			return pos
		}
	}
	return -1
}

/*
Search ranks documents against query.

Each query token is scored against each requested field: an exact lookup
awards one point per matching document, a fuzzy comparison awards the
similarity 1 − distance/max(len) for every indexed token within the edit
bound. Per-document sums are divided by the theoretical maximum
(token count × field count), sorted descending, and ties keep insertion
order.

A blank query returns every document with score 1 and no match spans,
ignoring every option including Limit.
*/
func (index *Index[T]) Search(query string, opts Options) []Result[T] {
	index.mu.RLock()
	defer index.mu.RUnlock()

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return index.everythingLocked()
	}

	fields := index.requestedFields(opts.Fields)
	if len(fields) == 0 {
		return nil
	}
	tokens := queryTokens(trimmed, opts)
	if len(tokens) == 0 {
		return nil
	}

	scores := make(map[int]float64)
	// matched indexed tokens per document position and field, kept in
	// match order for highlighting
	matches := make(map[int]map[string][]string)

	for _, field := range fields {
		postings := index.postings[field.Name]
		for _, queryToken := range tokens {
			if !opts.Fuzzy {
				for _, pos := range postings[queryToken] {
					scores[pos]++
					recordMatch(matches, pos, field.Name, queryToken)
				}
				continue
			}

			bound := fuzzyBound(utf8.RuneCountInString(queryToken))
			for token, positions := range postings {
				distance := levenshtein(queryToken, token, bound)
				if distance > bound {
					continue
				}
				longest := max(utf8.RuneCountInString(queryToken), utf8.RuneCountInString(token))
				similarity := 1 - float64(distance)/float64(longest)
				for _, pos := range positions {
					scores[pos] += similarity
					recordMatch(matches, pos, field.Name, token)
				}
			}
		}
	}

	type ranked struct {
		pos   int
		score float64
	}
	order := make([]ranked, 0, len(scores))
	for pos, score := range scores {
		order = append(order, ranked{pos: pos, score: score})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].score != order[j].score {
			return order[i].score > order[j].score
		}
		return order[i].pos < order[j].pos
	})
	if opts.Limit > 0 && len(order) > opts.Limit {
		order = order[:opts.Limit]
	}

	maximum := float64(len(tokens) * len(fields))
	results := make([]Result[T], len(order))
	for i, entry := range order {
		results[i] = Result[T]{
			Item:    index.docs[entry.pos],
			Score:   entry.score / maximum,
			Matches: index.highlightLocked(entry.pos, fields, matches[entry.pos]),
		}
	}
	return results
}

// everythingLocked implements the blank-query default: every document,
// uniform score, no match spans, no cap.
func (index *Index[T]) everythingLocked() []Result[T] {
	results := make([]Result[T], len(index.docs))
	for i, doc := range index.docs {
		results[i] = Result[T]{Item: doc, Score: 1}
	}
	return results
}

// requestedFields resolves the Fields option against the configured
// fields. Unknown names are dropped rather than erroring.
func (index *Index[T]) requestedFields(names []string) []Field[T] {
	if len(names) == 0 || slices.Contains(names, FieldAll) {
		return index.fields
	}
	requested := make([]Field[T], 0, len(names))
	for _, field := range index.fields {
		if slices.Contains(names, field.Name) {
			requested = append(requested, field)
		}
	}
	return requested
}

// queryTokens normalizes the query into lookup tokens. ExactMatch keeps
// the whole query as a single token, interior whitespace and all.
func queryTokens(query string, opts Options) []string {
	if opts.ExactMatch {
		token := normalizeToken(query, opts.CaseSensitive)
		if token == "" {
			return nil
		}
		return []string{token}
	}
	raw := Tokenize(query)
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		token = normalizeToken(token, opts.CaseSensitive)
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func recordMatch(matches map[int]map[string][]string, pos int, field, token string) {
	byField := matches[pos]
	if byField == nil {
		byField = make(map[string][]string)
		matches[pos] = byField
	}
	if slices.Contains(byField[field], token) {
		return
	}
	byField[field] = append(byField[field], token)
}
