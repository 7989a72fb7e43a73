// Copyright (c) 2026 Shelfmark. All rights reserved.

package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tokenize splits s into runs of letters and digits. Punctuation and
// whitespace act as separators and never appear in tokens.
func Tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Fold strips accents and lowercases: "Café" becomes "cafe". Tokens are
// folded before they enter the index so "Hélène" and "Helene" collide.
func Fold(s string) string {
	return strings.ToLower(stripMarks(s))
}

// stripMarks removes combining marks after NFD decomposition
// (é → e + combining acute → e).
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn))
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// isMn reports whether r is a Unicode non-spacing mark (e.g., accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// normalizeToken folds one token for index lookup. Indexed tokens are
// always lower-cased; query tokens keep their case when the caller asked
// for a case-sensitive search, which can only narrow matches since the
// index side is already lower-cased.
func normalizeToken(token string, caseSensitive bool) string {
	token = stripMarks(token)
	if !caseSensitive {
		token = strings.ToLower(token)
	}
	return token
}

// foldRunes returns a rune-for-rune folded copy of s so match offsets in
// the folded text line up with the original. Combining marks fold to
// themselves instead of disappearing, which keeps the alignment.
func foldRunes(s string) []rune {
	runes := []rune(s)
	folded := make([]rune, len(runes))
	for i, r := range runes {
		folded[i] = foldRune(r)
	}
	return folded
}

// foldRune lowercases r and strips its accent, if any.
func foldRune(r rune) rune {
	if r < 0x80 {
		return unicode.ToLower(r)
	}
	for _, decomposed := range norm.NFD.String(string(r)) {
		if !unicode.Is(unicode.Mn, decomposed) {
			return unicode.ToLower(decomposed)
		}
	}
	return r
}
