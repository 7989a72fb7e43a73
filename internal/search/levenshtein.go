// Copyright (c) 2026 Shelfmark. All rights reserved.

package search

// fuzzyBound returns the edit-distance allowance for a query token of the
// given rune length. Tokens of two characters or fewer must match exactly,
// short tokens tolerate one edit, and longer ones roughly a third of their
// length.
func fuzzyBound(length int) int {
	switch {
	case length <= 2:
		return 0
	case length <= 4:
		return 1
	default:
		return length / 3
	}
}

/*
levenshtein computes the edit distance between a and b with unit-cost
insertions, deletions, and substitutions.

The computation gives up as soon as the distance provably exceeds bound
and returns bound+1 instead of the true distance, which keeps fuzzy scans
cheap on long mismatched tokens. Any path through the edit matrix crosses
every row, so once a whole row exceeds the bound the final distance must
too.
*/
func levenshtein(a, b string, bound int) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(rb)-len(ra) > bound {
		return bound + 1
	}

	previous := make([]int, len(ra)+1)
	current := make([]int, len(ra)+1)
	for i := range previous {
		previous[i] = i
	}

	for j := 1; j <= len(rb); j++ {
		current[0] = j
		best := current[0]
		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			current[i] = min(previous[i]+1, current[i-1]+1, previous[i-1]+cost)
			if current[i] < best {
				best = current[i]
			}
		}
		if best > bound {
			return bound + 1
		}
		previous, current = current, previous
	}

	if previous[len(ra)] > bound {
		return bound + 1
	}
	return previous[len(ra)]
}
