package pkgresolve

import (
	"github.com/agnivade/levenshtein"
)

// defaultFuzzyThreshold is the minimum similarity score for a fuzzy match
// to be accepted when no internal/config.Config override is supplied.
const defaultFuzzyThreshold = 0.7

// similarity turns a Levenshtein edit distance into a 0..1 score with a
// length penalty, so "close but much shorter" candidates score lower than
// "close and about the same length" ones.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// bestFuzzyMatch scans every candidate name and returns the one with the
// highest similarity score, provided it clears threshold.
func bestFuzzyMatch(target string, candidates []string, threshold float64) (string, bool) {
	bestName := ""
	bestScore := 0.0
	for _, c := range candidates {
		score := similarity(target, c)
		if score > bestScore {
			bestScore = score
			bestName = c
		}
	}
	if bestScore < threshold {
		return "", false
	}
	return bestName, true
}
