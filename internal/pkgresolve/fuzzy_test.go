package pkgresolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarityExactMatch(t *testing.T) {
	assert.Equal(t, 1.0, similarity("curl", "curl"))
}

func TestSimilarityBothEmpty(t *testing.T) {
	assert.Equal(t, 1.0, similarity("", ""))
}

func TestSimilarityCloseStrings(t *testing.T) {
	score := similarity("nodejs", "nodejss")
	assert.Greater(t, score, 0.7)
}

func TestBestFuzzyMatchAboveThreshold(t *testing.T) {
	match, ok := bestFuzzyMatch("curll", []string{"curl", "git", "gcc"}, defaultFuzzyThreshold)
	assert.True(t, ok)
	assert.Equal(t, "curl", match)
}

func TestBestFuzzyMatchBelowThreshold(t *testing.T) {
	_, ok := bestFuzzyMatch("zzzzzzzzzz", []string{"curl", "git", "gcc"}, defaultFuzzyThreshold)
	assert.False(t, ok)
}

func TestBestFuzzyMatchNoCandidates(t *testing.T) {
	_, ok := bestFuzzyMatch("curl", nil, defaultFuzzyThreshold)
	assert.False(t, ok)
}

func TestBestFuzzyMatchCustomThreshold(t *testing.T) {
	_, ok := bestFuzzyMatch("curll", []string{"curl"}, 0.99)
	assert.False(t, ok)
}
