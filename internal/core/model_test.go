package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		score int
		want  RiskTier
	}{
		{1, TierLow},
		{2, TierLow},
		{3, TierLow},
		{4, TierMedium},
		{5, TierMedium},
		{6, TierMedium},
		{7, TierHigh},
		{8, TierHigh},
		{9, TierHigh},
		{10, TierHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.score), "score %d", tt.score)
	}
}

func TestTierForIsMonotonic(t *testing.T) {
	rank := map[RiskTier]int{TierLow: 0, TierMedium: 1, TierHigh: 2}

	prev := rank[TierFor(1)]
	for s := 2; s <= 10; s++ {
		cur := rank[TierFor(s)]
		assert.GreaterOrEqual(t, cur, prev, "tier dropped at score %d", s)
		prev = cur
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 1, ClampScore(-3))
	assert.Equal(t, 1, ClampScore(0))
	assert.Equal(t, 5, ClampScore(5))
	assert.Equal(t, 10, ClampScore(10))
	assert.Equal(t, 10, ClampScore(42))
}

func TestRecommendationFor(t *testing.T) {
	highFlag := []RedFlag{{Label: "link-mismatch", Severity: SeverityHigh, Source: SourceHeuristic}}

	assert.Equal(t, ActionIgnore, RecommendationFor(TierLow, nil))
	assert.Equal(t, ActionCaution, RecommendationFor(TierMedium, nil))
	assert.Equal(t, ActionBlock, RecommendationFor(TierHigh, nil))
	assert.Equal(t, ActionBlock, RecommendationFor(TierLow, highFlag))
}

func TestHeaderLookupIsCaseInsensitive(t *testing.T) {
	email := &CanonicalEmail{Headers: map[string]string{"from": "alice@example.com"}}

	assert.Equal(t, "alice@example.com", email.Header("From"))
	assert.Equal(t, "alice@example.com", email.Header("FROM"))
	assert.Equal(t, "", email.Header("Reply-To"))
}
