package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTier(t *testing.T) {
	tests := []struct {
		name        string
		subscribers int64
		expected    Tier
	}{
		{name: "negative treated as emerging", subscribers: -10, expected: TierEmerging},
		{name: "zero", subscribers: 0, expected: TierEmerging},
		{name: "just below rising", subscribers: 9_999, expected: TierEmerging},
		{name: "rising lower bound", subscribers: 10_000, expected: TierRising},
		{name: "just below mid", subscribers: 99_999, expected: TierRising},
		{name: "mid lower bound", subscribers: 100_000, expected: TierMid},
		{name: "just below major", subscribers: 499_999, expected: TierMid},
		{name: "major lower bound", subscribers: 500_000, expected: TierMajor},
		{name: "very large", subscribers: 25_000_000, expected: TierMajor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyTier(tt.subscribers))
		})
	}
}

func TestDefaultBenchmarks(t *testing.T) {
	table := DefaultBenchmarks()
	assert.Len(t, table, 4)

	for _, tier := range Tiers {
		b, ok := table[tier]
		assert.True(t, ok, "missing %s", tier)
		assert.Equal(t, 1.0, b.VideosPerWeek)
	}

	assert.Equal(t, Benchmark{EngagementPer1K: 22, ViewsPerDay: 500, DemandIndex: 0.4, ProblemRate: 0.008, VideosPerWeek: 1}, table[TierMid])
	assert.Equal(t, 2000.0, table[TierMajor].ViewsPerDay)
	assert.Equal(t, 0.003, table[TierEmerging].ProblemRate)

	// callers get an independent copy
	table[TierMid] = Benchmark{}
	assert.Equal(t, 22.0, DefaultBenchmarks()[TierMid].EngagementPer1K)
}

func TestTierValid(t *testing.T) {
	assert.True(t, TierRising.Valid())
	assert.False(t, Tier("Tier_5_Tiny").Valid())
}
