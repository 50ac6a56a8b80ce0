package analysis

const (
	majorSubscribers  = 500_000
	midSubscribers    = 100_000
	risingSubscribers = 10_000
)

// ClassifyTier maps a subscriber count to its cohort, highest tier first
func ClassifyTier(subscribers int64) Tier {
	switch {
	case subscribers >= majorSubscribers:
		return TierMajor
	case subscribers >= midSubscribers:
		return TierMid
	case subscribers >= risingSubscribers:
		return TierRising
	default:
		return TierEmerging
	}
}

// DefaultBenchmarks returns the built-in beauty vertical benchmark table
func DefaultBenchmarks() BenchmarkTable {
	return BenchmarkTable{
		TierMajor: {
			EngagementPer1K: 30.0,
			ViewsPerDay:     2000.0,
			DemandIndex:     1.0,
			ProblemRate:     0.015,
			VideosPerWeek:   1.0,
		},
		TierMid: {
			EngagementPer1K: 22.0,
			ViewsPerDay:     500.0,
			DemandIndex:     0.4,
			ProblemRate:     0.008,
			VideosPerWeek:   1.0,
		},
		TierRising: {
			EngagementPer1K: 18.0,
			ViewsPerDay:     200.0,
			DemandIndex:     0.2,
			ProblemRate:     0.005,
			VideosPerWeek:   1.0,
		},
		TierEmerging: {
			EngagementPer1K: 15.0,
			ViewsPerDay:     50.0,
			DemandIndex:     0.1,
			ProblemRate:     0.003,
			VideosPerWeek:   1.0,
		},
	}
}
