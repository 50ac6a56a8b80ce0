package analysis

import (
	"math"
	"sort"
)

const (
	recentWeeks    = 12
	targetInterval = 7.0
)

// AnalyzeUploadConsistency measures upload cadence over the last twelve weeks.
// An empty video set yields an unmeasured result.
func AnalyzeUploadConsistency(videos []VideoMetrics) UploadConsistency {
	if len(videos) == 0 {
		return UploadConsistency{}
	}

	cutoff := recentWeeks * 7
	recent := make([]VideoMetrics, 0, len(videos))
	for _, v := range videos {
		if v.DaysSinceUpload <= cutoff {
			recent = append(recent, v)
		}
	}

	perWeek := roundTo(float64(len(recent))/recentWeeks, 2)
	if len(recent) <= 1 {
		return UploadConsistency{Measured: true, VideosPerWeek: perWeek}
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].PublishedAt.Before(recent[j].PublishedAt)
	})

	gaps := make([]float64, 0, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		gap := recent[i].PublishedAt.Sub(recent[i-1].PublishedAt)
		gaps = append(gaps, float64(gap/day))
	}

	avg := roundTo(mean(gaps), 1)
	std := roundTo(sampleStd(gaps), 1)

	return UploadConsistency{
		Measured:         true,
		VideoCount:       len(recent),
		Weeks:            recentWeeks,
		VideosPerWeek:    perWeek,
		AvgIntervalDays:  &avg,
		IntervalStd:      &std,
		ConsistencyScore: legacyConsistencyScore(gaps),
	}
}

// legacyConsistencyScore rewards gaps close to a weekly cadence. Reported for
// display only; the composite uses videos_per_week.
func legacyConsistencyScore(gaps []float64) float64 {
	if len(gaps) == 0 {
		return 0
	}

	deviation := 0.0
	for _, g := range gaps {
		deviation += math.Abs(g - targetInterval)
	}
	deviation /= float64(len(gaps))

	score := math.Max(0, 100-deviation/targetInterval*100)
	if std := sampleStd(gaps); std > 0 {
		score -= std / targetInterval * 100
	}

	return roundTo(math.Max(0, score), 1)
}
