package analysis

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var countPrinter = message.NewPrinter(language.English)

// formatCount renders n with thousands separators ("1,234,567")
func formatCount(n int64) string {
	return countPrinter.Sprintf("%d", n)
}

var profileMetrics = []struct {
	name string
	pick func(VideoMetrics) float64
}{
	{"views_per_day", func(v VideoMetrics) float64 { return v.ViewsPerDay }},
	{"engagement_per_1k", func(v VideoMetrics) float64 { return v.EngagementPer1K }},
	{"likes_per_view", func(v VideoMetrics) float64 { return v.LikesPerView }},
	{"comments_per_view", func(v VideoMetrics) float64 { return v.CommentsPerView }},
	{"demand_index", func(v VideoMetrics) float64 { return v.DemandIndex }},
	{"problem_rate", func(v VideoMetrics) float64 { return v.ProblemRate }},
}

func performanceProfile(videos []VideoMetrics) PerformanceProfile {
	profile := make(PerformanceProfile, len(profileMetrics)*3)
	if len(videos) == 0 {
		return profile
	}
	for _, m := range profileMetrics {
		values := column(videos, m.pick)
		profile[m.name+"_median"] = median(values)
		profile[m.name+"_mean"] = mean(values)
		profile[m.name+"_std"] = sampleStd(values)
	}
	return profile
}

func commentStatistics(videos []VideoMetrics) CommentStatistics {
	var stats CommentStatistics
	if len(videos) == 0 {
		return stats
	}

	for _, v := range videos {
		stats.TotalCommentsCollected += v.TotalAnalyzedComments
		stats.TotalDemandMatches += v.DemandCount
		stats.TotalProblemMatches += v.ProblemCount
	}

	stats.AvgCommentsPerVideo = roundTo(float64(stats.TotalCommentsCollected)/float64(len(videos)), 1)
	if stats.TotalCommentsCollected > 0 {
		total := float64(stats.TotalCommentsCollected)
		stats.DemandMatchRate = roundTo(float64(stats.TotalDemandMatches)/total*100, 2)
		stats.ProblemMatchRate = roundTo(float64(stats.TotalProblemMatches)/total*100, 2)
	}
	return stats
}

func commentSamples(videos []VideoMetrics) CommentSamples {
	demand := make([][]string, len(videos))
	problem := make([][]string, len(videos))
	for i, v := range videos {
		demand[i] = v.DemandSamples
		problem[i] = v.ProblemSamples
	}
	return CommentSamples{
		DemandSamples:  collectSamples(demand, maxReportSamples),
		ProblemSamples: collectSamples(problem, maxReportSamples),
	}
}
