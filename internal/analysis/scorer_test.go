package analysis

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/types"
)

func midTierScenario() (types.ChannelProfile, []types.VideoRecord) {
	videos := make([]types.VideoRecord, 0, 10)
	for i := 0; i < 10; i++ {
		comment := "영상 잘 봤습니다"
		if i < 5 {
			comment = "구매했어요"
		}
		videos = append(videos, testVideo(fmt.Sprintf("데일리 메이크업 %d", i), 10_000, 500, 200, 5, comment))
	}
	return testChannel(250_000), videos
}

func TestScore_MidTierScenario(t *testing.T) {
	channel, videos := midTierScenario()
	report := newTestEngine().Score(channel, videos)

	assert.Equal(t, TierMid, report.Tier)
	assert.Equal(t, "250,000", report.SubscriberCount)
	assert.Equal(t, "5,000,000", report.TotalViews)
	assert.Equal(t, 10, report.VideoCountAnalyzed)

	assert.Equal(t, Components{
		ComponentEngagement:  100,
		ComponentViews:       100,
		ComponentDemand:      12.5,
		ComponentProblem:     0,
		ComponentFormat:      50,
		ComponentConsistency: 83,
	}, report.Components)
	assert.Equal(t, 70.2, report.BLCScore)
	assert.Equal(t, VerdictA, report.Verdict)

	assert.Equal(t, RawValues{
		RawEngagementMedian:  70,
		RawViewsPerDayMedian: 2000,
		RawDemandIndexMedian: 0.05,
		RawProblemRateMedian: 0,
		RawVideosPerWeek:     0.83,
	}, report.RawValues)

	assert.False(t, report.FormatEffects.Present())
	assert.Equal(t, 0.83, report.UploadConsistency.VideosPerWeek)
	assert.Equal(t, 0.0, report.UploadConsistency.ConsistencyScore)
	assert.Equal(t, 10, report.UploadConsistency.VideoCount)

	assert.Equal(t, "트렌드·큐레이터 카테고리", report.Matching.Category)

	assert.Equal(t, CommentStatistics{
		TotalCommentsCollected: 10,
		AvgCommentsPerVideo:    1,
		TotalDemandMatches:     5,
		TotalProblemMatches:    0,
		DemandMatchRate:        50,
		ProblemMatchRate:       0,
	}, report.CommentStatistics)
	assert.Equal(t, []string{"구매했어요"}, report.CommentSamples.DemandSamples)
	assert.Empty(t, report.CommentSamples.ProblemSamples)

	assert.Equal(t, 2000.0, report.PerformanceProfile["views_per_day_median"])
	assert.Equal(t, 0.0, report.PerformanceProfile["views_per_day_std"])
	assert.InDelta(t, 0.05, report.PerformanceProfile["demand_index_mean"], 1e-12)
	assert.InDelta(t, 0.0527, report.PerformanceProfile["demand_index_std"], 1e-4)
	assert.Len(t, report.PerformanceProfile, 18)

	assert.Equal(t, DefaultBenchmarks()[TierMid], report.Benchmark)
	assert.Equal(t, fixedNow, report.AnalyzedAt)
}

func TestScore_ZeroVideos(t *testing.T) {
	report := newTestEngine().Score(testChannel(1_200_000), []types.VideoRecord{})

	assert.Equal(t, 0.0, report.BLCScore)
	assert.Equal(t, VerdictNone, report.Verdict)
	assert.Equal(t, TierMajor, report.Tier)
	assert.Empty(t, report.Components)
	assert.Empty(t, report.PerformanceProfile)

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"components", "raw_values", "performance_profile", "format_effects", "upload_consistency", "blc_matching"} {
		assert.JSONEq(t, `{}`, string(decoded[key]), key)
	}
	assert.False(t, report.UploadConsistency.Measured)
	assert.JSONEq(t, `{"demand_samples": [], "problem_samples": []}`, string(decoded["comment_samples"]))
}

func TestScore_Bounds(t *testing.T) {
	engine := newTestEngine()
	verdicts := map[string]bool{VerdictS: true, VerdictA: true, VerdictB: true, VerdictC: true, VerdictD: true}

	for _, subs := range []int64{0, 50_000, 300_000, 2_000_000} {
		for _, views := range []int64{0, 1, 150, 1_000_000, 2_000_000_000} {
			for _, likes := range []int64{0, 10, 50_000_000} {
				for _, days := range []int{0, 1, 30, 400} {
					videos := []types.VideoRecord{
						testVideo("후기", views, likes, likes/10, days, "샀어요", "트러블"),
						testVideo("vlog", views/2, likes, 0, days+3),
						testVideo("before after", views, 0, likes, days+10, "모공"),
					}
					report := engine.Score(testChannel(subs), videos)

					assert.GreaterOrEqual(t, report.BLCScore, 0.0)
					assert.LessOrEqual(t, report.BLCScore, 100.0)
					assert.True(t, verdicts[report.Verdict], report.Verdict)
					for name, c := range report.Components {
						assert.GreaterOrEqual(t, c, 0.0, name)
						assert.LessOrEqual(t, c, 100.0, name)
					}
				}
			}
		}
	}
}

func TestScore_DemandAndProblemCeilings(t *testing.T) {
	engine := newTestEngine()

	// every comment signals both demand and a skin concern
	texts := make([]any, 10)
	for i := range texts {
		texts[i] = "재구매 했는데 트러블 고민"
	}

	for _, subs := range []int64{5_000, 50_000, 200_000, 900_000} {
		videos := []types.VideoRecord{
			testVideo("a", 1_000, 10, 10, 3, texts...),
			testVideo("b", 1_000, 10, 10, 4, texts...),
		}
		report := engine.Score(testChannel(subs), videos)

		assert.Equal(t, 100.0, report.Components[ComponentDemand], "tier %s", report.Tier)
		assert.Equal(t, 100.0, report.Components[ComponentProblem], "tier %s", report.Tier)
	}
}

func TestScore_FormatLiftCapsComponent(t *testing.T) {
	videos := []types.VideoRecord{
		testVideo("내돈내산 후기", 1_000, 90, 10, 2),
		testVideo("사용법 정리", 1_000, 90, 10, 3),
		testVideo("일상 브이로그", 1_000, 10, 0, 4),
		testVideo("여행 브이로그", 1_000, 10, 0, 5),
	}
	report := newTestEngine().Score(testChannel(20_000), videos)

	require.True(t, report.FormatEffects.Present())
	assert.Equal(t, 200.0, report.FormatEffects.Format.ImprovementPct)
	assert.Equal(t, 100.0, report.Components[ComponentFormat])
}

func TestScore_Idempotent(t *testing.T) {
	channel, videos := midTierScenario()
	engine := newTestEngine()

	assert.Equal(t, engine.Score(channel, videos), engine.Score(channel, videos))
}

func TestScore_SampleCap(t *testing.T) {
	videos := make([]types.VideoRecord, 0, 5)
	for i := 0; i < 5; i++ {
		videos = append(videos, testVideo("v", 1_000, 1, 1, 2,
			fmt.Sprintf("샀어요 %d-a", i),
			fmt.Sprintf("샀어요 %d-b", i),
			fmt.Sprintf("샀어요 %d-c", i),
			fmt.Sprintf("샀어요 %d-d", i),
			"샀어요 공통",
		))
	}
	report := newTestEngine().Score(testChannel(1_000), videos)

	assert.Len(t, report.CommentSamples.DemandSamples, maxReportSamples)
	assert.Equal(t, "샀어요 0-a", report.CommentSamples.DemandSamples[0])
	assert.Equal(t, "샀어요 3-a", report.CommentSamples.DemandSamples[9])
	assert.Equal(t, 25, report.CommentStatistics.TotalDemandMatches)
}

func TestScore_CustomBenchmarks(t *testing.T) {
	table := BenchmarkTable{TierMid: {EngagementPer1K: 100, ViewsPerDay: 4000, DemandIndex: 0.4, ProblemRate: 0, VideosPerWeek: 0}}
	engine := newTestEngine(WithBenchmarks(table))

	channel, videos := midTierScenario()
	report := engine.Score(channel, videos)

	assert.InDelta(t, 46.7, report.Components[ComponentEngagement], 1e-9)
	assert.Equal(t, 50.0, report.Components[ComponentViews])
	assert.Equal(t, 0.0, report.Components[ComponentProblem])
	assert.Equal(t, 0.0, report.Components[ComponentConsistency])
	assert.Equal(t, DefaultBenchmarks()[TierRising], engine.Benchmark(TierRising))
}

func TestVerdictFor(t *testing.T) {
	tests := []struct {
		score    float64
		expected string
	}{
		{100, VerdictS},
		{80, VerdictS},
		{79.99, VerdictA},
		{65, VerdictA},
		{64.96, VerdictB},
		{50, VerdictB},
		{49.9, VerdictC},
		{35, VerdictC},
		{34.99, VerdictD},
		{0, VerdictD},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.score), func(t *testing.T) {
			assert.Equal(t, tt.expected, VerdictFor(tt.score))
		})
	}
}

func TestComponentNormalization(t *testing.T) {
	assert.Equal(t, 0.0, ratioScore(10, 0))
	assert.Equal(t, 50.0, ratioScore(1, 2))

	assert.Equal(t, 100.0, demandScore(5.0, 1000))
	assert.Equal(t, 25.0, demandScore(0.1, 0.4))

	assert.Equal(t, 100.0, problemScore(0.005, 0))
	assert.Equal(t, 0.0, problemScore(0.004, 0))
	assert.InDelta(t, 25.0, problemScore(0.004, 0.008), 1e-9)
}

func BenchmarkScore(b *testing.B) {
	channel, videos := midTierScenario()
	engine := newTestEngine()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Score(channel, videos)
	}
}
