package analysis

import (
	"strings"
	"time"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/types"
)

const (
	engagementHeadroom  = 1.5
	demandCeiling       = 5.0
	problemCeiling      = 0.005
	problemHeadroom     = 2.0
	formatScale         = 2.0
	formatFallbackScore = 50.0
	maxComponentScore   = 100.0
)

var componentWeights = []struct {
	key    string
	weight float64
}{
	{ComponentEngagement, 0.30},
	{ComponentViews, 0.25},
	{ComponentDemand, 0.15},
	{ComponentProblem, 0.10},
	{ComponentFormat, 0.10},
	{ComponentConsistency, 0.10},
}

var verdictThresholds = []struct {
	min     float64
	verdict string
}{
	{80, VerdictS},
	{65, VerdictA},
	{50, VerdictB},
	{35, VerdictC},
}

// Engine scores channels against a fixed benchmark table. It holds no
// per-run state and is safe for concurrent use.
type Engine struct {
	benchmarks     BenchmarkTable
	classifier     *CommentClassifier
	formatKeywords []string
	now            func() time.Time
}

type engineConfig struct {
	benchmarks BenchmarkTable
	keywords   map[KeywordCategory][]string
	now        func() time.Time
}

// Option configures an Engine
type Option func(*engineConfig)

// WithBenchmarks replaces the benchmark table. Tiers missing from table keep
// their default benchmark.
func WithBenchmarks(table BenchmarkTable) Option {
	return func(c *engineConfig) {
		for tier, b := range table {
			c.benchmarks[tier] = b
		}
	}
}

// WithKeywords replaces individual keyword lists
func WithKeywords(keywords map[KeywordCategory][]string) Option {
	return func(c *engineConfig) {
		for cat, words := range keywords {
			c.keywords[cat] = append([]string(nil), words...)
		}
	}
}

// WithClock sets the clock used to derive days since upload
func WithClock(now func() time.Time) Option {
	return func(c *engineConfig) {
		c.now = now
	}
}

// NewEngine builds an engine with the default benchmarks and keyword lists
func NewEngine(opts ...Option) *Engine {
	cfg := &engineConfig{
		benchmarks: DefaultBenchmarks(),
		keywords:   DefaultKeywords(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	formatKeywords := make([]string, 0, len(cfg.keywords[KeywordFormat]))
	for _, kw := range cfg.keywords[KeywordFormat] {
		formatKeywords = append(formatKeywords, strings.ToLower(kw))
	}

	return &Engine{
		benchmarks:     cfg.benchmarks,
		classifier:     NewCommentClassifier(cfg.keywords),
		formatKeywords: formatKeywords,
		now:            cfg.now,
	}
}

// Benchmark returns the benchmark used for tier
func (e *Engine) Benchmark(tier Tier) Benchmark {
	return e.benchmarks[tier]
}

// Benchmarks returns a copy of the engine's benchmark table
func (e *Engine) Benchmarks() BenchmarkTable {
	return e.benchmarks.Clone()
}

// Score runs the full pipeline for one channel. It never fails: degenerate
// input yields zero-filled or empty sections.
func (e *Engine) Score(channel types.ChannelProfile, videos []types.VideoRecord) ScoreReport {
	tier := ClassifyTier(channel.SubscriberCount)
	bench := e.benchmarks[tier]

	report := ScoreReport{
		ChannelName:        channel.ChannelName,
		ChannelID:          channel.ChannelID,
		SubscriberCount:    formatCount(channel.SubscriberCount),
		TotalViews:         formatCount(channel.TotalViews),
		VideoCountAnalyzed: len(videos),
		Tier:               tier,
		Verdict:            VerdictNone,
		Components:         Components{},
		RawValues:          RawValues{},
		PerformanceProfile: PerformanceProfile{},
		CommentSamples:     CommentSamples{DemandSamples: []string{}, ProblemSamples: []string{}},
		Benchmark:          bench,
		AnalyzedAt:         e.now().UTC(),
	}

	if len(videos) == 0 {
		return report
	}

	metrics := make([]VideoMetrics, len(videos))
	for i, v := range videos {
		metrics[i] = e.deriveVideo(v)
	}

	report.FormatEffects = AnalyzeFormatEffect(metrics)
	report.UploadConsistency = AnalyzeUploadConsistency(metrics)

	components, raw, blc := compositeScore(metrics, bench, report.FormatEffects, report.UploadConsistency)
	report.Components = components
	report.RawValues = raw
	report.BLCScore = roundTo(blc, 1)
	report.Verdict = VerdictFor(blc)
	report.Matching = MatchProfile(components)
	report.PerformanceProfile = performanceProfile(metrics)
	report.CommentStatistics = commentStatistics(metrics)
	report.CommentSamples = commentSamples(metrics)

	return report
}

// compositeScore returns the rounded components, the raw medians and the
// unrounded composite score
func compositeScore(videos []VideoMetrics, bench Benchmark, format FormatEffects, consistency UploadConsistency) (Components, RawValues, float64) {
	engMedian := median(column(videos, func(v VideoMetrics) float64 { return v.EngagementPer1K }))
	vpdMedian := median(column(videos, func(v VideoMetrics) float64 { return v.ViewsPerDay }))
	demandMedian := median(column(videos, func(v VideoMetrics) float64 { return v.DemandIndex }))
	problemMedian := median(column(videos, func(v VideoMetrics) float64 { return v.ProblemRate }))

	scores := map[string]float64{
		ComponentEngagement:  ratioScore(engMedian, bench.EngagementPer1K*engagementHeadroom),
		ComponentViews:       ratioScore(vpdMedian, bench.ViewsPerDay),
		ComponentDemand:      demandScore(demandMedian, bench.DemandIndex),
		ComponentProblem:     problemScore(problemMedian, bench.ProblemRate),
		ComponentFormat:      formatScore(format),
		ComponentConsistency: ratioScore(consistency.VideosPerWeek, bench.VideosPerWeek),
	}

	blc := 0.0
	components := make(Components, len(componentWeights))
	for _, cw := range componentWeights {
		s := clip(finite(scores[cw.key]), 0, maxComponentScore)
		blc += float64(s * cw.weight)
		components[cw.key] = roundTo(s, 1)
	}

	raw := RawValues{
		RawEngagementMedian:  roundTo(engMedian, 2),
		RawViewsPerDayMedian: roundTo(vpdMedian, 1),
		RawDemandIndexMedian: roundTo(demandMedian, 2),
		RawProblemRateMedian: roundTo(problemMedian, 4),
		RawVideosPerWeek:     consistency.VideosPerWeek,
	}

	return components, raw, clip(blc, 0, maxComponentScore)
}

// ratioScore is value/benchmark as a percentage, 0 when the benchmark is 0
func ratioScore(value, benchmark float64) float64 {
	if benchmark <= 0 {
		return 0
	}
	return value / benchmark * 100
}

func demandScore(medianIndex, benchmark float64) float64 {
	if medianIndex >= demandCeiling {
		return maxComponentScore
	}
	return ratioScore(medianIndex, benchmark)
}

func problemScore(medianRate, benchmark float64) float64 {
	if medianRate >= problemCeiling {
		return maxComponentScore
	}
	return ratioScore(medianRate, benchmark*problemHeadroom)
}

func formatScore(effects FormatEffects) float64 {
	if !effects.Present() {
		return formatFallbackScore
	}
	return effects.Format.ImprovementPct * formatScale
}

// VerdictFor maps an unrounded composite score to its grade
func VerdictFor(score float64) string {
	for _, t := range verdictThresholds {
		if score >= t.min {
			return t.verdict
		}
	}
	return VerdictD
}
