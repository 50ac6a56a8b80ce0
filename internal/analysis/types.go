package analysis

import (
	"encoding/json"
	"time"
)

// Tier is the subscriber cohort a channel is benchmarked against
type Tier string

const (
	TierMajor    Tier = "Tier_1_Major"
	TierMid      Tier = "Tier_2_Mid"
	TierRising   Tier = "Tier_3_Rising"
	TierEmerging Tier = "Tier_4_Emerging"
)

// Tiers lists all tiers from largest to smallest
var Tiers = []Tier{TierMajor, TierMid, TierRising, TierEmerging}

// Valid reports whether t is one of the known tiers
func (t Tier) Valid() bool {
	for _, known := range Tiers {
		if t == known {
			return true
		}
	}
	return false
}

// Benchmark holds the reference values a tier is normalized against
type Benchmark struct {
	EngagementPer1K float64 `json:"engagement_per_1k" yaml:"engagement_per_1k"`
	ViewsPerDay     float64 `json:"views_per_day" yaml:"views_per_day"`
	DemandIndex     float64 `json:"demand_index" yaml:"demand_index"`
	ProblemRate     float64 `json:"problem_rate" yaml:"problem_rate"`
	VideosPerWeek   float64 `json:"videos_per_week_benchmark" yaml:"videos_per_week_benchmark"`
}

// BenchmarkTable maps every tier to its benchmark
type BenchmarkTable map[Tier]Benchmark

// Clone returns an independent copy of the table
func (t BenchmarkTable) Clone() BenchmarkTable {
	out := make(BenchmarkTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Verdict labels
const (
	VerdictS    = "S (immediate go)"
	VerdictA    = "A (go)"
	VerdictB    = "B (conditional go)"
	VerdictC    = "C (hold)"
	VerdictD    = "D (unfit)"
	VerdictNone = "N/A"
)

// Component score keys
const (
	ComponentEngagement  = "engagement_score"
	ComponentViews       = "views_score"
	ComponentDemand      = "demand_score"
	ComponentProblem     = "problem_score"
	ComponentFormat      = "format_score"
	ComponentConsistency = "consistency_score"
)

// Raw value keys
const (
	RawEngagementMedian  = "engagement_median"
	RawViewsPerDayMedian = "views_per_day_median"
	RawDemandIndexMedian = "demand_index_median"
	RawProblemRateMedian = "problem_rate_median"
	RawVideosPerWeek     = "videos_per_week"
)

// Components holds the six 0-100 sub-scores keyed by Component* names
type Components map[string]float64

// RawValues holds the medians that feed the components
type RawValues map[string]float64

// PerformanceProfile holds {metric}_median, _mean and _std per video metric
type PerformanceProfile map[string]float64

// CommentAnalysis is the keyword classification of one video's comments
type CommentAnalysis struct {
	DemandCount           int      `json:"demand_count"`
	ProblemCount          int      `json:"problem_count"`
	TotalAnalyzedComments int      `json:"total_analyzed_comments"`
	DemandSamples         []string `json:"demand_samples"`
	ProblemSamples        []string `json:"problem_samples"`
}

// VideoMetrics are the derived per-video values the scorer aggregates
type VideoMetrics struct {
	VideoID         string    `json:"video_id,omitempty"`
	Title           string    `json:"title"`
	PublishedAt     time.Time `json:"published_at"`
	DaysSinceUpload int       `json:"days_since_upload"`
	DurationSeconds int64     `json:"duration_seconds"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       int64     `json:"like_count"`
	CommentCount    int64     `json:"comment_count"`

	ViewsPerDay     float64 `json:"views_per_day"`
	EngagementPer1K float64 `json:"engagement_per_1k"`
	LikesPerView    float64 `json:"likes_per_view"`
	CommentsPerView float64 `json:"comments_per_view"`
	LengthBucket    string  `json:"length_bucket"`

	CommentAnalysis
	DemandIndex float64 `json:"demand_index"`
	ProblemRate float64 `json:"problem_rate"`
	HasFormat   bool    `json:"has_format"`
}

// FormatEffect compares engagement of titles with and without a format keyword
type FormatEffect struct {
	CountWith         int     `json:"count_with"`
	CountWithout      int     `json:"count_without"`
	EngagementWith    float64 `json:"engagement_with"`
	EngagementWithout float64 `json:"engagement_without"`
	ImprovementPct    float64 `json:"improvement_pct"`
}

// FormatEffects is empty ({}) when the sample is insufficient or shows no lift
type FormatEffects struct {
	Format *FormatEffect `json:"format,omitempty"`
}

// Present reports whether a format effect was measured
func (f FormatEffects) Present() bool {
	return f.Format != nil
}

// UploadConsistency describes recent upload cadence. Interval statistics are
// only present when at least two recent uploads exist. An unmeasured value
// (no videos at all) encodes as {}.
type UploadConsistency struct {
	Measured         bool     `json:"-"`
	VideoCount       int      `json:"video_count,omitempty"`
	Weeks            int      `json:"weeks,omitempty"`
	VideosPerWeek    float64  `json:"videos_per_week"`
	AvgIntervalDays  *float64 `json:"avg_interval_days,omitempty"`
	IntervalStd      *float64 `json:"interval_std,omitempty"`
	ConsistencyScore float64  `json:"consistency_score"`
}

type plainUploadConsistency UploadConsistency

func (u UploadConsistency) MarshalJSON() ([]byte, error) {
	if !u.Measured {
		return []byte("{}"), nil
	}
	return json.Marshal(plainUploadConsistency(u))
}

func (u *UploadConsistency) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var p plainUploadConsistency
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = UploadConsistency(p)
	u.Measured = len(fields) > 0
	return nil
}

// Matching is the categorical collaboration recommendation
type Matching struct {
	Category    string `json:"category,omitempty"`
	Image       string `json:"image,omitempty"`
	Skincare    string `json:"skincare,omitempty"`
	ProductType string `json:"product_type,omitempty"`
}

// CommentStatistics summarizes comment collection and keyword matches
type CommentStatistics struct {
	TotalCommentsCollected int     `json:"total_comments_collected"`
	AvgCommentsPerVideo    float64 `json:"avg_comments_per_video"`
	TotalDemandMatches     int     `json:"total_demand_matches"`
	TotalProblemMatches    int     `json:"total_problem_matches"`
	DemandMatchRate        float64 `json:"demand_match_rate"`
	ProblemMatchRate       float64 `json:"problem_match_rate"`
}

// CommentSamples holds de-duplicated example comments across all videos
type CommentSamples struct {
	DemandSamples  []string `json:"demand_samples"`
	ProblemSamples []string `json:"problem_samples"`
}

// ScoreReport is the full output of one scoring run
type ScoreReport struct {
	ChannelName        string             `json:"channel_name"`
	ChannelID          string             `json:"channel_id,omitempty"`
	SubscriberCount    string             `json:"subscriber_count"`
	TotalViews         string             `json:"total_views"`
	VideoCountAnalyzed int                `json:"video_count_analyzed"`
	Tier               Tier               `json:"tier"`
	BLCScore           float64            `json:"blc_score"`
	Verdict            string             `json:"verdict"`
	Components         Components         `json:"components"`
	RawValues          RawValues          `json:"raw_values"`
	PerformanceProfile PerformanceProfile `json:"performance_profile"`
	FormatEffects      FormatEffects      `json:"format_effects"`
	UploadConsistency  UploadConsistency  `json:"upload_consistency"`
	Matching           Matching           `json:"blc_matching"`
	CommentStatistics  CommentStatistics  `json:"comment_statistics"`
	CommentSamples     CommentSamples     `json:"comment_samples"`
	Benchmark          Benchmark          `json:"benchmark"`
	Vertical           string             `json:"vertical,omitempty"`
	AnalyzedAt         time.Time          `json:"analyzed_at"`
}
