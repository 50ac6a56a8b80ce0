package analysis

import (
	"strings"
	"time"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/types"
)

const day = 24 * time.Hour

// LengthBucket classifies a video duration in seconds
func LengthBucket(seconds int64) string {
	switch {
	case seconds < 60:
		return "0-60초"
	case seconds < 180:
		return "60-180초"
	case seconds < 360:
		return "3-6분"
	case seconds < 600:
		return "6-10분"
	default:
		return "10분+"
	}
}

// DaysSinceUpload prefers an explicit positive value, otherwise derives whole
// days from the publish time. The result is never below 1.
func DaysSinceUpload(v types.VideoRecord, now time.Time) int {
	days := v.DaysSinceUpload
	if days <= 0 && !v.PublishedAt.IsZero() {
		days = int(now.Sub(v.PublishedAt.Time) / day)
	}
	if days < 1 {
		days = 1
	}
	return days
}

// HasFormatKeyword reports whether the lowercased title contains any keyword
func HasFormatKeyword(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// deriveVideo computes the per-video metrics used by every aggregate
func (e *Engine) deriveVideo(v types.VideoRecord) VideoMetrics {
	views := v.ViewCount
	if views <= 0 {
		views = 1
	}
	days := DaysSinceUpload(v, e.now())
	fViews := float64(views)

	comments := e.classifier.Classify(v.Comments)

	return VideoMetrics{
		VideoID:         v.VideoID,
		Title:           v.Title,
		PublishedAt:     v.PublishedAt.Time,
		DaysSinceUpload: days,
		DurationSeconds: v.Duration.Seconds(),
		ViewCount:       views,
		LikeCount:       v.LikeCount,
		CommentCount:    v.CommentCount,

		ViewsPerDay:     finite(fViews / float64(days)),
		EngagementPer1K: finite((float64(v.LikeCount) + float64(v.CommentCount)) / fViews * 1000),
		LikesPerView:    finite(float64(v.LikeCount) / fViews),
		CommentsPerView: finite(float64(v.CommentCount) / fViews),
		LengthBucket:    LengthBucket(v.Duration.Seconds()),

		CommentAnalysis: comments,
		DemandIndex:     finite(float64(comments.DemandCount) * 1000 / fViews),
		ProblemRate:     finite(float64(comments.ProblemCount) / (float64(comments.TotalAnalyzedComments) + problemRateEpsilon)),
		HasFormat:       HasFormatKeyword(v.Title, e.formatKeywords),
	}
}

func column(videos []VideoMetrics, pick func(VideoMetrics) float64) []float64 {
	out := make([]float64, len(videos))
	for i, v := range videos {
		out[i] = pick(v)
	}
	return out
}
