package analysis

import (
	"time"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/types"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestEngine(opts ...Option) *Engine {
	return NewEngine(append([]Option{WithClock(fixedClock)}, opts...)...)
}

func testVideo(title string, views, likes, comments int64, days int, texts ...any) types.VideoRecord {
	if texts == nil {
		texts = []any{}
	}
	return types.VideoRecord{
		Title:           title,
		PublishedAt:     types.NewTimestamp(fixedNow.Add(-time.Duration(days) * day)),
		DaysSinceUpload: days,
		Duration:        types.Duration(300),
		ViewCount:       views,
		LikeCount:       likes,
		CommentCount:    comments,
		Comments:        texts,
	}
}

func testChannel(subscribers int64) types.ChannelProfile {
	return types.ChannelProfile{
		ChannelID:       "UC_test",
		ChannelName:     "테스트 채널",
		SubscriberCount: subscribers,
		TotalViews:      5_000_000,
		VideoCount:      120,
	}
}

func metricsWithEngagement(format bool, values ...float64) []VideoMetrics {
	out := make([]VideoMetrics, len(values))
	for i, v := range values {
		out[i] = VideoMetrics{EngagementPer1K: v, HasFormat: format}
	}
	return out
}

func durationDays(d int) time.Duration {
	return time.Duration(d) * day
}
