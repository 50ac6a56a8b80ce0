package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/types"
)

func TestLengthBucket(t *testing.T) {
	tests := []struct {
		seconds  int64
		expected string
	}{
		{0, "0-60초"},
		{59, "0-60초"},
		{60, "60-180초"},
		{179, "60-180초"},
		{180, "3-6분"},
		{359, "3-6분"},
		{360, "6-10분"},
		{599, "6-10분"},
		{600, "10분+"},
		{7200, "10분+"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, LengthBucket(tt.seconds))
		})
	}
}

func TestDaysSinceUpload(t *testing.T) {
	tests := []struct {
		name     string
		video    types.VideoRecord
		expected int
	}{
		{
			name:     "explicit value wins",
			video:    types.VideoRecord{DaysSinceUpload: 12, PublishedAt: types.NewTimestamp(fixedNow.Add(-3 * day))},
			expected: 12,
		},
		{
			name:     "derived from publish time in whole days",
			video:    types.VideoRecord{PublishedAt: types.NewTimestamp(fixedNow.Add(-10*day - 13*time.Hour))},
			expected: 10,
		},
		{
			name:     "same day floors to one",
			video:    types.VideoRecord{PublishedAt: types.NewTimestamp(fixedNow.Add(-2 * time.Hour))},
			expected: 1,
		},
		{
			name:     "future publish time floors to one",
			video:    types.VideoRecord{PublishedAt: types.NewTimestamp(fixedNow.Add(48 * time.Hour))},
			expected: 1,
		},
		{
			name:     "no data floors to one",
			video:    types.VideoRecord{},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysSinceUpload(tt.video, fixedNow))
		})
	}
}

func TestDeriveVideo(t *testing.T) {
	engine := newTestEngine()

	t.Run("regular video", func(t *testing.T) {
		v := testVideo("꿀팁 대방출", 10_000, 400, 100, 4, "재구매 했어요", "건조해요", "hi", 7)
		m := engine.deriveVideo(v)

		assert.Equal(t, int64(10_000), m.ViewCount)
		assert.Equal(t, 4, m.DaysSinceUpload)
		assert.Equal(t, 2500.0, m.ViewsPerDay)
		assert.InDelta(t, 50.0, m.EngagementPer1K, 1e-9)
		assert.InDelta(t, 0.04, m.LikesPerView, 1e-12)
		assert.InDelta(t, 0.01, m.CommentsPerView, 1e-12)
		assert.Equal(t, "3-6분", m.LengthBucket)
		assert.Equal(t, 4, m.TotalAnalyzedComments)
		assert.Equal(t, 1, m.DemandCount)
		assert.Equal(t, 1, m.ProblemCount)
		assert.InDelta(t, 0.1, m.DemandIndex, 1e-12)
		assert.InDelta(t, 0.25, m.ProblemRate, 1e-6)
		assert.True(t, m.HasFormat)
	})

	t.Run("zero views floor to one", func(t *testing.T) {
		v := testVideo("plain", 0, 5, 0, 1)
		m := engine.deriveVideo(v)

		assert.Equal(t, int64(1), m.ViewCount)
		assert.Equal(t, 1.0, m.ViewsPerDay)
		assert.Equal(t, 5000.0, m.EngagementPer1K)
		assert.Equal(t, 0.0, m.ProblemRate)
	})

	t.Run("no comments keeps rates finite", func(t *testing.T) {
		v := testVideo("plain", 100, 0, 0, 3)
		v.Comments = nil
		m := engine.deriveVideo(v)

		for _, value := range []float64{m.ViewsPerDay, m.EngagementPer1K, m.DemandIndex, m.ProblemRate} {
			assert.False(t, math.IsNaN(value) || math.IsInf(value, 0))
		}
		assert.Equal(t, 0, m.TotalAnalyzedComments)
	})

	t.Run("huge counts do not wrap", func(t *testing.T) {
		m := engine.deriveVideo(testVideo("plain", 1_000, math.MaxInt64, 10, 3))

		assert.Greater(t, m.EngagementPer1K, 0.0)
		assert.InDelta(t, float64(math.MaxInt64), m.EngagementPer1K, float64(math.MaxInt64)*1e-9)
	})

	t.Run("format keyword match ignores case", func(t *testing.T) {
		m := engine.deriveVideo(testVideo("My BEFORE and After", 100, 1, 1, 3))
		assert.True(t, m.HasFormat)

		m = engine.deriveVideo(testVideo("데일리 메이크업", 100, 1, 1, 3))
		assert.False(t, m.HasFormat)
	})
}

func TestFinite(t *testing.T) {
	assert.Equal(t, 0.0, finite(math.NaN()))
	assert.Equal(t, 0.0, finite(math.Inf(1)))
	assert.Equal(t, 0.0, finite(math.Inf(-1)))
	assert.Equal(t, 1.5, finite(1.5))
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 70.2, roundTo(70.175, 1))
	assert.Equal(t, 0.83, roundTo(10.0/12, 2))
	assert.Equal(t, 2.0, roundTo(2.5, 0))
	assert.Equal(t, 4.0, roundTo(3.5, 0))
	assert.Equal(t, 0.0125, roundTo(0.0125, 4))
}

func TestSampleStd(t *testing.T) {
	assert.Equal(t, 0.0, sampleStd(nil))
	assert.Equal(t, 0.0, sampleStd([]float64{4}))
	assert.InDelta(t, math.Sqrt(72), sampleStd([]float64{1, 13}), 1e-12)
	assert.InDelta(t, 2.138, sampleStd([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-3)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 5.0, median([]float64{9, 1, 7, 3, 5}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))

	input := []float64{3, 1, 2}
	median(input)
	assert.Equal(t, []float64{3, 1, 2}, input)
}
