package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Duration
		hasError bool
	}{
		{name: "minutes and seconds", input: "PT4M13S", expected: 253},
		{name: "hours only", input: "PT1H", expected: 3600},
		{name: "days and time", input: "P1DT2H3M4S", expected: 93784},
		{name: "weeks", input: "P1W", expected: 604800},
		{name: "fractional seconds truncated", input: "PT59.9S", expected: 59},
		{name: "lowercase accepted", input: "pt30s", expected: 30},
		{name: "plain number string", input: "125", expected: 125},
		{name: "empty string is zero", input: "", expected: 0},
		{name: "bare P rejected", input: "P", hasError: true},
		{name: "dangling T rejected", input: "P1DT", hasError: true},
		{name: "garbage rejected", input: "four minutes", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDuration(tt.input)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestDurationUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected int64
	}{
		{name: "integer seconds", payload: `{"duration_seconds": 421}`, expected: 421},
		{name: "float seconds", payload: `{"duration_seconds": 61.7}`, expected: 61},
		{name: "iso string", payload: `{"duration_seconds": "PT10M"}`, expected: 600},
		{name: "null", payload: `{"duration_seconds": null}`, expected: 0},
		{name: "missing", payload: `{}`, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v VideoRecord
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &v))
			assert.Equal(t, tt.expected, v.Duration.Seconds())
		})
	}

	var v VideoRecord
	assert.Error(t, json.Unmarshal([]byte(`{"duration_seconds": "soon"}`), &v))
}

func TestTimestampUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected time.Time
	}{
		{
			name:     "rfc3339 with zone",
			payload:  `"2024-03-01T10:00:00Z"`,
			expected: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "python isoformat without zone",
			payload:  `"2024-03-01T10:00:00.123456"`,
			expected: time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC),
		},
		{
			name:     "date only",
			payload:  `"2024-03-01"`,
			expected: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "null",
			payload: `null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &ts))
			assert.True(t, tt.expected.Equal(ts.Time), "got %s", ts.Time)
		})
	}

	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`12345`), &ts))
}

func TestChannelBundleMissingKeys(t *testing.T) {
	var missing ChannelBundle
	require.NoError(t, json.Unmarshal([]byte(`{"channel": {"channel_name": "a"}}`), &missing))
	assert.NotNil(t, missing.Channel)
	assert.Nil(t, missing.Videos)

	var empty ChannelBundle
	require.NoError(t, json.Unmarshal([]byte(`{"channel": {"channel_name": "a"}, "videos": []}`), &empty))
	assert.NotNil(t, empty.Videos)
	assert.Len(t, empty.Videos, 0)
}

func TestVideoRecordComments(t *testing.T) {
	payload := `{"title": "t", "comments": ["좋아요", 42, null, {"text": "x"}]}`

	var v VideoRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &v))
	require.Len(t, v.Comments, 4)
	assert.Equal(t, "좋아요", v.Comments[0])
	assert.Equal(t, float64(42), v.Comments[1])
	assert.Nil(t, v.Comments[2])
}

func TestAnalyzeRequestUnmarshal(t *testing.T) {
	t.Run("wrapped bundle", func(t *testing.T) {
		payload := `{"bundle": {"channel": {"channel_name": "a"}, "videos": []}, "vertical": "beauty", "is_public": false}`

		var req AnalyzeRequest
		require.NoError(t, json.Unmarshal([]byte(payload), &req))
		require.NotNil(t, req.Bundle)
		assert.Equal(t, "a", req.Bundle.Channel.ChannelName)
		assert.Equal(t, "beauty", req.Vertical)
		assert.False(t, req.Public())
	})

	t.Run("bare bundle", func(t *testing.T) {
		payload := `{"channel": {"channel_name": "b", "subscriber_count": 1200}, "videos": [{"title": "v"}], "vertical": "food"}`

		var req AnalyzeRequest
		require.NoError(t, json.Unmarshal([]byte(payload), &req))
		require.NotNil(t, req.Bundle)
		assert.Equal(t, int64(1200), req.Bundle.Channel.SubscriberCount)
		assert.Len(t, req.Bundle.Videos, 1)
		assert.Equal(t, "food", req.Vertical)
		assert.True(t, req.Public())
	})

	t.Run("bare bundle private", func(t *testing.T) {
		payload := `{"channel": {"channel_name": "c"}, "videos": [], "is_public": false}`

		var req AnalyzeRequest
		require.NoError(t, json.Unmarshal([]byte(payload), &req))
		require.NotNil(t, req.Bundle)
		require.NotNil(t, req.IsPublic)
		assert.False(t, req.Public())
		assert.Empty(t, req.Vertical)
	})

	t.Run("bare bundle bad visibility", func(t *testing.T) {
		var req AnalyzeRequest
		assert.Error(t, json.Unmarshal([]byte(`{"channel": {}, "videos": [], "is_public": "no"}`), &req))
	})

	t.Run("not an object", func(t *testing.T) {
		var req AnalyzeRequest
		assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &req))
	})
}
