package types

import (
	"encoding/json"
	"time"
)

// ChannelProfile is the channel-level part of a collected bundle
type ChannelProfile struct {
	ChannelID       string    `json:"channel_id,omitempty"`
	ChannelName     string    `json:"channel_name"`
	Description     string    `json:"description,omitempty"`
	SubscriberCount int64     `json:"subscriber_count"`
	TotalViews      int64     `json:"total_views"`
	VideoCount      int64     `json:"video_count"`
	PublishedAt     Timestamp `json:"published_at,omitzero"`
}

// VideoRecord is one analyzed video as delivered by a data provider.
// Comments holds raw entries; anything that is not a string is ignored by the
// classifier but still counted as collected.
type VideoRecord struct {
	VideoID         string    `json:"video_id,omitempty"`
	Title           string    `json:"title"`
	PublishedAt     Timestamp `json:"published_at"`
	DaysSinceUpload int       `json:"days_since_upload,omitempty"`
	Duration        Duration  `json:"duration_seconds"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       int64     `json:"like_count"`
	CommentCount    int64     `json:"comment_count"`
	Tags            []string  `json:"tags,omitempty"`
	Comments        []any     `json:"comments"`
}

// ChannelBundle is the data provider output consumed by the scoring engine.
// A nil Channel or nil Videos means the key was absent.
type ChannelBundle struct {
	Channel              *ChannelProfile `json:"channel"`
	Videos               []VideoRecord   `json:"videos"`
	CollectionDate       time.Time       `json:"collection_date,omitzero"`
	AnalysisPeriodMonths int             `json:"analysis_period_months,omitempty"`
}

// AnalyzeRequest is the body of POST /analyze. A bare bundle (no "bundle" key)
// is accepted as well.
type AnalyzeRequest struct {
	Bundle   *ChannelBundle `json:"bundle"`
	Vertical string         `json:"vertical,omitempty"`
	IsPublic *bool          `json:"is_public,omitempty"`
}

func (r *AnalyzeRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if _, wrapped := fields["bundle"]; !wrapped {
		var bundle ChannelBundle
		if err := json.Unmarshal(data, &bundle); err != nil {
			return err
		}
		var options struct {
			Vertical string `json:"vertical"`
			IsPublic *bool  `json:"is_public"`
		}
		if err := json.Unmarshal(data, &options); err != nil {
			return err
		}
		r.Bundle = &bundle
		r.Vertical = options.Vertical
		r.IsPublic = options.IsPublic
		return nil
	}

	type plain AnalyzeRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = AnalyzeRequest(p)
	return nil
}

// Public reports whether the analysis may appear on the leaderboard.
func (r *AnalyzeRequest) Public() bool {
	return r.IsPublic == nil || *r.IsPublic
}

// CollectRequest is the body of the YouTube collection endpoints
type CollectRequest struct {
	Channel    string `json:"channel" binding:"required"`
	MaxVideos  int    `json:"max_videos,omitempty"`
	MonthsBack int    `json:"months_back,omitempty"`
	Vertical   string `json:"vertical,omitempty"`
	IsPublic   *bool  `json:"is_public,omitempty"`
}

// Public reports whether the analysis may appear on the leaderboard.
func (r *CollectRequest) Public() bool {
	return r.IsPublic == nil || *r.IsPublic
}
