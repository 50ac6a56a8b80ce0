package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/analysis"
)

// AnalysisRecord is one stored scoring run
type AnalysisRecord struct {
	ID          string               `json:"id" db:"id"`
	ChannelKey  string               `json:"channel_key" db:"channel_key"`
	ChannelID   string               `json:"channel_id,omitempty" db:"channel_id"`
	ChannelName string               `json:"channel_name" db:"channel_name"`
	Vertical    string               `json:"vertical" db:"vertical"`
	Tier        analysis.Tier        `json:"tier" db:"tier"`
	BLCScore    float64              `json:"blc_score" db:"blc_score"`
	Verdict     string               `json:"verdict" db:"verdict"`
	VideoCount  int                  `json:"video_count" db:"video_count"`
	IsPublic    bool                 `json:"is_public" db:"is_public"`
	Report      analysis.ScoreReport `json:"report" db:"report"`
	CreatedAt   time.Time            `json:"created_at" db:"created_at"`
}

// ChannelKey identifies a channel across runs: its YouTube id, or its name
// when the bundle carried no id.
func ChannelKey(channelID, channelName string) string {
	if channelID != "" {
		return channelID
	}
	return "name:" + channelName
}

// NewAnalysisRecord wraps a report for storage. The report's AnalyzedAt
// becomes the record time.
func NewAnalysisRecord(report analysis.ScoreReport, isPublic bool) *AnalysisRecord {
	createdAt := report.AnalyzedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &AnalysisRecord{
		ID:          uuid.New().String(),
		ChannelKey:  ChannelKey(report.ChannelID, report.ChannelName),
		ChannelID:   report.ChannelID,
		ChannelName: report.ChannelName,
		Vertical:    report.Vertical,
		Tier:        report.Tier,
		BLCScore:    report.BLCScore,
		Verdict:     report.Verdict,
		VideoCount:  report.VideoCountAnalyzed,
		IsPublic:    isPublic,
		Report:      report,
		CreatedAt:   createdAt.UTC(),
	}
}
