package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	apperrors "github.com/ZanzyTHEbar/blc-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/resilience"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/types"
)

const (
	youtubeAPIName = "youtube"

	DefaultMaxVideos      = 50
	DefaultMonthsBack     = 6
	DefaultMaxComments    = 100
	DefaultCommentWorkers = 4

	searchPageSize  = 50
	videoBatchSize  = 50
	commentPageSize = 100
	daysPerMonth    = 30
)

// Quota cost per call, in YouTube Data API units
const (
	quotaList   = 1
	quotaSearch = 100
)

var channelIDPattern = regexp.MustCompile(`^UC[0-9A-Za-z_-]{22}$`)

// ChannelRef is a parsed channel reference. Exactly one of ID or Name is set.
type ChannelRef struct {
	ID    string
	Name  string
	Input string
}

// ParseChannelRef accepts a channel id, an @handle, a bare name or a
// youtube.com URL (/channel/, /c/, /user/ and /@handle forms).
func ParseChannelRef(input string) (ChannelRef, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return ChannelRef{}, apperrors.NewValidationError("channel is required", "channel", "empty")
	}

	ref := ChannelRef{Input: input}

	if strings.Contains(input, "youtube.com") {
		raw := input
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			return ChannelRef{}, apperrors.NewValidationError("invalid channel URL", "channel", input)
		}

		parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		switch {
		case len(parts) >= 2 && parts[0] == "channel":
			ref.ID = parts[1]
		case len(parts) >= 2 && (parts[0] == "c" || parts[0] == "user"):
			ref.Name = parts[1]
		case len(parts) >= 1 && strings.HasPrefix(parts[0], "@"):
			ref.Name = strings.TrimPrefix(parts[0], "@")
		default:
			return ChannelRef{}, apperrors.NewValidationError("unsupported channel URL", "channel", input)
		}
		return ref, nil
	}

	if channelIDPattern.MatchString(input) {
		ref.ID = input
		return ref, nil
	}

	ref.Name = strings.TrimPrefix(input, "@")
	if ref.Name == "" {
		return ChannelRef{}, apperrors.NewValidationError("channel is required", "channel", input)
	}
	return ref, nil
}

// YouTubeConfig configures the YouTube data provider
type YouTubeConfig struct {
	APIKey         string
	MaxComments    int
	CommentWorkers int
	Retry          resilience.RetryConfig
	Breaker        resilience.CircuitBreakerConfig

	// ClientOptions are appended after the API key option
	ClientOptions []option.ClientOption
	Now           func() time.Time
}

// YouTubeAdapter collects channel bundles from the YouTube Data API v3
type YouTubeAdapter struct {
	service     *youtube.Service
	breaker     *resilience.CircuitBreaker
	retry       resilience.RetryConfig
	metrics     *monitoring.Metrics
	logger      *monitoring.Logger
	maxComments int
	workers     int
	now         func() time.Time
}

// NewYouTubeAdapter creates the provider. Every upstream call goes through a
// circuit breaker and the retry policy.
func NewYouTubeAdapter(ctx context.Context, cfg YouTubeConfig, metrics *monitoring.Metrics, logger *monitoring.Logger) (*YouTubeAdapter, error) {
	if cfg.APIKey == "" && len(cfg.ClientOptions) == 0 {
		return nil, apperrors.NewConfigurationError("YOUTUBE_API_KEY is not set", nil)
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	if logger == nil {
		logger = monitoring.NewLogger()
	}

	var opts []option.ClientOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	opts = append(opts, cfg.ClientOptions...)

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to create YouTube service", err)
	}

	if cfg.MaxComments <= 0 {
		cfg.MaxComments = DefaultMaxComments
	}
	if cfg.CommentWorkers <= 0 {
		cfg.CommentWorkers = DefaultCommentWorkers
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = resilience.YouTubeRetryConfig()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	breakerCfg := cfg.Breaker
	breakerCfg.IsFailure = isUpstreamFailure
	breakerCfg.OnStateChange = func(from, to resilience.CircuitBreakerState) {
		switch to {
		case resilience.StateOpen:
			metrics.IncrementCircuitBreakerOpen()
		case resilience.StateClosed:
			metrics.IncrementCircuitBreakerClose()
		}
		logger.SystemLogger("youtube_circuit_breaker", from.String()+" -> "+to.String())
	}

	return &YouTubeAdapter{
		service:     service,
		breaker:     resilience.NewCircuitBreaker(breakerCfg),
		retry:       cfg.Retry,
		metrics:     metrics,
		logger:      logger,
		maxComments: min(cfg.MaxComments, commentPageSize),
		workers:     cfg.CommentWorkers,
		now:         cfg.Now,
	}, nil
}

// isUpstreamFailure excludes errors that say nothing about YouTube's health
func isUpstreamFailure(err error) bool {
	for _, category := range []apperrors.ErrorCategory{
		apperrors.CategoryQuota,
		apperrors.CategoryNotFound,
		apperrors.CategoryValidation,
		apperrors.CategoryConfiguration,
	} {
		if apperrors.IsCategory(err, category) {
			return false
		}
	}
	return !errors.Is(err, context.Canceled)
}

// Stats reports the breaker state for the health endpoint
func (y *YouTubeAdapter) Stats() map[string]interface{} {
	return y.breaker.Stats()
}

// call runs one upstream request under the breaker and retry policy
func (y *YouTubeAdapter) call(ctx context.Context, operation string, quotaUnits int, fn func() error) error {
	start := time.Now()

	err := resilience.RetryWithConfig(ctx, y.retry, func() error {
		return y.breaker.Call(func() error {
			y.metrics.IncrementYouTubeCalls()
			return classifyYouTubeError(fn())
		})
	})

	var cbErr *resilience.CircuitBreakerError
	if errors.As(err, &cbErr) {
		err = apperrors.NewExternalAPIError(youtubeAPIName, cbErr)
	}
	if apperrors.IsCategory(err, apperrors.CategoryQuota) {
		y.metrics.IncrementQuotaError()
	}

	y.metrics.RecordExternalAPIRequest(youtubeAPIName, err == nil)
	y.logger.ExternalAPILogger(youtubeAPIName, operation, quotaUnits, time.Since(start), err == nil)
	return err
}

// classifyYouTubeError maps transport and googleapi errors onto AppErrors
func classifyYouTubeError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("YouTube request timed out", err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		reason := googleReason(gerr)
		switch {
		case reason == "quotaExceeded" || reason == "dailyLimitExceeded":
			return apperrors.NewQuotaError(youtubeAPIName, err)
		case gerr.Code == http.StatusTooManyRequests || reason == "rateLimitExceeded" || reason == "userRateLimitExceeded":
			return apperrors.NewExternalAPIError(youtubeAPIName, err)
		case gerr.Code == http.StatusNotFound:
			return apperrors.NewNotFoundError("youtube resource", reason)
		case gerr.Code == http.StatusBadRequest:
			return apperrors.NewValidationError("YouTube rejected the request", "reason", reason)
		case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
			return apperrors.NewConfigurationError(fmt.Sprintf("YouTube request forbidden (%s)", reason), err)
		default:
			return apperrors.NewExternalAPIError(youtubeAPIName, err)
		}
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return apperrors.NewNetworkError("YouTube request failed", err)
	}

	return apperrors.NewExternalAPIError(youtubeAPIName, err)
}

func googleReason(gerr *googleapi.Error) string {
	for _, item := range gerr.Errors {
		if item.Reason != "" {
			return item.Reason
		}
	}
	return ""
}

// ResolveChannelID turns any accepted channel reference into a channel id:
// handle lookup first, then legacy username, then a channel search.
func (y *YouTubeAdapter) ResolveChannelID(ctx context.Context, input string) (string, error) {
	ref, err := ParseChannelRef(input)
	if err != nil {
		return "", err
	}
	if ref.ID != "" {
		return ref.ID, nil
	}

	lookups := []struct {
		operation string
		list      func() *youtube.ChannelsListCall
	}{
		{"channels.list(forHandle)", func() *youtube.ChannelsListCall {
			return y.service.Channels.List([]string{"id"}).ForHandle(ref.Name)
		}},
		{"channels.list(forUsername)", func() *youtube.ChannelsListCall {
			return y.service.Channels.List([]string{"id"}).ForUsername(ref.Name)
		}},
	}

	for _, lookup := range lookups {
		var resp *youtube.ChannelListResponse
		err := y.call(ctx, lookup.operation, quotaList, func() error {
			var err error
			resp, err = lookup.list().Context(ctx).Do()
			return err
		})
		if err != nil && !apperrors.IsCategory(err, apperrors.CategoryNotFound) {
			return "", err
		}
		if resp != nil && len(resp.Items) > 0 {
			return resp.Items[0].Id, nil
		}
	}

	var search *youtube.SearchListResponse
	err = y.call(ctx, "search.list(channel)", quotaSearch, func() error {
		var err error
		search, err = y.service.Search.List([]string{"id"}).
			Q(ref.Input).
			Type("channel").
			MaxResults(1).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return "", err
	}
	if len(search.Items) > 0 && search.Items[0].Id != nil && search.Items[0].Id.ChannelId != "" {
		return search.Items[0].Id.ChannelId, nil
	}

	return "", apperrors.NewNotFoundError("channel", input)
}

// GetChannelProfile fetches snippet and statistics for one channel
func (y *YouTubeAdapter) GetChannelProfile(ctx context.Context, channelID string) (*types.ChannelProfile, error) {
	var resp *youtube.ChannelListResponse
	err := y.call(ctx, "channels.list", quotaList, func() error {
		var err error
		resp, err = y.service.Channels.List([]string{"snippet", "statistics"}).
			Id(channelID).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, apperrors.NewNotFoundError("channel", channelID)
	}

	item := resp.Items[0]
	profile := &types.ChannelProfile{ChannelID: item.Id}
	if item.Snippet != nil {
		profile.ChannelName = item.Snippet.Title
		profile.Description = item.Snippet.Description
		if ts, err := types.ParseTimestamp(item.Snippet.PublishedAt); err == nil {
			profile.PublishedAt = ts
		}
	}
	if item.Statistics != nil {
		profile.SubscriberCount = int64(item.Statistics.SubscriberCount)
		profile.TotalViews = int64(item.Statistics.ViewCount)
		profile.VideoCount = int64(item.Statistics.VideoCount)
	}
	return profile, nil
}

// ListRecentVideoIDs pages through the channel's uploads newest first,
// restricted to the last monthsBack*30 days.
func (y *YouTubeAdapter) ListRecentVideoIDs(ctx context.Context, channelID string, maxVideos, monthsBack int) ([]string, error) {
	publishedAfter := y.now().Add(-time.Duration(monthsBack*daysPerMonth) * 24 * time.Hour).UTC().Format(time.RFC3339)

	var ids []string
	pageToken := ""
	for len(ids) < maxVideos {
		var resp *youtube.SearchListResponse
		err := y.call(ctx, "search.list(video)", quotaSearch, func() error {
			call := y.service.Search.List([]string{"id"}).
				ChannelId(channelID).
				Type("video").
				Order("date").
				MaxResults(int64(min(searchPageSize, maxVideos-len(ids)))).
				PublishedAfter(publishedAfter).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return ids, err
		}

		for _, item := range resp.Items {
			if item.Id != nil && item.Id.VideoId != "" && len(ids) < maxVideos {
				ids = append(ids, item.Id.VideoId)
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || len(resp.Items) == 0 {
			break
		}
	}
	return ids, nil
}

// GetVideoRecords fetches details for the given ids in batches of 50. A
// failed batch is skipped unless the failure is fatal for the whole run.
func (y *YouTubeAdapter) GetVideoRecords(ctx context.Context, videoIDs []string) ([]types.VideoRecord, error) {
	records := make([]types.VideoRecord, 0, len(videoIDs))

	for start := 0; start < len(videoIDs); start += videoBatchSize {
		batch := videoIDs[start:min(start+videoBatchSize, len(videoIDs))]

		var resp *youtube.VideoListResponse
		err := y.call(ctx, "videos.list", quotaList, func() error {
			var err error
			resp, err = y.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
				Id(strings.Join(batch, ",")).
				Context(ctx).
				Do()
			return err
		})
		if err != nil {
			if isFatal(err) {
				return records, err
			}
			y.logger.Warn("Skipping video batch", "offset", start, "size", len(batch), "error", err)
			continue
		}

		for _, video := range resp.Items {
			records = append(records, y.toVideoRecord(video))
		}
	}
	return records, nil
}

func (y *YouTubeAdapter) toVideoRecord(video *youtube.Video) types.VideoRecord {
	record := types.VideoRecord{
		VideoID:  video.Id,
		Comments: []any{},
	}

	if video.Snippet != nil {
		record.Title = video.Snippet.Title
		record.Tags = video.Snippet.Tags
		if ts, err := types.ParseTimestamp(video.Snippet.PublishedAt); err == nil && !ts.IsZero() {
			record.PublishedAt = ts
			record.DaysSinceUpload = max(int(y.now().Sub(ts.Time).Hours()/24), 1)
		}
	}
	if video.ContentDetails != nil {
		if d, err := types.ParseDuration(video.ContentDetails.Duration); err == nil {
			record.Duration = d
		}
	}
	if video.Statistics != nil {
		record.ViewCount = int64(video.Statistics.ViewCount)
		record.LikeCount = int64(video.Statistics.LikeCount)
		record.CommentCount = int64(video.Statistics.CommentCount)
	}
	return record
}

// GetComments returns up to maxComments top-level comments ordered by
// relevance. Disabled comments yield an empty list.
func (y *YouTubeAdapter) GetComments(ctx context.Context, videoID string) ([]any, error) {
	var resp *youtube.CommentThreadListResponse
	disabled := false
	err := y.call(ctx, "commentThreads.list", quotaList, func() error {
		var err error
		resp, err = y.service.CommentThreads.List([]string{"snippet"}).
			VideoId(videoID).
			MaxResults(int64(y.maxComments)).
			Order("relevance").
			TextFormat("plainText").
			Context(ctx).
			Do()
		if commentsDisabled(err) {
			disabled = true
			return nil
		}
		return err
	})
	if err != nil {
		return []any{}, err
	}
	if disabled {
		y.metrics.IncrementCommentsDisabled()
		y.logger.Debug("Comments disabled", "video_id", videoID)
		return []any{}, nil
	}

	comments := make([]any, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
			continue
		}
		comments = append(comments, item.Snippet.TopLevelComment.Snippet.TextDisplay)
	}
	return comments, nil
}

// commentsDisabled matches the 403 YouTube returns for videos with comments
// turned off, as opposed to a 403 for exhausted quota.
func commentsDisabled(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusForbidden {
		return false
	}
	switch googleReason(gerr) {
	case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded", "userRateLimitExceeded":
		return false
	}
	return true
}

// attachComments fills Comments on every record using a bounded worker pool
func (y *YouTubeAdapter) attachComments(ctx context.Context, records []types.VideoRecord) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(y.workers)

	for i := range records {
		g.Go(func() error {
			comments, err := y.GetComments(gctx, records[i].VideoID)
			if err != nil {
				if isFatal(err) {
					return err
				}
				y.logger.Warn("Comment collection failed", "video_id", records[i].VideoID, "error", err)
			}
			records[i].Comments = comments
			return nil
		})
	}

	return g.Wait()
}

// isFatal reports errors that end a collection run instead of one item
func isFatal(err error) bool {
	return apperrors.IsCategory(err, apperrors.CategoryQuota) ||
		apperrors.IsCategory(err, apperrors.CategoryConfiguration) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// CollectBundle resolves the channel and gathers its profile, recent videos
// and their comments into a bundle ready for scoring.
func (y *YouTubeAdapter) CollectBundle(ctx context.Context, channel string, maxVideos, monthsBack int) (*types.ChannelBundle, error) {
	if maxVideos <= 0 {
		maxVideos = DefaultMaxVideos
	}
	if monthsBack <= 0 {
		monthsBack = DefaultMonthsBack
	}
	start := time.Now()

	channelID, err := y.ResolveChannelID(ctx, channel)
	if err != nil {
		return nil, err
	}

	profile, err := y.GetChannelProfile(ctx, channelID)
	if err != nil {
		return nil, err
	}

	bundle := &types.ChannelBundle{
		Channel:              profile,
		Videos:               []types.VideoRecord{},
		CollectionDate:       y.now(),
		AnalysisPeriodMonths: monthsBack,
	}

	ids, err := y.ListRecentVideoIDs(ctx, channelID, maxVideos, monthsBack)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		slog.Info("No recent videos found", "channel_id", channelID, "months_back", monthsBack)
		return bundle, nil
	}

	records, err := y.GetVideoRecords(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := y.attachComments(ctx, records); err != nil {
		return nil, err
	}
	bundle.Videos = records

	comments := 0
	for _, r := range records {
		comments += len(r.Comments)
	}
	y.logger.CollectionLogger(channelID, len(records), comments, time.Since(start))

	return bundle, nil
}
