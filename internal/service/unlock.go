package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/marginality/indexing-admin/internal/apperr"
	"github.com/marginality/indexing-admin/internal/domain"
	"github.com/marginality/indexing-admin/internal/indexer"
	"github.com/marginality/indexing-admin/internal/logger"
	"github.com/marginality/indexing-admin/internal/normalize"
)

// VideoStore is the video persistence surface the unlock flow needs.
type VideoStore interface {
	Get(ctx context.Context, id string) (*domain.Video, error)
	UpdateFields(ctx context.Context, id string, patch map[string]interface{}) (*domain.Video, error)
}

// ChannelStore is the channel persistence surface the unlock flow needs.
type ChannelStore interface {
	Get(ctx context.Context, id string) (*domain.Channel, error)
	UpdateFields(ctx context.Context, id string, patch map[string]interface{}) error
}

// UnlockService performs admin unlock-and-index triggers against production
// videos with demo-safety compensation: unless the operator asks to publish,
// every visibility and lifecycle side effect of the trigger is reverted after
// the indexer call.
type UnlockService struct {
	videos   VideoStore
	channels ChannelStore
	invoker  IndexerInvoker
	log      *logger.Logger
}

// NewUnlockService creates a new UnlockService.
// Parameters:
//   - videos: video persistence.
//   - channels: channel persistence.
//   - invoker: remote indexer client.
//   - log: structured logger.
// Returns:
//   - *UnlockService: service instance.
func NewUnlockService(videos VideoStore, channels ChannelStore, invoker IndexerInvoker, log *logger.Logger) *UnlockService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &UnlockService{videos: videos, channels: channels, invoker: invoker, log: log}
}

// UnlockIndexInput describes one unlock-and-index request.
type UnlockIndexInput struct {
	VideoID     string `json:"videoId"`
	Reason      string `json:"reason"`
	MakePublic  bool   `json:"makePublic"`
	IgnoreQuota bool   `json:"ignoreQuota"`

	// CallerUserID is the authenticated operator, set by the API layer.
	CallerUserID string `json:"-"`
}

// QuotaSnapshot reports the channel's free-index quota at decision time.
// Consumption happens store-side on indexing completion, so Used reflects the
// pre-trigger value.
type QuotaSnapshot struct {
	Used      int `json:"used"`
	Total     int `json:"total"`
	Remaining int `json:"remaining"`
}

// UnlockIndexResult is the full outcome of an unlock-and-index trigger,
// including the attempt trail and any compensation failures.
type UnlockIndexResult struct {
	Video                 *domain.Video     `json:"video"`
	Channel               *domain.Channel   `json:"channel"`
	Quota                 QuotaSnapshot     `json:"quota"`
	QuotaUpdated          bool              `json:"quotaUpdated"`
	IndexTriggered        bool              `json:"indexTriggered"`
	IndexStatus           int               `json:"indexStatus"`
	IndexResponse         interface{}       `json:"indexResponse"`
	IndexAttempts         []indexer.Attempt `json:"indexAttempts"`
	DemoProtectionApplied bool              `json:"demoProtectionApplied"`
	DemoProtectionErrors  []string          `json:"demoProtectionErrors"`
}

// UnlockAndIndex unlocks a video for indexing, triggers the remote indexer,
// and then compensates: when the operator did not ask to publish, the video
// goes back to private/draft and a channel that was not official before the
// call is reverted to the invited lifecycle. Compensation failures are
// collected, never fatal — a failed revert must not mask a successful trigger.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - input: unlock request; CallerUserID must be set by the API layer.
// Returns:
//   - *UnlockIndexResult: trigger outcome with compensation report.
//   - error: typed error for validation, missing rows, or exhausted quota.
func (s *UnlockService) UnlockAndIndex(ctx context.Context, input UnlockIndexInput) (*UnlockIndexResult, error) {
	videoID := strings.TrimSpace(input.VideoID)
	if videoID == "" {
		return nil, apperr.BadRequest(apperr.CodeVideoIDRequired, "videoId is required")
	}

	video, err := s.videos.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, apperr.New(http.StatusNotFound, apperr.CodeVideoNotFound, "Video not found")
	}

	if video.ExternalChannelID == nil {
		return nil, apperr.New(http.StatusNotFound, apperr.CodeChannelNotFound, "Video has no channel")
	}
	channel, err := s.channels.Get(ctx, *video.ExternalChannelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, apperr.New(http.StatusNotFound, apperr.CodeChannelNotFound, "Channel not found")
	}

	quota := QuotaSnapshot{
		Used:      channel.FreeIndexesUsed,
		Total:     channel.FreeIndexQuota,
		Remaining: channel.FreeIndexQuota - channel.FreeIndexesUsed,
	}
	if quota.Remaining < 0 {
		quota.Remaining = 0
	}

	// Quota gate runs before any write or indexer contact.
	if !input.IgnoreQuota && channel.FreeIndexesUsed >= channel.FreeIndexQuota {
		return nil, apperr.New(http.StatusConflict, apperr.CodeQuotaExhausted,
			fmt.Sprintf("Channel free-index quota exhausted (%d/%d)", channel.FreeIndexesUsed, channel.FreeIndexQuota))
	}

	youtubeURL := deriveYoutubeURL(video)
	channelWasOfficial := channel.ChannelLifecycleStatus == domain.ChannelLifecycleOfficial

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "admin_demo"
	}

	// Optimistic unlock: the indexer reads these flags, so they must be in
	// place before the call. Visibility is always pre-set to the requested
	// posture here, so a non-publishing trigger never depends on the later
	// compensation write to take a public video private.
	now := time.Now()
	unlockPatch := map[string]interface{}{
		"admin_unlocked":         true,
		"indexing_unlock_reason": reason,
		"indexing_unlocked_at":   now,
		"unlocked_by_user_id":    input.CallerUserID,
	}
	if input.MakePublic {
		unlockPatch["visibility"] = "public"
		unlockPatch["listing_state"] = "published"
		unlockPatch["is_public"] = true
	} else {
		unlockPatch["visibility"] = "private"
		unlockPatch["listing_state"] = "draft"
		unlockPatch["is_public"] = false
	}
	video, err = s.videos.UpdateFields(ctx, videoID, unlockPatch)
	if err != nil {
		return nil, err
	}

	payloads := indexer.BuildUnlockPayloads(videoID, youtubeURL, video.ExternalChannelID)

	result := &UnlockIndexResult{
		Video:                 video,
		Channel:               channel,
		Quota:                 quota,
		QuotaUpdated:          false,
		DemoProtectionApplied: !input.MakePublic,
		DemoProtectionErrors:  []string{},
	}

	invocation, err := s.invoker.Invoke(ctx, indexer.FunctionIndexVideo, payloads)
	if err != nil {
		// Transport failure still goes through compensation.
		result.IndexTriggered = false
		result.IndexResponse = err.Error()
		s.log.WithField(logger.FieldVideoID, videoID).WithError(err).
			Error("Indexer trigger transport failure")
	} else {
		result.IndexTriggered = triggeredFromBody(invocation.OK, invocation.Body)
		result.IndexStatus = invocation.Status
		result.IndexResponse = invocation.Body
		result.IndexAttempts = invocation.Attempts
	}

	if !input.MakePublic {
		s.compensate(ctx, result, videoID, channel, channelWasOfficial)
	}

	return result, nil
}

// compensate reverts the demo-visible side effects of an unlock trigger.
func (s *UnlockService) compensate(ctx context.Context, result *UnlockIndexResult, videoID string, channel *domain.Channel, channelWasOfficial bool) {
	relocked, err := s.videos.UpdateFields(ctx, videoID, map[string]interface{}{
		"visibility":    "private",
		"listing_state": "draft",
		"is_public":     false,
	})
	if err != nil {
		result.DemoProtectionErrors = append(result.DemoProtectionErrors,
			fmt.Sprintf("failed to re-hide video: %v", err))
	} else {
		result.Video = relocked
	}

	if !channelWasOfficial {
		err := s.channels.UpdateFields(ctx, channel.ID, map[string]interface{}{
			"channel_lifecycle_status": domain.ChannelLifecycleInvited,
			"officialized_at":          nil,
		})
		if err != nil {
			result.DemoProtectionErrors = append(result.DemoProtectionErrors,
				fmt.Sprintf("failed to revert channel lifecycle: %v", err))
		} else if fresh, err := s.channels.Get(ctx, channel.ID); err == nil && fresh != nil {
			result.Channel = fresh
		}
	}

	if len(result.DemoProtectionErrors) > 0 {
		s.log.WithField(logger.FieldVideoID, videoID).
			WithField("errors", result.DemoProtectionErrors).
			Warn("Demo protection partially failed")
	}
}

// triggeredFromBody decides whether the trigger logically succeeded. The
// remote function can return 200 with a failure embedded, so an explicit
// indexTriggered:false in the body overrides the HTTP status; an absent flag
// on a 2xx response counts as triggered.
func triggeredFromBody(ok bool, body interface{}) bool {
	if !ok {
		return false
	}
	obj := normalize.AsRecord(body)
	if obj == nil {
		return true
	}
	for _, key := range []string{"indexTriggered", "index_triggered"} {
		if v, exists := obj[key]; exists {
			if b, isBool := v.(bool); isBool {
				return b
			}
		}
	}
	return true
}

// deriveYoutubeURL reconstructs a watchable URL for a video when possible.
func deriveYoutubeURL(video *domain.Video) *string {
	if video.SourceURL != nil && strings.TrimSpace(*video.SourceURL) != "" {
		return video.SourceURL
	}
	if video.ExternalVideoID != nil && strings.TrimSpace(*video.ExternalVideoID) != "" {
		url := "https://www.youtube.com/watch?v=" + *video.ExternalVideoID
		return &url
	}
	return nil
}

// IndexTriggerFailureMessage explains why a trigger did not take, for operator
// display. Returns nil when the trigger succeeded. The message combines the
// response body's error/message with its details field unless the details are
// already contained in it, prefixed with the final HTTP status.
func IndexTriggerFailureMessage(result *UnlockIndexResult) *string {
	if result == nil || result.IndexTriggered {
		return nil
	}

	base := ""
	if detail := normalize.String(normalize.PickFirst(result.IndexResponse, []string{"error", "message"})); detail != nil {
		base = *detail
	} else if raw, ok := result.IndexResponse.(string); ok && strings.TrimSpace(raw) != "" {
		base = strings.TrimSpace(raw)
	}

	if details := normalize.String(normalize.PickFirst(result.IndexResponse, []string{"details"})); details != nil {
		if base == "" {
			base = *details
		} else if !strings.Contains(base, *details) {
			base = base + ": " + *details
		}
	}

	if base == "" {
		base = "Indexer did not accept any payload shape"
	}

	message := base
	if result.IndexStatus > 0 {
		message = fmt.Sprintf("Indexer responded %d: %s", result.IndexStatus, base)
	}
	return &message
}
