package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/marginality/indexing-admin/internal/apperr"
	"github.com/marginality/indexing-admin/internal/domain"
)

type fakeVideoStore struct {
	videos  map[string]*domain.Video
	patches []map[string]interface{}
	getErr  error
	updErr  error

	// failOnUpdate fails the Nth UpdateFields call (1-based) when non-zero.
	failOnUpdate int
	updateCalls  int
}

func (f *fakeVideoStore) Get(_ context.Context, id string) (*domain.Video, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.videos[id], nil
}

func (f *fakeVideoStore) UpdateFields(_ context.Context, id string, patch map[string]interface{}) (*domain.Video, error) {
	f.updateCalls++
	if f.updErr != nil {
		return nil, f.updErr
	}
	if f.failOnUpdate != 0 && f.updateCalls == f.failOnUpdate {
		return nil, apperr.Internal(apperr.CodeUnexpectedError, "write lock timeout")
	}
	f.patches = append(f.patches, patch)
	video := f.videos[id]
	if v, ok := patch["visibility"].(string); ok {
		video.Visibility = v
	}
	if v, ok := patch["listing_state"].(string); ok {
		video.ListingState = v
	}
	if v, ok := patch["is_public"].(bool); ok {
		video.IsPublic = v
	}
	if v, ok := patch["admin_unlocked"].(bool); ok {
		video.AdminUnlocked = v
	}
	return video, nil
}

type fakeChannelStore struct {
	channels map[string]*domain.Channel
	patches  []map[string]interface{}
	updErr   error
}

func (f *fakeChannelStore) Get(_ context.Context, id string) (*domain.Channel, error) {
	return f.channels[id], nil
}

func (f *fakeChannelStore) UpdateFields(_ context.Context, id string, patch map[string]interface{}) error {
	if f.updErr != nil {
		return f.updErr
	}
	f.patches = append(f.patches, patch)
	channel := f.channels[id]
	if v, ok := patch["channel_lifecycle_status"].(string); ok {
		channel.ChannelLifecycleStatus = v
	}
	if _, ok := patch["officialized_at"]; ok {
		channel.OfficializedAt = nil
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}

func unlockFixture() (*fakeVideoStore, *fakeChannelStore) {
	videos := &fakeVideoStore{videos: map[string]*domain.Video{
		"v1": {
			ID:                "v1",
			ExternalChannelID: strPtr("ch1"),
			ExternalVideoID:   strPtr("dQw4w9WgXcQ"),
			Visibility:        "private",
			ListingState:      "draft",
		},
	}}
	channels := &fakeChannelStore{channels: map[string]*domain.Channel{
		"ch1": {
			ID:                     "ch1",
			ChannelLifecycleStatus: domain.ChannelLifecycleInvited,
			FreeIndexQuota:         5,
			FreeIndexesUsed:        1,
		},
	}}
	return videos, channels
}

func TestUnlockAndIndexVideoNotFound(t *testing.T) {
	videos, channels := unlockFixture()
	invoker := &fakeInvoker{}
	svc := NewUnlockService(videos, channels, invoker, nil)

	_, err := svc.UnlockAndIndex(context.Background(), UnlockIndexInput{VideoID: "missing"})
	if err == nil {
		t.Fatal("expected error")
	}
	typed := apperr.From(err)
	if typed.Code != apperr.CodeVideoNotFound || typed.Status != http.StatusNotFound {
		t.Errorf("got %q/%d, want VIDEO_NOT_FOUND/404", typed.Code, typed.Status)
	}
	if invoker.calls != 0 {
		t.Error("missing video must not reach the indexer")
	}
}

func TestUnlockAndIndexQuotaExhausted(t *testing.T) {
	videos, channels := unlockFixture()
	channels.channels["ch1"].FreeIndexesUsed = 5
	invoker := &fakeInvoker{}
	svc := NewUnlockService(videos, channels, invoker, nil)

	_, err := svc.UnlockAndIndex(context.Background(), UnlockIndexInput{VideoID: "v1"})
	if err == nil {
		t.Fatal("expected error")
	}
	typed := apperr.From(err)
	if typed.Code != apperr.CodeQuotaExhausted || typed.Status != http.StatusConflict {
		t.Errorf("got %q/%d, want QUOTA_EXHAUSTED/409", typed.Code, typed.Status)
	}
	if invoker.calls != 0 {
		t.Error("exhausted quota must block before any indexer contact")
	}
	if len(videos.patches) != 0 {
		t.Error("exhausted quota must block before any video write")
	}
}

func TestUnlockAndIndexIgnoreQuota(t *testing.T) {
	videos, channels := unlockFixture()
	channels.channels["ch1"].FreeIndexesUsed = 5
	invoker := &fakeInvoker{result: okResult(map[string]interface{}{"queued": true})}
	svc := NewUnlockService(videos, channels, invoker, nil)

	result, err := svc.UnlockAndIndex(context.Background(), UnlockIndexInput{
		VideoID:     "v1",
		IgnoreQuota: true,
	})
	if err != nil {
		t.Fatalf("UnlockAndIndex returned error: %v", err)
	}
	if !result.IndexTriggered {
		t.Error("expected trigger with ignoreQuota")
	}
	if result.Quota.Remaining != 0 {
		t.Errorf("quota remaining = %d, want 0", result.Quota.Remaining)
	}
}

func TestUnlockAndIndexDemoProtection(t *testing.T) {
	videos, channels := unlockFixture()
	invoker := &fakeInvoker{result: okResult(map[string]interface{}{"queued": true})}
	svc := NewUnlockService(videos, channels, invoker, nil)

	result, err := svc.UnlockAndIndex(context.Background(), UnlockIndexInput{
		VideoID:      "v1",
		Reason:       "regression check",
		CallerUserID: "admin-1",
	})
	if err != nil {
		t.Fatalf("UnlockAndIndex returned error: %v", err)
	}

	if !result.IndexTriggered {
		t.Fatal("expected successful trigger")
	}
	if !result.DemoProtectionApplied {
		t.Error("demo protection must apply when makePublic is false")
	}
	if len(result.DemoProtectionErrors) != 0 {
		t.Errorf("unexpected compensation errors: %v", result.DemoProtectionErrors)
	}

	if result.Video.Visibility != "private" || result.Video.ListingState != "draft" || result.Video.IsPublic {
		t.Errorf("video not re-hidden: visibility=%q listing=%q public=%v",
			result.Video.Visibility, result.Video.ListingState, result.Video.IsPublic)
	}
	if result.Channel.ChannelLifecycleStatus != domain.ChannelLifecycleInvited {
		t.Errorf("channel lifecycle = %q, want invited", result.Channel.ChannelLifecycleStatus)
	}
	if len(channels.patches) != 1 {
		t.Fatalf("expected 1 channel revert patch, got %d", len(channels.patches))
	}
	if channels.patches[0]["channel_lifecycle_status"] != domain.ChannelLifecycleInvited {
		t.Error("channel revert must set invited lifecycle")
	}
}

func TestUnlockAndIndexMakePublicSkipsCompensation(t *testing.T) {
	videos, channels := unlockFixture()
	invoker := &fakeInvoker{result: okResult(map[string]interface{}{"queued": true})}
	svc := NewUnlockService(videos, channels, invoker, nil)

	result, err := svc.UnlockAndIndex(context.Background(), UnlockIndexInput{
		VideoID:    "v1",
		MakePublic: true,
	})
	if err != nil {
		t.Fatalf("UnlockAndIndex returned error: %v", err)
	}

	if result.DemoProtectionApplied {
		t.Error("makePublic must skip demo protection")
	}
	if result.Video.Visibility != "public" || !result.Video.IsPublic {
		t.Errorf("video not published: visibility=%q public=%v", result.Video.Visibility, result.Video.IsPublic)
	}
	if result.Video.ListingState != "published" {
		t.Errorf("listing state = %q, want published", result.Video.ListingState)
	}
	if len(channels.patches) != 0 {
		t.Error("makePublic must not touch the channel lifecycle")
	}
}

func TestUnlockAndIndexPreSetHidesPublicVideo(t *testing.T) {
	videos, channels := unlockFixture()
	videos.videos["v1"].Visibility = "public"
	videos.videos["v1"].ListingState = "published"
	videos.videos["v1"].IsPublic = true
	// The re-hide write fails; the unlock write itself must already have
	// taken the video private.
	videos.failOnUpdate = 2
	invoker := &fakeInvoker{result: okResult(map[string]interface{}{"queued": true})}
	svc := NewUnlockService(videos, channels, invoker, nil)

	result, err := svc.UnlockAndIndex(context.Background(), UnlockIndexInput{VideoID: "v1"})
	if err != nil {
		t.Fatalf("UnlockAndIndex returned error: %v", err)
	}

	if len(result.DemoProtectionErrors) != 1 {
		t.Fatalf("expected 1 compensation error, got %d", len(result.DemoProtectionErrors))
	}
	video := videos.videos["v1"]
	if video.Visibility != "private" || video.ListingState != "draft" || video.IsPublic {
		t.Errorf("video stayed visible after failed re-hide: visibility=%q listing=%q public=%v",
			video.Visibility, video.ListingState, video.IsPublic)
	}
}

func TestUnlockAndIndexDefaultReason(t *testing.T) {
	videos, channels := unlockFixture()
	invoker := &fakeInvoker{result: okResult(map[string]interface{}{"queued": true})}
	svc := NewUnlockService(videos, channels, invoker, nil)

	if _, err := svc.UnlockAndIndex(context.Background(), UnlockIndexInput{VideoID: "v1"}); err != nil {
		t.Fatalf("UnlockAndIndex returned error: %v", err)
	}

	if len(videos.patches) == 0 {
		t.Fatal("expected an unlock patch")
	}
	if videos.patches[0]["indexing_unlock_reason"] != "admin_demo" {
		t.Errorf("unlock reason = %v, want admin_demo", videos.patches[0]["indexing_unlock_reason"])
	}
}

func TestUnlockAndIndexOfficialChannelNotReverted(t *testing.T) {
	videos, channels := unlockFixture()
	channels.channels["ch1"].ChannelLifecycleStatus = domain.ChannelLifecycleOfficial
	invoker := &fakeInvoker{result: okResult(map[string]interface{}{"queued": true})}
	svc := NewUnlockService(videos, channels, invoker, nil)

	result, err := svc.UnlockAndIndex(context.Background(), UnlockIndexInput{VideoID: "v1"})
	if err != nil {
		t.Fatalf("UnlockAndIndex returned error: %v", err)
	}

	if len(channels.patches) != 0 {
		t.Error("official channel must not be reverted to invited")
	}
	if result.Channel.ChannelLifecycleStatus != domain.ChannelLifecycleOfficial {
		t.Errorf("channel lifecycle = %q, want official", result.Channel.ChannelLifecycleStatus)
	}
}

func TestUnlockAndIndexLogicalFailureInOKResponse(t *testing.T) {
	videos, channels := unlockFixture()
	invoker := &fakeInvoker{result: okResult(map[string]interface{}{
		"indexTriggered": false,
		"error":          "indexer queue full",
	})}
	svc := NewUnlockService(videos, channels, invoker, nil)

	result, err := svc.UnlockAndIndex(context.Background(), UnlockIndexInput{VideoID: "v1"})
	if err != nil {
		t.Fatalf("UnlockAndIndex returned error: %v", err)
	}

	if result.IndexTriggered {
		t.Error("explicit indexTriggered:false must override the 200 status")
	}
	msg := IndexTriggerFailureMessage(result)
	if msg == nil {
		t.Fatal("logical failure must produce a failure message")
	}
	if *msg != "Indexer responded 200: indexer queue full" {
		t.Errorf("failure message = %q", *msg)
	}

	// Compensation still runs after a logical failure.
	if result.Video.Visibility != "private" {
		t.Errorf("video visibility = %q, want private", result.Video.Visibility)
	}
}

func TestUnlockAndIndexCompensationErrorsNonFatal(t *testing.T) {
	videos, channels := unlockFixture()
	invoker := &fakeInvoker{result: okResult(map[string]interface{}{"queued": true})}
	svc := NewUnlockService(videos, channels, invoker, nil)

	// Channel revert fails but the trigger result still comes back.
	channels.updErr = apperr.Internal(apperr.CodeUnexpectedError, "write lock timeout")

	result, err := svc.UnlockAndIndex(context.Background(), UnlockIndexInput{VideoID: "v1"})
	if err != nil {
		t.Fatalf("compensation failure must not fail the call: %v", err)
	}
	if len(result.DemoProtectionErrors) != 1 {
		t.Fatalf("expected 1 compensation error, got %d", len(result.DemoProtectionErrors))
	}
	if !result.IndexTriggered {
		t.Error("trigger outcome must survive compensation failures")
	}
}

func TestIndexTriggerFailureMessage(t *testing.T) {
	tests := []struct {
		name   string
		result *UnlockIndexResult
		want   *string
	}{
		{
			name:   "triggered returns nil",
			result: &UnlockIndexResult{IndexTriggered: true},
			want:   nil,
		},
		{
			name: "error and details combined",
			result: &UnlockIndexResult{
				IndexStatus: 422,
				IndexResponse: map[string]interface{}{
					"error":   "rejected",
					"details": "missing video reference",
				},
			},
			want: strPtr("Indexer responded 422: rejected: missing video reference"),
		},
		{
			name: "details already contained are not repeated",
			result: &UnlockIndexResult{
				IndexStatus: 500,
				IndexResponse: map[string]interface{}{
					"error":   "boom: missing video reference",
					"details": "missing video reference",
				},
			},
			want: strPtr("Indexer responded 500: boom: missing video reference"),
		},
		{
			name: "message field as fallback",
			result: &UnlockIndexResult{
				IndexStatus:   503,
				IndexResponse: map[string]interface{}{"message": "try later"},
			},
			want: strPtr("Indexer responded 503: try later"),
		},
		{
			name: "transport error string without status",
			result: &UnlockIndexResult{
				IndexResponse: "dial tcp: connection refused",
			},
			want: strPtr("dial tcp: connection refused"),
		},
		{
			name:   "empty body gets generic message",
			result: &UnlockIndexResult{IndexStatus: 400},
			want:   strPtr("Indexer responded 400: Indexer did not accept any payload shape"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IndexTriggerFailureMessage(tt.result)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("got %q, want %q", *got, *tt.want)
			}
		})
	}
}
