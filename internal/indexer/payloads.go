package indexer

import "github.com/marginality/indexing-admin/internal/domain"

// Remote function entry points. Personal runs route to the personal-context
// variant; every other mode uses the standard indexer.
const (
	FunctionIndexVideo         = "index_video"
	FunctionIndexPersonalVideo = "index_personal_video"
)

// FunctionForRunMode selects the remote function name for a run mode.
func FunctionForRunMode(mode domain.RunMode) string {
	if mode == domain.RunModePersonal {
		return FunctionIndexPersonalVideo
	}
	return FunctionIndexVideo
}

// TestRunPayloadInput carries the identifying fields for a test-run
// invocation. Optional fields are included in payloads only when present.
type TestRunPayloadInput struct {
	YoutubeURL        string
	YoutubeVideoID    string
	SourceVideoID     *string
	PartnerChannelID  *string
	RunMode           domain.RunMode
	RequestedByUserID *string
	Options           map[string]interface{}
}

// BuildTestRunPayloads returns the ordered candidate request bodies for a
// test run: camelCase first, snake_case second. The identifying fields are
// identical across shapes so a deduping remote side sees one request.
func BuildTestRunPayloads(input TestRunPayloadInput) []map[string]interface{} {
	options := input.Options
	if options == nil {
		options = map[string]interface{}{}
	}

	camel := map[string]interface{}{
		"youtubeUrl":     input.YoutubeURL,
		"youtubeVideoId": input.YoutubeVideoID,
		"sourceVideoId":  derefOrNil(input.SourceVideoID),
		"options":        options,
		"source":         "admin_testing_center",
		"bypassPayment":  true,
		"runMode":        string(input.RunMode),
	}

	snake := map[string]interface{}{
		"youtube_url":      input.YoutubeURL,
		"youtube_video_id": input.YoutubeVideoID,
		"source_video_id":  derefOrNil(input.SourceVideoID),
		"options":          options,
		"source":           "admin_testing_center",
		"bypass_payment":   true,
		"run_mode":         string(input.RunMode),
	}

	if input.PartnerChannelID != nil {
		camel["partnerChannelId"] = *input.PartnerChannelID
		snake["partner_channel_id"] = *input.PartnerChannelID
	}

	if input.RequestedByUserID != nil {
		camel["requestedByUserId"] = *input.RequestedByUserID
		camel["userId"] = *input.RequestedByUserID
		snake["requested_by_user_id"] = *input.RequestedByUserID
		snake["user_id"] = *input.RequestedByUserID
	}

	return []map[string]interface{}{camel, snake}
}

// BuildUnlockPayloads returns the ordered candidate request bodies for an
// unlock-and-index trigger. The URL-bearing shape leads when a YouTube URL is
// known, followed by the id-only shape variants.
func BuildUnlockPayloads(videoID string, youtubeURL, partnerChannelID *string) []map[string]interface{} {
	payloads := make([]map[string]interface{}, 0, 4)

	if youtubeURL != nil {
		payloads = append(payloads, map[string]interface{}{
			"youtubeUrl":       *youtubeURL,
			"partnerChannelId": derefOrNil(partnerChannelID),
			"videoId":          videoID,
			"bypassPayment":    true,
			"source":           "admin",
		})
	}

	payloads = append(payloads,
		map[string]interface{}{
			"video_id":       videoID,
			"bypass_payment": true,
			"source":         "admin",
		},
		map[string]interface{}{
			"videoId":       videoID,
			"bypassPayment": true,
			"source":        "admin",
		},
		map[string]interface{}{
			"id":            videoID,
			"bypassPayment": true,
			"source":        "admin",
		},
	)

	return payloads
}

func derefOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
