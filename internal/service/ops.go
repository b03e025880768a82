package service

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/marginality/indexing-admin/internal/domain"
	"github.com/marginality/indexing-admin/internal/logger"
	"github.com/marginality/indexing-admin/internal/normalize"
)

// RunTelemetry is the read-only feed of external pipeline run records.
type RunTelemetry interface {
	CountIndexedVideos(ctx context.Context) (int64, error)
	RecentRuns(ctx context.Context, limit int) ([]domain.IndexingRun, error)
	FailedRuns(ctx context.Context, limit int) ([]domain.IndexingRun, error)
	CompletedAcquisitionRuns(ctx context.Context, limit int) ([]domain.IndexingRun, error)
	ReindexedVideoCounts(ctx context.Context, limit int) (map[string]int, error)
}

// OpsService aggregates pipeline telemetry for the admin dashboard.
type OpsService struct {
	telemetry RunTelemetry
	log       *logger.Logger
}

// NewOpsService creates a new OpsService.
// Parameters:
//   - telemetry: pipeline run telemetry source.
//   - log: structured logger.
// Returns:
//   - *OpsService: service instance.
func NewOpsService(telemetry RunTelemetry, log *logger.Logger) *OpsService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &OpsService{telemetry: telemetry, log: log}
}

// FailureBucket is one normalized failure code with its run count.
type FailureBucket struct {
	Code          string `json:"code"`
	Count         int    `json:"count"`
	SampleMessage string `json:"sampleMessage"`
}

// ReindexedVideo is a video that has been through more than one pipeline run.
type ReindexedVideo struct {
	VideoID  string `json:"videoId"`
	RunCount int    `json:"runCount"`
}

// Overview is the aggregated dashboard payload. Each section carries its own
// error string: a failed query degrades that section, never the response.
type Overview struct {
	IndexedVideoCount int64  `json:"indexedVideoCount"`
	IndexedVideoError string `json:"indexedVideoError,omitempty"`

	ReindexedVideos      []ReindexedVideo `json:"reindexedVideos"`
	ReindexedVideosError string           `json:"reindexedVideosError,omitempty"`

	LaneDistribution      map[string]int `json:"laneDistribution"`
	LaneDistributionError string         `json:"laneDistributionError,omitempty"`

	FailureBreakdown      []FailureBucket `json:"failureBreakdown"`
	FailureBreakdownError string          `json:"failureBreakdownError,omitempty"`

	RecentRuns      []domain.IndexingRun `json:"recentRuns"`
	RecentRunsError string               `json:"recentRunsError,omitempty"`
}

const (
	recentRunsLimit  = 25
	failedRunsLimit  = 1000
	laneRunsLimit    = 5000
	reindexedLimit   = 100
	failureMsgCapLen = 80
)

// Overview builds the full dashboard aggregation. Never returns an error:
// every section degrades independently so one broken query leaves the rest of
// the dashboard usable.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *Overview: aggregated sections, each with its own error field.
func (s *OpsService) Overview(ctx context.Context) *Overview {
	overview := &Overview{
		ReindexedVideos:  []ReindexedVideo{},
		LaneDistribution: map[string]int{},
		FailureBreakdown: []FailureBucket{},
		RecentRuns:       []domain.IndexingRun{},
	}

	if count, err := s.telemetry.CountIndexedVideos(ctx); err != nil {
		overview.IndexedVideoError = err.Error()
		s.log.WithError(err).Warn("Overview indexed-video count failed")
	} else {
		overview.IndexedVideoCount = count
	}

	if counts, err := s.telemetry.ReindexedVideoCounts(ctx, reindexedLimit); err != nil {
		overview.ReindexedVideosError = err.Error()
		s.log.WithError(err).Warn("Overview reindexed-video query failed")
	} else {
		overview.ReindexedVideos = sortedReindexed(counts)
	}

	if runs, err := s.telemetry.CompletedAcquisitionRuns(ctx, laneRunsLimit); err != nil {
		overview.LaneDistributionError = err.Error()
		s.log.WithError(err).Warn("Overview lane-distribution query failed")
	} else {
		overview.LaneDistribution = laneDistribution(runs)
	}

	if runs, err := s.telemetry.FailedRuns(ctx, failedRunsLimit); err != nil {
		overview.FailureBreakdownError = err.Error()
		s.log.WithError(err).Warn("Overview failure-breakdown query failed")
	} else {
		overview.FailureBreakdown = failureBreakdown(runs)
	}

	if runs, err := s.telemetry.RecentRuns(ctx, recentRunsLimit); err != nil {
		overview.RecentRunsError = err.Error()
		s.log.WithError(err).Warn("Overview recent-runs query failed")
	} else {
		overview.RecentRuns = runs
	}

	return overview
}

// laneDistribution buckets the latest acquisition run per video by lane.
// Runs arrive newest first, so the first row seen per video wins.
func laneDistribution(runs []domain.IndexingRun) map[string]int {
	seen := make(map[string]bool, len(runs))
	distribution := map[string]int{}

	for _, run := range runs {
		if seen[run.VideoID] {
			continue
		}
		seen[run.VideoID] = true

		lane := "unknown"
		if extracted := ExtractLane(run.Meta); extracted != nil {
			lane = *extracted
		}
		distribution[lane]++
	}
	return distribution
}

// ExtractLane pulls the transcript lane decision out of a run's metadata
// document, tolerating the shapes different pipeline versions wrote.
func ExtractLane(meta []byte) *string {
	if len(meta) == 0 {
		return nil
	}
	var doc interface{}
	if err := json.Unmarshal(meta, &doc); err != nil {
		return nil
	}
	return normalize.String(normalize.PickFirst(doc, []string{
		"lane",
		"winning_lane",
		"transcript.lane",
	}))
}

// failureBreakdown groups failed runs by normalized error code, most frequent
// first, keeping the first message seen per bucket as a sample.
func failureBreakdown(runs []domain.IndexingRun) []FailureBucket {
	counts := map[string]int{}
	samples := map[string]string{}

	for _, run := range runs {
		message := ""
		if run.ErrorMessage != nil {
			message = *run.ErrorMessage
		}
		code := NormalizeErrorCode(message)
		counts[code]++
		if _, ok := samples[code]; !ok {
			samples[code] = message
		}
	}

	buckets := make([]FailureBucket, 0, len(counts))
	for code, count := range counts {
		buckets = append(buckets, FailureBucket{Code: code, Count: count, SampleMessage: samples[code]})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Code < buckets[j].Code
	})
	return buckets
}

var (
	explicitCodePattern = regexp.MustCompile(`\b[A-Z][A-Z0-9_]{3,}\b`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// NormalizeErrorCode reduces a raw pipeline error message to a stable bucket
// key: known failure classes first, then any explicit ALL_CAPS code embedded
// in the message, then the compacted message itself, capped.
func NormalizeErrorCode(message string) string {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return "UNKNOWN"
	}

	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "no captions"), strings.Contains(lower, "captions not available"):
		return "NO_CAPTIONS"
	case strings.Contains(lower, "proxy") && strings.Contains(lower, "timeout"):
		return "PROXY_TIMEOUT"
	case strings.Contains(lower, "whisper"):
		return "WHISPER_FAILED"
	}

	if code := explicitCodePattern.FindString(trimmed); code != "" {
		return code
	}

	compact := whitespacePattern.ReplaceAllString(trimmed, " ")
	if len(compact) > failureMsgCapLen {
		compact = compact[:failureMsgCapLen]
	}
	return compact
}

// sortedReindexed converts the count map to a slice ordered by run count
// descending, then video id for stability.
func sortedReindexed(counts map[string]int) []ReindexedVideo {
	videos := make([]ReindexedVideo, 0, len(counts))
	for id, n := range counts {
		videos = append(videos, ReindexedVideo{VideoID: id, RunCount: n})
	}
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].RunCount != videos[j].RunCount {
			return videos[i].RunCount > videos[j].RunCount
		}
		return videos[i].VideoID < videos[j].VideoID
	})
	return videos
}
