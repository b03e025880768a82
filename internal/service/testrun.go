package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/marginality/indexing-admin/internal/apperr"
	"github.com/marginality/indexing-admin/internal/domain"
	"github.com/marginality/indexing-admin/internal/indexer"
	"github.com/marginality/indexing-admin/internal/logger"
	"github.com/marginality/indexing-admin/internal/normalize"
	"github.com/marginality/indexing-admin/internal/repository"
	"gorm.io/datatypes"
)

// RunLedger is the persistence surface the orchestrator writes through.
type RunLedger interface {
	CreateRun(ctx context.Context, run *domain.TestRun) (string, error)
	AppendLog(ctx context.Context, runID string, level domain.LogLevel, msg string, data map[string]interface{})
	StoreOutputs(ctx context.Context, runID string, transcriptJSON, ocrJSON datatypes.JSON) error
	FinalizeSuccess(ctx context.Context, runID string, metrics repository.SuccessMetrics) error
	FinalizeFailure(ctx context.Context, runID, code, message string)
}

// IndexerInvoker posts candidate payload shapes to a remote indexer function.
type IndexerInvoker interface {
	Invoke(ctx context.Context, functionName string, payloads []map[string]interface{}) (*indexer.Result, error)
}

// TestRunService orchestrates indexing test runs end to end: validate,
// persist, invoke the remote pipeline, store artifacts, finalize.
type TestRunService struct {
	ledger  RunLedger
	invoker IndexerInvoker
	log     *logger.Logger
}

// NewTestRunService creates a new TestRunService.
// Parameters:
//   - ledger: test-run persistence.
//   - invoker: remote indexer client.
//   - log: structured logger.
// Returns:
//   - *TestRunService: service instance.
func NewTestRunService(ledger RunLedger, invoker IndexerInvoker, log *logger.Logger) *TestRunService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &TestRunService{ledger: ledger, invoker: invoker, log: log}
}

// StartTestRunInput is the caller-supplied description of a test run.
type StartTestRunInput struct {
	YoutubeURL        string                 `json:"youtubeUrl"`
	SourceVideoID     *string                `json:"sourceVideoId"`
	PartnerChannelID  *string                `json:"partnerChannelId"`
	RunMode           string                 `json:"runMode"`
	RequestedByUserID *string                `json:"requestedByUserId"`
	Options           map[string]interface{} `json:"options"`

	// CallerUserID is the authenticated operator, set by the API layer,
	// never taken from the request body.
	CallerUserID string `json:"-"`
}

// TestRunMetrics are the derived success metrics of a completed run.
type TestRunMetrics struct {
	IndexingRunID    *string `json:"indexingRunId"`
	PipelineVersion  *string `json:"pipelineVersion"`
	TranscriptCount  int     `json:"transcriptCount"`
	OcrCount         int     `json:"ocrCount"`
	TranscriptSource *string `json:"transcriptSource"`
	LaneUsed         *string `json:"laneUsed"`
	DurationMs       *int    `json:"durationMs"`
}

// StartTestRunResult is the success response of StartTestRun.
type StartTestRunResult struct {
	TestRunID string               `json:"testRunId"`
	Status    domain.TestRunStatus `json:"status"`
	Metrics   TestRunMetrics       `json:"metrics"`
}

// RunFailure is a typed error that carries the persisted run id alongside the
// underlying failure, so API callers can point the operator at the failed row.
type RunFailure struct {
	Err       *apperr.Error
	TestRunID string
}

// Error implements the error interface.
func (f *RunFailure) Error() string {
	return f.Err.Message
}

// Unwrap exposes the underlying typed error to errors.As.
func (f *RunFailure) Unwrap() error {
	return f.Err
}

// StartTestRun executes one indexing test run synchronously.
// Validation failures return before any row is written. After the run row
// exists, every failure is recorded on the row via FinalizeFailure and then
// returned as a RunFailure carrying the run id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - input: run description; CallerUserID must be set by the API layer.
// Returns:
//   - *StartTestRunResult: run id, terminal status, and derived metrics.
//   - error: typed validation error, or RunFailure after the row exists.
func (s *TestRunService) StartTestRun(ctx context.Context, input StartTestRunInput) (*StartTestRunResult, error) {
	youtubeURL := strings.TrimSpace(input.YoutubeURL)
	if youtubeURL == "" {
		return nil, apperr.BadRequest(apperr.CodeYoutubeURLRequired, "youtubeUrl is required")
	}

	videoID := normalize.ExtractYouTubeVideoID(youtubeURL)
	if videoID == "" {
		return nil, apperr.BadRequest(apperr.CodeInvalidYoutubeURL,
			"Could not extract a YouTube video id from youtubeUrl")
	}

	mode := domain.ParseRunMode(input.RunMode)
	requestedBy := input.RequestedByUserID
	if mode == domain.RunModePersonal {
		if requestedBy == nil || strings.TrimSpace(*requestedBy) == "" {
			return nil, apperr.BadRequest(apperr.CodeRequestedByUserIDRequired,
				"requestedByUserId is required for personal runs")
		}
		trimmed := strings.TrimSpace(*requestedBy)
		if !normalize.IsUUID(trimmed) {
			return nil, apperr.BadRequest(apperr.CodeRequestedByUserIDInvalid,
				"requestedByUserId must be a UUID")
		}
		if trimmed != input.CallerUserID {
			return nil, apperr.New(http.StatusForbidden, apperr.CodeRequestedByUserIDMismatch,
				"requestedByUserId must match the authenticated admin")
		}
		requestedBy = &trimmed
	}
	// Attribute the run to the authenticated operator when the request does
	// not name a user explicitly.
	if (requestedBy == nil || strings.TrimSpace(*requestedBy) == "") && input.CallerUserID != "" {
		caller := input.CallerUserID
		requestedBy = &caller
	}

	run := &domain.TestRun{
		RequestedByUserID: requestedBy,
		YoutubeURL:        youtubeURL,
		YoutubeVideoID:    videoID,
		SourceVideoID:     input.SourceVideoID,
		RunMode:           mode,
	}
	runID, err := s.ledger.CreateRun(ctx, run)
	if err != nil {
		return nil, err
	}

	s.log.WithField(logger.FieldTestRunID, runID).
		WithField("youtube_video_id", videoID).
		Info("Test run created")
	s.ledger.AppendLog(ctx, runID, domain.LogLevelInfo, "Run created", map[string]interface{}{
		"youtubeVideoId": videoID,
		"runMode":        string(mode),
	})

	// Only the personal pipeline attributes work to a user; the shared
	// pipelines must not receive the operator's id.
	var payloadUser *string
	if mode == domain.RunModePersonal {
		payloadUser = requestedBy
	}

	functionName := indexer.FunctionForRunMode(mode)
	payloads := indexer.BuildTestRunPayloads(indexer.TestRunPayloadInput{
		YoutubeURL:        youtubeURL,
		YoutubeVideoID:    videoID,
		SourceVideoID:     input.SourceVideoID,
		PartnerChannelID:  input.PartnerChannelID,
		RunMode:           mode,
		RequestedByUserID: payloadUser,
		Options:           input.Options,
	})

	s.ledger.AppendLog(ctx, runID, domain.LogLevelInfo, "Invoking indexer", map[string]interface{}{
		"function": functionName,
	})

	result, err := s.invoker.Invoke(ctx, functionName, payloads)
	if err != nil {
		return nil, s.failRun(ctx, runID, apperr.Internal(apperr.CodeIndexerCallFailed, err.Error()))
	}
	if !result.OK {
		s.ledger.AppendLog(ctx, runID, domain.LogLevelError, "Indexer call failed", map[string]interface{}{
			"status":   result.Status,
			"attempts": result.Attempts,
		})
		message := indexerFailureMessage(result)
		return nil, s.failRun(ctx, runID, apperr.New(http.StatusBadGateway, apperr.CodeIndexerCallFailed, message))
	}

	s.ledger.AppendLog(ctx, runID, domain.LogLevelInfo, "Indexer call succeeded", map[string]interface{}{
		"status":   result.Status,
		"attempts": len(result.Attempts),
	})

	transcriptDoc := normalize.PickFirst(result.Body, indexer.TranscriptPaths)
	if transcriptDoc == nil {
		transcriptDoc = normalize.DefaultOccurrences(youtubeURL)
	}
	ocrDoc := normalize.PickFirst(result.Body, indexer.OcrPaths)
	if ocrDoc == nil {
		ocrDoc = normalize.DefaultOccurrences(youtubeURL)
	}

	transcriptJSON, err := encodeArtifact(transcriptDoc)
	if err == nil {
		var ocrJSON datatypes.JSON
		ocrJSON, err = encodeArtifact(ocrDoc)
		if err == nil {
			err = s.ledger.StoreOutputs(ctx, runID, transcriptJSON, ocrJSON)
		}
	}
	if err != nil {
		return nil, s.failRun(ctx, runID, apperr.From(err))
	}

	metrics := extractMetrics(result.Body, transcriptDoc, ocrDoc)
	if err := s.ledger.FinalizeSuccess(ctx, runID, repository.SuccessMetrics{
		IndexingRunID:    metrics.IndexingRunID,
		PipelineVersion:  metrics.PipelineVersion,
		TranscriptCount:  metrics.TranscriptCount,
		OcrCount:         metrics.OcrCount,
		TranscriptSource: metrics.TranscriptSource,
		LaneUsed:         metrics.LaneUsed,
		DurationMs:       metrics.DurationMs,
	}); err != nil {
		return nil, s.failRun(ctx, runID, apperr.From(err))
	}

	s.ledger.AppendLog(ctx, runID, domain.LogLevelInfo, "Run complete", map[string]interface{}{
		"transcriptCount": metrics.TranscriptCount,
		"ocrCount":        metrics.OcrCount,
	})

	return &StartTestRunResult{
		TestRunID: runID,
		Status:    domain.TestRunStatusComplete,
		Metrics:   metrics,
	}, nil
}

// failRun records the failure on the run row and wraps it with the run id.
func (s *TestRunService) failRun(ctx context.Context, runID string, typed *apperr.Error) error {
	s.ledger.FinalizeFailure(ctx, runID, typed.Code, typed.Message)
	s.log.WithField(logger.FieldTestRunID, runID).
		WithField("error_code", typed.Code).
		Errorf("Test run failed: %s", typed.Message)
	return &RunFailure{Err: typed, TestRunID: runID}
}

// extractMetrics derives the success metrics from the indexer response body
// and the artifact documents chosen for storage.
func extractMetrics(body, transcriptDoc, ocrDoc interface{}) TestRunMetrics {
	metrics := TestRunMetrics{
		TranscriptCount:  normalize.CountOccurrences(transcriptDoc),
		OcrCount:         normalize.CountOccurrences(ocrDoc),
		TranscriptSource: normalize.String(normalize.PickFirst(body, indexer.TranscriptSourcePaths)),
		LaneUsed:         normalize.String(normalize.PickFirst(body, indexer.LaneUsedPaths)),
		DurationMs:       normalize.Integer(normalize.PickFirst(body, indexer.DurationMsPaths)),
		PipelineVersion:  normalize.String(normalize.PickFirst(body, indexer.PipelineVersionPaths)),
	}

	// Upstream run ids sometimes arrive as opaque strings that are not row
	// references; keep only UUID-shaped values.
	if id := normalize.String(normalize.PickFirst(body, indexer.IndexingRunIDPaths)); id != nil && normalize.IsUUID(*id) {
		metrics.IndexingRunID = id
	}

	return metrics
}

// indexerFailureMessage builds the human-readable failure message from the
// last attempt's response body.
func indexerFailureMessage(result *indexer.Result) string {
	message := fmt.Sprintf("Indexer returned status %d", result.Status)
	if detail := normalize.String(normalize.PickFirst(result.Body, indexer.FailureMessagePaths)); detail != nil {
		message = fmt.Sprintf("%s: %s", message, *detail)
	}
	return message
}

func encodeArtifact(doc interface{}) (datatypes.JSON, error) {
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, apperr.Internal(apperr.CodeOutputsStoreFailed,
			fmt.Sprintf("Failed to encode output artifact: %v", err))
	}
	return datatypes.JSON(encoded), nil
}
