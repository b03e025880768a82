package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marginality/indexing-admin/internal/apperr"
	"github.com/marginality/indexing-admin/internal/domain"
	"github.com/marginality/indexing-admin/internal/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TestRunRepository is the ledger for indexing test runs: the run rows,
// their append-only log stream, and their output artifacts.
type TestRunRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewTestRunRepository creates a new TestRunRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//   - log: logger for best-effort write failures.
// Returns:
//   - *TestRunRepository: repository instance bound to db.
func NewTestRunRepository(db *gorm.DB, log *logger.Logger) *TestRunRepository {
	if log == nil {
		log = logger.GetDefault()
	}
	return &TestRunRepository{db: db, log: log}
}

// SuccessMetrics carries the derived metrics written when a run completes.
type SuccessMetrics struct {
	IndexingRunID    *string
	PipelineVersion  *string
	TranscriptCount  int
	OcrCount         int
	TranscriptSource *string
	LaneUsed         *string
	DurationMs       *int
}

// CreateRun inserts a new test run row with status processing and returns
// its id. Fatal to the orchestration on failure; no retry.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run row to persist; ID and Status are assigned here.
// Returns:
//   - string: generated run id.
//   - error: RUN_CREATE_FAILED typed error if the insert fails.
func (r *TestRunRepository) CreateRun(ctx context.Context, run *domain.TestRun) (string, error) {
	run.ID = uuid.New().String()
	run.Status = domain.TestRunStatusProcessing
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	if run.ContractVersion == "" {
		run.ContractVersion = "v1"
	}

	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return "", apperr.Internal(apperr.CodeRunCreateFailed,
			fmt.Sprintf("Failed to create indexing_test_runs row: %v", err))
	}
	return run.ID, nil
}

// AppendLog writes one structured log row for a run. Best-effort: a failed
// write is reported to the operator stream and never aborts the caller, so
// logging can't mask the primary operation's outcome.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - runID: owning test run id.
//   - level: log level (info, warn, error).
//   - msg: log message.
//   - data: optional structured payload; nil or empty is omitted.
// Returns: none.
func (r *TestRunRepository) AppendLog(ctx context.Context, runID string, level domain.LogLevel, msg string, data map[string]interface{}) {
	row := &domain.TestRunLog{
		ID:        uuid.New().String(),
		TestRunID: runID,
		T:         time.Now(),
		Level:     level,
		Msg:       msg,
	}

	if len(data) > 0 {
		encoded, err := json.Marshal(data)
		if err != nil {
			r.log.WithError(err).Error("Failed to encode indexing_test_logs data")
		} else {
			row.Data = datatypes.JSON(encoded)
		}
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		r.log.WithField(logger.FieldTestRunID, runID).WithError(err).
			Error("Failed to append indexing_test_logs row")
	}
}

// StoreOutputs upserts the transcript/OCR artifacts keyed by run id. A re-run
// of the same run id replaces, never appends.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - runID: owning test run id.
//   - transcriptJSON, ocrJSON: raw artifact documents.
// Returns:
//   - error: OUTPUTS_STORE_FAILED typed error if the upsert fails.
func (r *TestRunRepository) StoreOutputs(ctx context.Context, runID string, transcriptJSON, ocrJSON datatypes.JSON) error {
	row := &domain.TestRunOutputs{
		TestRunID:      runID,
		TranscriptJSON: transcriptJSON,
		OcrJSON:        ocrJSON,
		CreatedAt:      time.Now(),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "test_run_id"}},
		UpdateAll: true,
	}).Create(row).Error
	if err != nil {
		return apperr.Internal(apperr.CodeOutputsStoreFailed,
			fmt.Sprintf("Failed to store outputs: %v", err))
	}
	return nil
}

// FinalizeSuccess transitions a run to complete with its derived metrics,
// clearing any prior error fields.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - runID: test run id.
//   - metrics: derived metrics to record.
// Returns:
//   - error: RUN_UPDATE_FAILED typed error if the update fails.
func (r *TestRunRepository) FinalizeSuccess(ctx context.Context, runID string, metrics SuccessMetrics) error {
	patch := map[string]interface{}{
		"indexing_run_id":   metrics.IndexingRunID,
		"pipeline_version":  metrics.PipelineVersion,
		"transcript_count":  metrics.TranscriptCount,
		"ocr_count":         metrics.OcrCount,
		"transcript_source": metrics.TranscriptSource,
		"lane_used":         metrics.LaneUsed,
		"duration_ms":       metrics.DurationMs,
		"status":            domain.TestRunStatusComplete,
		"error_code":        nil,
		"error_message":     nil,
		"updated_at":        time.Now(),
	}

	err := r.db.WithContext(ctx).Model(&domain.TestRun{}).
		Where("id = ?", runID).
		Updates(patch).Error
	if err != nil {
		return apperr.Internal(apperr.CodeRunUpdateFailed,
			fmt.Sprintf("Failed to update indexing_test_runs row: %v", err))
	}
	return nil
}

// FinalizeFailure transitions a run to failed with its error code/message.
// Invoked from the top-level error handler; must not throw — a store failure
// here is logged and swallowed since there is no further recovery path.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - runID: test run id.
//   - code: stable error code.
//   - message: human-readable failure message.
// Returns: none.
func (r *TestRunRepository) FinalizeFailure(ctx context.Context, runID, code, message string) {
	patch := map[string]interface{}{
		"status":        domain.TestRunStatusFailed,
		"error_code":    code,
		"error_message": message,
		"updated_at":    time.Now(),
	}

	err := r.db.WithContext(ctx).Model(&domain.TestRun{}).
		Where("id = ?", runID).
		Updates(patch).Error
	if err != nil {
		r.log.WithField(logger.FieldTestRunID, runID).WithError(err).
			Error("Failed to mark indexing_test_runs row as failed")
	}
}

// ListRuns retrieves the most recent test runs, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum rows to return, clamped to [1, 200].
// Returns:
//   - []domain.TestRun: matching rows.
//   - error: non-nil if the query fails.
func (r *TestRunRepository) ListRuns(ctx context.Context, limit int) ([]domain.TestRun, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}

	var runs []domain.TestRun
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list indexing test runs: %w", err)
	}
	return runs, nil
}

// GetRun retrieves one test run by id, or nil when absent.
func (r *TestRunRepository) GetRun(ctx context.Context, id string) (*domain.TestRun, error) {
	var run domain.TestRun
	err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load indexing test run: %w", err)
	}
	return &run, nil
}

// GetOutputs retrieves the output artifacts for a run, or nil when absent.
func (r *TestRunRepository) GetOutputs(ctx context.Context, runID string) (*domain.TestRunOutputs, error) {
	var outputs domain.TestRunOutputs
	err := r.db.WithContext(ctx).First(&outputs, "test_run_id = ?", runID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load indexing test outputs: %w", err)
	}
	return &outputs, nil
}

// ListLogs retrieves the log stream for a run ordered by timestamp ascending.
func (r *TestRunRepository) ListLogs(ctx context.Context, runID string) ([]domain.TestRunLog, error) {
	var logs []domain.TestRunLog
	if err := r.db.WithContext(ctx).
		Where("test_run_id = ?", runID).
		Order("t ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to load indexing test logs: %w", err)
	}
	return logs, nil
}
