package domain

import (
	"time"

	"gorm.io/datatypes"
)

// RunMode selects which indexer entry point a test run exercises.
// Values include RunModeAdminTest, RunModePublic, and RunModePersonal.
type RunMode string

const (
	RunModeAdminTest RunMode = "admin_test"
	RunModePublic    RunMode = "public"
	RunModePersonal  RunMode = "personal"
)

// ParseRunMode maps an arbitrary string onto a known run mode,
// defaulting to RunModeAdminTest for unrecognized values.
func ParseRunMode(s string) RunMode {
	switch RunMode(s) {
	case RunModePersonal, RunModePublic, RunModeAdminTest:
		return RunMode(s)
	default:
		return RunModeAdminTest
	}
}

// TestRunStatus represents the lifecycle state of a test run.
// Runs are created as processing and terminate at complete or failed.
type TestRunStatus string

const (
	TestRunStatusQueued     TestRunStatus = "queued"
	TestRunStatusProcessing TestRunStatus = "processing"
	TestRunStatusComplete   TestRunStatus = "complete"
	TestRunStatusFailed     TestRunStatus = "failed"
)

// TestRun is one attempt to exercise the indexing pipeline against a video.
// Metrics fields are populated only on success; error fields only on failure.
type TestRun struct {
	ID                string        `gorm:"type:text;primaryKey" json:"id"`
	RequestedByUserID *string       `gorm:"type:text" json:"requested_by_user_id"`
	YoutubeURL        string        `gorm:"type:text;not null" json:"youtube_url"`
	YoutubeVideoID    string        `gorm:"type:text;not null;index:idx_test_runs_video" json:"youtube_video_id"`
	SourceVideoID     *string       `gorm:"type:text" json:"source_video_id"`
	RunMode           RunMode       `gorm:"type:text;default:admin_test" json:"run_mode"`
	Status            TestRunStatus `gorm:"type:text;index:idx_test_runs_status;default:processing" json:"status"`
	IndexingRunID     *string       `gorm:"type:text" json:"indexing_run_id"`
	ContractVersion   string        `gorm:"type:text;default:v1" json:"contract_version"`
	PipelineVersion   *string       `gorm:"type:text" json:"pipeline_version"`
	ErrorCode         *string       `gorm:"type:text" json:"error_code"`
	ErrorMessage      *string       `gorm:"type:text" json:"error_message"`
	TranscriptCount   int           `json:"transcript_count"`
	OcrCount          int           `json:"ocr_count"`
	TranscriptSource  *string       `gorm:"type:text" json:"transcript_source"`
	LaneUsed          *string       `gorm:"type:text" json:"lane_used"`
	DurationMs        *int          `json:"duration_ms"`
	CreatedAt         time.Time     `gorm:"index:idx_test_runs_created" json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// TableName returns the database table name for TestRun.
func (TestRun) TableName() string {
	return "indexing_test_runs"
}

// LogLevel classifies a test run log line.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// TestRunLog is one append-only structured event scoped to a test run.
// Log rows are never mutated or deleted once written.
type TestRunLog struct {
	ID        string         `gorm:"type:text;primaryKey" json:"id"`
	TestRunID string         `gorm:"type:text;not null;index:idx_test_logs_run" json:"test_run_id"`
	T         time.Time      `gorm:"index:idx_test_logs_t" json:"t"`
	Level     LogLevel       `gorm:"type:text;default:info" json:"level"`
	Msg       string         `gorm:"type:text;not null" json:"msg"`
	Data      datatypes.JSON `json:"data,omitempty"`
}

// TableName returns the database table name for TestRunLog.
func (TestRunLog) TableName() string {
	return "indexing_test_logs"
}

// TestRunOutputs holds the raw transcript/OCR artifacts for a test run.
// At most one row per run; re-runs replace via upsert on test_run_id.
type TestRunOutputs struct {
	TestRunID      string         `gorm:"type:text;primaryKey" json:"test_run_id"`
	TranscriptJSON datatypes.JSON `json:"transcript_json"`
	OcrJSON        datatypes.JSON `json:"ocr_json"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TableName returns the database table name for TestRunOutputs.
func (TestRunOutputs) TableName() string {
	return "indexing_test_outputs"
}
