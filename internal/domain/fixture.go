package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Fixture is a durable golden snapshot of expected indexing outputs,
// promoted from a successful test run. Immutable once created.
type Fixture struct {
	ID                     string         `gorm:"type:text;primaryKey" json:"id"`
	Name                   string         `gorm:"type:text;not null" json:"name"`
	YoutubeVideoID         string         `gorm:"type:text;not null;index:idx_fixtures_video" json:"youtube_video_id"`
	YoutubeURL             string         `gorm:"type:text;not null" json:"youtube_url"`
	ExpectedTranscriptJSON datatypes.JSON `json:"expected_transcript_json"`
	ExpectedOcrJSON        datatypes.JSON `json:"expected_ocr_json"`
	ContractVersion        string         `gorm:"type:text;default:v1" json:"contract_version"`
	PipelineVersion        *string        `gorm:"type:text" json:"pipeline_version"`
	Notes                  *string        `gorm:"type:text" json:"notes"`
	Tags                   StringArray    `gorm:"type:text" json:"tags"`
	CreatedAt              time.Time      `gorm:"index:idx_fixtures_created" json:"created_at"`
}

// TableName returns the database table name for Fixture.
func (Fixture) TableName() string {
	return "indexing_test_fixtures"
}
