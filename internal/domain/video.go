package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Video is a production video row. The admin core never alters its schema;
// it only toggles visibility/lifecycle flags during unlock-and-index flows.
type Video struct {
	ID                   string     `gorm:"type:text;primaryKey" json:"id"`
	ExternalChannelID    *string    `gorm:"type:text;index:idx_videos_channel" json:"external_channel_id"`
	ExternalVideoID      *string    `gorm:"type:text;index:idx_videos_external" json:"external_video_id"`
	SourceURL            *string    `gorm:"type:text" json:"source_url"`
	Title                string     `gorm:"type:text" json:"title"`
	IndexingStatus       string     `gorm:"type:text;index:idx_videos_indexing_status" json:"indexing_status"`
	Visibility           string     `gorm:"type:text;default:private" json:"visibility"`
	ListingState         string     `gorm:"type:text;default:draft" json:"listing_state"`
	IsPublic             bool       `json:"is_public"`
	AdminUnlocked        bool       `json:"admin_unlocked"`
	IndexingUnlockReason *string    `gorm:"type:text" json:"indexing_unlock_reason"`
	IndexingUnlockedAt   *time.Time `json:"indexing_unlocked_at"`
	UnlockedByUserID     *string    `gorm:"type:text" json:"unlocked_by_user_id"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Video.
func (Video) TableName() string {
	return "videos"
}

// ChannelLifecycleOfficial marks a channel promoted out of the invited demo posture.
const (
	ChannelLifecycleInvited  = "invited"
	ChannelLifecycleOfficial = "official"
)

// Channel is an external partner channel carrying the free-index quota counters.
// Quota consumption happens via a store-side trigger on indexing completion,
// not in this service.
type Channel struct {
	ID                     string     `gorm:"type:text;primaryKey" json:"id"`
	Name                   string     `gorm:"type:text" json:"name"`
	ChannelLifecycleStatus string     `gorm:"type:text;default:invited" json:"channel_lifecycle_status"`
	FreeIndexQuota         int        `gorm:"default:5" json:"free_index_quota"`
	FreeIndexesUsed        int        `gorm:"default:0" json:"free_indexes_used"`
	OfficializedAt         *time.Time `json:"officialized_at"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Channel.
func (Channel) TableName() string {
	return "external_channels"
}

// IndexingRun is the external pipeline's own run record, read-only to this
// service. It feeds the ops dashboard aggregations.
type IndexingRun struct {
	ID           string         `gorm:"type:text;primaryKey" json:"id"`
	VideoID      string         `gorm:"type:text;index:idx_indexing_runs_video" json:"video_id"`
	Phase        string         `gorm:"type:text;index:idx_indexing_runs_phase" json:"phase"`
	Status       string         `gorm:"type:text;index:idx_indexing_runs_status" json:"status"`
	ErrorMessage *string        `gorm:"type:text" json:"error_message"`
	DurationMs   int            `json:"duration_ms"`
	CostCents    *int           `json:"cost_cents"`
	Meta         datatypes.JSON `json:"meta"`
	CreatedAt    time.Time      `gorm:"index:idx_indexing_runs_created" json:"created_at"`
}

// TableName returns the database table name for IndexingRun.
func (IndexingRun) TableName() string {
	return "indexing_runs"
}
