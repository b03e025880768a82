package repository

import (
	"context"
	"fmt"

	"github.com/marginality/indexing-admin/internal/domain"
	"gorm.io/gorm"
)

// VideoRepository handles production video rows. The admin core only toggles
// visibility/lifecycle flags; it never owns the video schema.
type VideoRepository struct {
	db *gorm.DB
}

// NewVideoRepository creates a new VideoRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *VideoRepository: repository instance bound to db.
func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Get retrieves one video by id, or nil when absent.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: video id.
// Returns:
//   - *domain.Video: video row if found.
//   - error: non-nil if the lookup fails.
func (r *VideoRepository) Get(ctx context.Context, id string) (*domain.Video, error) {
	var video domain.Video
	err := r.db.WithContext(ctx).First(&video, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load video: %w", err)
	}
	return &video, nil
}

// UpdateFields applies a partial patch to a video and returns the updated row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: video id.
//   - patch: column/value pairs to update.
// Returns:
//   - *domain.Video: the row after the update.
//   - error: non-nil if the update or reload fails.
func (r *VideoRepository) UpdateFields(ctx context.Context, id string, patch map[string]interface{}) (*domain.Video, error) {
	if err := r.db.WithContext(ctx).Model(&domain.Video{}).
		Where("id = ?", id).
		Updates(patch).Error; err != nil {
		return nil, fmt.Errorf("failed to update video: %w", err)
	}

	var video domain.Video
	if err := r.db.WithContext(ctx).First(&video, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload video: %w", err)
	}
	return &video, nil
}
