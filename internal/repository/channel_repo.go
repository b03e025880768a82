package repository

import (
	"context"
	"fmt"

	"github.com/marginality/indexing-admin/internal/domain"
	"gorm.io/gorm"
)

// ChannelRepository handles external channel rows: quota reads and the
// lifecycle reverts the demo-safety pass performs.
type ChannelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a new ChannelRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ChannelRepository: repository instance bound to db.
func NewChannelRepository(db *gorm.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Get retrieves one channel by id, or nil when absent.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: channel id.
// Returns:
//   - *domain.Channel: channel row if found.
//   - error: non-nil if the lookup fails.
func (r *ChannelRepository) Get(ctx context.Context, id string) (*domain.Channel, error) {
	var channel domain.Channel
	err := r.db.WithContext(ctx).First(&channel, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load channel: %w", err)
	}
	return &channel, nil
}

// UpdateFields applies a partial patch to a channel.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: channel id.
//   - patch: column/value pairs to update.
// Returns:
//   - error: non-nil if the update fails.
func (r *ChannelRepository) UpdateFields(ctx context.Context, id string, patch map[string]interface{}) error {
	if err := r.db.WithContext(ctx).Model(&domain.Channel{}).
		Where("id = ?", id).
		Updates(patch).Error; err != nil {
		return fmt.Errorf("failed to update channel: %w", err)
	}
	return nil
}
