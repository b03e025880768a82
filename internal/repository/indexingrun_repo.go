package repository

import (
	"context"
	"fmt"

	"github.com/marginality/indexing-admin/internal/domain"
	"gorm.io/gorm"
)

// IndexingRunRepository reads the external pipeline's run records. All queries
// here are read-only feeds for the ops dashboard.
type IndexingRunRepository struct {
	db *gorm.DB
}

// NewIndexingRunRepository creates a new IndexingRunRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *IndexingRunRepository: repository instance bound to db.
func NewIndexingRunRepository(db *gorm.DB) *IndexingRunRepository {
	return &IndexingRunRepository{db: db}
}

// CountIndexedVideos counts videos whose indexing has completed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: number of indexed videos.
//   - error: non-nil if the query fails.
func (r *IndexingRunRepository) CountIndexedVideos(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Video{}).
		Where("indexing_status = ?", "complete").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count indexed videos: %w", err)
	}
	return count, nil
}

// RecentRuns retrieves the newest pipeline runs for the activity feed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum rows to return.
// Returns:
//   - []domain.IndexingRun: matching rows, newest first.
//   - error: non-nil if the query fails.
func (r *IndexingRunRepository) RecentRuns(ctx context.Context, limit int) ([]domain.IndexingRun, error) {
	var runs []domain.IndexingRun
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent indexing runs: %w", err)
	}
	return runs, nil
}

// FailedRuns retrieves recent failed pipeline runs for the failure breakdown.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum rows to return.
// Returns:
//   - []domain.IndexingRun: matching rows, newest first.
//   - error: non-nil if the query fails.
func (r *IndexingRunRepository) FailedRuns(ctx context.Context, limit int) ([]domain.IndexingRun, error) {
	var runs []domain.IndexingRun
	if err := r.db.WithContext(ctx).
		Where("status = ?", "failed").
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list failed indexing runs: %w", err)
	}
	return runs, nil
}

// CompletedAcquisitionRuns retrieves completed transcript-acquisition runs,
// the phase whose metadata carries the lane decision.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum rows to return.
// Returns:
//   - []domain.IndexingRun: matching rows, newest first.
//   - error: non-nil if the query fails.
func (r *IndexingRunRepository) CompletedAcquisitionRuns(ctx context.Context, limit int) ([]domain.IndexingRun, error) {
	var runs []domain.IndexingRun
	if err := r.db.WithContext(ctx).
		Where("phase = ? AND status = ?", "transcript_acquisition", "complete").
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transcript acquisition runs: %w", err)
	}
	return runs, nil
}

// ReindexedVideoCounts returns video ids with more than one completed
// transcript-acquisition run, with their run counts. Feeds the reindex panel.
// Retries that never completed do not count as a reindex.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum rows to return.
// Returns:
//   - map[string]int: video id to run count for reindexed videos.
//   - error: non-nil if the query fails.
func (r *IndexingRunRepository) ReindexedVideoCounts(ctx context.Context, limit int) (map[string]int, error) {
	type row struct {
		VideoID string
		N       int
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&domain.IndexingRun{}).
		Select("video_id, COUNT(*) AS n").
		Where("phase = ? AND status = ?", "transcript_acquisition", "complete").
		Group("video_id").
		Having("COUNT(*) > 1").
		Order("n DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate reindexed videos: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, it := range rows {
		counts[it.VideoID] = it.N
	}
	return counts, nil
}
