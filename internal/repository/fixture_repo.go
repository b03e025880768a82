package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marginality/indexing-admin/internal/domain"
	"gorm.io/gorm"
)

// FixtureRepository handles golden fixture snapshots promoted from test runs.
type FixtureRepository struct {
	db *gorm.DB
}

// NewFixtureRepository creates a new FixtureRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *FixtureRepository: repository instance bound to db.
func NewFixtureRepository(db *gorm.DB) *FixtureRepository {
	return &FixtureRepository{db: db}
}

// Create inserts a new fixture row. Fixtures are immutable once created.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fixture: fixture row to persist; ID is assigned here.
// Returns:
//   - error: non-nil if the insert fails.
func (r *FixtureRepository) Create(ctx context.Context, fixture *domain.Fixture) error {
	fixture.ID = uuid.New().String()
	fixture.CreatedAt = time.Now()
	if fixture.ContractVersion == "" {
		fixture.ContractVersion = "v1"
	}
	if fixture.Tags == nil {
		fixture.Tags = domain.StringArray{}
	}

	if err := r.db.WithContext(ctx).Create(fixture).Error; err != nil {
		return fmt.Errorf("failed to create fixture: %w", err)
	}
	return nil
}

// List retrieves the most recent fixtures, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum rows to return, clamped to [1, 200].
// Returns:
//   - []domain.Fixture: matching rows.
//   - error: non-nil if the query fails.
func (r *FixtureRepository) List(ctx context.Context, limit int) ([]domain.Fixture, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}

	var fixtures []domain.Fixture
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&fixtures).Error; err != nil {
		return nil, fmt.Errorf("failed to list indexing fixtures: %w", err)
	}
	return fixtures, nil
}

// Get retrieves one fixture by id, or nil when absent.
func (r *FixtureRepository) Get(ctx context.Context, id string) (*domain.Fixture, error) {
	var fixture domain.Fixture
	err := r.db.WithContext(ctx).First(&fixture, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load fixture: %w", err)
	}
	return &fixture, nil
}
