package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/marginality/indexing-admin/internal/apperr"
	"github.com/marginality/indexing-admin/internal/domain"
	"github.com/marginality/indexing-admin/internal/logger"
)

// RunReader is the read side of the test-run ledger.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*domain.TestRun, error)
	GetOutputs(ctx context.Context, runID string) (*domain.TestRunOutputs, error)
}

// FixtureStore is the fixture persistence surface.
type FixtureStore interface {
	Create(ctx context.Context, fixture *domain.Fixture) error
	List(ctx context.Context, limit int) ([]domain.Fixture, error)
	Get(ctx context.Context, id string) (*domain.Fixture, error)
}

// FixtureService promotes completed test runs into named golden fixtures.
type FixtureService struct {
	runs     RunReader
	fixtures FixtureStore
	log      *logger.Logger
}

// NewFixtureService creates a new FixtureService.
// Parameters:
//   - runs: test-run read access.
//   - fixtures: fixture persistence.
//   - log: structured logger.
// Returns:
//   - *FixtureService: service instance.
func NewFixtureService(runs RunReader, fixtures FixtureStore, log *logger.Logger) *FixtureService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &FixtureService{runs: runs, fixtures: fixtures, log: log}
}

// PromoteInput describes one fixture promotion request.
type PromoteInput struct {
	TestRunID string   `json:"testRunId"`
	Name      string   `json:"name"`
	Notes     string   `json:"notes"`
	Tags      []string `json:"tags"`
}

// Promote snapshots a run's stored outputs into an immutable fixture. The run
// and its outputs must both exist; the fixture carries the run's contract and
// pipeline versions so later regressions compare like with like.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - input: promotion request.
// Returns:
//   - *domain.Fixture: the created fixture.
//   - error: typed error when the name is missing or the run/outputs are absent.
func (s *FixtureService) Promote(ctx context.Context, input PromoteInput) (*domain.Fixture, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperr.BadRequest(apperr.CodeFixtureNameRequired, "name is required")
	}

	run, err := s.runs.GetRun(ctx, input.TestRunID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, apperr.New(http.StatusNotFound, apperr.CodeRunNotFound, "Test run not found")
	}

	outputs, err := s.runs.GetOutputs(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if outputs == nil {
		return nil, apperr.New(http.StatusNotFound, apperr.CodeOutputsNotFound,
			"Test run has no stored outputs")
	}

	fixture := &domain.Fixture{
		Name:                   name,
		YoutubeVideoID:         run.YoutubeVideoID,
		YoutubeURL:             run.YoutubeURL,
		ExpectedTranscriptJSON: outputs.TranscriptJSON,
		ExpectedOcrJSON:        outputs.OcrJSON,
		ContractVersion:        run.ContractVersion,
		PipelineVersion:        run.PipelineVersion,
		Tags:                   domain.StringArray(input.Tags),
	}
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		fixture.Notes = &notes
	}
	if err := s.fixtures.Create(ctx, fixture); err != nil {
		return nil, err
	}

	s.log.WithField(logger.FieldTestRunID, run.ID).
		WithField("fixture_id", fixture.ID).
		Info("Promoted test run to fixture")
	return fixture, nil
}

// List returns the most recent fixtures.
func (s *FixtureService) List(ctx context.Context, limit int) ([]domain.Fixture, error) {
	return s.fixtures.List(ctx, limit)
}

// Get returns one fixture, or a typed 404 when absent.
func (s *FixtureService) Get(ctx context.Context, id string) (*domain.Fixture, error) {
	fixture, err := s.fixtures.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if fixture == nil {
		return nil, apperr.New(http.StatusNotFound, apperr.CodeFixtureNotFound, "Fixture not found")
	}
	return fixture, nil
}
