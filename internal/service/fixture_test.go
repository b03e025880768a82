package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/marginality/indexing-admin/internal/apperr"
	"github.com/marginality/indexing-admin/internal/domain"
	"gorm.io/datatypes"
)

type fakeRunReader struct {
	runs    map[string]*domain.TestRun
	outputs map[string]*domain.TestRunOutputs
}

func (f *fakeRunReader) GetRun(_ context.Context, id string) (*domain.TestRun, error) {
	return f.runs[id], nil
}

func (f *fakeRunReader) GetOutputs(_ context.Context, runID string) (*domain.TestRunOutputs, error) {
	return f.outputs[runID], nil
}

type fakeFixtureStore struct {
	created []*domain.Fixture
}

func (f *fakeFixtureStore) Create(_ context.Context, fixture *domain.Fixture) error {
	fixture.ID = "fix-1"
	f.created = append(f.created, fixture)
	return nil
}

func (f *fakeFixtureStore) List(context.Context, int) ([]domain.Fixture, error) {
	out := make([]domain.Fixture, 0, len(f.created))
	for _, fx := range f.created {
		out = append(out, *fx)
	}
	return out, nil
}

func (f *fakeFixtureStore) Get(_ context.Context, id string) (*domain.Fixture, error) {
	for _, fx := range f.created {
		if fx.ID == id {
			return fx, nil
		}
	}
	return nil, nil
}

func fixtureReader() *fakeRunReader {
	version := "2024-11-02"
	return &fakeRunReader{
		runs: map[string]*domain.TestRun{
			"run-1": {
				ID:              "run-1",
				YoutubeURL:      "https://youtu.be/dQw4w9WgXcQ",
				YoutubeVideoID:  "dQw4w9WgXcQ",
				ContractVersion: "v1",
				PipelineVersion: &version,
				Status:          domain.TestRunStatusComplete,
			},
			"run-2": {
				ID:             "run-2",
				YoutubeURL:     "https://youtu.be/dQw4w9WgXcQ",
				YoutubeVideoID: "dQw4w9WgXcQ",
				Status:         domain.TestRunStatusComplete,
			},
		},
		outputs: map[string]*domain.TestRunOutputs{
			"run-1": {
				TestRunID:      "run-1",
				TranscriptJSON: datatypes.JSON(`{"occurrences":[1,2]}`),
				OcrJSON:        datatypes.JSON(`{"occurrences":[]}`),
			},
		},
	}
}

func TestPromoteFixture(t *testing.T) {
	store := &fakeFixtureStore{}
	svc := NewFixtureService(fixtureReader(), store, nil)

	fixture, err := svc.Promote(context.Background(), PromoteInput{
		TestRunID: "run-1",
		Name:      "rickroll baseline",
		Notes:     "known-good captions run",
		Tags:      []string{"captions", "smoke"},
	})
	if err != nil {
		t.Fatalf("Promote returned error: %v", err)
	}

	if fixture.YoutubeVideoID != "dQw4w9WgXcQ" {
		t.Errorf("fixture video id = %q", fixture.YoutubeVideoID)
	}
	if string(fixture.ExpectedTranscriptJSON) != `{"occurrences":[1,2]}` {
		t.Errorf("fixture transcript = %s", fixture.ExpectedTranscriptJSON)
	}
	if fixture.PipelineVersion == nil || *fixture.PipelineVersion != "2024-11-02" {
		t.Errorf("fixture pipeline version = %v", fixture.PipelineVersion)
	}
	if len(fixture.Tags) != 2 {
		t.Errorf("fixture tags = %v", fixture.Tags)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected 1 created fixture, got %d", len(store.created))
	}
}

func TestPromoteFixtureValidation(t *testing.T) {
	tests := []struct {
		name     string
		input    PromoteInput
		wantCode string
	}{
		{"missing name", PromoteInput{TestRunID: "run-1"}, apperr.CodeFixtureNameRequired},
		{"unknown run", PromoteInput{TestRunID: "nope", Name: "x"}, apperr.CodeRunNotFound},
		{"run without outputs", PromoteInput{TestRunID: "run-2", Name: "x"}, apperr.CodeOutputsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeFixtureStore{}
			svc := NewFixtureService(fixtureReader(), store, nil)

			_, err := svc.Promote(context.Background(), tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			typed := apperr.From(err)
			if typed.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", typed.Code, tt.wantCode)
			}
			if len(store.created) != 0 {
				t.Error("failed promotion must not create a fixture")
			}
		})
	}
}

func TestGetFixtureNotFound(t *testing.T) {
	svc := NewFixtureService(fixtureReader(), &fakeFixtureStore{}, nil)

	_, err := svc.Get(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	typed := apperr.From(err)
	if typed.Code != apperr.CodeFixtureNotFound || typed.Status != http.StatusNotFound {
		t.Errorf("got %q/%d, want FIXTURE_NOT_FOUND/404", typed.Code, typed.Status)
	}
}
