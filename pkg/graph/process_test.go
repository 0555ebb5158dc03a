package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/store/mem"
)

func newTestProject(t *testing.T) (*mem.MemGraphStorage, string) {
	t.Helper()
	storage := mem.NewMemGraphStorage()
	if err := storage.CreateProject(context.Background(), common.Project{ID: "p1", Name: "test"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	return storage, "p1"
}

func TestExtractUnitsPersistsPerUnit(t *testing.T) {
	storage, projectID := newTestProject(t)

	units := []common.TextUnit{
		{ID: "u1", Text: "Alice works at Acme."},
		{ID: "u2", Text: "Acme is located in Berlin."},
	}

	aiClient := &fakeAIClient{
		completions: map[string]string{
			"extraction": `{
				"entities": [{"title": "Alice", "type": "person", "description": "An engineer"}],
				"relationships": []
			}`,
		},
	}

	client := newTestClient(t, NewGraphClientParams{})
	if err := client.ExtractUnits(context.Background(), aiClient, storage, projectID, units); err != nil {
		t.Fatalf("ExtractUnits() error = %v", err)
	}

	entities, _, err := storage.GetExtractions(context.Background(), projectID)
	if err != nil {
		t.Fatalf("GetExtractions() error = %v", err)
	}
	if len(entities) != 2 {
		t.Errorf("got %d raw entities, want one per unit", len(entities))
	}
	if aiClient.completionCalls != 2 {
		t.Errorf("completionCalls = %d, want 2", aiClient.completionCalls)
	}
}

func TestExtractUnitsReplayAppendsDuplicates(t *testing.T) {
	storage, projectID := newTestProject(t)

	units := []common.TextUnit{{ID: "u1", Text: "Alice works at Acme."}}
	aiClient := &fakeAIClient{
		completions: map[string]string{
			"extraction": `{
				"entities": [{"title": "Alice", "type": "person", "description": ""}],
				"relationships": []
			}`,
		},
	}

	client := newTestClient(t, NewGraphClientParams{})
	for range 2 {
		if err := client.ExtractUnits(context.Background(), aiClient, storage, projectID, units); err != nil {
			t.Fatalf("ExtractUnits() error = %v", err)
		}
	}

	entities, _, err := storage.GetExtractions(context.Background(), projectID)
	if err != nil {
		t.Fatalf("GetExtractions() error = %v", err)
	}

	// Without extraction dedupe a replayed run appends a second row for
	// the same unit; finalization merges the duplicates later.
	if len(entities) != 2 {
		t.Errorf("got %d raw entities after replay, want 2", len(entities))
	}
}

func TestExtractUnitsDedupeSkipsExtractedUnits(t *testing.T) {
	storage, projectID := newTestProject(t)

	units := []common.TextUnit{{ID: "u1", Text: "Alice works at Acme."}}
	aiClient := &fakeAIClient{
		completions: map[string]string{
			"extraction": `{
				"entities": [{"title": "Alice", "type": "person", "description": ""}],
				"relationships": []
			}`,
		},
	}

	client := newTestClient(t, NewGraphClientParams{DedupeExtractions: true})
	for range 2 {
		if err := client.ExtractUnits(context.Background(), aiClient, storage, projectID, units); err != nil {
			t.Fatalf("ExtractUnits() error = %v", err)
		}
	}

	entities, _, err := storage.GetExtractions(context.Background(), projectID)
	if err != nil {
		t.Fatalf("GetExtractions() error = %v", err)
	}
	if len(entities) != 1 {
		t.Errorf("got %d raw entities after replay, want 1", len(entities))
	}
	if aiClient.completionCalls != 1 {
		t.Errorf("completionCalls = %d, want 1", aiClient.completionCalls)
	}
}

func TestExtractUnitsRetriesTransientFailure(t *testing.T) {
	storage, projectID := newTestProject(t)

	units := []common.TextUnit{{ID: "u1", Text: "Alice works at Acme."}}

	calls := 0
	aiClient := &fakeAIClient{
		completionsFn: func(name string, prompt string) (string, error) {
			calls++
			if calls == 1 {
				return "", errors.New("model unavailable")
			}
			return `{"entities": [{"title": "Alice", "type": "", "description": ""}], "relationships": []}`, nil
		},
	}

	client := newTestClient(t, NewGraphClientParams{MaxRetries: 2, RetryDelay: time.Millisecond})
	if err := client.ExtractUnits(context.Background(), aiClient, storage, projectID, units); err != nil {
		t.Fatalf("ExtractUnits() error = %v", err)
	}

	if calls != 2 {
		t.Errorf("extraction calls = %d, want 2", calls)
	}
	entities, _, err := storage.GetExtractions(context.Background(), projectID)
	if err != nil {
		t.Fatalf("GetExtractions() error = %v", err)
	}
	if len(entities) != 1 {
		t.Errorf("got %d raw entities, want 1", len(entities))
	}
}

func TestExtractUnitsAbortsOnFailure(t *testing.T) {
	storage, projectID := newTestProject(t)

	units := []common.TextUnit{
		{ID: "u1", Text: "First unit."},
		{ID: "u2", Text: "Second unit."},
		{ID: "u3", Text: "Third unit."},
	}

	calls := 0
	aiClient := &fakeAIClient{
		completionsFn: func(name string, prompt string) (string, error) {
			calls++
			if calls == 2 {
				return "", errors.New("model unavailable")
			}
			return `{"entities": [{"title": "Alice", "type": "", "description": ""}], "relationships": []}`, nil
		},
	}

	client := newTestClient(t, NewGraphClientParams{MaxRetries: 1})
	err := client.ExtractUnits(context.Background(), aiClient, storage, projectID, units)
	if err == nil {
		t.Fatal("ExtractUnits() expected error")
	}

	// The first unit's output stays persisted, the third is never reached.
	entities, _, err := storage.GetExtractions(context.Background(), projectID)
	if err != nil {
		t.Fatalf("GetExtractions() error = %v", err)
	}
	if len(entities) != 1 {
		t.Errorf("got %d raw entities, want 1", len(entities))
	}
	if calls != 2 {
		t.Errorf("extraction calls = %d, want 2", calls)
	}
}
