package mem

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/store"
)

func newStore(t *testing.T) (*MemGraphStorage, context.Context) {
	t.Helper()
	storage := NewMemGraphStorage()
	ctx := context.Background()
	if err := storage.CreateProject(ctx, common.Project{ID: "p1", Name: "test"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	return storage, ctx
}

func TestProjectLifecycle(t *testing.T) {
	storage, ctx := newStore(t)

	project, err := storage.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if project.Status != common.ProjectStatusPending {
		t.Errorf("Status = %q, want pending", project.Status)
	}

	if err := storage.SetProjectStatus(ctx, "p1", common.ProjectStatusFinished); err != nil {
		t.Fatalf("SetProjectStatus() error = %v", err)
	}
	project, err = storage.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if project.Status != common.ProjectStatusFinished {
		t.Errorf("Status = %q, want finished", project.Status)
	}

	if err := storage.DeleteProject(ctx, "p1"); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}
	if _, err := storage.GetProject(ctx, "p1"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("GetProject() error = %v, want ErrProjectNotFound", err)
	}
}

func TestUnknownProject(t *testing.T) {
	storage := NewMemGraphStorage()
	ctx := context.Background()

	if err := storage.SaveEntities(ctx, "nope", nil); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("SaveEntities() error = %v, want ErrProjectNotFound", err)
	}
	if _, err := storage.GetTextUnits(ctx, "nope"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("GetTextUnits() error = %v, want ErrProjectNotFound", err)
	}
}

func TestExtractionAppendSemantics(t *testing.T) {
	storage, ctx := newStore(t)

	entities := []common.Entity{{ID: "e1", Title: "Alice"}}
	if err := storage.AppendExtraction(ctx, "p1", "u1", entities, nil); err != nil {
		t.Fatalf("AppendExtraction() error = %v", err)
	}
	if err := storage.AppendExtraction(ctx, "p1", "u1", entities, nil); err != nil {
		t.Fatalf("AppendExtraction() error = %v", err)
	}

	has, err := storage.HasExtraction(ctx, "p1", "u1")
	if err != nil {
		t.Fatalf("HasExtraction() error = %v", err)
	}
	if !has {
		t.Error("HasExtraction() = false, want true")
	}

	has, err = storage.HasExtraction(ctx, "p1", "u2")
	if err != nil {
		t.Fatalf("HasExtraction() error = %v", err)
	}
	if has {
		t.Error("HasExtraction() = true for unit without extraction")
	}

	// Appends accumulate, replays included.
	gotEntities, _, err := storage.GetExtractions(ctx, "p1")
	if err != nil {
		t.Fatalf("GetExtractions() error = %v", err)
	}
	if len(gotEntities) != 2 {
		t.Errorf("got %d entities, want 2", len(gotEntities))
	}
}

func TestSaveReplacesPrevious(t *testing.T) {
	storage, ctx := newStore(t)

	if err := storage.SaveEntities(ctx, "p1", []common.Entity{{ID: "e1"}, {ID: "e2"}}); err != nil {
		t.Fatalf("SaveEntities() error = %v", err)
	}
	if err := storage.SaveEntities(ctx, "p1", []common.Entity{{ID: "e3"}}); err != nil {
		t.Fatalf("SaveEntities() error = %v", err)
	}

	entities, err := storage.GetEntities(ctx, "p1")
	if err != nil {
		t.Fatalf("GetEntities() error = %v", err)
	}
	if len(entities) != 1 || entities[0].ID != "e3" {
		t.Errorf("entities = %v, want only e3", entities)
	}
}

func TestSearchEntitiesOrderAndLimit(t *testing.T) {
	storage, ctx := newStore(t)

	records := []store.EntityVectorRecord{
		{ID: "far", Embedding: []float32{0, 1, 0}},
		{ID: "near", Embedding: []float32{1, 0, 0}},
		{ID: "close", Embedding: []float32{0.9, 0.1, 0}},
	}
	if err := storage.UpsertEntityVectors(ctx, "p1", records); err != nil {
		t.Fatalf("UpsertEntityVectors() error = %v", err)
	}

	matches, err := storage.SearchEntities(ctx, "p1", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("SearchEntities() error = %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Record.ID != "near" || matches[1].Record.ID != "close" {
		t.Errorf("matches = %s, %s, want near, close", matches[0].Record.ID, matches[1].Record.ID)
	}
	if matches[0].Similarity < matches[1].Similarity {
		t.Errorf("similarities out of order: %f < %f", matches[0].Similarity, matches[1].Similarity)
	}
}

func TestUpsertEntityVectorsOverwrites(t *testing.T) {
	storage, ctx := newStore(t)

	first := []store.EntityVectorRecord{{ID: "e1", Content: "old", Embedding: []float32{1, 0}}}
	if err := storage.UpsertEntityVectors(ctx, "p1", first); err != nil {
		t.Fatalf("UpsertEntityVectors() error = %v", err)
	}

	second := []store.EntityVectorRecord{{ID: "e1", Content: "new", Embedding: []float32{0, 1}}}
	if err := storage.UpsertEntityVectors(ctx, "p1", second); err != nil {
		t.Fatalf("UpsertEntityVectors() error = %v", err)
	}

	matches, err := storage.SearchEntities(ctx, "p1", []float32{0, 1}, 10)
	if err != nil {
		t.Fatalf("SearchEntities() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d records, want 1", len(matches))
	}
	if matches[0].Record.Content != "new" {
		t.Errorf("Content = %q, want %q", matches[0].Record.Content, "new")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("cosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestSavedTablesRoundTrip(t *testing.T) {
	storage, ctx := newStore(t)

	communities := []common.Community{
		{ID: 0, Title: "Community 0", EntityIDs: []string{"e1"}},
	}
	if err := storage.SaveCommunities(ctx, "p1", communities); err != nil {
		t.Fatalf("SaveCommunities() error = %v", err)
	}

	got, err := storage.GetCommunities(ctx, "p1")
	if err != nil {
		t.Fatalf("GetCommunities() error = %v", err)
	}
	if !reflect.DeepEqual(got, communities) {
		t.Errorf("GetCommunities() = %v, want %v", got, communities)
	}
}
