package index

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/lattice-graph/lattice/pkg/ai"
	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/store/mem"
)

// fakeEmbedder embeds by content lookup and counts calls.
type fakeEmbedder struct {
	mu         sync.Mutex
	embeddings map[string][]float32
	err        error
	calls      int
}

func (f *fakeEmbedder) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeEmbedder) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return errors.New("not implemented")
}

func (f *fakeEmbedder) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if embedding, ok := f.embeddings[string(input)]; ok {
		return embedding, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error { return nil }
func (f *fakeEmbedder) ResetMetrics()                                                  {}
func (f *fakeEmbedder) GetMetrics() ai.ModelMetrics                                    { return ai.ModelMetrics{} }

func newTestProject(t *testing.T) (*mem.MemGraphStorage, string) {
	t.Helper()
	storage := mem.NewMemGraphStorage()
	if err := storage.CreateProject(context.Background(), common.Project{ID: "p1", Name: "test"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	return storage, "p1"
}

func TestBuildEntityIndex(t *testing.T) {
	storage, projectID := newTestProject(t)

	entities := []common.Entity{
		{ID: "e1", Title: "Alice", Description: "An engineer"},
		{ID: "e2", Title: "Acme", Description: "A company"},
	}
	communities := []common.Community{
		{ID: 0, EntityIDs: []string{"e1", "e2"}},
		{ID: 3, EntityIDs: []string{"e1"}},
	}

	aiClient := &fakeEmbedder{
		embeddings: map[string][]float32{
			"Alice\nAn engineer": {0, 1, 0},
			"Acme\nA company":    {0, 0, 1},
		},
	}

	ix := NewIndexer(NewIndexerParams{Dimensions: 3})
	if err := ix.BuildEntityIndex(context.Background(), aiClient, storage, projectID, entities, communities); err != nil {
		t.Fatalf("BuildEntityIndex() error = %v", err)
	}

	matches, err := storage.SearchEntities(context.Background(), projectID, []float32{0, 1, 0}, 10)
	if err != nil {
		t.Fatalf("SearchEntities() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d records, want 2", len(matches))
	}

	top := matches[0].Record
	if top.ID != "e1" {
		t.Fatalf("top match = %s, want e1", top.ID)
	}
	if top.Content != "Alice\nAn engineer" {
		t.Errorf("Content = %q", top.Content)
	}
	if !reflect.DeepEqual(top.Embedding, []float32{0, 1, 0}) {
		t.Errorf("Embedding = %v", top.Embedding)
	}
	// e1 belongs to both communities.
	if !reflect.DeepEqual(top.CommunityIDs, []string{"0", "3"}) {
		t.Errorf("CommunityIDs = %v, want [0 3]", top.CommunityIDs)
	}

	if !reflect.DeepEqual(matches[1].Record.CommunityIDs, []string{"0"}) {
		t.Errorf("e2 CommunityIDs = %v, want [0]", matches[1].Record.CommunityIDs)
	}
}

func TestBuildEntityIndexZeroVectorFallback(t *testing.T) {
	storage, projectID := newTestProject(t)

	entities := []common.Entity{
		{ID: "e1", Title: "Alice", Description: "An engineer"},
	}

	aiClient := &fakeEmbedder{err: errors.New("embedding service down")}

	ix := NewIndexer(NewIndexerParams{
		Dimensions: 4,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
	if err := ix.BuildEntityIndex(context.Background(), aiClient, storage, projectID, entities, nil); err != nil {
		t.Fatalf("BuildEntityIndex() error = %v", err)
	}

	if aiClient.calls != 2 {
		t.Errorf("embedding calls = %d, want 2 attempts", aiClient.calls)
	}

	// The record is still uploaded, carrying a zero vector.
	matches, err := storage.SearchEntities(context.Background(), projectID, []float32{1, 0, 0, 0}, 10)
	if err != nil {
		t.Fatalf("SearchEntities() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d records, want 1", len(matches))
	}
	if !reflect.DeepEqual(matches[0].Record.Embedding, make([]float32, 4)) {
		t.Errorf("Embedding = %v, want zero vector of width 4", matches[0].Record.Embedding)
	}
}

func TestBuildReportIndex(t *testing.T) {
	storage, projectID := newTestProject(t)

	reports := []common.CommunityReport{
		{
			ID:      "rep1",
			Title:   "Alice and Acme",
			Summary: "An employment cluster.",
			Findings: []common.Finding{
				{Summary: "Employment", Explanation: "Alice works at Acme."},
			},
		},
	}

	wantContent := "Alice and Acme\nAn employment cluster.\nAlice works at Acme."
	aiClient := &fakeEmbedder{
		embeddings: map[string][]float32{
			wantContent: {0, 1, 0},
		},
	}

	ix := NewIndexer(NewIndexerParams{Dimensions: 3})
	if err := ix.BuildReportIndex(context.Background(), aiClient, storage, projectID, reports); err != nil {
		t.Fatalf("BuildReportIndex() error = %v", err)
	}

	matches, err := storage.SearchReports(context.Background(), projectID, []float32{0, 1, 0}, 10)
	if err != nil {
		t.Fatalf("SearchReports() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d records, want 1", len(matches))
	}
	if matches[0].Record.Content != wantContent {
		t.Errorf("Content = %q, want %q", matches[0].Record.Content, wantContent)
	}
	if !reflect.DeepEqual(matches[0].Record.Embedding, []float32{0, 1, 0}) {
		t.Errorf("Embedding = %v, want [0 1 0]", matches[0].Record.Embedding)
	}
}

func TestReportContent(t *testing.T) {
	report := common.CommunityReport{
		Title:   "Title",
		Summary: "Summary",
		Findings: []common.Finding{
			{Explanation: "First"},
			{Explanation: "Second"},
		},
	}

	got := ReportContent(report)
	want := "Title\nSummary\nFirst\nSecond"
	if got != want {
		t.Errorf("ReportContent() = %q, want %q", got, want)
	}
}

func TestValidateFlagsButNeverBlocks(t *testing.T) {
	storage, projectID := newTestProject(t)

	entities := []common.Entity{
		{ID: "e1", Title: "NaN entity", Description: "Broken"},
	}

	nan := float32(math.NaN())
	aiClient := &fakeEmbedder{
		embeddings: map[string][]float32{
			"NaN entity\nBroken": {nan, 0, 0},
		},
	}

	ix := NewIndexer(NewIndexerParams{Dimensions: 3})
	if err := ix.BuildEntityIndex(context.Background(), aiClient, storage, projectID, entities, nil); err != nil {
		t.Fatalf("BuildEntityIndex() error = %v", err)
	}

	// Validation warns about the NaN value but the record is uploaded.
	matches, err := storage.SearchEntities(context.Background(), projectID, []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("SearchEntities() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d records, want 1", len(matches))
	}
}
