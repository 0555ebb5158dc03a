package graph

import (
	"reflect"
	"testing"

	"github.com/lattice-graph/lattice/pkg/common"
)

func newTestClient(t *testing.T, params NewGraphClientParams) *GraphClient {
	t.Helper()
	client, err := NewGraphClient(params)
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}
	return client
}

func TestFinalizeGraphMergesEntitiesByTitle(t *testing.T) {
	entities := []common.Entity{
		{ID: "e1", Title: "Alice", Type: "person", Description: "An engineer", TextUnitIDs: []string{"u1"}},
		{ID: "e2", Title: "Alice", Type: "human", Description: "Someone else's view", TextUnitIDs: []string{"u2"}},
		{ID: "e3", Title: "Acme", Type: "organization", Description: "A company", TextUnitIDs: []string{"u1"}},
	}
	relationships := []common.Relationship{
		{ID: "r1", Source: "Alice", Target: "Acme", Description: "works at", TextUnitIDs: []string{"u1"}},
	}

	client := newTestClient(t, NewGraphClientParams{})
	gotEntities, gotRelationships, err := client.FinalizeGraph(entities, relationships)
	if err != nil {
		t.Fatalf("FinalizeGraph() error = %v", err)
	}

	if len(gotEntities) != 2 {
		t.Fatalf("got %d entities, want 2", len(gotEntities))
	}

	var alice common.Entity
	for _, entity := range gotEntities {
		if entity.Title == "Alice" {
			alice = entity
		}
	}

	// First occurrence wins type and description.
	if alice.ID != "e1" || alice.Type != "person" || alice.Description != "An engineer" {
		t.Errorf("merged entity = %+v, want first occurrence's id, type and description", alice)
	}
	if !reflect.DeepEqual(alice.TextUnitIDs, []string{"u1", "u2"}) {
		t.Errorf("merged TextUnitIDs = %v, want [u1 u2]", alice.TextUnitIDs)
	}
	if alice.Frequency != 1 {
		t.Errorf("Frequency = %d, want 1", alice.Frequency)
	}
	if alice.Degree != 1 {
		t.Errorf("Degree = %d, want 1", alice.Degree)
	}

	if len(gotRelationships) != 1 {
		t.Fatalf("got %d relationships, want 1", len(gotRelationships))
	}
	if gotRelationships[0].CombinedDegree != 2 {
		t.Errorf("CombinedDegree = %d, want 2", gotRelationships[0].CombinedDegree)
	}
}

func TestFinalizeGraphFrequencyCountsEndpointAppearances(t *testing.T) {
	// Alice is mentioned in three text units but named as an endpoint
	// only once; frequency follows the relationship rows, not the unit
	// references.
	entities := []common.Entity{
		{ID: "e1", Title: "Alice", TextUnitIDs: []string{"u1"}},
		{ID: "e2", Title: "Alice", TextUnitIDs: []string{"u2"}},
		{ID: "e3", Title: "Alice", TextUnitIDs: []string{"u3"}},
		{ID: "e4", Title: "Bob", TextUnitIDs: []string{"u1"}},
		{ID: "e5", Title: "Carol", TextUnitIDs: []string{"u2"}},
	}
	relationships := []common.Relationship{
		{ID: "r1", Source: "Alice", Target: "Bob", TextUnitIDs: []string{"u1"}},
		{ID: "r2", Source: "Bob", Target: "Carol", TextUnitIDs: []string{"u2"}},
		{ID: "r3", Source: "Carol", Target: "Bob", Description: "reversed duplicate", TextUnitIDs: []string{"u2"}},
	}

	client := newTestClient(t, NewGraphClientParams{IncludeIsolatedEntities: true})
	gotEntities, _, err := client.FinalizeGraph(entities, relationships)
	if err != nil {
		t.Fatalf("FinalizeGraph() error = %v", err)
	}

	byTitle := make(map[string]common.Entity, len(gotEntities))
	for _, entity := range gotEntities {
		byTitle[entity.Title] = entity
	}

	if got := byTitle["Alice"]; got.Frequency != 1 {
		t.Errorf("Alice Frequency = %d, want 1", got.Frequency)
	}
	if got := byTitle["Alice"]; len(got.TextUnitIDs) != 3 {
		t.Errorf("Alice TextUnitIDs = %v, want 3 units", got.TextUnitIDs)
	}
	// Duplicate rows count before deduplication: Bob and Carol each
	// appear three and two times respectively, while degree is computed
	// on the deduplicated graph.
	if got := byTitle["Bob"]; got.Frequency != 3 || got.Degree != 2 {
		t.Errorf("Bob Frequency, Degree = %d, %d, want 3, 2", got.Frequency, got.Degree)
	}
	if got := byTitle["Carol"]; got.Frequency != 2 || got.Degree != 1 {
		t.Errorf("Carol Frequency, Degree = %d, %d, want 2, 1", got.Frequency, got.Degree)
	}
}

func TestFinalizeGraphDedupesRelationships(t *testing.T) {
	entities := []common.Entity{
		{ID: "e1", Title: "Alice", TextUnitIDs: []string{"u1"}},
		{ID: "e2", Title: "Bob", TextUnitIDs: []string{"u1"}},
	}
	relationships := []common.Relationship{
		{ID: "r1", Source: "Alice", Target: "Bob", Description: "knows", TextUnitIDs: []string{"u1"}},
		{ID: "r2", Source: "Bob", Target: "Alice", Description: "reversed duplicate", TextUnitIDs: []string{"u2"}},
		{ID: "r3", Source: "Alice", Target: "Ghost", Description: "dangling endpoint", TextUnitIDs: []string{"u1"}},
	}

	client := newTestClient(t, NewGraphClientParams{})
	_, gotRelationships, err := client.FinalizeGraph(entities, relationships)
	if err != nil {
		t.Fatalf("FinalizeGraph() error = %v", err)
	}

	if len(gotRelationships) != 1 {
		t.Fatalf("got %d relationships, want 1", len(gotRelationships))
	}

	rel := gotRelationships[0]
	if rel.ID != "r1" || rel.Description != "knows" {
		t.Errorf("kept relationship = %+v, want the first occurrence", rel)
	}
	if !reflect.DeepEqual(rel.TextUnitIDs, []string{"u1", "u2"}) {
		t.Errorf("TextUnitIDs = %v, want union [u1 u2]", rel.TextUnitIDs)
	}
}

func TestFinalizeGraphIsolatedEntities(t *testing.T) {
	entities := []common.Entity{
		{ID: "e1", Title: "Alice", TextUnitIDs: []string{"u1"}},
		{ID: "e2", Title: "Bob", TextUnitIDs: []string{"u1"}},
		{ID: "e3", Title: "Loner", TextUnitIDs: []string{"u2"}},
	}
	relationships := []common.Relationship{
		{ID: "r1", Source: "Alice", Target: "Bob", TextUnitIDs: []string{"u1"}},
	}

	tests := []struct {
		name            string
		includeIsolated bool
		wantEntities    int
	}{
		{name: "isolated entities dropped", includeIsolated: false, wantEntities: 2},
		{name: "isolated entities kept", includeIsolated: true, wantEntities: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, NewGraphClientParams{IncludeIsolatedEntities: tt.includeIsolated})

			gotEntities, _, err := client.FinalizeGraph(entities, relationships)
			if err != nil {
				t.Fatalf("FinalizeGraph() error = %v", err)
			}
			if len(gotEntities) != tt.wantEntities {
				t.Errorf("got %d entities, want %d", len(gotEntities), tt.wantEntities)
			}
		})
	}
}

func TestFinalizeGraphLayout(t *testing.T) {
	entities := []common.Entity{
		{ID: "e1", Title: "Alice", TextUnitIDs: []string{"u1"}},
		{ID: "e2", Title: "Bob", TextUnitIDs: []string{"u1"}},
		{ID: "e3", Title: "Carol", TextUnitIDs: []string{"u1"}},
	}
	relationships := []common.Relationship{
		{ID: "r1", Source: "Alice", Target: "Bob", TextUnitIDs: []string{"u1"}},
		{ID: "r2", Source: "Bob", Target: "Carol", TextUnitIDs: []string{"u1"}},
	}

	client := newTestClient(t, NewGraphClientParams{})
	gotEntities, _, err := client.FinalizeGraph(entities, relationships)
	if err != nil {
		t.Fatalf("FinalizeGraph() error = %v", err)
	}

	// Connected entities must not all collapse onto the same coordinate.
	positions := make(map[[2]float64]bool)
	for _, entity := range gotEntities {
		positions[[2]float64{entity.X, entity.Y}] = true
	}
	if len(positions) < 2 {
		t.Errorf("layout placed all %d entities on the same coordinate", len(gotEntities))
	}
}

func TestFinalizeGraphEmpty(t *testing.T) {
	client := newTestClient(t, NewGraphClientParams{})

	gotEntities, gotRelationships, err := client.FinalizeGraph(nil, nil)
	if err != nil {
		t.Fatalf("FinalizeGraph() error = %v", err)
	}
	if len(gotEntities) != 0 || len(gotRelationships) != 0 {
		t.Errorf("FinalizeGraph() = %v, %v, want empty tables", gotEntities, gotRelationships)
	}
}
