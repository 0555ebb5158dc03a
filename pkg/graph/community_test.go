package graph

import (
	"reflect"
	"testing"

	"github.com/lattice-graph/lattice/pkg/common"
)

// stubPartitioner returns a fixed partitioning and records the edges it
// was handed.
type stubPartitioner struct {
	partitions []Partition
	gotEdges   []Edge
}

func (s *stubPartitioner) Partition(edges []Edge, maxClusterSize int, resolution float64) ([]Partition, error) {
	s.gotEdges = edges
	return s.partitions, nil
}

func TestDetectCommunitiesEmptyRelationships(t *testing.T) {
	client := newTestClient(t, NewGraphClientParams{})

	got, err := client.DetectCommunities([]common.Entity{{ID: "e1", Title: "Alice"}}, nil)
	if err != nil {
		t.Fatalf("DetectCommunities() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("DetectCommunities() = %v, want no communities", got)
	}
}

func TestDetectCommunitiesUsesLargestComponent(t *testing.T) {
	entities := []common.Entity{
		{ID: "e1", Title: "Alice"},
		{ID: "e2", Title: "Bob"},
		{ID: "e3", Title: "Carol"},
		{ID: "e4", Title: "Dave"},
		{ID: "e5", Title: "Eve"},
	}
	relationships := []common.Relationship{
		{ID: "r1", Source: "Alice", Target: "Bob", TextUnitIDs: []string{"u1"}},
		{ID: "r2", Source: "Bob", Target: "Carol", TextUnitIDs: []string{"u2"}},
		// Smaller, disconnected component.
		{ID: "r3", Source: "Dave", Target: "Eve", TextUnitIDs: []string{"u3"}},
	}

	stub := &stubPartitioner{
		partitions: []Partition{
			{Level: 0, Node: "Alice", Cluster: 0, Parent: -1},
			{Level: 0, Node: "Bob", Cluster: 0, Parent: -1},
			{Level: 0, Node: "Carol", Cluster: 0, Parent: -1},
		},
	}
	client := newTestClient(t, NewGraphClientParams{Partitioner: stub})

	communities, err := client.DetectCommunities(entities, relationships)
	if err != nil {
		t.Fatalf("DetectCommunities() error = %v", err)
	}

	wantEdges := []Edge{
		{Source: "Alice", Target: "Bob"},
		{Source: "Bob", Target: "Carol"},
	}
	if !reflect.DeepEqual(stub.gotEdges, wantEdges) {
		t.Errorf("partitioner received edges %v, want %v", stub.gotEdges, wantEdges)
	}

	if len(communities) != 1 {
		t.Fatalf("got %d communities, want 1", len(communities))
	}

	comm := communities[0]
	if comm.ID != 0 || comm.Level != 0 || comm.Parent != -1 {
		t.Errorf("community = %+v, want id 0 on level 0 with parent -1", comm)
	}
	if comm.Title != "Community 0" {
		t.Errorf("Title = %q, want %q", comm.Title, "Community 0")
	}
	if !reflect.DeepEqual(comm.EntityIDs, []string{"e1", "e2", "e3"}) {
		t.Errorf("EntityIDs = %v, want [e1 e2 e3]", comm.EntityIDs)
	}
	if !reflect.DeepEqual(comm.RelationshipIDs, []string{"r1", "r2"}) {
		t.Errorf("RelationshipIDs = %v, want [r1 r2]", comm.RelationshipIDs)
	}
	if !reflect.DeepEqual(comm.TextUnitIDs, []string{"u1", "u2"}) {
		t.Errorf("TextUnitIDs = %v, want [u1 u2]", comm.TextUnitIDs)
	}
	if comm.Size != 3 {
		t.Errorf("Size = %d, want 3", comm.Size)
	}
	if comm.Period == "" {
		t.Errorf("Period is empty")
	}
}

func TestDetectCommunitiesHierarchy(t *testing.T) {
	entities := []common.Entity{
		{ID: "e1", Title: "Alice"},
		{ID: "e2", Title: "Bob"},
		{ID: "e3", Title: "Carol"},
		{ID: "e4", Title: "Dave"},
	}
	relationships := []common.Relationship{
		{ID: "r1", Source: "Alice", Target: "Bob", TextUnitIDs: []string{"u1"}},
		{ID: "r2", Source: "Bob", Target: "Carol", TextUnitIDs: []string{"u1"}},
		{ID: "r3", Source: "Carol", Target: "Dave", TextUnitIDs: []string{"u2"}},
	}

	stub := &stubPartitioner{
		partitions: []Partition{
			{Level: 0, Node: "Alice", Cluster: 0, Parent: -1},
			{Level: 0, Node: "Bob", Cluster: 0, Parent: -1},
			{Level: 0, Node: "Carol", Cluster: 0, Parent: -1},
			{Level: 0, Node: "Dave", Cluster: 0, Parent: -1},
			{Level: 1, Node: "Alice", Cluster: 1, Parent: 0},
			{Level: 1, Node: "Bob", Cluster: 1, Parent: 0},
			{Level: 1, Node: "Carol", Cluster: 2, Parent: 0},
			{Level: 1, Node: "Dave", Cluster: 2, Parent: 0},
		},
	}
	client := newTestClient(t, NewGraphClientParams{Partitioner: stub})

	communities, err := client.DetectCommunities(entities, relationships)
	if err != nil {
		t.Fatalf("DetectCommunities() error = %v", err)
	}

	if len(communities) != 3 {
		t.Fatalf("got %d communities, want 3", len(communities))
	}

	root := communities[0]
	if !reflect.DeepEqual(root.Children, []int{1, 2}) {
		t.Errorf("root Children = %v, want [1 2]", root.Children)
	}

	sub := communities[1]
	if sub.ID != 1 || sub.Level != 1 || sub.Parent != 0 {
		t.Errorf("sub community = %+v, want id 1 on level 1 with parent 0", sub)
	}
	if !reflect.DeepEqual(sub.EntityIDs, []string{"e1", "e2"}) {
		t.Errorf("sub EntityIDs = %v, want [e1 e2]", sub.EntityIDs)
	}
	// Only relationships internal to the cluster are included.
	if !reflect.DeepEqual(sub.RelationshipIDs, []string{"r1"}) {
		t.Errorf("sub RelationshipIDs = %v, want [r1]", sub.RelationshipIDs)
	}

	// The level-1 entity sets cover the parent exactly.
	union := append(append([]string(nil), communities[1].EntityIDs...), communities[2].EntityIDs...)
	if !reflect.DeepEqual(unionSorted(union), root.EntityIDs) {
		t.Errorf("level-1 entity union = %v, want %v", unionSorted(union), root.EntityIDs)
	}
}

func TestDetectCommunitiesUnknownEntity(t *testing.T) {
	relationships := []common.Relationship{
		{ID: "r1", Source: "Alice", Target: "Bob"},
	}
	stub := &stubPartitioner{
		partitions: []Partition{
			{Level: 0, Node: "Alice", Cluster: 0, Parent: -1},
			{Level: 0, Node: "Bob", Cluster: 0, Parent: -1},
		},
	}
	client := newTestClient(t, NewGraphClientParams{Partitioner: stub})

	_, err := client.DetectCommunities(nil, relationships)
	if err == nil {
		t.Fatal("DetectCommunities() expected error for partition referencing unknown entity")
	}
}

func TestLargestComponent(t *testing.T) {
	tests := []struct {
		name          string
		relationships []common.Relationship
		want          []string
	}{
		{
			name: "single component",
			relationships: []common.Relationship{
				{Source: "a", Target: "b"},
				{Source: "b", Target: "c"},
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "larger component wins",
			relationships: []common.Relationship{
				{Source: "a", Target: "b"},
				{Source: "b", Target: "c"},
				{Source: "x", Target: "y"},
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "tie breaks to smallest title",
			relationships: []common.Relationship{
				{Source: "x", Target: "y"},
				{Source: "a", Target: "b"},
			},
			want: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := largestComponent(tt.relationships)
			if len(got) != len(tt.want) {
				t.Fatalf("largestComponent() has %d members, want %d", len(got), len(tt.want))
			}
			for _, title := range tt.want {
				if !got[title] {
					t.Errorf("largestComponent() missing %q", title)
				}
			}
		})
	}
}
