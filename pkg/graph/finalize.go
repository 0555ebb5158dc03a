package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/lattice-graph/lattice/pkg/common"
)

// FinalizeGraph merges the raw per-unit extraction output into the
// definitive entity and relationship tables.
//
// Entities are merged by title: the first occurrence wins type and
// description, text unit references are unioned. Relationships are
// deduplicated by their (source, target) pair, keeping the first
// occurrence. Degree and combined degree are computed on the
// deduplicated graph; frequency counts an entity's appearances as an
// endpoint in the raw relationship rows, before deduplication, and
// defaults to 0 for entities no relationship names. A 2-D force
// directed layout is computed over the merged graph.
//
// Relationships naming an endpoint with no extracted entity are
// dropped rather than kept as dangling rows. Entities without any
// relationship are dropped unless the client was configured with
// IncludeIsolatedEntities.
func (g *GraphClient) FinalizeGraph(
	entities []common.Entity,
	relationships []common.Relationship,
) ([]common.Entity, []common.Relationship, error) {
	merged := mergeEntities(entities)
	deduped := dedupeRelationships(relationships, merged)

	degrees := make(map[string]int, len(merged))
	for _, rel := range deduped {
		degrees[rel.Source]++
		degrees[rel.Target]++
	}

	frequencies := make(map[string]int, len(merged))
	for _, rel := range relationships {
		frequencies[rel.Source]++
		frequencies[rel.Target]++
	}

	var finalEntities []common.Entity
	for _, entity := range merged {
		entity.Degree = degrees[entity.Title]
		entity.Frequency = frequencies[entity.Title]
		if entity.Degree == 0 && !g.includeIsolatedEntities {
			continue
		}
		finalEntities = append(finalEntities, entity)
	}

	finalRelationships := make([]common.Relationship, len(deduped))
	for i, rel := range deduped {
		rel.CombinedDegree = degrees[rel.Source] + degrees[rel.Target]
		finalRelationships[i] = rel
	}

	if err := layoutEntities(finalEntities, finalRelationships); err != nil {
		return nil, nil, err
	}

	if finalEntities == nil {
		finalEntities = []common.Entity{}
	}
	return finalEntities, finalRelationships, nil
}

func mergeEntities(entities []common.Entity) []common.Entity {
	byTitle := make(map[string]int, len(entities))
	var merged []common.Entity

	for _, entity := range entities {
		idx, ok := byTitle[entity.Title]
		if !ok {
			byTitle[entity.Title] = len(merged)
			merged = append(merged, entity)
			continue
		}

		existing := &merged[idx]
		existing.TextUnitIDs = append(existing.TextUnitIDs, entity.TextUnitIDs...)
	}

	for i := range merged {
		merged[i].TextUnitIDs = unionSorted(merged[i].TextUnitIDs)
	}

	return merged
}

// dedupeRelationships drops relationships whose endpoints are not in the
// merged entity table and keeps the first relationship per undirected
// (source, target) pair, unioning text unit references of duplicates.
func dedupeRelationships(
	relationships []common.Relationship,
	entities []common.Entity,
) []common.Relationship {
	titles := make(map[string]bool, len(entities))
	for _, entity := range entities {
		titles[entity.Title] = true
	}

	byPair := make(map[[2]string]int, len(relationships))
	var deduped []common.Relationship

	for _, rel := range relationships {
		if !titles[rel.Source] || !titles[rel.Target] {
			continue
		}

		pair := [2]string{rel.Source, rel.Target}
		if pair[0] > pair[1] {
			pair[0], pair[1] = pair[1], pair[0]
		}

		idx, ok := byPair[pair]
		if !ok {
			byPair[pair] = len(deduped)
			deduped = append(deduped, rel)
			continue
		}

		existing := &deduped[idx]
		existing.TextUnitIDs = append(existing.TextUnitIDs, rel.TextUnitIDs...)
	}

	for i := range deduped {
		deduped[i].TextUnitIDs = unionSorted(deduped[i].TextUnitIDs)
	}

	return deduped
}

// layoutEntities computes 2-D coordinates for every entity using a force
// directed placement over the deduplicated relationship graph and writes
// them into the entity table in place.
func layoutEntities(entities []common.Entity, relationships []common.Relationship) error {
	if len(entities) == 0 {
		return nil
	}

	ids := make(map[string]int64, len(entities))
	g := simple.NewUndirectedGraph()
	for i, entity := range entities {
		id := int64(i)
		ids[entity.Title] = id
		g.AddNode(simple.Node(id))
	}

	for _, rel := range relationships {
		source, sok := ids[rel.Source]
		target, tok := ids[rel.Target]
		if !sok || !tok || source == target {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(source), T: simple.Node(target)})
	}

	eades := layout.EadesR2{Repulsion: 1, Rate: 0.05, Updates: 30, Theta: 0.1}
	optimizer := layout.NewOptimizerR2(g, eades.Update)
	for optimizer.Update() {
	}

	for i := range entities {
		coord := optimizer.Coord2(ids[entities[i].Title])
		entities[i].X = coord.X
		entities[i].Y = coord.Y
	}

	return nil
}

func unionSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
