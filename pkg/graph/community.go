package graph

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/lattice-graph/lattice/pkg/common"
)

// DetectCommunities clusters the finalized graph hierarchically and
// aggregates each cluster into a Community record.
//
// Clustering only considers the largest connected component; entities in
// smaller components or without relationships are not assigned to any
// community. A community's relationships are those whose endpoints both
// belong to the cluster, and its text unit references are the union of
// those relationships' references.
func (g *GraphClient) DetectCommunities(
	entities []common.Entity,
	relationships []common.Relationship,
) ([]common.Community, error) {
	if len(relationships) == 0 {
		return []common.Community{}, nil
	}

	component := largestComponent(relationships)

	var edges []Edge
	for _, rel := range relationships {
		if !component[rel.Source] || !component[rel.Target] {
			continue
		}
		edges = append(edges, Edge{Source: rel.Source, Target: rel.Target})
	}

	partitions, err := g.partitioner.Partition(edges, g.maxClusterSize, g.resolution)
	if err != nil {
		return nil, fmt.Errorf("failed to partition graph: %w", err)
	}

	return g.aggregateCommunities(partitions, entities, relationships)
}

// largestComponent returns the node set of the largest connected
// component of the relationship graph. Ties break towards the component
// containing the lexicographically smallest node title.
func largestComponent(relationships []common.Relationship) map[string]bool {
	ids := make(map[string]int64)
	titles := make(map[int64]string)
	g := simple.NewUndirectedGraph()

	nodeID := func(title string) int64 {
		if id, ok := ids[title]; ok {
			return id
		}
		id := int64(len(ids))
		ids[title] = id
		titles[id] = title
		g.AddNode(simple.Node(id))
		return id
	}

	for _, rel := range relationships {
		source := nodeID(rel.Source)
		target := nodeID(rel.Target)
		if source == target {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(source), T: simple.Node(target)})
	}

	var best []string
	for _, comp := range topo.ConnectedComponents(g) {
		members := make([]string, 0, len(comp))
		for _, node := range comp {
			members = append(members, titles[node.ID()])
		}
		sort.Strings(members)

		if len(members) > len(best) ||
			(len(members) == len(best) && len(best) > 0 && members[0] < best[0]) {
			best = members
		}
	}

	result := make(map[string]bool, len(best))
	for _, title := range best {
		result[title] = true
	}
	return result
}

func (g *GraphClient) aggregateCommunities(
	partitions []Partition,
	entities []common.Entity,
	relationships []common.Relationship,
) ([]common.Community, error) {
	entitiesByTitle := make(map[string]common.Entity, len(entities))
	for _, entity := range entities {
		entitiesByTitle[entity.Title] = entity
	}

	type clusterKey struct {
		level   int
		cluster int
	}

	members := make(map[clusterKey]map[string]bool)
	parents := make(map[clusterKey]int)
	var keys []clusterKey

	for _, p := range partitions {
		key := clusterKey{level: p.Level, cluster: p.Cluster}
		if members[key] == nil {
			members[key] = make(map[string]bool)
			parents[key] = p.Parent
			keys = append(keys, key)
		}
		members[key][p.Node] = true
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].level != keys[j].level {
			return keys[i].level < keys[j].level
		}
		return keys[i].cluster < keys[j].cluster
	})

	children := make(map[int][]int)
	for _, key := range keys {
		if parent := parents[key]; parent != -1 {
			children[parent] = append(children[parent], key.cluster)
		}
	}

	period := time.Now().UTC().Format("2006-01-02")

	communities := make([]common.Community, 0, len(keys))
	for _, key := range keys {
		titles := members[key]

		var entityIDs []string
		for title := range titles {
			entity, ok := entitiesByTitle[title]
			if !ok {
				return nil, fmt.Errorf("cluster %d references unknown entity %q", key.cluster, title)
			}
			entityIDs = append(entityIDs, entity.ID)
		}
		sort.Strings(entityIDs)

		var relationshipIDs []string
		var textUnitIDs []string
		for _, rel := range relationships {
			if !titles[rel.Source] || !titles[rel.Target] {
				continue
			}
			relationshipIDs = append(relationshipIDs, rel.ID)
			textUnitIDs = append(textUnitIDs, rel.TextUnitIDs...)
		}
		sort.Strings(relationshipIDs)

		communities = append(communities, common.Community{
			ID:              key.cluster,
			HumanReadableID: key.cluster,
			Title:           fmt.Sprintf("Community %d", key.cluster),
			Level:           key.level,
			Parent:          parents[key],
			Children:        children[key.cluster],
			EntityIDs:       entityIDs,
			RelationshipIDs: relationshipIDs,
			TextUnitIDs:     unionSorted(textUnitIDs),
			Period:          period,
			Size:            len(entityIDs),
		})
	}

	return communities, nil
}
