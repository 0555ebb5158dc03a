package graph

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
)

// Edge is an undirected connection between two named graph nodes,
// as handed to a Partitioner.
type Edge struct {
	Source string
	Target string
}

// Partition assigns a node to a cluster at one level of the community
// hierarchy. Parent is the cluster id the node belonged to at the
// previous level, or -1 at the root level.
type Partition struct {
	Level   int
	Node    string
	Cluster int
	Parent  int
}

// Partitioner computes a hierarchical clustering of an undirected graph.
// Clusters larger than maxClusterSize are split further on deeper levels
// until they fit or can no longer be subdivided.
type Partitioner interface {
	Partition(edges []Edge, maxClusterSize int, resolution float64) ([]Partition, error)
}

// ModularityPartitioner implements Partitioner using Louvain modularity
// maximization. Oversized clusters are re-partitioned recursively, each
// pass producing the next hierarchy level.
type ModularityPartitioner struct{}

type nodeIndex struct {
	ids    map[string]int64
	titles map[int64]string
	next   int64
}

func newNodeIndex() *nodeIndex {
	return &nodeIndex{
		ids:    make(map[string]int64),
		titles: make(map[int64]string),
	}
}

func (n *nodeIndex) id(title string) int64 {
	if id, ok := n.ids[title]; ok {
		return id
	}
	id := n.next
	n.next++
	n.ids[title] = id
	n.titles[id] = title
	return id
}

// Partition clusters the given edges hierarchically. The returned
// partitions are ordered by level, then cluster, then node name, with
// cluster ids unique across all levels.
func (p *ModularityPartitioner) Partition(
	edges []Edge,
	maxClusterSize int,
	resolution float64,
) ([]Partition, error) {
	if len(edges) == 0 {
		return []Partition{}, nil
	}

	index := newNodeIndex()
	adjacency := make(map[string]map[string]bool)
	for _, edge := range edges {
		if edge.Source == edge.Target {
			continue
		}
		index.id(edge.Source)
		index.id(edge.Target)
		if adjacency[edge.Source] == nil {
			adjacency[edge.Source] = make(map[string]bool)
		}
		if adjacency[edge.Target] == nil {
			adjacency[edge.Target] = make(map[string]bool)
		}
		adjacency[edge.Source][edge.Target] = true
		adjacency[edge.Target][edge.Source] = true
	}

	allNodes := make([]string, 0, len(adjacency))
	for node := range adjacency {
		allNodes = append(allNodes, node)
	}
	sort.Strings(allNodes)

	var partitions []Partition
	nextCluster := 0

	type task struct {
		nodes  []string
		level  int
		parent int
	}

	queue := []task{{nodes: allNodes, level: 0, parent: -1}}

	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]

		clusters, err := p.cluster(t.nodes, adjacency, index, resolution)
		if err != nil {
			return nil, err
		}

		if t.parent != -1 && len(clusters) <= 1 {
			// The oversized cluster could not be subdivided any further;
			// it stays as-is on the previous level.
			continue
		}

		for _, members := range clusters {
			clusterID := nextCluster
			nextCluster++

			for _, node := range members {
				partitions = append(partitions, Partition{
					Level:   t.level,
					Node:    node,
					Cluster: clusterID,
					Parent:  t.parent,
				})
			}

			if len(members) > maxClusterSize {
				queue = append(queue, task{
					nodes:  members,
					level:  t.level + 1,
					parent: clusterID,
				})
			}
		}
	}

	sort.Slice(partitions, func(i, j int) bool {
		if partitions[i].Level != partitions[j].Level {
			return partitions[i].Level < partitions[j].Level
		}
		if partitions[i].Cluster != partitions[j].Cluster {
			return partitions[i].Cluster < partitions[j].Cluster
		}
		return partitions[i].Node < partitions[j].Node
	})

	return partitions, nil
}

// cluster runs a single Louvain pass over the subgraph induced by the
// given nodes and returns the member lists of the detected communities,
// each sorted by node name.
func (p *ModularityPartitioner) cluster(
	nodes []string,
	adjacency map[string]map[string]bool,
	index *nodeIndex,
	resolution float64,
) ([][]string, error) {
	included := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		included[node] = true
	}

	g := simple.NewUndirectedGraph()
	for _, node := range nodes {
		id := index.id(node)
		if g.Node(id) == nil {
			g.AddNode(simple.Node(id))
		}
		for neighbor := range adjacency[node] {
			if !included[neighbor] || neighbor <= node {
				continue
			}
			g.SetEdge(simple.Edge{
				F: simple.Node(id),
				T: simple.Node(index.id(neighbor)),
			})
		}
	}

	reduced := community.Modularize(g, resolution, nil)
	if reduced == nil {
		return nil, fmt.Errorf("failed to modularize graph with %d nodes", len(nodes))
	}

	var clusters [][]string
	for _, comm := range reduced.Communities() {
		members := make([]string, 0, len(comm))
		for _, node := range comm {
			members = append(members, index.titles[node.ID()])
		}
		sort.Strings(members)
		clusters = append(clusters, members)
	}

	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i][0] < clusters[j][0]
	})

	return clusters, nil
}
