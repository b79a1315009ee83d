package graph

import (
	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/model"
)

// ComponentResult assigns every entity to a connected-component id: the
// id of the component's union-find root, which is one of its member
// entities (not necessarily the lowest-valued one).
type ComponentResult struct {
	ComponentOf map[uuid.UUID]uuid.UUID
	Members     map[uuid.UUID][]uuid.UUID
}

// ConnectedComponents partitions the project subgraph into connected
// components via union-find with path compression and union by rank.
// This is the cheapest clustering method (model.ClusterMethodConnectedComponents)
// and the default: the finer-grained community detection methods
// (Louvain, Leiden) are reserved for subgraphs where connectivity alone
// is too coarse to be useful.
func ConnectedComponents(entities []*model.Entity, relationships []*model.Relationship) *ComponentResult {
	uf := newUnionFind(entities)

	for _, rel := range relationships {
		if rel.SourceID == rel.TargetID {
			continue
		}
		uf.union(rel.SourceID, rel.TargetID)
	}

	members := make(map[uuid.UUID][]uuid.UUID)
	componentOf := make(map[uuid.UUID]uuid.UUID, len(entities))
	for _, e := range entities {
		root := uf.find(e.ID)
		componentOf[e.ID] = root
		members[root] = append(members[root], e.ID)
	}

	return &ComponentResult{ComponentOf: componentOf, Members: members}
}

type unionFind struct {
	parent map[uuid.UUID]uuid.UUID
	rank   map[uuid.UUID]int
}

func newUnionFind(entities []*model.Entity) *unionFind {
	uf := &unionFind{
		parent: make(map[uuid.UUID]uuid.UUID, len(entities)),
		rank:   make(map[uuid.UUID]int, len(entities)),
	}
	for _, e := range entities {
		uf.parent[e.ID] = e.ID
	}
	return uf
}

func (uf *unionFind) find(x uuid.UUID) uuid.UUID {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[x] != root {
		uf.parent[x], x = root, uf.parent[x]
	}
	return root
}

func (uf *unionFind) union(a, b uuid.UUID) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

// Modularity reports the Newman-Girvan modularity Q of a partition over an
// undirected weighted graph, used to decide whether a finer community
// detection pass (Louvain) improved on plain connected components.
func Modularity(entities []*model.Entity, relationships []*model.Relationship, componentOf map[uuid.UUID]uuid.UUID) float64 {
	adj := buildAdjacency(entities, relationships)

	degreeOf := make(map[uuid.UUID]float64, len(adj))
	totalDegree := 0.0
	for id, neighbors := range adj {
		degreeOf[id] = float64(len(neighbors))
		totalDegree += float64(len(neighbors))
	}
	if totalDegree == 0 {
		return 0
	}
	twoM := totalDegree

	inside := 0.0
	communityDegree := make(map[uuid.UUID]float64)
	for id, neighbors := range adj {
		communityDegree[componentOf[id]] += degreeOf[id]
		for _, neighbor := range neighbors {
			if componentOf[id] == componentOf[neighbor] {
				inside++
			}
		}
	}

	q := inside / twoM
	for _, d := range communityDegree {
		q -= (d / twoM) * (d / twoM)
	}
	return q
}

// LouvainPass runs the first Louvain phase: starting from singleton
// communities, it moves each entity into the adjacent community with the
// largest modularity gain, sweeping until no move increases modularity.
// It is intentionally single-phase (no community aggregation step): the
// resulting partition is what model.ClusterMethodLouvain records, trading
// exhaustive multi-level refinement for a bounded, predictable run
// against review-sized corpora.
func LouvainPass(entities []*model.Entity, relationships []*model.Relationship) map[uuid.UUID]uuid.UUID {
	adj := buildAdjacency(entities, relationships)

	communityOf := make(map[uuid.UUID]uuid.UUID, len(entities))
	for _, e := range entities {
		communityOf[e.ID] = e.ID
	}

	improved := true
	for improved {
		improved = false
		for _, e := range entities {
			current := communityOf[e.ID]
			best := current
			bestGain := 0.0

			neighborCommunities := map[uuid.UUID]bool{}
			for _, neighbor := range adj[e.ID] {
				neighborCommunities[communityOf[neighbor]] = true
			}

			for candidate := range neighborCommunities {
				if candidate == current {
					continue
				}
				trial := make(map[uuid.UUID]uuid.UUID, len(communityOf))
				for k, v := range communityOf {
					trial[k] = v
				}
				trial[e.ID] = candidate

				gain := Modularity(entities, relationships, trial) - Modularity(entities, relationships, communityOf)
				if gain > bestGain {
					bestGain = gain
					best = candidate
				}
			}

			if best != current {
				communityOf[e.ID] = best
				improved = true
			}
		}
	}

	return communityOf
}
