package graph

import (
	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/model"
)

// adjacency is an undirected neighbor list keyed by entity id, built once
// per computation and shared across the centrality measures below. The
// concept graph is treated as undirected for centrality purposes: a
// directed CITES edge still means the two entities are structurally
// connected, and degree/betweenness/PageRank all care about connectivity
// rather than direction.
type adjacency map[uuid.UUID][]uuid.UUID

func buildAdjacency(entities []*model.Entity, relationships []*model.Relationship) adjacency {
	adj := make(adjacency, len(entities))
	for _, e := range entities {
		adj[e.ID] = nil
	}

	for _, rel := range relationships {
		if rel.SourceID == rel.TargetID {
			continue
		}
		if _, ok := adj[rel.SourceID]; !ok {
			continue
		}
		if _, ok := adj[rel.TargetID]; !ok {
			continue
		}
		adj[rel.SourceID] = append(adj[rel.SourceID], rel.TargetID)
		adj[rel.TargetID] = append(adj[rel.TargetID], rel.SourceID)
	}

	return adj
}

// CentralityScores holds the three per-entity centrality measures computed
// by ComputeCentrality.
type CentralityScores struct {
	Degree      float64
	Betweenness float64
	PageRank    float64
}

// ComputeCentrality computes degree, betweenness, and PageRank centrality
// for every entity in the given project subgraph. Degree and betweenness
// follow the standard normalized definitions; betweenness uses Brandes'
// algorithm (O(VE) for unweighted graphs). PageRank uses power iteration
// with damping 0.85, the same iterative-convergence style used elsewhere
// for numeric fixed points.
func ComputeCentrality(entities []*model.Entity, relationships []*model.Relationship) map[uuid.UUID]*CentralityScores {
	adj := buildAdjacency(entities, relationships)
	n := len(adj)

	scores := make(map[uuid.UUID]*CentralityScores, n)
	for id := range adj {
		scores[id] = &CentralityScores{}
	}
	if n <= 1 {
		return scores
	}

	degree(adj, scores)
	betweenness(adj, scores)
	pageRank(adj, scores, 0.85, 100, 1e-6)

	return scores
}

func degree(adj adjacency, scores map[uuid.UUID]*CentralityScores) {
	n := float64(len(adj))
	if n <= 1 {
		return
	}
	for id, neighbors := range adj {
		scores[id].Degree = float64(len(neighbors)) / (n - 1)
	}
}

// betweenness implements Brandes' algorithm for unweighted, undirected
// graphs: one BFS per source accumulates shortest-path dependencies via a
// reverse topological pass over the BFS order.
func betweenness(adj adjacency, scores map[uuid.UUID]*CentralityScores) {
	n := len(adj)
	if n <= 2 {
		return
	}

	centrality := make(map[uuid.UUID]float64, n)
	for id := range adj {
		centrality[id] = 0
	}

	for s := range adj {
		stack := make([]uuid.UUID, 0, n)
		predecessors := make(map[uuid.UUID][]uuid.UUID, n)
		sigma := make(map[uuid.UUID]float64, n)
		dist := make(map[uuid.UUID]int, n)

		for id := range adj {
			sigma[id] = 0
			dist[id] = -1
		}
		sigma[s] = 1
		dist[s] = 0

		queue := []uuid.UUID{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)

			for _, w := range adj[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					predecessors[w] = append(predecessors[w], v)
				}
			}
		}

		delta := make(map[uuid.UUID]float64, n)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range predecessors[w] {
				delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
			}
			if w != s {
				centrality[w] += delta[w]
			}
		}
	}

	// Undirected graphs double-count each pair's dependency contribution.
	norm := 1.0
	if n > 2 {
		norm = 2.0 / float64((n-1)*(n-2))
	}

	for id, c := range centrality {
		scores[id].Betweenness = (c / 2) * norm
	}
}

// pageRank computes PageRank via power iteration with uniform teleport,
// distributing a dangling node's mass uniformly (standard Brin/Page
// random-surfer handling for nodes with no outgoing edges).
func pageRank(adj adjacency, scores map[uuid.UUID]*CentralityScores, damping float64, maxIterations int, tolerance float64) {
	n := len(adj)
	if n == 0 {
		return
	}

	ids := make([]uuid.UUID, 0, n)
	for id := range adj {
		ids = append(ids, id)
	}

	rank := make(map[uuid.UUID]float64, n)
	init := 1.0 / float64(n)
	for _, id := range ids {
		rank[id] = init
	}

	for iter := 0; iter < maxIterations; iter++ {
		next := make(map[uuid.UUID]float64, n)
		danglingMass := 0.0

		for _, id := range ids {
			out := len(adj[id])
			if out == 0 {
				danglingMass += rank[id]
			}
		}

		base := (1 - damping) / float64(n)
		for _, id := range ids {
			next[id] = base + damping*danglingMass/float64(n)
		}

		for _, id := range ids {
			out := len(adj[id])
			if out == 0 {
				continue
			}
			share := damping * rank[id] / float64(out)
			for _, neighbor := range adj[id] {
				next[neighbor] += share
			}
		}

		diff := 0.0
		for _, id := range ids {
			diff += abs(next[id] - rank[id])
		}
		rank = next
		if diff < tolerance {
			break
		}
	}

	for id, r := range rank {
		scores[id].PageRank = r
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
