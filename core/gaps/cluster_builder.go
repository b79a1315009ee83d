package gaps

import (
	"sort"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/core/graph"
	"github.com/litreview/conceptgraph/model"
)

const minClusterSize = 2

// BuildClusters partitions the given entities with connected components,
// then keeps multi-member components as clusters. It does not filter by
// kind: every entity passed in, Paper and Author included, is clustered.
// Centroids average member embeddings so the gap detector has a semantic
// distance signal even before a dedicated centroid-refresh job exists.
func BuildClusters(projectID uuid.UUID, entities []*model.Entity, relationships []*model.Relationship) []*model.Cluster {
	components := graph.ConnectedComponents(entities, relationships)

	entityByID := make(map[uuid.UUID]*model.Entity, len(entities))
	for _, e := range entities {
		entityByID[e.ID] = e
	}

	var clusters []*model.Cluster
	for _, members := range components.Members {
		if len(members) < minClusterSize {
			continue
		}

		sort.Slice(members, func(i, j int) bool { return members[i].String() < members[j].String() })

		cluster := &model.Cluster{
			ID:        uuid.New(),
			ProjectID: projectID,
			ConceptID: members,
			Size:      len(members),
			Method:    model.ClusterMethodConnectedComponents,
		}
		cluster.Label, cluster.Keywords = clusterLabel(members, entityByID)
		cluster.Centroid = centroid(members, entityByID)
		clusters = append(clusters, cluster)
	}

	return clusters
}

func clusterLabel(members []uuid.UUID, entityByID map[uuid.UUID]*model.Entity) (label string, keywords []string) {
	for _, id := range members {
		e, ok := entityByID[id]
		if !ok {
			continue
		}
		keywords = append(keywords, e.Name)
		if len(keywords) >= 5 {
			break
		}
	}
	if len(keywords) > 0 {
		label = keywords[0]
	}
	return label, keywords
}

func centroid(members []uuid.UUID, entityByID map[uuid.UUID]*model.Entity) []float32 {
	var dim int
	for _, id := range members {
		if e, ok := entityByID[id]; ok && len(e.Embedding) > 0 {
			dim = len(e.Embedding)
			break
		}
	}
	if dim == 0 {
		return nil
	}

	sum := make([]float32, dim)
	count := 0
	for _, id := range members {
		e, ok := entityByID[id]
		if !ok || len(e.Embedding) != dim {
			continue
		}
		for i, v := range e.Embedding {
			sum[i] += v
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float32(count)
	}
	return sum
}
