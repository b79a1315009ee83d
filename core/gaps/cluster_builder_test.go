package gaps

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litreview/conceptgraph/model"
)

func TestBuildClustersDropsSingletonComponents(t *testing.T) {
	projectID := uuid.New()
	a := &model.Entity{ID: uuid.New(), ProjectID: projectID, Name: "a", Embedding: []float32{1, 0}}
	b := &model.Entity{ID: uuid.New(), ProjectID: projectID, Name: "b", Embedding: []float32{0, 1}}
	isolated := &model.Entity{ID: uuid.New(), ProjectID: projectID, Name: "isolated"}

	relationships := []*model.Relationship{
		{SourceID: a.ID, TargetID: b.ID, Type: model.EdgeCoOccurs, Weight: 1},
	}

	clusters := BuildClusters(projectID, []*model.Entity{a, b, isolated}, relationships)
	require.Len(t, clusters, 1)
	assert.Equal(t, 2, clusters[0].Size)
	assert.Equal(t, model.ClusterMethodConnectedComponents, clusters[0].Method)
}

func TestBuildClustersAveragesMemberEmbeddingsIntoCentroid(t *testing.T) {
	projectID := uuid.New()
	a := &model.Entity{ID: uuid.New(), ProjectID: projectID, Name: "a", Embedding: []float32{1, 0}}
	b := &model.Entity{ID: uuid.New(), ProjectID: projectID, Name: "b", Embedding: []float32{0, 1}}
	relationships := []*model.Relationship{{SourceID: a.ID, TargetID: b.ID, Type: model.EdgeCoOccurs, Weight: 1}}

	clusters := BuildClusters(projectID, []*model.Entity{a, b}, relationships)
	require.Len(t, clusters, 1)
	require.Len(t, clusters[0].Centroid, 2)
	assert.InDelta(t, 0.5, clusters[0].Centroid[0], 1e-9)
	assert.InDelta(t, 0.5, clusters[0].Centroid[1], 1e-9)
}
