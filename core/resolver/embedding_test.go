package resolver

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litreview/conceptgraph/model"
)

func TestEmbeddingCandidatesPartitionsByThreshold(t *testing.T) {
	projectID := uuid.New()

	identical := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindConcept, Embedding: []float32{1, 0, 0}}
	nearDuplicate := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindConcept, Embedding: []float32{0.99, 0.01, 0}}
	uncertain := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindConcept, Embedding: []float32{0.9, 0.4, 0}}
	unrelated := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindConcept, Embedding: []float32{0, 1, 0}}

	autoMerge, candidates := EmbeddingCandidates([]*model.Entity{identical, nearDuplicate, uncertain, unrelated})

	require.NotEmpty(t, autoMerge)
	assert.Contains(t, [][2]*model.Entity{{identical, nearDuplicate}}, autoMerge[0])

	found := false
	for _, c := range candidates {
		if (c.A == identical && c.B == uncertain) || (c.A == uncertain && c.B == identical) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestEmbeddingCandidatesNeverCrossesTypeOrProject(t *testing.T) {
	a := &model.Entity{ID: uuid.New(), ProjectID: uuid.New(), Kind: model.KindConcept, Embedding: []float32{1, 0}}
	b := &model.Entity{ID: uuid.New(), ProjectID: uuid.New(), Kind: model.KindMethod, Embedding: []float32{1, 0}}

	autoMerge, candidates := EmbeddingCandidates([]*model.Entity{a, b})
	assert.Empty(t, autoMerge)
	assert.Empty(t, candidates)
}

func TestEmbeddingCandidatesSkipsEntitiesWithoutEmbeddings(t *testing.T) {
	projectID := uuid.New()
	a := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindConcept}
	b := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindConcept}

	autoMerge, candidates := EmbeddingCandidates([]*model.Entity{a, b})
	assert.Empty(t, autoMerge)
	assert.Empty(t, candidates)
}
