package pipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litreview/conceptgraph/model"
)

func TestRelationsForPaperMapsKindToEdgeType(t *testing.T) {
	projectID, paperID := uuid.New(), uuid.New()
	entities := []*model.Entity{
		{ID: uuid.New(), Kind: model.KindConcept, Confidence: 0.9},
		{ID: uuid.New(), Kind: model.KindMethod, Confidence: 0.7},
		{ID: uuid.New(), Kind: model.KindAuthor, Confidence: 1},
	}

	relationships := RelationsForPaper(projectID, paperID, entities)

	require.Len(t, relationships, 2)
	assert.Equal(t, model.EdgeDiscussesConcept, relationships[0].Type)
	assert.Equal(t, model.EdgeUsesMethod, relationships[1].Type)
	for _, r := range relationships {
		assert.Equal(t, paperID, r.SourceID)
		assert.Equal(t, projectID, r.ProjectID)
	}
}

func TestRelationsForPaperClampsWeightFromConfidence(t *testing.T) {
	projectID, paperID := uuid.New(), uuid.New()
	entities := []*model.Entity{{ID: uuid.New(), Kind: model.KindFinding, Confidence: 1.5}}

	relationships := RelationsForPaper(projectID, paperID, entities)
	require.Len(t, relationships, 1)
	assert.Equal(t, 1.0, relationships[0].Weight)
}

func TestCoOccurrenceRelationsLinksDistinctPairsOnly(t *testing.T) {
	projectID := uuid.New()
	entities := []*model.Entity{
		{ID: uuid.New(), Kind: model.KindConcept},
		{ID: uuid.New(), Kind: model.KindMethod},
		{ID: uuid.New(), Kind: model.KindDataset},
	}

	relationships := CoOccurrenceRelations(projectID, entities)
	assert.Len(t, relationships, 3) // 3 choose 2
	for _, r := range relationships {
		assert.Equal(t, model.EdgeCoOccurs, r.Type)
		assert.NotEqual(t, r.SourceID, r.TargetID)
	}
}

func TestCoOccurrenceRelationsBoundsWindow(t *testing.T) {
	projectID := uuid.New()
	var entities []*model.Entity
	for i := 0; i < coOccurrenceWindow+5; i++ {
		entities = append(entities, &model.Entity{ID: uuid.New(), Kind: model.KindConcept})
	}

	relationships := CoOccurrenceRelations(projectID, entities)
	maxExpected := coOccurrenceWindow * (coOccurrenceWindow - 1) / 2
	assert.Equal(t, maxExpected, len(relationships))
}

func TestIntersectChunkIDsReturnsOnlySharedIDs(t *testing.T) {
	shared := uuid.New()
	a := []uuid.UUID{shared, uuid.New()}
	b := []uuid.UUID{shared, uuid.New()}

	result := intersectChunkIDs(a, b)
	require.Len(t, result, 1)
	assert.Equal(t, shared, result[0])
}

func TestAuthoredByRelationsBuildsOneEdgePerAuthor(t *testing.T) {
	projectID, paperID := uuid.New(), uuid.New()
	authors := []uuid.UUID{uuid.New(), uuid.New()}

	relationships := AuthoredByRelations(projectID, paperID, authors)
	require.Len(t, relationships, 2)
	for _, r := range relationships {
		assert.Equal(t, model.EdgeAuthoredBy, r.Type)
		assert.Equal(t, paperID, r.SourceID)
	}
}
