package graph

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litreview/conceptgraph/model"
)

func entitiesOf(ids ...uuid.UUID) []*model.Entity {
	entities := make([]*model.Entity, len(ids))
	for i, id := range ids {
		entities[i] = &model.Entity{ID: id, Kind: model.KindConcept}
	}
	return entities
}

func relOf(edgeType model.EdgeType, pairs ...[2]uuid.UUID) []*model.Relationship {
	rels := make([]*model.Relationship, len(pairs))
	for i, p := range pairs {
		rels[i] = &model.Relationship{ID: uuid.New(), SourceID: p[0], TargetID: p[1], Type: edgeType, Weight: 1}
	}
	return rels
}

// star builds a hub-and-spoke graph: hub connected to every spoke, spokes
// otherwise disconnected from each other.
func star(hub uuid.UUID, spokes ...uuid.UUID) ([]*model.Entity, []*model.Relationship) {
	entities := entitiesOf(append([]uuid.UUID{hub}, spokes...)...)
	var pairs [][2]uuid.UUID
	for _, s := range spokes {
		pairs = append(pairs, [2]uuid.UUID{hub, s})
	}
	return entities, relOf(model.EdgeCoOccurs, pairs...)
}

func TestDegreeCentralityOfHubIsHighest(t *testing.T) {
	hub, s1, s2, s3 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	entities, rels := star(hub, s1, s2, s3)

	scores := ComputeCentrality(entities, rels)

	assert.InDelta(t, 1.0, scores[hub].Degree, 1e-9, "hub connects to all 3 others out of 3 possible")
	assert.Less(t, scores[s1].Degree, scores[hub].Degree)
}

func TestBetweennessCentralityOfHubIsHighestOnPath(t *testing.T) {
	a, hub, b := uuid.New(), uuid.New(), uuid.New()
	entities := entitiesOf(a, hub, b)
	rels := relOf(model.EdgeCoOccurs, [2]uuid.UUID{a, hub}, [2]uuid.UUID{hub, b})

	scores := ComputeCentrality(entities, rels)

	assert.Greater(t, scores[hub].Betweenness, 0.0, "hub lies on the only path between a and b")
	assert.Equal(t, 0.0, scores[a].Betweenness)
	assert.Equal(t, 0.0, scores[b].Betweenness)
}

func TestPageRankSumsToApproximatelyOne(t *testing.T) {
	hub, s1, s2, s3 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	entities, rels := star(hub, s1, s2, s3)

	scores := ComputeCentrality(entities, rels)

	total := 0.0
	for _, s := range scores {
		total += s.PageRank
	}
	assert.InDelta(t, 1.0, total, 1e-6)
	assert.Greater(t, scores[hub].PageRank, scores[s1].PageRank, "hub should accumulate more rank than a leaf spoke")
}

func TestComputeCentralityHandlesSingleEntity(t *testing.T) {
	id := uuid.New()
	scores := ComputeCentrality(entitiesOf(id), nil)
	require.Contains(t, scores, id)
	assert.Equal(t, 0.0, scores[id].Degree)
}

func TestComputeCentralityIgnoresDanglingRelationshipEndpoints(t *testing.T) {
	a := uuid.New()
	ghost := uuid.New()
	entities := entitiesOf(a)
	rels := relOf(model.EdgeCoOccurs, [2]uuid.UUID{a, ghost})

	scores := ComputeCentrality(entities, rels)
	assert.Equal(t, 0.0, scores[a].Degree, "relationship referencing an entity outside the subgraph must not be counted")
}
