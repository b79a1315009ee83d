package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litreview/conceptgraph/model"
)

// mockGraphDB is an in-memory implementation of GraphDB for testing.
type mockGraphDB struct {
	entities      map[string]*model.Entity
	relationships map[uuid.UUID][]*model.Relationship
}

func newMockGraphDB() *mockGraphDB {
	return &mockGraphDB{
		entities:      make(map[string]*model.Entity),
		relationships: make(map[uuid.UUID][]*model.Relationship),
	}
}

func (m *mockGraphDB) GetEntity(ctx context.Context, id string) (*model.Entity, error) {
	entity, ok := m.entities[id]
	if !ok {
		return nil, assert.AnError
	}
	return entity, nil
}

func (m *mockGraphDB) GetRelationshipsConnected(ctx context.Context, entityID uuid.UUID, edgeType *model.EdgeType) ([]*model.Relationship, error) {
	return m.relationships[entityID], nil
}

func (m *mockGraphDB) addEntity(id uuid.UUID, kind model.EntityKind) {
	m.entities[id.String()] = &model.Entity{ID: id, Kind: kind, Name: id.String(), NormalizedName: id.String()}
}

func (m *mockGraphDB) link(a, b uuid.UUID, edgeType model.EdgeType) {
	rel := &model.Relationship{ID: uuid.New(), SourceID: a, TargetID: b, Type: edgeType, Weight: 1}
	m.relationships[a] = append(m.relationships[a], rel)
	m.relationships[b] = append(m.relationships[b], rel)
}

// buildSampleGraph wires A -> B -> C and A -> D.
func buildSampleGraph() (*mockGraphDB, uuid.UUID, uuid.UUID, uuid.UUID, uuid.UUID) {
	db := newMockGraphDB()

	idA, idB, idC, idD := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	db.addEntity(idA, model.KindConcept)
	db.addEntity(idB, model.KindConcept)
	db.addEntity(idC, model.KindConcept)
	db.addEntity(idD, model.KindMethod)

	db.link(idA, idB, model.EdgeCoOccurs)
	db.link(idB, idC, model.EdgeCoOccurs)
	db.link(idA, idD, model.EdgeUsesMethod)

	return db, idA, idB, idC, idD
}

func TestBFSReachesAllNodesWithinHopLimit(t *testing.T) {
	db, idA, idB, idC, idD := buildSampleGraph()

	results, err := BFS(context.Background(), db, idA, 2, nil, true)
	require.NoError(t, err)

	distances := map[uuid.UUID]int{}
	for _, r := range results {
		distances[r.Entity.ID] = r.Distance
	}

	assert.Equal(t, 0, distances[idA])
	assert.Equal(t, 1, distances[idB])
	assert.Equal(t, 1, distances[idD])
	assert.Equal(t, 2, distances[idC])
}

func TestBFSRespectsMaxHops(t *testing.T) {
	db, idA, _, idC, _ := buildSampleGraph()

	results, err := BFS(context.Background(), db, idA, 1, nil, true)
	require.NoError(t, err)

	for _, r := range results {
		assert.NotEqual(t, idC, r.Entity.ID, "C is 2 hops away and should be excluded at maxHops=1")
	}
}

func TestBFSFiltersByEdgeType(t *testing.T) {
	db, idA, idB, _, idD := buildSampleGraph()

	results, err := BFS(context.Background(), db, idA, 2, []model.EdgeType{model.EdgeUsesMethod}, true)
	require.NoError(t, err)

	seen := map[uuid.UUID]bool{}
	for _, r := range results {
		seen[r.Entity.ID] = true
	}
	assert.True(t, seen[idD])
	assert.False(t, seen[idB], "CO_OCCURS edges should be excluded when filtering on USES_METHOD")
}

func TestDFSVisitsEveryReachableNode(t *testing.T) {
	db, idA, idB, idC, idD := buildSampleGraph()

	results, err := DFS(context.Background(), db, idA, 5, nil, true)
	require.NoError(t, err)

	seen := map[uuid.UUID]bool{}
	for _, r := range results {
		seen[r.Entity.ID] = true
	}
	assert.True(t, seen[idA])
	assert.True(t, seen[idB])
	assert.True(t, seen[idC])
	assert.True(t, seen[idD])
}

func TestDirectionalEdgeNotFollowedBackwardWithoutBidirectional(t *testing.T) {
	db := newMockGraphDB()
	idA, idB := uuid.New(), uuid.New()
	db.addEntity(idA, model.KindPaper)
	db.addEntity(idB, model.KindAuthor)
	db.link(idA, idB, model.EdgeAuthoredBy)

	results, err := BFS(context.Background(), db, idB, 1, nil, false)
	require.NoError(t, err)

	for _, r := range results {
		assert.NotEqual(t, idA, r.Entity.ID, "AUTHORED_BY should not be walked backward unless followBidirectional is set")
	}
}

func TestGetNeighborsExcludesSource(t *testing.T) {
	db, idA, idB, _, idD := buildSampleGraph()

	neighbors, err := GetNeighbors(context.Background(), db, idA, nil, true)
	require.NoError(t, err)

	ids := map[uuid.UUID]bool{}
	for _, n := range neighbors {
		ids[n.ID] = true
	}
	assert.False(t, ids[idA])
	assert.True(t, ids[idB])
	assert.True(t, ids[idD])
}
