package gaps

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litreview/conceptgraph/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEntityStore struct {
	entities []*model.Entity
}

func (f *fakeEntityStore) SelectEntitiesByProject(projectID uuid.UUID, limit int) ([]*model.Entity, error) {
	return f.entities, nil
}

type fakeRelationshipStore struct {
	relationships []*model.Relationship
}

func (f *fakeRelationshipStore) SelectRelationshipsByProject(projectID uuid.UUID) ([]*model.Relationship, error) {
	return f.relationships, nil
}

type fakeClusterStore struct {
	clusters []*model.Cluster
}

func (f *fakeClusterStore) SelectClustersByProject(projectID uuid.UUID) ([]*model.Cluster, error) {
	return f.clusters, nil
}

type fakeGapStore struct {
	deletedFor uuid.UUID
	inserted   []*model.Gap
}

func (f *fakeGapStore) DeleteGapsByProject(projectID uuid.UUID) error {
	f.deletedFor = projectID
	return nil
}

func (f *fakeGapStore) InsertGap(gap *model.Gap) error {
	f.inserted = append(f.inserted, gap)
	return nil
}

func twoClusterFixture(projectID uuid.UUID) ([]*model.Entity, []*model.Relationship, []*model.Cluster) {
	a1 := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindConcept, Name: "attention"}
	a2 := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindConcept, Name: "transformer"}
	b1 := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindConcept, Name: "reinforcement learning"}
	b2 := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindConcept, Name: "reward shaping"}

	relationships := []*model.Relationship{
		{ID: uuid.New(), ProjectID: projectID, SourceID: a1.ID, TargetID: a2.ID, Type: model.EdgeCoOccurs, Weight: 1},
		{ID: uuid.New(), ProjectID: projectID, SourceID: b1.ID, TargetID: b2.ID, Type: model.EdgeCoOccurs, Weight: 1},
	}

	clusterA := &model.Cluster{ID: uuid.New(), ProjectID: projectID, Label: "attention", ConceptID: []uuid.UUID{a1.ID, a2.ID}}
	clusterB := &model.Cluster{ID: uuid.New(), ProjectID: projectID, Label: "rl", ConceptID: []uuid.UUID{b1.ID, b2.ID}}

	return []*model.Entity{a1, a2, b1, b2}, relationships, []*model.Cluster{clusterA, clusterB}
}

func TestDetectGapsFindsDisconnectedClusterPair(t *testing.T) {
	projectID := uuid.New()
	entities, relationships, clusters := twoClusterFixture(projectID)

	gapsTable := &fakeGapStore{}
	d := NewDetector(testLogger(), &fakeEntityStore{entities: entities}, &fakeRelationshipStore{relationships: relationships}, &fakeClusterStore{clusters: clusters}, gapsTable, nil)

	gaps, err := d.DetectGaps(context.Background(), projectID)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Less(t, gaps[0].GapStrength, 0.1)
	assert.Equal(t, projectID, gapsTable.deletedFor)
	assert.Len(t, gapsTable.inserted, 1)
}

func TestDetectGapsSkipsWellConnectedPairs(t *testing.T) {
	projectID := uuid.New()
	entities, relationships, clusters := twoClusterFixture(projectID)

	bridging := &model.Relationship{ID: uuid.New(), ProjectID: projectID, SourceID: entities[0].ID, TargetID: entities[2].ID, Type: model.EdgeCoOccurs, Weight: 10}
	relationships = append(relationships, bridging)

	d := NewDetector(testLogger(), &fakeEntityStore{entities: entities}, &fakeRelationshipStore{relationships: relationships}, &fakeClusterStore{clusters: clusters}, &fakeGapStore{}, nil)

	gaps, err := d.DetectGaps(context.Background(), projectID)
	require.NoError(t, err)
	assert.Empty(t, gaps)
}

func TestDetectGapsReturnsEmptyWithFewerThanTwoClusters(t *testing.T) {
	projectID := uuid.New()
	gapsTable := &fakeGapStore{}
	d := NewDetector(testLogger(), &fakeEntityStore{}, &fakeRelationshipStore{}, &fakeClusterStore{clusters: nil}, gapsTable, nil)

	gaps, err := d.DetectGaps(context.Background(), projectID)
	require.NoError(t, err)
	assert.Empty(t, gaps)
	assert.Equal(t, projectID, gapsTable.deletedFor)
}

func TestGapStrengthIsZeroWhenClustersFullyDisconnected(t *testing.T) {
	a := &model.Cluster{ID: uuid.New(), ConceptID: []uuid.UUID{uuid.New(), uuid.New()}}
	b := &model.Cluster{ID: uuid.New(), ConceptID: []uuid.UUID{uuid.New(), uuid.New()}}
	weights := map[[2]uuid.UUID]float64{}

	assert.Equal(t, 0.0, gapStrength(weights, a, b))
}

func TestGapStrengthApproachesOneWhenDenselyConnected(t *testing.T) {
	a := &model.Cluster{ID: uuid.New(), ConceptID: []uuid.UUID{uuid.New(), uuid.New()}}
	b := &model.Cluster{ID: uuid.New(), ConceptID: []uuid.UUID{uuid.New(), uuid.New()}}
	key1, key2 := model.ClusterPairKey(a.ID, b.ID)
	weights := map[[2]uuid.UUID]float64{{key1, key2}: 4}

	assert.Equal(t, 1.0, gapStrength(weights, a, b))
}

func TestSemanticDistanceZeroWithoutCentroids(t *testing.T) {
	a := &model.Cluster{}
	b := &model.Cluster{}
	assert.Equal(t, 0.0, semanticDistance(a, b))
}
