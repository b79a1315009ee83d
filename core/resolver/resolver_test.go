package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litreview/conceptgraph/core/pipeline"
	"github.com/litreview/conceptgraph/model"
)

type fakeEntityStore struct {
	byKind  map[model.EntityKind][]*model.Entity
	merged  []*model.Entity
	deleted []uuid.UUID
}

func (f *fakeEntityStore) SelectEntitiesByKind(projectID uuid.UUID, kind model.EntityKind, limit int) ([]*model.Entity, error) {
	return f.byKind[kind], nil
}

func (f *fakeEntityStore) UpdateEntityMerge(entity *model.Entity) error {
	f.merged = append(f.merged, entity)
	return nil
}

func (f *fakeEntityStore) DeleteEntity(id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRelationshipStore struct {
	rewrites  [][2]uuid.UUID
	decisions map[[2]uuid.UUID]string
	inserted  []*model.Relationship
}

func newFakeRelationshipStore() *fakeRelationshipStore {
	return &fakeRelationshipStore{decisions: map[[2]uuid.UUID]string{}}
}

func (f *fakeRelationshipStore) RewriteRelationshipsEndpoint(fromID, toID uuid.UUID) error {
	f.rewrites = append(f.rewrites, [2]uuid.UUID{fromID, toID})
	return nil
}

func (f *fakeRelationshipStore) InsertRelationship(rel *model.Relationship) error {
	f.inserted = append(f.inserted, rel)
	return nil
}

func (f *fakeRelationshipStore) InsertResolutionDecision(projectID, entityAID, entityBID uuid.UUID, decision string) error {
	f.decisions[pairKey(entityAID, entityBID)] = decision
	return nil
}

func (f *fakeRelationshipStore) SelectResolutionDecision(entityAID, entityBID uuid.UUID) (string, bool, error) {
	d, ok := f.decisions[pairKey(entityAID, entityBID)]
	return d, ok, nil
}

func pairKey(a, b uuid.UUID) [2]uuid.UUID {
	if a.String() > b.String() {
		a, b = b, a
	}
	return [2]uuid.UUID{a, b}
}

func TestResolveStage1MergesDeterministicDuplicates(t *testing.T) {
	projectID := uuid.New()
	older := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindMethod, Name: "fine-tuning", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindMethod, Name: "finetuning", CreatedAt: time.Now()}

	entities := &fakeEntityStore{byKind: map[model.EntityKind][]*model.Entity{model.KindMethod: {older, newer}}}
	relationships := newFakeRelationshipStore()
	llm := pipeline.NewLLMService(testLogger(), 6000, &fakeLLMProvider{response: `{"same_entity": false, "reason": "n/a"}`})

	r := NewResolverFromStores(testLogger(), entities, relationships, llm)

	stats, err := r.Resolve(context.Background(), projectID, model.KindMethod)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.AutoMergedDeterministic)
	assert.Equal(t, 1, stats.FinalCanonicalCount)
	require.Len(t, entities.deleted, 1)
	assert.Equal(t, newer.ID, entities.deleted[0])
}

func TestResolveNeverMergesAcrossProjects(t *testing.T) {
	a := &model.Entity{ID: uuid.New(), ProjectID: uuid.New(), Kind: model.KindConcept, Name: "graph", CreatedAt: time.Now()}
	b := &model.Entity{ID: uuid.New(), ProjectID: uuid.New(), Kind: model.KindConcept, Name: "graph", CreatedAt: time.Now()}

	entities := &fakeEntityStore{byKind: map[model.EntityKind][]*model.Entity{model.KindConcept: {a, b}}}
	relationships := newFakeRelationshipStore()
	llm := pipeline.NewLLMService(testLogger(), 6000, &fakeLLMProvider{response: `{"same_entity": true, "reason": "n/a"}`})

	r := NewResolverFromStores(testLogger(), entities, relationships, llm)
	stats, err := r.Resolve(context.Background(), a.ProjectID, model.KindConcept)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.AutoMergedDeterministic)
	assert.Empty(t, entities.deleted)
}

func TestLinkCrossPaperSameAsConnectsSurvivorsSharingAName(t *testing.T) {
	projectID := uuid.New()
	a := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindMethod, Name: "transformer"}
	b := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindMethod, Name: "transformer"}
	c := &model.Entity{ID: uuid.New(), ProjectID: projectID, Kind: model.KindMethod, Name: "gradient descent"}

	relationships := newFakeRelationshipStore()
	r := NewResolverFromStores(testLogger(), &fakeEntityStore{}, relationships, nil)

	count, err := r.linkCrossPaperSameAs([]*model.Entity{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, relationships.inserted, 1)
	assert.Equal(t, model.EdgeSameAs, relationships.inserted[0].Type)
}

func TestCanonicalizationRateReflectsMergeRatio(t *testing.T) {
	stats := &Stats{TotalInput: 10, FinalCanonicalCount: 4}
	assert.InDelta(t, 0.6, stats.CanonicalizationRate(), 1e-9)
}
