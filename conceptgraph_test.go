package conceptgraph

import (
	"context"
	"io"
	"log"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/litreview/conceptgraph/core/pipeline"
	"github.com/litreview/conceptgraph/helper"
	"github.com/litreview/conceptgraph/model"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container")
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	return Config{
		Database:     *dbConfig,
		EmbeddingDim: 4,
		ForceReload:  true,
		Pipeline: pipeline.Config{
			// A provider with no reachable network endpoint is enough to
			// build the engine without NewLocalEmbedder's model download.
			EmbeddingProviders: []pipeline.ProviderConfig{{Name: "openai", APIKey: "test", Model: "text-embedding-3-small"}},
			LLMProviders:       []pipeline.ProviderConfig{{Name: "openai", APIKey: "test", Model: "gpt-4o-mini"}},
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewBuildsEngine(t *testing.T) {
	engine, err := New(context.Background(), testLogger(), testConfig(t))
	require.NoError(t, err)
	require.NotNil(t, engine)
}

func TestGetVisualizationOrdersAndCaps(t *testing.T) {
	engine, err := New(context.Background(), testLogger(), testConfig(t))
	require.NoError(t, err)

	project := &model.Project{Name: "Visualization Project"}
	require.NoError(t, engine.projects.InsertProject(project))

	paper := &model.Entity{ProjectID: project.ID, Kind: model.KindPaper, Name: "Some Paper", NormalizedName: "some paper"}
	concept := &model.Entity{ProjectID: project.ID, Kind: model.KindConcept, Name: "Attention", NormalizedName: "attention"}
	require.NoError(t, engine.entities.InsertEntity(paper))
	require.NoError(t, engine.entities.InsertEntity(concept))

	rel := &model.Relationship{ProjectID: project.ID, SourceID: concept.ID, TargetID: paper.ID, Type: model.EdgeMentions}
	require.NoError(t, engine.relationships.InsertRelationship(rel))

	viz, err := engine.GetVisualization(project.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, viz.Nodes, 1)
	assert.Equal(t, model.KindConcept, viz.Nodes[0].Kind)
	assert.Empty(t, viz.Edges) // paper endpoint was trimmed, so the edge can't survive
}

func TestGetCrossPaperLinksFiltersSameAs(t *testing.T) {
	engine, err := New(context.Background(), testLogger(), testConfig(t))
	require.NoError(t, err)

	project := &model.Project{Name: "Cross Paper Project"}
	require.NoError(t, engine.projects.InsertProject(project))

	a := &model.Entity{ProjectID: project.ID, Kind: model.KindConcept, Name: "A", NormalizedName: "a"}
	b := &model.Entity{ProjectID: project.ID, Kind: model.KindConcept, Name: "B", NormalizedName: "b"}
	require.NoError(t, engine.entities.InsertEntity(a))
	require.NoError(t, engine.entities.InsertEntity(b))

	sameAs := &model.Relationship{ProjectID: project.ID, SourceID: a.ID, TargetID: b.ID, Type: model.EdgeSameAs}
	cooccurs := &model.Relationship{ProjectID: project.ID, SourceID: a.ID, TargetID: b.ID, Type: model.EdgeCoOccurs}
	require.NoError(t, engine.relationships.InsertRelationship(sameAs))
	require.NoError(t, engine.relationships.InsertRelationship(cooccurs))

	links, err := engine.GetCrossPaperLinks(project.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, model.EdgeSameAs, links[0].Type)
}

func TestRecomputeGapsRebuildsClusters(t *testing.T) {
	engine, err := New(context.Background(), testLogger(), testConfig(t))
	require.NoError(t, err)

	project := &model.Project{Name: "Gap Project"}
	require.NoError(t, engine.projects.InsertProject(project))

	a := &model.Entity{ProjectID: project.ID, Kind: model.KindConcept, Name: "A", NormalizedName: "a"}
	b := &model.Entity{ProjectID: project.ID, Kind: model.KindConcept, Name: "B", NormalizedName: "b"}
	require.NoError(t, engine.entities.InsertEntity(a))
	require.NoError(t, engine.entities.InsertEntity(b))

	rel := &model.Relationship{ProjectID: project.ID, SourceID: a.ID, TargetID: b.ID, Type: model.EdgeCoOccurs}
	require.NoError(t, engine.relationships.InsertRelationship(rel))

	_, err = engine.RecomputeGaps(context.Background(), project.ID)
	require.NoError(t, err)

	clusters, err := engine.clusters.SelectClustersByProject(project.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, clusters)
}

func TestGetEntityAndRelationshipNotFound(t *testing.T) {
	engine, err := New(context.Background(), testLogger(), testConfig(t))
	require.NoError(t, err)

	_, err = engine.GetEntity(uuid.New())
	assert.Error(t, err)

	_, err = engine.GetRelationship(uuid.New())
	assert.Error(t, err)
}
