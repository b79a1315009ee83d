package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litreview/conceptgraph/model"
)

// normalizeNameForTest mirrors core/resolver.NormalizeName without
// importing that package, which itself imports database and would
// otherwise create an import cycle from this in-package test file.
func normalizeNameForTest(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	lower = strings.Join(strings.Fields(lower), " ")
	lower = strings.ReplaceAll(lower, "-", "")
	lower = strings.ReplaceAll(lower, " ", "")
	return lower
}

func TestEntitiesInsertAndSelect(t *testing.T) {
	db := initDB(t)
	project := insertTestProject(t, db)

	handler, err := NewEntitiesDBHandler(db, true)
	require.NoError(t, err)

	entity := &model.Entity{
		ProjectID:      project.ID,
		Kind:           model.KindConcept,
		Name:           "Fine-Tuning",
		NormalizedName: normalizeNameForTest("Fine-Tuning"),
		Confidence:     0.9,
	}
	require.NoError(t, handler.InsertEntity(entity))

	found, err := handler.SelectEntity(entity.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.Name, found.Name)
	assert.Equal(t, model.KindConcept, found.Kind)
}

func TestEntitiesSelectByNormalizedName(t *testing.T) {
	db := initDB(t)
	project := insertTestProject(t, db)

	handler, err := NewEntitiesDBHandler(db, true)
	require.NoError(t, err)

	entity := &model.Entity{
		ProjectID:      project.ID,
		Kind:           model.KindMethod,
		Name:           "Transfer Learning",
		NormalizedName: normalizeNameForTest("Transfer Learning"),
	}
	require.NoError(t, handler.InsertEntity(entity))

	found, err := handler.SelectEntityByNormalizedName(project.ID, model.KindMethod, normalizeNameForTest("transfer  learning"))
	require.NoError(t, err)
	assert.Equal(t, entity.ID, found.ID)
}

func TestEntitiesSelectByKindAndProject(t *testing.T) {
	db := initDB(t)
	project := insertTestProject(t, db)

	handler, err := NewEntitiesDBHandler(db, true)
	require.NoError(t, err)

	require.NoError(t, handler.InsertEntity(&model.Entity{
		ProjectID: project.ID, Kind: model.KindConcept, Name: "Concept A", NormalizedName: "concept a",
	}))
	require.NoError(t, handler.InsertEntity(&model.Entity{
		ProjectID: project.ID, Kind: model.KindMethod, Name: "Method A", NormalizedName: "method a",
	}))

	concepts, err := handler.SelectEntitiesByKind(project.ID, model.KindConcept, 10)
	require.NoError(t, err)
	assert.Len(t, concepts, 1)

	all, err := handler.SelectEntitiesByProject(project.ID, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEntitiesUpdateMergeAndCluster(t *testing.T) {
	db := initDB(t)
	project := insertTestProject(t, db)

	handler, err := NewEntitiesDBHandler(db, true)
	require.NoError(t, err)

	entity := &model.Entity{
		ProjectID: project.ID, Kind: model.KindConcept, Name: "Attention", NormalizedName: "attention",
	}
	require.NoError(t, handler.InsertEntity(entity))

	entity.Aliases = []string{"attention mechanism"}
	require.NoError(t, handler.UpdateEntityMerge(entity))

	found, err := handler.SelectEntity(entity.ID)
	require.NoError(t, err)
	assert.Contains(t, found.Aliases, "attention mechanism")

	require.NoError(t, handler.UpdateEntityCentrality(entity.ID, 0.5, 0.25, 0.1))
	clusterID := project.ID
	require.NoError(t, handler.UpdateEntityCluster(entity.ID, &clusterID))

	found, err = handler.SelectEntity(entity.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.5, found.DegreeCentrality)
	require.NotNil(t, found.ClusterID)
	assert.Equal(t, clusterID, *found.ClusterID)
}

func TestEntitiesDeleteEntity(t *testing.T) {
	db := initDB(t)
	project := insertTestProject(t, db)

	handler, err := NewEntitiesDBHandler(db, true)
	require.NoError(t, err)

	entity := &model.Entity{ProjectID: project.ID, Kind: model.KindConcept, Name: "Temp", NormalizedName: "temp"}
	require.NoError(t, handler.InsertEntity(entity))
	require.NoError(t, handler.DeleteEntity(entity.ID))

	_, err = handler.SelectEntity(entity.ID)
	assert.Error(t, err)
}
