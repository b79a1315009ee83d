package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litreview/conceptgraph/model"
)

func TestProjectsNewProjectsDBHandler(t *testing.T) {
	db := initDB(t)

	t.Run("valid database", func(t *testing.T) {
		handler, err := NewProjectsDBHandler(db, true)
		require.NoError(t, err)
		require.NotNil(t, handler)
	})

	t.Run("nil database", func(t *testing.T) {
		_, err := NewProjectsDBHandler(nil, false)
		assert.Error(t, err)
	})
}

func TestProjectsInsertAndSelect(t *testing.T) {
	db := initDB(t)
	handler, err := NewProjectsDBHandler(db, true)
	require.NoError(t, err)

	project := &model.Project{Name: "Transfer Learning Survey"}
	err = handler.InsertProject(project)
	require.NoError(t, err)
	assert.NotEqual(t, project.ID.String(), "00000000-0000-0000-0000-000000000000")

	found, err := handler.SelectProject(project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.Name, found.Name)
}

func TestProjectsSelectAllProjects(t *testing.T) {
	db := initDB(t)
	handler, err := NewProjectsDBHandler(db, true)
	require.NoError(t, err)

	require.NoError(t, handler.InsertProject(&model.Project{Name: "Project A"}))
	require.NoError(t, handler.InsertProject(&model.Project{Name: "Project B"}))

	projects, err := handler.SelectAllProjects(10)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(projects), 2)
}

func TestProjectsDeleteProject(t *testing.T) {
	db := initDB(t)
	handler, err := NewProjectsDBHandler(db, true)
	require.NoError(t, err)

	project := &model.Project{Name: "Ephemeral"}
	require.NoError(t, handler.InsertProject(project))

	require.NoError(t, handler.DeleteProject(project.ID))

	_, err = handler.SelectProject(project.ID)
	assert.Error(t, err)
}
