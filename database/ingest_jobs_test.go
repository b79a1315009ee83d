package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
	"github.com/litreview/conceptgraph/model"
)

func TestIngestJobsInsertAndSelect(t *testing.T) {
	db := initDB(t)
	project := insertTestProject(t, db)

	handler, err := NewIngestJobsDBHandler(db, true)
	require.NoError(t, err)

	job, err := handler.InsertIngestJob(project.ID, 12)
	require.NoError(t, err)
	assert.Equal(t, model.IngestPending, job.State)
	assert.Equal(t, 12, job.TotalPapers)

	found, err := handler.SelectIngestJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ProjectID, found.ProjectID)
}

func TestIngestJobsUpdateProgress(t *testing.T) {
	db := initDB(t)
	project := insertTestProject(t, db)

	handler, err := NewIngestJobsDBHandler(db, true)
	require.NoError(t, err)

	job, err := handler.InsertIngestJob(project.ID, 4)
	require.NoError(t, err)

	job.State = model.IngestRunning
	job.ProcessedPapers = 2
	job.Progress = 0.5
	job.Checkpoint = model.IngestCheckpoint{ProcessedPaperIDs: []uuid.UUID{uuid.New(), uuid.New()}}
	job.Summary = model.ReliabilitySummary{ExtractionJSONParseFailures: 1}
	require.NoError(t, handler.UpdateIngestJobProgress(job))

	found, err := handler.SelectIngestJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IngestRunning, found.State)
	assert.Equal(t, 2, found.ProcessedPapers)
	assert.Len(t, found.Checkpoint.ProcessedPaperIDs, 2)
	assert.Equal(t, 1, found.Summary.ExtractionJSONParseFailures)
}

func TestIngestJobsDelete(t *testing.T) {
	db := initDB(t)
	project := insertTestProject(t, db)

	handler, err := NewIngestJobsDBHandler(db, true)
	require.NoError(t, err)

	job, err := handler.InsertIngestJob(project.ID, 1)
	require.NoError(t, err)

	require.NoError(t, handler.DeleteIngestJob(job.ID))
	_, err = handler.SelectIngestJob(job.ID)
	assert.Error(t, err)
}
