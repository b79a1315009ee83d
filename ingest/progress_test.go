package ingest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/litreview/conceptgraph/model"
)

func newTestWriter(job *model.IngestJob) *ProgressWriter {
	return &ProgressWriter{job: job}
}

func TestProgressWriterUpdateMutatesJobAndMarksDirty(t *testing.T) {
	job := &model.IngestJob{ID: uuid.New(), TotalPapers: 4}
	w := newTestWriter(job)

	w.Update(func(j *model.IngestJob) {
		j.ProcessedPapers = 1
		j.Progress = 0.25
	})

	assert.True(t, w.dirty)
	assert.Equal(t, 1, w.job.ProcessedPapers)
}

func TestProgressWriterSnapshotReturnsCopyNotPointer(t *testing.T) {
	job := &model.IngestJob{ID: uuid.New()}
	w := newTestWriter(job)

	snapshot := w.Snapshot()
	snapshot.ProcessedPapers = 99

	assert.Equal(t, 0, w.job.ProcessedPapers)
}

func TestProgressWriterFlushSkipsWhenNotDirty(t *testing.T) {
	job := &model.IngestJob{ID: uuid.New()}
	w := newTestWriter(job)

	assert.False(t, w.dirty)
	w.flush()
}
