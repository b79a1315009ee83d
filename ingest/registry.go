package ingest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/database"
	"github.com/litreview/conceptgraph/helper"
	"github.com/litreview/conceptgraph/model"
)

// Registry is the in-memory, mutex-guarded map of running ingest jobs;
// it is the single place that knows which jobs are
// live, letting GetIngestStatus read fast in-memory state instead of
// round-tripping to Postgres on every poll.
type Registry struct {
	runner *Runner
	jobs   *database.IngestJobsDBHandler
	log    *slog.Logger

	mu      sync.Mutex
	writers map[uuid.UUID]*ProgressWriter
	cancels map[uuid.UUID]context.CancelFunc
}

// NewRegistry builds an empty Registry over the given Runner.
func NewRegistry(log *slog.Logger, runner *Runner, jobs *database.IngestJobsDBHandler) *Registry {
	return &Registry{
		runner:  runner,
		jobs:    jobs,
		log:     log,
		writers: map[uuid.UUID]*ProgressWriter{},
		cancels: map[uuid.UUID]context.CancelFunc{},
	}
}

// StartIngest creates an ingest job row, registers it, and launches the
// runner in a background goroutine. It returns immediately with the
// job's id; progress is polled via Status.
func (reg *Registry) StartIngest(ctx context.Context, projectID uuid.UUID, papers []*model.Paper) (*model.IngestJob, error) {
	job, err := reg.jobs.InsertIngestJob(projectID, len(papers))
	if err != nil {
		return nil, helper.NewError("insert ingest job", err)
	}
	job.State = model.IngestRunning

	reg.launch(job, papers)
	return job, nil
}

// ResumeIngest re-launches a previously interrupted job from its last
// checkpoint: papers already recorded in Checkpoint.ProcessedPaperIDs
// are skipped by Runner.Run.
func (reg *Registry) ResumeIngest(ctx context.Context, jobID uuid.UUID, papers []*model.Paper) (*model.IngestJob, error) {
	job, err := reg.jobs.SelectIngestJob(jobID)
	if err != nil {
		return nil, helper.NewError("select ingest job", err)
	}
	if job.State == model.IngestRunning {
		return job, nil
	}
	job.State = model.IngestRunning

	reg.launch(job, papers)
	return job, nil
}

func (reg *Registry) launch(job *model.IngestJob, papers []*model.Paper) {
	writer := NewProgressWriter(reg.log, reg.jobs, job)
	runCtx, cancel := context.WithCancel(context.Background())

	reg.mu.Lock()
	reg.writers[job.ID] = writer
	reg.cancels[job.ID] = cancel
	reg.mu.Unlock()

	go func() {
		defer cancel()
		defer func() { writer.Stop(context.Background()) }()
		if err := reg.runner.Run(runCtx, writer, papers); err != nil {
			reg.log.Error("ingest run failed", "job_id", job.ID, "error", err)
		}
		reg.mu.Lock()
		delete(reg.writers, job.ID)
		delete(reg.cancels, job.ID)
		reg.mu.Unlock()
	}()
}

// Status returns the job's current state: in-memory if still running,
// otherwise the last-persisted row from Postgres.
func (reg *Registry) Status(jobID uuid.UUID) (*model.IngestJob, error) {
	reg.mu.Lock()
	writer, live := reg.writers[jobID]
	reg.mu.Unlock()

	if live {
		snapshot := writer.Snapshot()
		return &snapshot, nil
	}

	job, err := reg.jobs.SelectIngestJob(jobID)
	if err != nil {
		return nil, helper.NewError("select ingest job", err)
	}
	return job, nil
}

// Cancel requests the running job stop at its next checkpoint boundary.
// A job not currently running is a no-op.
func (reg *Registry) Cancel(jobID uuid.UUID) {
	reg.mu.Lock()
	cancel, ok := reg.cancels[jobID]
	reg.mu.Unlock()
	if ok {
		cancel()
	}
}
