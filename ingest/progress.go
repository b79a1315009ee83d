package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/litreview/conceptgraph/database"
	"github.com/litreview/conceptgraph/model"
)

// coalescingInterval bounds how often ProgressWriter flushes to Postgres:
// many papers can finish within the same tick, so writes are coalesced
// into one UPDATE per interval rather than one per paper.
const coalescingInterval = 500 * time.Millisecond

// ProgressWriter is the single writer goroutine for one job's progress
// row, generalizing the single-transaction-per-mutation discipline of
// database/*.go's one-statement-per-call handlers to a batched
// background writer: callers push state under a mutex and a
// ticker periodically flushes the latest snapshot, so a fast ingest loop
// never blocks on a database round trip per paper.
type ProgressWriter struct {
	jobs *database.IngestJobsDBHandler
	log  *slog.Logger

	mu      sync.Mutex
	job     *model.IngestJob
	dirty   bool
	stopped chan struct{}
	done    chan struct{}
}

// NewProgressWriter starts the background flush loop for job and returns
// the writer. Call Stop to flush one final time and shut the loop down.
func NewProgressWriter(log *slog.Logger, jobs *database.IngestJobsDBHandler, job *model.IngestJob) *ProgressWriter {
	w := &ProgressWriter{
		jobs:    jobs,
		log:     log,
		job:     job,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *ProgressWriter) run() {
	defer close(w.done)
	ticker := time.NewTicker(coalescingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush()
		case <-w.stopped:
			w.flush()
			return
		}
	}
}

// Update records a new snapshot of the job's progress. The write to
// Postgres happens on the next tick, not synchronously.
func (w *ProgressWriter) Update(mutate func(job *model.IngestJob)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	mutate(w.job)
	w.job.UpdatedAt = time.Now()
	w.dirty = true
}

// Snapshot returns a copy of the job's current in-memory state.
func (w *ProgressWriter) Snapshot() model.IngestJob {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.job
}

func (w *ProgressWriter) flush() {
	w.mu.Lock()
	if !w.dirty {
		w.mu.Unlock()
		return
	}
	job := *w.job
	w.dirty = false
	w.mu.Unlock()

	if err := w.jobs.UpdateIngestJobProgress(&job); err != nil {
		w.log.Warn("ingest progress flush failed", "job_id", job.ID, "error", err)
	}
}

// Stop flushes any pending update and waits for the writer goroutine to
// exit.
func (w *ProgressWriter) Stop(ctx context.Context) {
	close(w.stopped)
	select {
	case <-w.done:
	case <-ctx.Done():
	}
}
