package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/helper"
	"github.com/litreview/conceptgraph/model"
	sqlload "github.com/litreview/conceptgraph/sql"
)

// IngestJobsDBHandlerFunctions defines the interface for IngestJobs database operations.
type IngestJobsDBHandlerFunctions interface {
	InsertIngestJob(projectID uuid.UUID, totalPapers int) (*model.IngestJob, error)
	SelectIngestJob(id uuid.UUID) (*model.IngestJob, error)
	UpdateIngestJobProgress(job *model.IngestJob) error
	DeleteIngestJob(id uuid.UUID) error
}

// IngestJobsDBHandler handles ingest-job-related database operations.
type IngestJobsDBHandler struct {
	db *helper.Database
}

// NewIngestJobsDBHandler creates a new ingest jobs database handler.
func NewIngestJobsDBHandler(db *helper.Database, force bool) (*IngestJobsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	h := &IngestJobsDBHandler{db: db}

	if err := sqlload.LoadIngestJobsSql(h.db.Instance, force); err != nil {
		return nil, helper.NewError("load ingest jobs sql", err)
	}

	if err := h.CreateTable(); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized IngestJobsDBHandler")

	return h, nil
}

// CreateTable creates the 'ingest_jobs' table if missing.
func (h *IngestJobsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_ingest_jobs();`)
	if err != nil {
		log.Panicf("error initializing ingest_jobs table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table ingest_jobs")

	return nil
}

func scanIngestJob(row rowScanner, job *model.IngestJob) error {
	var checkpoint, summary []byte
	err := row.Scan(
		&job.ID,
		&job.ProjectID,
		&job.State,
		&job.Progress,
		&job.Message,
		&job.TotalPapers,
		&job.ProcessedPapers,
		&checkpoint,
		&summary,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if len(checkpoint) > 0 {
		if err := json.Unmarshal(checkpoint, &job.Checkpoint); err != nil {
			return helper.NewError("unmarshal checkpoint", err)
		}
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &job.Summary); err != nil {
			return helper.NewError("unmarshal reliability summary", err)
		}
	}

	return nil
}

// InsertIngestJob creates a new ingest job in the pending state.
func (h *IngestJobsDBHandler) InsertIngestJob(projectID uuid.UUID, totalPapers int) (*model.IngestJob, error) {
	row := h.db.Instance.QueryRow(`SELECT * FROM insert_ingest_job($1, $2)`, projectID, totalPapers)

	job := &model.IngestJob{}
	if err := scanIngestJob(row, job); err != nil {
		return nil, helper.NewError("scan", err)
	}

	return job, nil
}

// SelectIngestJob retrieves an ingest job by ID.
func (h *IngestJobsDBHandler) SelectIngestJob(id uuid.UUID) (*model.IngestJob, error) {
	job := &model.IngestJob{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_ingest_job($1)`, id)

	if err := scanIngestJob(row, job); err != nil {
		return nil, helper.NewError("scan", err)
	}

	return job, nil
}

// UpdateIngestJobProgress persists a job's current state, progress,
// checkpoint, and reliability summary.
func (h *IngestJobsDBHandler) UpdateIngestJobProgress(job *model.IngestJob) error {
	checkpoint, err := json.Marshal(job.Checkpoint)
	if err != nil {
		return helper.NewError("marshal checkpoint", err)
	}
	summary, err := json.Marshal(job.Summary)
	if err != nil {
		return helper.NewError("marshal reliability summary", err)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_ingest_job_progress($1, $2, $3, $4, $5, $6, $7)`,
		job.ID,
		job.State,
		job.Progress,
		job.Message,
		job.ProcessedPapers,
		checkpoint,
		summary,
	)

	if err := scanIngestJob(row, job); err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteIngestJob deletes an ingest job by ID.
func (h *IngestJobsDBHandler) DeleteIngestJob(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT delete_ingest_job($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
