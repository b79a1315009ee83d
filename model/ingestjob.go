package model

import (
	"time"

	"github.com/google/uuid"
)

// IngestState tracks a single ingest job through its lifecycle.
type IngestState string

const (
	IngestPending     IngestState = "pending"
	IngestRunning     IngestState = "running"
	IngestCompleted   IngestState = "completed"
	IngestFailed      IngestState = "failed"
	IngestInterrupted IngestState = "interrupted"
)

// IngestCheckpoint is the resumable progress marker for a job: the set of
// paper ids already fully processed, so ResumeIngest can skip them.
type IngestCheckpoint struct {
	ProcessedPaperIDs []uuid.UUID `json:"processed_paper_ids"`
}

// ReliabilitySummary accumulates the soft-failure counters a job produces
// without aborting: per-paper extraction failures, dropped edges,
// declined resolver merges, and similar recoverable anomalies.
type ReliabilitySummary struct {
	ExtractionJSONParseFailures int `json:"extraction_json_parse_failures"`
	EdgesSkippedMissingEndpoint int `json:"edges_skipped_missing_endpoint"`
	UnknownEntityKindsDropped   int `json:"unknown_entity_kinds_dropped"`
	ResolverDeclinedMerges      int `json:"resolver_declined_merges"`
}

// IngestJob tracks one StartIngest call across its papers.
type IngestJob struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`

	State    IngestState `json:"state"`
	Progress float64     `json:"progress"`
	Message  string      `json:"message,omitempty"`

	TotalPapers     int `json:"total_papers"`
	ProcessedPapers int `json:"processed_papers"`

	Checkpoint IngestCheckpoint   `json:"checkpoint"`
	Summary    ReliabilitySummary `json:"reliability_summary"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
