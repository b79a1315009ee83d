package ingest

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/litreview/conceptgraph/core/pipeline"
	"github.com/litreview/conceptgraph/core/resolver"
	"github.com/litreview/conceptgraph/database"
	"github.com/litreview/conceptgraph/helper"
	"github.com/litreview/conceptgraph/model"
)

// paperConcurrency bounds how many papers are chunked/embedded/extracted
// at once within a single ingest run.
const paperConcurrency = 4

// Runner drives one ingest job end to end: it runs the pipeline over
// each paper with a bounded-concurrency wave, then runs entity
// resolution once as a barrier after the wave completes.
type Runner struct {
	pipeline *pipeline.Pipeline
	resolver *resolver.Resolver

	papers        *database.PapersDBHandler
	chunks        *database.ChunksDBHandler
	entities      *database.EntitiesDBHandler
	relationships *database.RelationshipsDBHandler
	jobs          *database.IngestJobsDBHandler

	log *slog.Logger
}

// NewRunner wires a Runner over the ingest pipeline, the resolver, and
// the store handlers it persists results through.
func NewRunner(log *slog.Logger, p *pipeline.Pipeline, r *resolver.Resolver, papers *database.PapersDBHandler, chunks *database.ChunksDBHandler, entities *database.EntitiesDBHandler, relationships *database.RelationshipsDBHandler, jobs *database.IngestJobsDBHandler) *Runner {
	return &Runner{pipeline: p, resolver: r, papers: papers, chunks: chunks, entities: entities, relationships: relationships, jobs: jobs, log: log}
}

// Run processes every paper not already in job.Checkpoint, persists
// chunks/entities/relationships as each paper finishes, then runs
// resolution across every entity kind once the wave is done. A paper
// that fails chunking/embedding is recorded in the reliability summary
// and skipped rather than aborting the whole job.
func (run *Runner) Run(ctx context.Context, writer *ProgressWriter, papers []*model.Paper) error {
	already := map[uuid.UUID]bool{}
	for _, id := range writer.Snapshot().Checkpoint.ProcessedPaperIDs {
		already[id] = true
	}

	pending := make([]*model.Paper, 0, len(papers))
	for _, p := range papers {
		if !already[p.ID] {
			pending = append(pending, p)
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(paperConcurrency)

	for _, paper := range pending {
		paper := paper
		group.Go(func() error {
			return run.processPaper(groupCtx, writer, paper)
		})
	}

	if err := group.Wait(); err != nil {
		writer.Update(func(job *model.IngestJob) {
			job.State = model.IngestInterrupted
			job.Message = err.Error()
		})
		return helper.NewCoded(helper.CodeIngestInterrupted, "ingest run interrupted", err)
	}

	for _, kind := range model.AllEntityKinds() {
		if _, err := run.resolver.Resolve(ctx, papers[0].ProjectID, kind); err != nil {
			run.log.Warn("entity resolution failed for kind", "kind", kind, "error", err)
		}
	}

	writer.Update(func(job *model.IngestJob) {
		job.State = model.IngestCompleted
		job.Progress = 1
	})
	return nil
}

func (run *Runner) processPaper(ctx context.Context, writer *ProgressWriter, paper *model.Paper) error {
	result, err := run.pipeline.Process(ctx, paper)
	if err != nil {
		writer.Update(func(job *model.IngestJob) {
			job.Summary.ExtractionJSONParseFailures++
			job.Message = "paper " + paper.ID.String() + " failed: " + err.Error()
		})
		return nil
	}

	if err := run.papers.InsertPaper(paper); err != nil {
		return helper.NewError("insert paper", err)
	}
	for _, chunk := range result.Chunks {
		if err := run.chunks.InsertChunk(chunk); err != nil {
			return helper.NewError("insert chunk", err)
		}
	}
	for _, entity := range result.Entities {
		if err := run.entities.InsertEntity(entity); err != nil {
			return helper.NewError("insert entity", err)
		}
	}
	for _, rel := range result.Relationships {
		if err := run.relationships.InsertRelationship(rel); err != nil {
			writer.Update(func(job *model.IngestJob) {
				job.Summary.EdgesSkippedMissingEndpoint++
			})
			continue
		}
	}

	writer.Update(func(job *model.IngestJob) {
		job.ProcessedPapers++
		job.Checkpoint.ProcessedPaperIDs = append(job.Checkpoint.ProcessedPaperIDs, paper.ID)
		if job.TotalPapers > 0 {
			job.Progress = float64(job.ProcessedPapers) / float64(job.TotalPapers)
		}
	})
	return nil
}
