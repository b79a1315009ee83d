// Package conceptgraph is the top-level facade over the concept-graph
// literature review engine: ingestion, entity resolution, structural gap
// detection, and the question-answering orchestrator, wired over one
// Postgres+pgvector connection.
package conceptgraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/core/gaps"
	"github.com/litreview/conceptgraph/core/orchestrator"
	"github.com/litreview/conceptgraph/core/pipeline"
	"github.com/litreview/conceptgraph/core/resolver"
	"github.com/litreview/conceptgraph/core/retrieval"
	"github.com/litreview/conceptgraph/database"
	"github.com/litreview/conceptgraph/helper"
	"github.com/litreview/conceptgraph/ingest"
	"github.com/litreview/conceptgraph/model"
	loadsql "github.com/litreview/conceptgraph/sql"
)

// Config is the plain struct a caller populates to build an Engine
// rather than a flag/env-driven loader.
type Config struct {
	Database     helper.DatabaseConfiguration
	Pipeline     pipeline.Config
	EmbeddingDim int
	ForceReload  bool
}

// Engine is the facade every external caller (HTTP handler, CLI, test)
// talks to. Construct one with New and keep it for the process lifetime.
type Engine struct {
	log *slog.Logger
	db  *helper.Database

	projects      *database.ProjectsDBHandler
	papers        *database.PapersDBHandler
	chunks        *database.ChunksDBHandler
	entities      *database.EntitiesDBHandler
	relationships *database.RelationshipsDBHandler
	clusters      *database.ClustersDBHandler
	gapsTable     *database.GapsDBHandler
	jobs          *database.IngestJobsDBHandler

	embedder *pipeline.EmbeddingService
	llm      *pipeline.LLMService

	resolver     *resolver.Resolver
	detector     *gaps.Detector
	retrievalEng *retrieval.Engine
	queryEngine  *retrieval.QueryEngine
	evidence     *retrieval.EvidenceCascade
	orchestrator *orchestrator.Orchestrator
	ingestReg    *ingest.Registry
}

// New wires every layer of the engine over one database connection.
// A broken database connection or schema load aborts construction.
func New(ctx context.Context, log *slog.Logger, cfg Config) (*Engine, error) {
	db := helper.NewDatabase("conceptgraph", &cfg.Database, log)
	if err := loadsql.Init(db.Instance); err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	projects, err := database.NewProjectsDBHandler(db, cfg.ForceReload)
	if err != nil {
		return nil, helper.NewError("build projects handler", err)
	}
	papers, err := database.NewPapersDBHandler(db, cfg.ForceReload)
	if err != nil {
		return nil, helper.NewError("build papers handler", err)
	}
	chunks, err := database.NewChunksDBHandler(db, cfg.EmbeddingDim, cfg.ForceReload)
	if err != nil {
		return nil, helper.NewError("build chunks handler", err)
	}
	entities, err := database.NewEntitiesDBHandler(db, cfg.ForceReload)
	if err != nil {
		return nil, helper.NewError("build entities handler", err)
	}
	relationships, err := database.NewRelationshipsDBHandler(db, cfg.ForceReload)
	if err != nil {
		return nil, helper.NewError("build relationships handler", err)
	}
	clusters, err := database.NewClustersDBHandler(db, cfg.ForceReload)
	if err != nil {
		return nil, helper.NewError("build clusters handler", err)
	}
	gapsTable, err := database.NewGapsDBHandler(db, cfg.ForceReload)
	if err != nil {
		return nil, helper.NewError("build gaps handler", err)
	}
	jobs, err := database.NewIngestJobsDBHandler(db, cfg.ForceReload)
	if err != nil {
		return nil, helper.NewError("build ingest jobs handler", err)
	}

	embedder, err := pipeline.BuildEmbeddingService(log, cfg.Pipeline)
	if err != nil {
		return nil, helper.NewError("build embedding service", err)
	}
	llm := pipeline.BuildLLMService(ctx, log, cfg.Pipeline)

	extractor := pipeline.NewExtractor(llm)
	proc := pipeline.NewPipeline(log, embedder, extractor)
	proc.EnableLexicalGraph = cfg.Pipeline.EnableLexicalGraph

	entityResolver := resolver.NewResolver(log, entities, relationships, llm)
	detector := gaps.NewDetector(log, entities, relationships, clusters, gapsTable, llm)

	retrievalEng := retrieval.NewEngine(chunks, relationships, entities)
	queryEngine := retrieval.NewQueryEngine(retrievalEng, entities, embedder, llm)
	evidence := retrieval.NewEvidenceCascade(relationships, entities, chunks, llm)

	executor := orchestrator.NewExecutor(queryEngine, entities, detector)
	orch := orchestrator.New(log, llm, embedder, entities, executor)

	runner := ingest.NewRunner(log, proc, entityResolver, papers, chunks, entities, relationships, jobs)
	registry := ingest.NewRegistry(log, runner, jobs)

	return &Engine{
		log:           log,
		db:            db,
		projects:      projects,
		papers:        papers,
		chunks:        chunks,
		entities:      entities,
		relationships: relationships,
		clusters:      clusters,
		gapsTable:     gapsTable,
		jobs:          jobs,
		embedder:      embedder,
		llm:           llm,
		resolver:      entityResolver,
		detector:      detector,
		retrievalEng:  retrievalEng,
		queryEngine:   queryEngine,
		evidence:      evidence,
		orchestrator:  orch,
		ingestReg:     registry,
	}, nil
}

// StartIngest registers a new ingest job for the given papers and
// launches it in the background; it returns immediately with the job.
func (e *Engine) StartIngest(ctx context.Context, projectID uuid.UUID, papers []*model.Paper) (*model.IngestJob, error) {
	return e.ingestReg.StartIngest(ctx, projectID, papers)
}

// GetIngestStatus reports a job's current state and reliability summary.
func (e *Engine) GetIngestStatus(jobID uuid.UUID) (*model.IngestJob, error) {
	return e.ingestReg.Status(jobID)
}

// ResumeIngest relaunches an interrupted job, skipping papers already in
// its checkpoint.
func (e *Engine) ResumeIngest(ctx context.Context, jobID uuid.UUID, papers []*model.Paper) (*model.IngestJob, error) {
	return e.ingestReg.ResumeIngest(ctx, jobID, papers)
}

// Query answers a natural-language question grounded in the project's
// concept graph via the six-stage orchestrator.
func (e *Engine) Query(ctx context.Context, conversationID, projectID uuid.UUID, text string, config *model.QueryConfig) orchestrator.Response {
	return e.orchestrator.Answer(ctx, conversationID, projectID, text, config)
}

// Visualization is the trimmed node/edge/cluster set get_visualization
// returns, capped at maxNodes/maxEdges with Concept/Method/Finding kept
// over Paper/Author when trimming is necessary.
type Visualization struct {
	Nodes    []*model.Entity       `json:"nodes"`
	Edges    []*model.Relationship `json:"edges"`
	Clusters []*model.Cluster      `json:"clusters"`
}

var visualizationPriorityKinds = map[model.EntityKind]int{
	model.KindConcept: 0,
	model.KindMethod:  0,
	model.KindFinding: 0,
}

const (
	defaultMaxVisualizationNodes = 1000
	defaultMaxVisualizationEdges = 15000
)

// GetVisualization returns the capped subgraph for rendering: entities
// ordered so Concept/Method/Finding survive trimming before Paper/Author,
// their connecting relationships (also capped), and the project's
// clusters.
func (e *Engine) GetVisualization(projectID uuid.UUID, maxNodes, maxEdges int) (*Visualization, error) {
	if maxNodes <= 0 {
		maxNodes = defaultMaxVisualizationNodes
	}
	if maxEdges <= 0 {
		maxEdges = defaultMaxVisualizationEdges
	}

	entities, err := e.entities.SelectEntitiesByProject(projectID, 0)
	if err != nil {
		return nil, helper.NewError("select entities for visualization", err)
	}
	orderVisualizationEntities(entities)
	if len(entities) > maxNodes {
		entities = entities[:maxNodes]
	}

	keep := make(map[uuid.UUID]bool, len(entities))
	for _, entity := range entities {
		keep[entity.ID] = true
	}

	relationships, err := e.relationships.SelectRelationshipsByProject(projectID)
	if err != nil {
		return nil, helper.NewError("select relationships for visualization", err)
	}
	var edges []*model.Relationship
	for _, rel := range relationships {
		if keep[rel.SourceID] && keep[rel.TargetID] {
			edges = append(edges, rel)
		}
		if len(edges) >= maxEdges {
			break
		}
	}

	clusters, err := e.clusters.SelectClustersByProject(projectID)
	if err != nil {
		return nil, helper.NewError("select clusters for visualization", err)
	}

	return &Visualization{Nodes: entities, Edges: edges, Clusters: clusters}, nil
}

// orderVisualizationEntities stable-sorts entities so Concept/Method/
// Finding precede every other kind, to survive a node-count trim first.
func orderVisualizationEntities(entities []*model.Entity) {
	priority := func(kind model.EntityKind) int {
		if p, ok := visualizationPriorityKinds[kind]; ok {
			return p
		}
		return 1
	}
	for i := 1; i < len(entities); i++ {
		for j := i; j > 0 && priority(entities[j].Kind) < priority(entities[j-1].Kind); j-- {
			entities[j], entities[j-1] = entities[j-1], entities[j]
		}
	}
}

// GetEntity looks up a single entity by id.
func (e *Engine) GetEntity(id uuid.UUID) (*model.Entity, error) {
	return e.entities.SelectEntity(id)
}

// GetRelationship looks up a single relationship by id.
func (e *Engine) GetRelationship(id uuid.UUID) (*model.Relationship, error) {
	return e.relationships.SelectRelationship(id)
}

// GetEvidence resolves the ranked supporting chunks for a relationship
// via the four-tier evidence cascade.
func (e *Engine) GetEvidence(ctx context.Context, relationshipID uuid.UUID) (*retrieval.Evidence, error) {
	return e.evidence.ForRelationship(ctx, relationshipID)
}

// GetGaps returns a project's structural gaps at least as strong as
// minStrength. gap_strength is lower-is-stronger, so this keeps gaps
// with gap_strength <= minStrength.
func (e *Engine) GetGaps(projectID uuid.UUID, minStrength float64) ([]*model.Gap, error) {
	return e.gapsTable.SelectGapsByProject(projectID, minStrength)
}

// RecomputeGaps rebuilds clusters from the current entity/relationship
// graph, persists them, and reruns gap detection, returning the fresh
// gap set.
func (e *Engine) RecomputeGaps(ctx context.Context, projectID uuid.UUID) ([]*model.Gap, error) {
	entities, err := e.entities.SelectEntitiesByProject(projectID, 0)
	if err != nil {
		return nil, helper.NewError("select entities for clustering", err)
	}
	relationships, err := e.relationships.SelectRelationshipsByProject(projectID)
	if err != nil {
		return nil, helper.NewError("select relationships for clustering", err)
	}

	if err := e.clusters.DeleteClustersByProject(projectID); err != nil {
		return nil, helper.NewError("clear stale clusters", err)
	}
	for _, cluster := range gaps.BuildClusters(projectID, entities, relationships) {
		if err := e.clusters.InsertCluster(cluster); err != nil {
			return nil, helper.NewError("insert cluster", err)
		}
	}

	return e.detector.DetectGaps(ctx, projectID)
}

// BridgeHypothesis is one candidate ghost edge proposed between a
// structural gap's two clusters, for generate_bridge's response.
type BridgeHypothesis struct {
	SourceID   uuid.UUID `json:"source_id"`
	TargetID   uuid.UUID `json:"target_id"`
	Similarity float64   `json:"similarity"`
}

// GenerateBridge derives ghost-edge bridge hypotheses for a gap by
// pairing its ranked bridge candidates and scoring each pair's embedding
// similarity, then marks the gap explored.
func (e *Engine) GenerateBridge(gapID uuid.UUID) ([]BridgeHypothesis, error) {
	gap, err := e.gapsTable.SelectGap(gapID)
	if err != nil {
		return nil, helper.NewError("select gap", err)
	}

	var hypotheses []BridgeHypothesis
	for i := 0; i < len(gap.BridgeCandidates); i++ {
		for j := i + 1; j < len(gap.BridgeCandidates); j++ {
			a, errA := e.entities.SelectEntity(gap.BridgeCandidates[i].EntityID)
			b, errB := e.entities.SelectEntity(gap.BridgeCandidates[j].EntityID)
			if errA != nil || errB != nil {
				continue
			}
			similarity := pipeline.CosineSimilarity(a.Embedding, b.Embedding)
			hypotheses = append(hypotheses, BridgeHypothesis{SourceID: a.ID, TargetID: b.ID, Similarity: float64(similarity)})
		}
	}

	if err := e.gapsTable.UpdateGapStatus(gapID, model.GapExplored); err != nil {
		e.log.Warn("failed to mark gap explored", "gap_id", gapID, "error", err)
	}

	return hypotheses, nil
}

// GetCrossPaperLinks returns every SAME_AS relationship in a project:
// the identity edges the resolver's cross-paper linking stage creates
// without merging the underlying entities.
func (e *Engine) GetCrossPaperLinks(projectID uuid.UUID) ([]*model.Relationship, error) {
	relationships, err := e.relationships.SelectRelationshipsByProject(projectID)
	if err != nil {
		return nil, helper.NewError("select relationships for cross-paper links", err)
	}

	var sameAs []*model.Relationship
	for _, rel := range relationships {
		if rel.Type == model.EdgeSameAs {
			sameAs = append(sameAs, rel)
		}
	}
	return sameAs, nil
}
