package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/litreview/conceptgraph/helper"
	"github.com/litreview/conceptgraph/model"
	sqlload "github.com/litreview/conceptgraph/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(entity *model.Entity) error
	SelectEntity(id uuid.UUID) (*model.Entity, error)
	SelectEntityByNormalizedName(projectID uuid.UUID, kind model.EntityKind, normalizedName string) (*model.Entity, error)
	SelectEntitiesBySearch(projectID uuid.UUID, searchTerm string, limit int) ([]*model.Entity, error)
	SelectEntitiesByKind(projectID uuid.UUID, kind model.EntityKind, limit int) ([]*model.Entity, error)
	SelectEntitiesByProject(projectID uuid.UUID, limit int) ([]*model.Entity, error)
	SelectEntitiesBySimilarity(projectID uuid.UUID, kind model.EntityKind, embedding []float32, limit int) ([]*model.Entity, []float64, error)
	SelectEntitiesWithoutCluster(projectID uuid.UUID) ([]*model.Entity, error)
	DeleteEntity(id uuid.UUID) error
	UpdateEntityMerge(entity *model.Entity) error
	UpdateEntityCentrality(id uuid.UUID, degree, betweenness, pagerank float64) error
	UpdateEntityCluster(id uuid.UUID, clusterID *uuid.UUID) error
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler. It loads
// entity-related SQL functions and the entities table, reloading the SQL
// even if already present when force is true.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	h := &EntitiesDBHandler{db: db}

	if err := sqlload.LoadEntitiesSql(h.db.Instance, force); err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	if err := h.CreateTable(); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return h, nil
}

// CreateTable creates the 'entities' table and its indexes if missing.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

func scanEntity(row rowScanner, entity *model.Entity) error {
	var embedding pgvector.Vector
	var embeddingNull bool
	err := row.Scan(
		&entity.ID,
		&entity.ProjectID,
		&entity.Kind,
		&entity.Name,
		&entity.NormalizedName,
		pq.Array(&entity.Aliases),
		&entity.Properties,
		scanVectorOrNull(&embedding, &embeddingNull),
		&entity.DegreeCentrality,
		&entity.BetweennessCentrality,
		&entity.PageRank,
		&entity.ClusterID,
		&entity.Visualized,
		&entity.FirstSeenYear,
		&entity.LastSeenYear,
		&entity.ExtractionSection,
		&entity.EvidenceSpans,
		pq.Array(&entity.SourceChunkIDs),
		&entity.Confidence,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if !embeddingNull {
		entity.Embedding = embedding.Slice()
	}
	return nil
}

// InsertEntity inserts a new entity.
func (h *EntitiesDBHandler) InsertEntity(entity *model.Entity) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_entity($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entity.ProjectID,
		entity.Kind,
		entity.Name,
		entity.NormalizedName,
		pq.Array(entity.Aliases),
		entity.Properties,
		vectorOrNil(entity.Embedding),
		entity.ExtractionSection,
		entity.EvidenceSpans,
		pq.Array(entity.SourceChunkIDs),
		entity.Confidence,
	)

	if err := scanEntity(row, entity); err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEntity retrieves an entity by ID.
func (h *EntitiesDBHandler) SelectEntity(id uuid.UUID) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_entity($1)`, id)

	if err := scanEntity(row, entity); err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntityByNormalizedName retrieves an entity by its normalized name
// within a project and kind, the lookup the resolver's stage 1 uses for
// exact-match auto-merge.
func (h *EntitiesDBHandler) SelectEntityByNormalizedName(projectID uuid.UUID, kind model.EntityKind, normalizedName string) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity_by_normalized_name($1, $2, $3)`,
		projectID, kind, normalizedName,
	)

	if err := scanEntity(row, entity); err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

func (h *EntitiesDBHandler) scanEntityRows(rows *sql.Rows) ([]*model.Entity, error) {
	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		if err := scanEntity(rows, entity); err != nil {
			return nil, helper.NewError("scan", err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}
	return entities, nil
}

// SelectEntitiesBySearch returns entities whose name contains searchTerm
// (case-insensitive ILIKE), ordered by trigram similarity.
func (h *EntitiesDBHandler) SelectEntitiesBySearch(projectID uuid.UUID, searchTerm string, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM search_entities($1, $2, $3)`, projectID, searchTerm, limit)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return h.scanEntityRows(rows)
}

// SelectEntitiesByKind retrieves entities of a single kind within a project.
func (h *EntitiesDBHandler) SelectEntitiesByKind(projectID uuid.UUID, kind model.EntityKind, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_entities_by_kind($1, $2, $3)`, projectID, kind, limit)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return h.scanEntityRows(rows)
}

// SelectEntitiesByProject retrieves all entities in a project.
func (h *EntitiesDBHandler) SelectEntitiesByProject(projectID uuid.UUID, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_entities_by_project($1, $2)`, projectID, limit)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return h.scanEntityRows(rows)
}

// SelectEntitiesBySimilarity performs a cosine-similarity vector search
// over entity embeddings, optionally scoped to one kind. Returns parallel
// entity/similarity slices in descending similarity order.
func (h *EntitiesDBHandler) SelectEntitiesBySimilarity(projectID uuid.UUID, kind model.EntityKind, embedding []float32, limit int) ([]*model.Entity, []float64, error) {
	var kindArg interface{}
	if kind != "" {
		kindArg = kind
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_similarity($1, $2, $3, $4)`,
		projectID, kindArg, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	var similarities []float64
	for rows.Next() {
		entity := &model.Entity{}
		var sim float64
		var embeddingVec pgvector.Vector
		var embeddingNull bool
		if err := rows.Scan(
			&entity.ID,
			&entity.ProjectID,
			&entity.Kind,
			&entity.Name,
			&entity.NormalizedName,
			pq.Array(&entity.Aliases),
			&entity.Properties,
			scanVectorOrNull(&embeddingVec, &embeddingNull),
			&entity.DegreeCentrality,
			&entity.BetweennessCentrality,
			&entity.PageRank,
			&entity.ClusterID,
			&entity.Visualized,
			&entity.FirstSeenYear,
			&entity.LastSeenYear,
			&entity.ExtractionSection,
			&entity.EvidenceSpans,
			pq.Array(&entity.SourceChunkIDs),
			&entity.Confidence,
			&entity.CreatedAt,
			&entity.UpdatedAt,
			&sim,
		); err != nil {
			return nil, nil, helper.NewError("scan", err)
		}
		if !embeddingNull {
			entity.Embedding = embeddingVec.Slice()
		}
		entities = append(entities, entity)
		similarities = append(similarities, sim)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, helper.NewError("rows error", err)
	}

	return entities, similarities, nil
}

// SelectEntitiesWithoutCluster retrieves entities not yet assigned to a
// cluster.
func (h *EntitiesDBHandler) SelectEntitiesWithoutCluster(projectID uuid.UUID) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_entities_without_cluster($1)`, projectID)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return h.scanEntityRows(rows)
}

// DeleteEntity deletes an entity by ID.
func (h *EntitiesDBHandler) DeleteEntity(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT delete_entity($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// UpdateEntityMerge persists the resolver's merge outcome onto the
// canonical entity: widened aliases, merged properties, unioned source
// chunk ids, and the earliest/latest observed years.
func (h *EntitiesDBHandler) UpdateEntityMerge(entity *model.Entity) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_entity_merge($1, $2, $3, $4, $5, $6)`,
		entity.ID,
		pq.Array(entity.Aliases),
		entity.Properties,
		pq.Array(entity.SourceChunkIDs),
		entity.FirstSeenYear,
		entity.LastSeenYear,
	)

	if err := scanEntity(row, entity); err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// UpdateEntityCentrality stores degree, betweenness and PageRank scores
// for an entity.
func (h *EntitiesDBHandler) UpdateEntityCentrality(id uuid.UUID, degree, betweenness, pagerank float64) error {
	_, err := h.db.Instance.Exec(
		`SELECT * FROM update_entity_centrality($1, $2, $3, $4)`,
		id, degree, betweenness, pagerank,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// UpdateEntityCluster assigns (or clears, if clusterID is nil) an
// entity's cluster membership.
func (h *EntitiesDBHandler) UpdateEntityCluster(id uuid.UUID, clusterID *uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT * FROM update_entity_cluster($1, $2)`, id, clusterID)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// GetEntity retrieves an entity by ID, satisfying retrieval.EntitiesDB.
func (h *EntitiesDBHandler) GetEntity(ctx context.Context, id string) (*model.Entity, error) {
	entityID, err := uuid.Parse(id)
	if err != nil {
		return nil, helper.NewError("parse uuid", err)
	}
	return h.SelectEntity(entityID)
}

// GetChunksForEntity retrieves the chunks listed in the entity's
// source_chunk_ids.
func (h *EntitiesDBHandler) GetChunksForEntity(ctx context.Context, entityID string) ([]*model.Chunk, error) {
	id, err := uuid.Parse(entityID)
	if err != nil {
		return nil, helper.NewError("parse uuid", err)
	}

	entity, err := h.SelectEntity(id)
	if err != nil {
		return nil, err
	}

	chunks := make([]*model.Chunk, 0, len(entity.SourceChunkIDs))
	for _, chunkID := range entity.SourceChunkIDs {
		row := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_chunk($1)`, chunkID)
		chunk := &model.Chunk{}
		if err := scanChunk(row, chunk); err != nil {
			continue
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}
