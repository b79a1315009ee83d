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

// ChunksDBHandlerFunctions defines the interface for chunk database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(chunk *model.Chunk) error
	SelectChunk(id uuid.UUID) (*model.Chunk, error)
	SelectChunksByPaper(paperID uuid.UUID) ([]*model.Chunk, error)
	SelectChunksByParent(parentChunkID uuid.UUID) ([]*model.Chunk, error)
	SelectChunkSiblings(chunkID uuid.UUID) ([]*model.Chunk, error)
	SelectChunksBySimilarity(projectID uuid.UUID, paperIDs []uuid.UUID, embedding []float32, limit int) ([]*model.Chunk, error)
	SearchChunks(projectID uuid.UUID, term string, limit int) ([]*model.Chunk, error)
	UpdateChunkEmbedding(id uuid.UUID, embedding []float32) error
	DeleteChunk(id uuid.UUID) error
}

// ChunksDBHandler handles chunk-related database operations. embeddingDim
// is carried for callers that need to validate embeddings before insert;
// the column itself is a fixed vector(1536) set at schema-init time.
type ChunksDBHandler struct {
	db           *helper.Database
	embeddingDim int
}

// NewChunksDBHandler creates a new chunks database handler.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	h := &ChunksDBHandler{db: db, embeddingDim: embeddingDim}

	if err := sqlload.LoadChunksSql(h.db.Instance, force); err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	if err := h.CreateTable(); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return h, nil
}

// CreateTable creates the 'chunks' table and its indexes if missing.
func (h *ChunksDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks();`)
	if err != nil {
		log.Panicf("error initializing chunks table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

func scanChunk(row rowScanner, chunk *model.Chunk) error {
	var embedding pgvector.Vector
	var embeddingNull bool
	err := row.Scan(
		&chunk.ID,
		&chunk.ProjectID,
		&chunk.PaperID,
		&chunk.ParentChunkID,
		&chunk.HierarchyLvl,
		&chunk.SectionType,
		&chunk.SequenceOrder,
		&chunk.Content,
		&chunk.Summary,
		&chunk.TokenCount,
		scanVectorOrNull(&embedding, &embeddingNull),
		&chunk.Metadata,
		&chunk.CreatedAt,
	)
	if err != nil {
		return err
	}
	if !embeddingNull {
		chunk.Embedding = embedding.Slice()
	}
	return nil
}

func (h *ChunksDBHandler) scanChunkRows(rows *sql.Rows) ([]*model.Chunk, error) {
	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		if err := scanChunk(rows, chunk); err != nil {
			return nil, helper.NewError("scan", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}
	return chunks, nil
}

// InsertChunk inserts a new chunk.
func (h *ChunksDBHandler) InsertChunk(chunk *model.Chunk) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_chunk($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		chunk.ProjectID,
		chunk.PaperID,
		chunk.ParentChunkID,
		chunk.HierarchyLvl,
		chunk.SectionType,
		chunk.SequenceOrder,
		chunk.Content,
		chunk.Summary,
		chunk.TokenCount,
		vectorOrNil(chunk.Embedding),
		chunk.Metadata,
	)

	if err := scanChunk(row, chunk); err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectChunk retrieves a chunk by ID.
func (h *ChunksDBHandler) SelectChunk(id uuid.UUID) (*model.Chunk, error) {
	chunk := &model.Chunk{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_chunk($1)`, id)

	if err := scanChunk(row, chunk); err != nil {
		return nil, helper.NewError("scan", err)
	}

	return chunk, nil
}

// SelectChunksByPaper retrieves all chunks for a paper in hierarchy/sequence order.
func (h *ChunksDBHandler) SelectChunksByPaper(paperID uuid.UUID) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_chunks_by_paper($1)`, paperID)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return h.scanChunkRows(rows)
}

// SelectChunksByParent retrieves the paragraph-level children of a section chunk.
func (h *ChunksDBHandler) SelectChunksByParent(parentChunkID uuid.UUID) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_chunks_by_parent($1)`, parentChunkID)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return h.scanChunkRows(rows)
}

// SelectChunkSiblings retrieves the chunks sharing a chunk's parent, used
// by the contextual retrieval strategy to widen a matched chunk.
func (h *ChunksDBHandler) SelectChunkSiblings(chunkID uuid.UUID) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_chunk_siblings($1)`, chunkID)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return h.scanChunkRows(rows)
}

// SelectChunksBySimilarity performs a cosine-similarity vector search over
// chunk embeddings, optionally scoped to a set of papers.
func (h *ChunksDBHandler) SelectChunksBySimilarity(projectID uuid.UUID, paperIDs []uuid.UUID, embedding []float32, limit int) ([]*model.Chunk, error) {
	var paperIDsArg interface{}
	if len(paperIDs) > 0 {
		paperIDsArg = pq.Array(paperIDs)
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_similarity($1, $2, $3, $4)`,
		projectID, paperIDsArg, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		var sim float64
		var embeddingVec pgvector.Vector
		var embeddingNull bool
		if err := rows.Scan(
			&chunk.ID,
			&chunk.ProjectID,
			&chunk.PaperID,
			&chunk.ParentChunkID,
			&chunk.HierarchyLvl,
			&chunk.SectionType,
			&chunk.SequenceOrder,
			&chunk.Content,
			&chunk.Summary,
			&chunk.TokenCount,
			scanVectorOrNull(&embeddingVec, &embeddingNull),
			&chunk.Metadata,
			&chunk.CreatedAt,
			&sim,
		); err != nil {
			return nil, helper.NewError("scan", err)
		}
		if !embeddingNull {
			chunk.Embedding = embeddingVec.Slice()
		}
		chunk.Similarity = &sim
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// SearchChunks performs an ILIKE full-text fallback search over chunk content.
func (h *ChunksDBHandler) SearchChunks(projectID uuid.UUID, term string, limit int) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM search_chunks($1, $2, $3)`, projectID, term, limit)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return h.scanChunkRows(rows)
}

// UpdateChunkEmbedding writes back a chunk's embedding once the embedding
// service has processed it, decoupling chunking from embedding.
func (h *ChunksDBHandler) UpdateChunkEmbedding(id uuid.UUID, embedding []float32) error {
	_, err := h.db.Instance.Exec(`SELECT * FROM update_chunk_embedding($1, $2)`, id, pgvector.NewVector(embedding))
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteChunk deletes a chunk by ID, cascading to its paragraph children.
func (h *ChunksDBHandler) DeleteChunk(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT delete_chunk($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
