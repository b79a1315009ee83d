package database

import (
	"context"
	"fmt"
	"time"

	"github.com/litreview/conceptgraph/helper"
)

// changeVectorIndexType changes a table's embedding vector index between
// HNSW and IVFFlat.
// indexType: "hnsw" or "ivfflat"
// params: optional parameters for index creation
//   - For HNSW: "m" (int, default 16), "ef_construction" (int, default 64)
//   - For IVFFlat: "lists" (int, default 100)
func changeVectorIndexType(ctx context.Context, db *helper.Database, table, indexName, column string, indexType string, params map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	_, err := db.Instance.ExecContext(ctx, fmt.Sprintf(`DROP INDEX IF EXISTS %s;`, indexName))
	if err != nil {
		return helper.NewError("drop index", err)
	}

	db.Logger.Info("Dropped existing vector index")

	var createIndexSQL string

	switch indexType {
	case "hnsw":
		m := 16
		efConstruction := 64

		if mVal, ok := params["m"].(int); ok {
			m = mVal
		}
		if efVal, ok := params["ef_construction"].(int); ok {
			efConstruction = efVal
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX %s ON %s USING hnsw (%s vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			indexName, table, column, m, efConstruction,
		)

	case "ivfflat":
		lists := 100
		if listsVal, ok := params["lists"].(int); ok {
			lists = listsVal
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX %s ON %s USING ivfflat (%s vector_cosine_ops) WITH (lists = %d);`,
			indexName, table, column, lists,
		)

	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	_, err = db.Instance.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	db.Logger.Info(fmt.Sprintf("Created %s index with params: %v", indexType, params))

	return nil
}

// ChangeIndexType changes the chunks table's embedding vector index.
func (h *ChunksDBHandler) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return changeVectorIndexType(ctx, h.db, "chunks", "idx_chunks_embedding", "embedding", indexType, params)
}

// ChangeIndexType changes the entities table's embedding vector index.
func (h *EntitiesDBHandler) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return changeVectorIndexType(ctx, h.db, "entities", "idx_entities_embedding", "embedding", indexType, params)
}
