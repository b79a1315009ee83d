// Package retrieval routes a query embedding through vector, graph, or
// hybrid strategies and assembles an evidence-backed result set.
package retrieval

import (
	"context"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/database"
	"github.com/litreview/conceptgraph/model"
)

// Engine provides vector search, graph traversal, and entity lookups
// over the chunk/entity/relationship schema, the shared substrate every
// Strategy builds on.
type Engine struct {
	chunks        *database.ChunksDBHandler
	relationships *database.RelationshipsDBHandler
	entities      *database.EntitiesDBHandler
}

// NewEngine wires an Engine over the three handlers every strategy needs.
func NewEngine(chunks *database.ChunksDBHandler, relationships *database.RelationshipsDBHandler, entities *database.EntitiesDBHandler) *Engine {
	return &Engine{chunks: chunks, relationships: relationships, entities: entities}
}

// VectorRetrieve performs pure vector similarity search over chunks.
func (e *Engine) VectorRetrieve(ctx context.Context, embedding []float32, config *model.QueryConfig) ([]*model.RetrievalResult, error) {
	chunks, err := e.chunks.SelectChunksBySimilarity(config.ProjectID, config.PaperIDs, embedding, config.TopK)
	if err != nil {
		return nil, err
	}

	results := make([]*model.RetrievalResult, len(chunks))
	for i, chunk := range chunks {
		score := 0.0
		if chunk.Similarity != nil {
			score = *chunk.Similarity
		}
		results[i] = &model.RetrievalResult{
			Chunk:           chunk,
			Score:           score,
			SimilarityScore: score,
			RetrievalMethod: "vector",
		}
	}

	return results, nil
}

// GetHierarchicalContext gathers a chunk's parent section, sibling
// paragraphs, and child paragraphs per the two-level chunk hierarchy.
func (e *Engine) GetHierarchicalContext(ctx context.Context, chunk *model.Chunk, config *model.QueryConfig) ([]*model.Chunk, error) {
	var out []*model.Chunk

	if config.IncludeAncestors && chunk.ParentChunkID != nil {
		parent, err := e.chunks.SelectChunk(*chunk.ParentChunkID)
		if err == nil {
			out = append(out, parent)
		}
	}

	if config.IncludeDescendants && chunk.HierarchyLvl == model.HierarchySection {
		children, err := e.chunks.SelectChunksByParent(chunk.ID)
		if err == nil {
			out = append(out, children...)
		}
	}

	if config.IncludeSiblings {
		siblings, err := e.chunks.SelectChunkSiblings(chunk.ID)
		if err == nil {
			out = append(out, siblings...)
		}
	}

	return out, nil
}

// TraversalResult pairs an entity with its hop distance from a BFS root,
// the graph analog of the chunk-hierarchy context above.
type TraversalResult struct {
	Entity   *model.Entity
	Distance int
}

// BFSFromEntity walks the entity graph from a root up to maxHops,
// filtered to the given edge types (all types if empty), following both
// directions when followBidirectional is set.
func (e *Engine) BFSFromEntity(ctx context.Context, rootID uuid.UUID, maxHops int, edgeTypes []model.EdgeType, followBidirectional bool) ([]*TraversalResult, error) {
	visited := map[uuid.UUID]int{rootID: 0}
	frontier := []uuid.UUID{rootID}
	var results []*TraversalResult

	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		var next []uuid.UUID

		for _, id := range frontier {
			neighbors, err := e.neighborsOf(id, edgeTypes, followBidirectional)
			if err != nil {
				continue
			}
			for _, neighborID := range neighbors {
				if _, seen := visited[neighborID]; seen {
					continue
				}
				visited[neighborID] = hop
				next = append(next, neighborID)

				entity, err := e.entities.SelectEntity(neighborID)
				if err != nil {
					continue
				}
				results = append(results, &TraversalResult{Entity: entity, Distance: hop})
			}
		}

		frontier = next
	}

	return results, nil
}

func (e *Engine) neighborsOf(entityID uuid.UUID, edgeTypes []model.EdgeType, followBidirectional bool) ([]uuid.UUID, error) {
	var relationships []*model.Relationship
	var err error

	if followBidirectional {
		relationships, err = e.relationships.SelectRelationshipsConnected(entityID, firstEdgeTypeOrNil(edgeTypes))
	} else {
		relationships, err = e.relationships.SelectRelationshipsFromEntity(entityID, firstEdgeTypeOrNil(edgeTypes))
	}
	if err != nil {
		return nil, err
	}

	allowed := make(map[model.EdgeType]bool, len(edgeTypes))
	for _, t := range edgeTypes {
		allowed[t] = true
	}

	var neighbors []uuid.UUID
	for _, rel := range relationships {
		if len(allowed) > 0 && !allowed[rel.Type] {
			continue
		}
		if rel.SourceID == entityID {
			neighbors = append(neighbors, rel.TargetID)
		} else {
			neighbors = append(neighbors, rel.SourceID)
		}
	}
	return neighbors, nil
}

// firstEdgeTypeOrNil is a narrowing shim: the generated SQL functions
// filter by a single optional edge type, so a multi-type request filters
// client-side in neighborsOf instead.
func firstEdgeTypeOrNil(edgeTypes []model.EdgeType) *model.EdgeType {
	if len(edgeTypes) != 1 {
		return nil
	}
	return &edgeTypes[0]
}
