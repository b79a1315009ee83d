package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/litreview/conceptgraph/database"
	"github.com/litreview/conceptgraph/model"
)

// Strategy is a single retrieval routing algorithm selected by
// model.RetrievalStrategy: vector, graph_traversal, or hybrid.
type Strategy interface {
	Retrieve(ctx context.Context, embedding []float32, config *model.QueryConfig) ([]*model.RetrievalResult, error)
}

// VectorOnlyStrategy performs pure vector similarity search.
type VectorOnlyStrategy struct {
	engine *Engine
}

// NewVectorOnlyStrategy builds the "vector" strategy.
func NewVectorOnlyStrategy(engine *Engine) *VectorOnlyStrategy {
	return &VectorOnlyStrategy{engine: engine}
}

// Retrieve delegates straight to the engine's vector search.
func (s *VectorOnlyStrategy) Retrieve(ctx context.Context, embedding []float32, config *model.QueryConfig) ([]*model.RetrievalResult, error) {
	return s.engine.VectorRetrieve(ctx, embedding, config)
}

const entitySeedsPerKind = 3

// GraphTraversalStrategy seeds from the entities closest to the query
// embedding (scanned across every EntityKind, since similarity search is
// kind-scoped) and expands via BFS up to config.MaxHops.
type GraphTraversalStrategy struct {
	engine   *Engine
	entities *database.EntitiesDBHandler
}

// NewGraphTraversalStrategy builds the "graph_traversal" strategy.
func NewGraphTraversalStrategy(engine *Engine, entities *database.EntitiesDBHandler) *GraphTraversalStrategy {
	return &GraphTraversalStrategy{engine: engine, entities: entities}
}

// Retrieve finds the entities nearest the query embedding, expands each
// via BFS, and maps discovered entities back to their source chunks.
func (s *GraphTraversalStrategy) Retrieve(ctx context.Context, embedding []float32, config *model.QueryConfig) ([]*model.RetrievalResult, error) {
	resultMap := make(map[string]*model.RetrievalResult)

	for _, kind := range model.AllEntityKinds() {
		seeds, _, err := s.entities.SelectEntitiesBySimilarity(config.ProjectID, kind, embedding, entitySeedsPerKind)
		if err != nil {
			continue
		}

		for _, seed := range seeds {
			s.addEntityChunks(resultMap, seed, 0, config)

			traversed, err := s.engine.BFSFromEntity(ctx, seed.ID, config.MaxHops, config.EdgeTypes, config.FollowBidirectional)
			if err != nil {
				continue
			}
			for _, t := range traversed {
				s.addEntityChunks(resultMap, t.Entity, t.Distance, config)
			}
		}
	}

	return sortedTopK(resultMap, config.TopK), nil
}

func (s *GraphTraversalStrategy) addEntityChunks(resultMap map[string]*model.RetrievalResult, entity *model.Entity, distance int, config *model.QueryConfig) {
	for _, chunkID := range entity.SourceChunkIDs {
		key := chunkID.String()
		score := config.GraphWeight / float64(distance+1)

		if existing, exists := resultMap[key]; exists {
			if score > existing.Score {
				existing.Score = score
			}
			existing.ConnectedEntities = append(existing.ConnectedEntities, *entity)
			continue
		}

		chunk, err := s.engine.chunks.SelectChunk(chunkID)
		if err != nil {
			continue
		}

		resultMap[key] = &model.RetrievalResult{
			Chunk:             chunk,
			Score:             score,
			GraphDistance:     distance,
			RetrievalMethod:   "graph_traversal",
			ConnectedEntities: []model.Entity{*entity},
		}
	}
}

// HybridStrategy blends vector similarity, graph proximity, and
// hierarchical context using config's weighted combination.
type HybridStrategy struct {
	engine *Engine
	graph  *GraphTraversalStrategy
}

// NewHybridStrategy builds the "hybrid" strategy.
func NewHybridStrategy(engine *Engine, entities *database.EntitiesDBHandler) *HybridStrategy {
	return &HybridStrategy{engine: engine, graph: NewGraphTraversalStrategy(engine, entities)}
}

// Retrieve combines vector, hierarchical, and entity-connected graph
// signals into one weighted score using config's ranking parameters.
func (s *HybridStrategy) Retrieve(ctx context.Context, embedding []float32, config *model.QueryConfig) ([]*model.RetrievalResult, error) {
	vectorResults, err := s.engine.VectorRetrieve(ctx, embedding, config)
	if err != nil {
		return nil, err
	}

	resultMap := make(map[string]*model.RetrievalResult, len(vectorResults))
	for _, v := range vectorResults {
		resultMap[v.Chunk.ID.String()] = &model.RetrievalResult{
			Chunk:           v.Chunk,
			Score:           v.SimilarityScore * config.VectorWeight,
			SimilarityScore: v.SimilarityScore,
			RetrievalMethod: "hybrid",
		}
	}

	if config.IncludeAncestors || config.IncludeDescendants || config.IncludeSiblings {
		for _, v := range vectorResults {
			hierarchyContext, err := s.engine.GetHierarchicalContext(ctx, v.Chunk, config)
			if err != nil {
				continue
			}
			for _, chunk := range hierarchyContext {
				key := chunk.ID.String()
				if existing, exists := resultMap[key]; exists {
					existing.Score += config.HierarchyWeight
					continue
				}
				resultMap[key] = &model.RetrievalResult{Chunk: chunk, Score: config.HierarchyWeight, RetrievalMethod: "hybrid"}
			}
		}
	}

	if config.MaxHops > 0 {
		graphResults, err := s.graph.Retrieve(ctx, embedding, config)
		if err == nil {
			for _, g := range graphResults {
				key := g.Chunk.ID.String()
				graphScore := g.Score * config.GraphWeight
				if existing, exists := resultMap[key]; exists {
					existing.Score += graphScore
					existing.ConnectedEntities = append(existing.ConnectedEntities, g.ConnectedEntities...)
					continue
				}
				g.Score = graphScore
				resultMap[key] = g
			}
		}
	}

	return sortedTopK(resultMap, config.TopK), nil
}

func sortedTopK(resultMap map[string]*model.RetrievalResult, topK int) []*model.RetrievalResult {
	results := make([]*model.RetrievalResult, 0, len(resultMap))
	for _, r := range resultMap {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// StrategyFor resolves the configured model.RetrievalStrategy to a
// concrete Strategy, erroring on an unrecognized value rather than
// silently defaulting, since query routing is a user-visible contract.
func StrategyFor(strategy model.RetrievalStrategy, engine *Engine, entities *database.EntitiesDBHandler) (Strategy, error) {
	switch strategy {
	case model.StrategyVector:
		return NewVectorOnlyStrategy(engine), nil
	case model.StrategyGraphTraversal:
		return NewGraphTraversalStrategy(engine, entities), nil
	case model.StrategyHybrid:
		return NewHybridStrategy(engine, entities), nil
	default:
		return nil, fmt.Errorf("unrecognized retrieval strategy %q", strategy)
	}
}
