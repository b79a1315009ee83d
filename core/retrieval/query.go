package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/litreview/conceptgraph/core/pipeline"
	"github.com/litreview/conceptgraph/database"
	"github.com/litreview/conceptgraph/model"
)

// QueryEngine is the single entry point: classify the query, route to a
// strategy, run it, and return both the results and the ordered trace
// of what happened, appending a step record at each stage transition.
type QueryEngine struct {
	engine   *Engine
	entities *database.EntitiesDBHandler
	embedder *pipeline.EmbeddingService
	llm      *pipeline.LLMService
}

// NewQueryEngine wires a QueryEngine over the retrieval Engine plus the
// embedding/LLM services needed to turn query text into a routed search.
func NewQueryEngine(engine *Engine, entities *database.EntitiesDBHandler, embedder *pipeline.EmbeddingService, llm *pipeline.LLMService) *QueryEngine {
	return &QueryEngine{engine: engine, entities: entities, embedder: embedder, llm: llm}
}

// QueryResponse bundles retrieval results with the execution trace
// produced on every Query call.
type QueryResponse struct {
	Results []*model.RetrievalResult
	Trace   []model.TraceStep
}

// Query embeds the query text, classifies it (unless config.Strategy is
// already set), routes to the matching Strategy, and runs it, recording
// a TraceStep at each stage transition.
func (q *QueryEngine) Query(ctx context.Context, queryText string, config *model.QueryConfig) (*QueryResponse, error) {
	var trace []model.TraceStep
	step := func(action, thought string, started time.Time) {
		trace = append(trace, model.TraceStep{
			Index:      len(trace),
			Action:     action,
			Thought:    thought,
			DurationMS: time.Since(started).Milliseconds(),
			StartedAt:  started,
		})
	}

	started := time.Now()
	embeddings, err := q.embedder.Embed(ctx, []string{queryText})
	step("embed_query", "embedded the query text for similarity search", started)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	embedding := embeddings[0]

	strategy := config.Strategy
	if strategy == "" {
		started = time.Now()
		strategy = ClassifyQuery(ctx, q.llm, queryText)
		step("classify_query", fmt.Sprintf("routed to %s strategy", strategy), started)
	}

	resolved, err := StrategyFor(strategy, q.engine, q.entities)
	if err != nil {
		return nil, err
	}

	started = time.Now()
	results, err := resolved.Retrieve(ctx, embedding, config)
	step(string(strategy)+"_retrieve", fmt.Sprintf("retrieved %d candidates", len(results)), started)
	if err != nil {
		return nil, err
	}

	return &QueryResponse{Results: results, Trace: trace}, nil
}
