package retrieval

import (
	"context"
	"strings"

	"github.com/litreview/conceptgraph/core/pipeline"
	"github.com/litreview/conceptgraph/model"
)

// graphKeywords trigger graph_traversal routing: the query is about how
// things relate, not what a single passage says.
var graphKeywords = []string{
	"relationship", "related to", "relate", "connect", "compare", "versus", "vs",
	"between", "bridge", "influence", "impact on", "lead to", "cause",
}

// hybridKeywords trigger hybrid routing: broad survey-style questions
// that need both semantic recall and structural context.
var hybridKeywords = []string{
	"overview", "summarize", "survey", "landscape", "state of the art",
	"trends", "evolution",
}

// ClassifyQuery picks a model.RetrievalStrategy from the query text via a
// keyword heuristic, falling back to an LLM judgment when no keyword
// matches and an LLM service is available (GenerateOrFallback keeps the
// heuristic's own "vector" default as the ultimate fallback).
func ClassifyQuery(ctx context.Context, llm *pipeline.LLMService, query string) model.RetrievalStrategy {
	lower := strings.ToLower(query)

	for _, kw := range graphKeywords {
		if strings.Contains(lower, kw) {
			return model.StrategyGraphTraversal
		}
	}
	for _, kw := range hybridKeywords {
		if strings.Contains(lower, kw) {
			return model.StrategyHybrid
		}
	}

	if llm == nil {
		return model.StrategyVector
	}

	system := `You classify a literature-review search query into exactly one retrieval strategy: "vector" (a specific factual lookup), "graph_traversal" (a relational/comparative question), or "hybrid" (a broad survey question). Return JSON only: {"strategy": "vector"|"graph_traversal"|"hybrid"}`
	result := llm.GenerateOrFallback(ctx, system, query, true, func() string { return `{"strategy": "vector"}` })

	var parsed struct {
		Strategy string `json:"strategy"`
	}
	if err := pipeline.ParseJSON(result, &parsed); err != nil {
		return model.StrategyVector
	}

	switch model.RetrievalStrategy(parsed.Strategy) {
	case model.StrategyVector, model.StrategyGraphTraversal, model.StrategyHybrid:
		return model.RetrievalStrategy(parsed.Strategy)
	default:
		return model.StrategyVector
	}
}
