package orchestrator

import (
	"context"
	"strings"

	"github.com/litreview/conceptgraph/core/pipeline"
)

var intentKeywords = map[Intent][]string{
	IntentCompare:      {"compare", "versus", " vs ", "difference between"},
	IntentIdentifyGaps: {"gap", "missing", "unexplored", "opportunity", "understudied"},
	IntentExplain:      {"why", "how does", "explain", "what causes"},
	IntentSummarize:    {"summarize", "overview", "survey", "state of the art"},
	IntentExplore:      {"explore", "related to", "connected to", "around"},
}

// ClassifyIntent routes query into the closed Intent set via a few-shot
// LLM judgment, falling back to a keyword heuristic when the LLM is
// unavailable.
func ClassifyIntent(ctx context.Context, llm *pipeline.LLMService, query string) IntentResult {
	if llm != nil {
		if result, ok := classifyIntentViaLLM(ctx, llm, query); ok {
			return result
		}
	}
	return classifyIntentByKeyword(query)
}

func classifyIntentViaLLM(ctx context.Context, llm *pipeline.LLMService, query string) (IntentResult, bool) {
	system := `You classify a literature-review question into exactly one intent: search, explore, explain, compare, summarize, or identify_gaps. Examples: "Compare BERT and RoBERTa" -> compare; "What is missing from research on peer feedback?" -> identify_gaps; "Explain why attention helps translation" -> explain; "Summarize work on active learning" -> summarize. Return JSON only: {"intent": string, "confidence": number, "keywords": [string,...]}`
	raw, ok := llm.GenerateOptional(ctx, system, query, true)
	if !ok {
		return IntentResult{}, false
	}

	var parsed struct {
		Intent     string   `json:"intent"`
		Confidence float64  `json:"confidence"`
		Keywords   []string `json:"keywords"`
	}
	if err := pipeline.ParseJSON(raw, &parsed); err != nil {
		return IntentResult{}, false
	}

	intent := Intent(parsed.Intent)
	if !validIntent(intent) {
		return IntentResult{}, false
	}

	return IntentResult{Intent: intent, Confidence: parsed.Confidence, Keywords: parsed.Keywords}, true
}

func classifyIntentByKeyword(query string) IntentResult {
	lower := strings.ToLower(query)

	for _, intent := range []Intent{IntentCompare, IntentIdentifyGaps, IntentExplain, IntentSummarize, IntentExplore} {
		for _, kw := range intentKeywords[intent] {
			if strings.Contains(lower, kw) {
				return IntentResult{Intent: intent, Confidence: 0.6, Keywords: []string{kw}}
			}
		}
	}

	return IntentResult{Intent: IntentSearch, Confidence: 0.5}
}

func validIntent(intent Intent) bool {
	switch intent {
	case IntentSearch, IntentExplore, IntentExplain, IntentCompare, IntentSummarize, IntentIdentifyGaps:
		return true
	default:
		return false
	}
}
