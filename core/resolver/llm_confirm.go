package resolver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/litreview/conceptgraph/core/pipeline"
	"github.com/litreview/conceptgraph/model"
)

// maxEvidenceSnippets bounds how many evidence spans are shown to the LLM
// per entity in a confirmation judgment.
const maxEvidenceSnippets = 3

// JudgmentResult is one pair's LLM-confirmed merge decision.
type JudgmentResult struct {
	Pair      CandidatePair
	SameEntity bool
	Reason    string
	Deferred  bool // true when the LLM call itself failed (resolution_deferred)
}

type judgmentResponse struct {
	SameEntity bool   `json:"same_entity"`
	Reason     string `json:"reason"`
}

// ConfirmPairs submits each candidate pair to the LLM for a same-entity
// judgment, bounded by maxBatch per run to control spend. Pairs beyond
// the cap are left for the next run (they remain in the store as
// undecided candidates). LLM failures never drop a pair silently: they
// come back as Deferred so the caller can count resolution_deferred.
func ConfirmPairs(ctx context.Context, log *slog.Logger, llm *pipeline.LLMService, pairs []CandidatePair, maxBatch int) []JudgmentResult {
	if maxBatch > 0 && len(pairs) > maxBatch {
		pairs = pairs[:maxBatch]
	}

	results := make([]JudgmentResult, 0, len(pairs))
	for _, pair := range pairs {
		system, user := judgmentPrompt(pair)

		raw, ok := llm.GenerateOptional(ctx, system, user, true)
		if !ok {
			log.Warn("resolution judgment deferred, llm unavailable", "entity_a", pair.A.ID, "entity_b", pair.B.ID)
			results = append(results, JudgmentResult{Pair: pair, Deferred: true})
			continue
		}

		var parsed judgmentResponse
		if err := pipeline.ParseJSON(raw, &parsed); err != nil {
			log.Warn("resolution judgment response unparsable, deferring", "error", err)
			results = append(results, JudgmentResult{Pair: pair, Deferred: true})
			continue
		}

		results = append(results, JudgmentResult{Pair: pair, SameEntity: parsed.SameEntity, Reason: parsed.Reason})
	}
	return results
}

func judgmentPrompt(pair CandidatePair) (system, user string) {
	system = `You judge whether two extracted entity mentions refer to the same real-world concept, method, dataset, or finding in an academic literature review. Return JSON only: {"same_entity": true|false, "reason": string}`

	aContext, _ := json.Marshal(evidenceSnippets(pair.A))
	bContext, _ := json.Marshal(evidenceSnippets(pair.B))

	user = "Entity A: " + pair.A.Name + " evidence: " + string(aContext) +
		"\nEntity B: " + pair.B.Name + " evidence: " + string(bContext) +
		"\n\nDo these refer to the same entity?"
	return system, user
}

func evidenceSnippets(e *model.Entity) []string {
	var snippets []string
	for key, v := range e.EvidenceSpans {
		if s, ok := v.(string); ok {
			snippets = append(snippets, key+": "+s)
		}
		if len(snippets) >= maxEvidenceSnippets {
			break
		}
	}
	return snippets
}
