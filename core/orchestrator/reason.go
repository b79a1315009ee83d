package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/core/pipeline"
	"github.com/litreview/conceptgraph/model"
)

// Reason synthesizes subtask results into a chain-of-thought conclusion
// via the LLM, falling back to a plain evidence summary when the LLM is
// unavailable.
func Reason(ctx context.Context, llm *pipeline.LLMService, query string, subtaskResults map[string]*SubtaskResult) ReasoningResult {
	results, gapList := flattenResults(subtaskResults)
	if len(results) == 0 && len(gapList) == 0 {
		return ReasoningResult{
			FinalConclusion: "No supporting evidence was retrieved for this question.",
			Confidence:      0,
		}
	}

	if llm == nil {
		return ruleBasedReasoning(results, gapList)
	}

	system := `You reason step by step over retrieved evidence for a literature-review question. Return JSON only: {"steps": [{"n": number, "description": string, "evidence": [string,...], "conclusion": string}], "final_conclusion": string, "confidence": number}`
	user := reasoningPrompt(query, results, gapList)

	raw := llm.GenerateOrFallback(ctx, system, user, true, func() string { return "" })
	if raw == "" {
		return ruleBasedReasoning(results, gapList)
	}

	var parsed struct {
		Steps           []ReasoningStep `json:"steps"`
		FinalConclusion string          `json:"final_conclusion"`
		Confidence      float64         `json:"confidence"`
	}
	if err := pipeline.ParseJSON(raw, &parsed); err != nil {
		return ruleBasedReasoning(results, gapList)
	}

	return ReasoningResult{
		Steps:             parsed.Steps,
		FinalConclusion:   parsed.FinalConclusion,
		Confidence:        parsed.Confidence,
		SupportingNodeIDs: supportingNodeIDs(results),
	}
}

func flattenResults(subtaskResults map[string]*SubtaskResult) ([]*model.RetrievalResult, []*model.Gap) {
	var results []*model.RetrievalResult
	var gapList []*model.Gap

	ids := make([]string, 0, len(subtaskResults))
	for id := range subtaskResults {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		r := subtaskResults[id]
		if r == nil || r.Failed {
			continue
		}
		results = append(results, r.Results...)
		gapList = append(gapList, r.Gaps...)
	}
	return results, gapList
}

func ruleBasedReasoning(results []*model.RetrievalResult, gapList []*model.Gap) ReasoningResult {
	var steps []ReasoningStep
	var evidence []string

	for i, r := range results {
		if r.Chunk == nil {
			continue
		}
		evidence = append(evidence, r.Chunk.Content)
		if i < 3 {
			steps = append(steps, ReasoningStep{
				N:           i + 1,
				Description: "retrieved supporting passage",
				Evidence:    []string{truncate(r.Chunk.Content, 200)},
			})
		}
	}

	for _, g := range gapList {
		steps = append(steps, ReasoningStep{
			N:           len(steps) + 1,
			Description: "identified structural gap between clusters",
			Evidence:    g.ResearchQuestions,
		})
	}

	conclusion := "Evidence gathered from retrieval"
	if len(evidence) > 0 {
		conclusion = fmt.Sprintf("Found %d supporting passages across the graph.", len(evidence))
	} else if len(gapList) > 0 {
		conclusion = fmt.Sprintf("Identified %d structural gaps between concept clusters.", len(gapList))
	}

	return ReasoningResult{
		Steps:             steps,
		FinalConclusion:   conclusion,
		Confidence:        0.4,
		SupportingNodeIDs: supportingNodeIDs(results),
	}
}

func supportingNodeIDs(results []*model.RetrievalResult) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, r := range results {
		for _, e := range r.ConnectedEntities {
			if !seen[e.ID] {
				seen[e.ID] = true
				ids = append(ids, e.ID)
			}
		}
		if r.Entity != nil && !seen[r.Entity.ID] {
			seen[r.Entity.ID] = true
			ids = append(ids, r.Entity.ID)
		}
	}
	return ids
}

func reasoningPrompt(query string, results []*model.RetrievalResult, gapList []*model.Gap) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nEvidence:\n", query)
	for i, r := range results {
		if r.Chunk == nil {
			continue
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, truncate(r.Chunk.Content, 500))
	}
	for _, g := range gapList {
		fmt.Fprintf(&b, "gap: strength=%.2f questions=%s\n", g.GapStrength, strings.Join(g.ResearchQuestions, "; "))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
