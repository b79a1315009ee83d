package orchestrator

import (
	"fmt"

	"github.com/google/uuid"
)

var followUpsByIntent = map[Intent][]string{
	IntentSearch:       {"Would you like to explore related concepts?", "Should I identify structural gaps in this area?"},
	IntentExplore:      {"Want a deeper comparison between the entities found?", "Should I summarize this cluster?"},
	IntentExplain:      {"Would you like supporting papers for this explanation?"},
	IntentCompare:      {"Should I look for a bridging concept between these?"},
	IntentSummarize:    {"Want me to identify gaps in this literature?"},
	IntentIdentifyGaps: {"Would you like candidate research questions for the strongest gap?"},
}

// Respond converts stage 5's reasoning into the user-facing Response,
// attaching citations, highlighted graph elements, and intent-indexed
// follow-up suggestions.
func Respond(octx *Context, intent IntentResult, reasoning ReasoningResult, stageFailed string) Response {
	citations := make([]string, 0, len(reasoning.Steps))
	for _, step := range reasoning.Steps {
		citations = append(citations, step.Evidence...)
	}

	highlighted := dedupeUUIDs(append(append([]uuid.UUID{}, octx.HighlightedEntityIDs...), reasoning.SupportingNodeIDs...))

	answer := reasoning.FinalConclusion
	if stageFailed != "" {
		answer = fmt.Sprintf("%s (partial answer: %s stage did not complete in time)", answer, stageFailed)
	}

	return Response{
		Answer:             answer,
		Citations:          citations,
		HighlightedNodeIDs: highlighted,
		HighlightedEdgeIDs: reasoning.SupportingEdgeIDs,
		SuggestedFollowUps: followUpsByIntent[intent.Intent],
		RetrievalTrace:     octx.Trace,
		StageFailed:        stageFailed,
	}
}

func dedupeUUIDs(ids []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
