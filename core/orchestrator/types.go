// Package orchestrator runs the six-stage agent pipeline that answers a
// natural-language question grounded in the concept graph: intent
// classification, concept extraction, task planning, query execution,
// reasoning, and response generation.
package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/model"
)

// Intent is the closed set of question categories the intent stage
// routes a query into.
type Intent string

const (
	IntentSearch       Intent = "search"
	IntentExplore      Intent = "explore"
	IntentExplain      Intent = "explain"
	IntentCompare      Intent = "compare"
	IntentSummarize    Intent = "summarize"
	IntentIdentifyGaps Intent = "identify_gaps"
)

// SubtaskKind is the closed set of query-execution subtask types the
// task-planning stage may emit.
type SubtaskKind string

const (
	SubtaskSearch      SubtaskKind = "search"
	SubtaskRetrieve    SubtaskKind = "retrieve"
	SubtaskAnalyze     SubtaskKind = "analyze"
	SubtaskCompare     SubtaskKind = "compare"
	SubtaskAnalyzeGaps SubtaskKind = "analyze_gaps"
)

// Context is the append-only record shared across all six stages:
// conversation identity, accumulated highlighted entities, and the
// running trace.
type Context struct {
	ConversationID     uuid.UUID
	ProjectID          uuid.UUID
	Query              string
	HighlightedEntityIDs []uuid.UUID
	Trace              []model.TraceStep
}

func (c *Context) recordStep(index int, action, thought string, nodeIDs []uuid.UUID, started time.Time, timedOut bool) {
	ids := make([]string, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		ids = append(ids, id.String())
	}
	if timedOut {
		thought = thought + " (stage_timeout)"
	}
	c.Trace = append(c.Trace, model.TraceStep{
		Index:      index,
		Action:     action,
		NodeIDs:    ids,
		Thought:    thought,
		DurationMS: time.Since(started).Milliseconds(),
		StartedAt:  started,
	})
}

// IntentResult is stage 1's output.
type IntentResult struct {
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords"`
}

// ExtractedEntityRef is one entity mention recognized in the query text,
// resolved to a graph entity id when a match was found.
type ExtractedEntityRef struct {
	Text      string          `json:"text"`
	Kind      model.EntityKind `json:"type"`
	MatchedID *uuid.UUID      `json:"matched_id,omitempty"`
}

// ConceptResult is stage 2's output.
type ConceptResult struct {
	Entities      []ExtractedEntityRef `json:"entities"`
	Keywords      []string             `json:"keywords"`
	ResidualQuery string               `json:"residual_query"`
}

// Subtask is one node in the stage-3 execution DAG.
type Subtask struct {
	ID        string
	Kind      SubtaskKind
	EntityID  *uuid.UUID
	DependsOn []string
	// LowConfidenceFilter, set automatically for exploratory intents,
	// makes stage 4 run its retrieval with SimilarityThreshold set to 0.
	// No retrieval strategy reads SimilarityThreshold, so the flag does
	// not change which chunks or relationships are returned.
	LowConfidenceFilter bool
}

// SubtaskResult is one subtask's outcome from stage 4. Failed is true
// for a dependency-violated or erroring subtask: execution proceeds
// with partial results rather than aborting the pipeline.
type SubtaskResult struct {
	SubtaskID string
	Results   []*model.RetrievalResult
	Gaps      []*model.Gap
	Failed    bool
	Reason    string
}

// ReasoningStep is one step of stage 5's chain-of-thought synthesis.
type ReasoningStep struct {
	N          int      `json:"n"`
	Description string  `json:"description"`
	Evidence   []string `json:"evidence"`
	Conclusion string   `json:"conclusion"`
}

// ReasoningResult is stage 5's output.
type ReasoningResult struct {
	Steps               []ReasoningStep `json:"steps"`
	FinalConclusion      string          `json:"final_conclusion"`
	Confidence           float64         `json:"confidence"`
	SupportingNodeIDs    []uuid.UUID     `json:"supporting_node_ids"`
	SupportingEdgeIDs    []uuid.UUID     `json:"supporting_edge_ids"`
}

// Response is stage 6's output and the orchestrator's final answer.
type Response struct {
	Answer               string           `json:"answer"`
	Citations            []string         `json:"citations"`
	HighlightedNodeIDs   []uuid.UUID      `json:"highlighted_node_ids"`
	HighlightedEdgeIDs   []uuid.UUID      `json:"highlighted_edge_ids"`
	SuggestedFollowUps   []string         `json:"suggested_follow_ups"`
	RetrievalTrace       []model.TraceStep `json:"retrieval_trace"`
	StageFailed          string           `json:"stage_failed,omitempty"`
}
