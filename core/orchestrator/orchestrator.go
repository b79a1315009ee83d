package orchestrator

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/core/pipeline"
	"github.com/litreview/conceptgraph/database"
	"github.com/litreview/conceptgraph/model"
)

const (
	stageTimeout   = 15 * time.Second
	overallTimeout = 30 * time.Second
)

// Orchestrator runs the six-stage pipeline end to end: intent
// classification, concept extraction, task planning, query execution,
// reasoning, and response generation.
type Orchestrator struct {
	llm      *pipeline.LLMService
	embedder *pipeline.EmbeddingService
	entities *database.EntitiesDBHandler
	executor *Executor
	log      *slog.Logger
}

// New wires an Orchestrator over the retrieval and gap-detection
// subsystems it drives stage 4 against.
func New(log *slog.Logger, llm *pipeline.LLMService, embedder *pipeline.EmbeddingService, entities *database.EntitiesDBHandler, executor *Executor) *Orchestrator {
	return &Orchestrator{llm: llm, embedder: embedder, entities: entities, executor: executor, log: log}
}

// Answer runs the full pipeline against a single natural-language query,
// bounding the whole run to overallTimeout and each stage to
// stageTimeout. A stage that times out yields a partial Response marked
// with StageFailed rather than an error, so the caller always gets
// something to show.
func (o *Orchestrator) Answer(ctx context.Context, conversationID, projectID uuid.UUID, query string, retrievalConfig *model.QueryConfig) Response {
	ctx, cancel := context.WithTimeout(ctx, overallTimeout)
	defer cancel()

	octx := &Context{ConversationID: conversationID, ProjectID: projectID, Query: query}

	if retrievalConfig == nil {
		cfg := model.DefaultQueryConfig()
		retrievalConfig = &cfg
	}
	retrievalConfig.ProjectID = projectID

	intent, timedOut := o.stageIntent(ctx, octx, query)
	if timedOut {
		return Respond(octx, intent, ReasoningResult{FinalConclusion: "Intent classification timed out."}, "intent")
	}

	concepts, timedOut := o.stageConcepts(ctx, octx, projectID, query)
	if timedOut {
		return Respond(octx, intent, ReasoningResult{FinalConclusion: "Concept extraction timed out."}, "concepts")
	}

	tasks, timedOut := o.stagePlan(ctx, octx, intent, concepts)
	if timedOut {
		return Respond(octx, intent, ReasoningResult{FinalConclusion: "Task planning timed out."}, "plan")
	}

	subtaskResults, timedOut := o.stageExecute(ctx, octx, tasks, retrievalConfig)
	if timedOut {
		return Respond(octx, intent, ReasoningResult{FinalConclusion: "Query execution timed out; returning partial results."}, "execute")
	}

	reasoning, timedOut := o.stageReason(ctx, octx, query, subtaskResults)
	if timedOut {
		return Respond(octx, intent, ReasoningResult{FinalConclusion: "Reasoning timed out."}, "reason")
	}

	return Respond(octx, intent, reasoning, "")
}

func (o *Orchestrator) runStage(ctx context.Context, octx *Context, index int, action string, fn func(ctx context.Context) (interface{}, []uuid.UUID, string)) (interface{}, bool) {
	stageCtx, cancel := context.WithTimeout(ctx, stageTimeout)
	defer cancel()

	started := time.Now()
	type outcome struct {
		result  interface{}
		nodeIDs []uuid.UUID
		thought string
	}
	done := make(chan outcome, 1)

	go func() {
		result, nodeIDs, thought := fn(stageCtx)
		done <- outcome{result, nodeIDs, thought}
	}()

	select {
	case out := <-done:
		octx.recordStep(index, action, out.thought, out.nodeIDs, started, false)
		return out.result, false
	case <-stageCtx.Done():
		octx.recordStep(index, action, "stage did not complete within timeout", nil, started, true)
		return nil, true
	}
}

func (o *Orchestrator) stageIntent(ctx context.Context, octx *Context, query string) (IntentResult, bool) {
	result, timedOut := o.runStage(ctx, octx, 1, "classify_intent", func(stageCtx context.Context) (interface{}, []uuid.UUID, string) {
		intent := ClassifyIntent(stageCtx, o.llm, query)
		return intent, nil, "classified intent as " + string(intent.Intent)
	})
	if timedOut {
		return IntentResult{Intent: IntentSearch}, true
	}
	return result.(IntentResult), false
}

func (o *Orchestrator) stageConcepts(ctx context.Context, octx *Context, projectID uuid.UUID, query string) (ConceptResult, bool) {
	result, timedOut := o.runStage(ctx, octx, 2, "extract_concepts", func(stageCtx context.Context) (interface{}, []uuid.UUID, string) {
		concepts, err := ExtractConcepts(stageCtx, o.entities, o.embedder, projectID, query)
		if err != nil {
			return ConceptResult{}, nil, "concept extraction failed: " + err.Error()
		}
		var ids []uuid.UUID
		for _, ref := range concepts.Entities {
			if ref.MatchedID != nil {
				ids = append(ids, *ref.MatchedID)
			}
		}
		octx.HighlightedEntityIDs = append(octx.HighlightedEntityIDs, ids...)
		return concepts, ids, "matched " + strconv.Itoa(len(ids)) + " entities in query"
	})
	if timedOut {
		return ConceptResult{}, true
	}
	return result.(ConceptResult), false
}

func (o *Orchestrator) stagePlan(ctx context.Context, octx *Context, intent IntentResult, concepts ConceptResult) ([]Subtask, bool) {
	result, timedOut := o.runStage(ctx, octx, 3, "plan_tasks", func(stageCtx context.Context) (interface{}, []uuid.UUID, string) {
		tasks := PlanTasks(intent, concepts)
		return tasks, nil, strconv.Itoa(len(tasks)) + " subtasks planned"
	})
	if timedOut {
		return nil, true
	}
	return result.([]Subtask), false
}

func (o *Orchestrator) stageExecute(ctx context.Context, octx *Context, tasks []Subtask, config *model.QueryConfig) (map[string]*SubtaskResult, bool) {
	result, timedOut := o.runStage(ctx, octx, 4, "execute_subtasks", func(stageCtx context.Context) (interface{}, []uuid.UUID, string) {
		results := o.executor.Execute(stageCtx, octx, tasks, config)
		failed := 0
		for _, r := range results {
			if r.Failed {
				failed++
			}
		}
		return results, nil, strconv.Itoa(len(results)-failed) + " of " + strconv.Itoa(len(results)) + " subtasks succeeded"
	})
	if timedOut {
		return map[string]*SubtaskResult{}, true
	}
	return result.(map[string]*SubtaskResult), false
}

func (o *Orchestrator) stageReason(ctx context.Context, octx *Context, query string, subtaskResults map[string]*SubtaskResult) (ReasoningResult, bool) {
	result, timedOut := o.runStage(ctx, octx, 5, "reason", func(stageCtx context.Context) (interface{}, []uuid.UUID, string) {
		reasoning := Reason(stageCtx, o.llm, query, subtaskResults)
		return reasoning, reasoning.SupportingNodeIDs, reasoning.FinalConclusion
	})
	if timedOut {
		return ReasoningResult{}, true
	}
	return result.(ReasoningResult), false
}

