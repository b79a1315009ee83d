package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/litreview/conceptgraph/core/gaps"
	"github.com/litreview/conceptgraph/core/retrieval"
	"github.com/litreview/conceptgraph/database"
	"github.com/litreview/conceptgraph/model"
)

// Executor runs stage-4 subtasks against the retrieval engine, the gap
// detector, or a direct-DB entity read for single-entity retrieve
// subtasks. When the query engine is nil, search/analyze/compare subtasks
// fail; the direct-DB read does not stand in for them.
type Executor struct {
	query    *retrieval.QueryEngine
	entities *database.EntitiesDBHandler
	gaps     *gaps.Detector
}

// NewExecutor wires an Executor over the retrieval and gap-detection
// subsystems.
func NewExecutor(query *retrieval.QueryEngine, entities *database.EntitiesDBHandler, gapDetector *gaps.Detector) *Executor {
	return &Executor{query: query, entities: entities, gaps: gapDetector}
}

// Execute runs subtasks respecting their declared dependencies: subtasks
// within a dependency wave run concurrently via errgroup, and a subtask
// whose dependency failed is marked Failed rather than attempted.
func (e *Executor) Execute(ctx context.Context, octx *Context, tasks []Subtask, config *model.QueryConfig) map[string]*SubtaskResult {
	results := make(map[string]*SubtaskResult, len(tasks))
	byID := make(map[string]Subtask, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	for _, wave := range topologicalWaves(tasks) {
		group, waveCtx := errgroup.WithContext(ctx)

		for _, id := range wave {
			task := byID[id]
			if depFailed(task, results) {
				results[id] = &SubtaskResult{SubtaskID: id, Failed: true, Reason: "dependency failed"}
				continue
			}

			group.Go(func() error {
				results[task.ID] = e.runSubtask(waveCtx, octx, task, config)
				return nil
			})
		}

		_ = group.Wait()
	}

	return results
}

func depFailed(task Subtask, results map[string]*SubtaskResult) bool {
	for _, dep := range task.DependsOn {
		if r, ok := results[dep]; ok && r.Failed {
			return true
		}
	}
	return false
}

func (e *Executor) runSubtask(ctx context.Context, octx *Context, task Subtask, config *model.QueryConfig) *SubtaskResult {
	switch task.Kind {
	case SubtaskSearch, SubtaskAnalyze, SubtaskCompare:
		return e.runRetrieve(ctx, octx, task, config)
	case SubtaskRetrieve:
		return e.runEntityRetrieve(ctx, task)
	case SubtaskAnalyzeGaps:
		return e.runAnalyzeGaps(ctx, octx)
	default:
		return &SubtaskResult{SubtaskID: task.ID, Failed: true, Reason: "unknown subtask kind"}
	}
}

func (e *Executor) runRetrieve(ctx context.Context, octx *Context, task Subtask, config *model.QueryConfig) *SubtaskResult {
	if e.query == nil {
		return &SubtaskResult{SubtaskID: task.ID, Failed: true, Reason: "retrieval engine unavailable"}
	}

	cfg := *config
	if task.LowConfidenceFilter {
		cfg.SimilarityThreshold = 0
	}

	response, err := e.query.Query(ctx, octx.Query, &cfg)
	if err != nil {
		return &SubtaskResult{SubtaskID: task.ID, Failed: true, Reason: err.Error()}
	}
	return &SubtaskResult{SubtaskID: task.ID, Results: response.Results}
}

// runEntityRetrieve is the direct-DB fallback path: it reads an entity's
// source chunks straight from EntitiesDBHandler without routing through
// a retrieval Strategy, used when a subtask targets one specific
// already-resolved entity.
func (e *Executor) runEntityRetrieve(ctx context.Context, task Subtask) *SubtaskResult {
	if task.EntityID == nil {
		return &SubtaskResult{SubtaskID: task.ID, Failed: true, Reason: "no entity id"}
	}

	chunks, err := e.entities.GetChunksForEntity(ctx, task.EntityID.String())
	if err != nil {
		return &SubtaskResult{SubtaskID: task.ID, Failed: true, Reason: err.Error()}
	}

	entity, err := e.entities.SelectEntity(*task.EntityID)
	if err != nil {
		return &SubtaskResult{SubtaskID: task.ID, Failed: true, Reason: err.Error()}
	}

	results := make([]*model.RetrievalResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, &model.RetrievalResult{
			Chunk:             chunk,
			Score:             1,
			RetrievalMethod:   "entity_direct",
			ConnectedEntities: []model.Entity{*entity},
		})
	}
	return &SubtaskResult{SubtaskID: task.ID, Results: results}
}

func (e *Executor) runAnalyzeGaps(ctx context.Context, octx *Context) *SubtaskResult {
	if e.gaps == nil {
		return &SubtaskResult{SubtaskID: "t2_gaps", Failed: true, Reason: "gap detector unavailable"}
	}

	gapList, err := e.gaps.DetectGaps(ctx, octx.ProjectID)
	if err != nil {
		return &SubtaskResult{SubtaskID: "t2_gaps", Failed: true, Reason: err.Error()}
	}
	return &SubtaskResult{SubtaskID: "t2_gaps", Gaps: gapList}
}

// topologicalWaves groups subtasks into dependency waves: wave N only
// contains subtasks whose dependencies are all satisfied by waves
// 0..N-1, so each wave can run fully concurrently.
func topologicalWaves(tasks []Subtask) [][]string {
	remaining := make(map[string]Subtask, len(tasks))
	for _, t := range tasks {
		remaining[t.ID] = t
	}

	var waves [][]string
	done := map[string]bool{}

	for len(remaining) > 0 {
		var wave []string
		for id, t := range remaining {
			if allDone(t.DependsOn, done) {
				wave = append(wave, id)
			}
		}
		if len(wave) == 0 {
			// Cyclic or unsatisfiable dependency: drain remaining as a
			// final best-effort wave rather than looping forever.
			for id := range remaining {
				wave = append(wave, id)
			}
		}
		for _, id := range wave {
			done[id] = true
			delete(remaining, id)
		}
		waves = append(waves, wave)
	}

	return waves
}

func allDone(deps []string, done map[string]bool) bool {
	for _, d := range deps {
		if !done[d] {
			return false
		}
	}
	return true
}
