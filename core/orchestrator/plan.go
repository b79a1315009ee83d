package orchestrator

import "fmt"

// PlanTasks rule-translates (intent, entities) into an ordered DAG of
// subtasks from the closed SubtaskKind set.
// Exploratory intents (explore, identify_gaps) automatically get the
// low-confidence-relationship filter, since those intents surf
// unvetted structural signal rather than a specific known fact.
func PlanTasks(intent IntentResult, concepts ConceptResult) []Subtask {
	lowConfidence := intent.Intent == IntentExplore || intent.Intent == IntentIdentifyGaps

	var tasks []Subtask

	search := Subtask{ID: "t1_search", Kind: SubtaskSearch, LowConfidenceFilter: lowConfidence}
	tasks = append(tasks, search)

	if intent.Intent == IntentIdentifyGaps {
		tasks = append(tasks, Subtask{ID: "t2_gaps", Kind: SubtaskAnalyzeGaps, DependsOn: []string{search.ID}})
		return tasks
	}

	matchedCount := 0
	for i, ref := range concepts.Entities {
		if ref.MatchedID == nil {
			continue
		}
		matchedCount++
		id := fmt.Sprintf("t%d_retrieve", i+2)
		tasks = append(tasks, Subtask{ID: id, Kind: SubtaskRetrieve, EntityID: ref.MatchedID, DependsOn: []string{search.ID}, LowConfidenceFilter: lowConfidence})
	}

	switch intent.Intent {
	case IntentCompare:
		if matchedCount >= 2 {
			dependsOn := subtaskIDsByKind(tasks, SubtaskRetrieve)
			tasks = append(tasks, Subtask{ID: "compare", Kind: SubtaskCompare, DependsOn: dependsOn})
		}
	case IntentExplore, IntentExplain:
		dependsOn := append([]string{search.ID}, subtaskIDsByKind(tasks, SubtaskRetrieve)...)
		tasks = append(tasks, Subtask{ID: "analyze", Kind: SubtaskAnalyze, DependsOn: dependsOn, LowConfidenceFilter: lowConfidence})
	}

	return tasks
}

func subtaskIDsByKind(tasks []Subtask, kind SubtaskKind) []string {
	var ids []string
	for _, t := range tasks {
		if t.Kind == kind {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
