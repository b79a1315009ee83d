package orchestrator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanTasksIdentifyGapsOnlyEmitsSearchAndGapsSubtasks(t *testing.T) {
	tasks := PlanTasks(IntentResult{Intent: IntentIdentifyGaps}, ConceptResult{})

	require.Len(t, tasks, 2)
	assert.Equal(t, SubtaskSearch, tasks[0].Kind)
	assert.True(t, tasks[0].LowConfidenceFilter)
	assert.Equal(t, SubtaskAnalyzeGaps, tasks[1].Kind)
	assert.Equal(t, []string{tasks[0].ID}, tasks[1].DependsOn)
}

func TestPlanTasksCompareRequiresTwoMatchedEntities(t *testing.T) {
	idA, idB := uuid.New(), uuid.New()
	concepts := ConceptResult{Entities: []ExtractedEntityRef{
		{Text: "GPT-4", MatchedID: &idA},
		{Text: "PaLM", MatchedID: &idB},
	}}

	tasks := PlanTasks(IntentResult{Intent: IntentCompare}, concepts)

	var compareTask *Subtask
	for i := range tasks {
		if tasks[i].Kind == SubtaskCompare {
			compareTask = &tasks[i]
		}
	}
	require.NotNil(t, compareTask)
	assert.Len(t, compareTask.DependsOn, 2)
}

func TestPlanTasksCompareWithOneMatchSkipsCompareSubtask(t *testing.T) {
	idA := uuid.New()
	concepts := ConceptResult{Entities: []ExtractedEntityRef{{Text: "GPT-4", MatchedID: &idA}}}

	tasks := PlanTasks(IntentResult{Intent: IntentCompare}, concepts)

	for _, task := range tasks {
		assert.NotEqual(t, SubtaskCompare, task.Kind)
	}
}

func TestPlanTasksExploreAddsAnalyzeSubtaskDependingOnSearchAndRetrieve(t *testing.T) {
	id := uuid.New()
	concepts := ConceptResult{Entities: []ExtractedEntityRef{{Text: "federated learning", MatchedID: &id}}}

	tasks := PlanTasks(IntentResult{Intent: IntentExplore}, concepts)

	var analyze *Subtask
	for i := range tasks {
		if tasks[i].Kind == SubtaskAnalyze {
			analyze = &tasks[i]
		}
	}
	require.NotNil(t, analyze)
	assert.True(t, analyze.LowConfidenceFilter)
	assert.Len(t, analyze.DependsOn, 2)
}

func TestPlanTasksSearchOnlyForPlainSearchIntent(t *testing.T) {
	tasks := PlanTasks(IntentResult{Intent: IntentSearch}, ConceptResult{})
	require.Len(t, tasks, 1)
	assert.Equal(t, SubtaskSearch, tasks[0].Kind)
	assert.False(t, tasks[0].LowConfidenceFilter)
}
