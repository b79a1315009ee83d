package orchestrator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litreview/conceptgraph/model"
)

func TestReasonReturnsZeroConfidenceWithoutEvidence(t *testing.T) {
	result := Reason(context.Background(), nil, "does X cause Y", map[string]*SubtaskResult{})
	assert.Equal(t, 0.0, result.Confidence)
}

func TestReasonRuleBasedFallbackSummarizesEvidenceCount(t *testing.T) {
	entity := model.Entity{ID: uuid.New()}
	subtaskResults := map[string]*SubtaskResult{
		"t1_search": {
			SubtaskID: "t1_search",
			Results: []*model.RetrievalResult{
				{Chunk: &model.Chunk{Content: "transformers use self-attention"}, ConnectedEntities: []model.Entity{entity}},
			},
		},
	}

	result := Reason(context.Background(), nil, "how do transformers work", subtaskResults)

	require.NotEmpty(t, result.Steps)
	assert.Contains(t, result.FinalConclusion, "1 supporting passages")
	assert.Contains(t, result.SupportingNodeIDs, entity.ID)
}

func TestReasonSkipsFailedSubtaskResults(t *testing.T) {
	subtaskResults := map[string]*SubtaskResult{
		"t1_search": {SubtaskID: "t1_search", Failed: true, Reason: "timeout"},
	}

	result := Reason(context.Background(), nil, "query", subtaskResults)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestRuleBasedReasoningSummarizesGapsWhenNoChunks(t *testing.T) {
	gap := &model.Gap{GapStrength: 0.8, ResearchQuestions: []string{"why are these unconnected?"}}

	result := ruleBasedReasoning(nil, []*model.Gap{gap})

	assert.Contains(t, result.FinalConclusion, "1 structural gaps")
}
