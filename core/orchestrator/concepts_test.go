package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidatePhrasesExtractsQuotedAndCapitalizedSpans(t *testing.T) {
	phrases := candidatePhrases(`How does "contrastive learning" relate to BERT and Graph Neural Networks?`)

	assert.Contains(t, phrases, "contrastive learning")
	assert.Contains(t, phrases, "BERT")
	assert.Contains(t, phrases, "Graph Neural Networks")
}

func TestCandidatePhrasesDeduplicatesRepeatedMentions(t *testing.T) {
	phrases := candidatePhrases(`BERT is compared to BERT variants.`)

	count := 0
	for _, p := range phrases {
		if p == "BERT" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCandidatePhrasesReturnsEmptyForLowercaseQuery(t *testing.T) {
	phrases := candidatePhrases("what methods exist for this problem")
	assert.Empty(t, phrases)
}
