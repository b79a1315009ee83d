package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/litreview/conceptgraph/model"
)

func TestNormalizeNameCollapsesHyphenAndSpaceVariants(t *testing.T) {
	a := NormalizeName("Fine-Tuning")
	b := NormalizeName("finetuning")
	c := NormalizeName("fine tuning")
	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestAcronymExpansionDetectsLongFormPattern(t *testing.T) {
	longForm, acronym, ok := AcronymExpansion("Large Language Model (LLM)")
	assert.True(t, ok)
	assert.Equal(t, "Large Language Model", longForm)
	assert.Equal(t, "LLM", acronym)
}

func TestAcronymExpansionRejectsPlainText(t *testing.T) {
	_, _, ok := AcronymExpansion("just a plain definition")
	assert.False(t, ok)
}

func TestContextBucketDistinguishesHomonyms(t *testing.T) {
	nlp := &model.Entity{Name: "transformer", Properties: model.Metadata{"definition": "an attention-based encoder architecture"}}
	electrical := &model.Entity{Name: "transformer", Properties: model.Metadata{"definition": "a device that steps down voltage"}}

	assert.NotEqual(t, ContextBucket(nlp), ContextBucket(electrical))
}

func TestContextBucketDistinguishesSatelliteFromSatisfiability(t *testing.T) {
	satellite := &model.Entity{Name: "SAT", Properties: model.Metadata{"definition": "a satellite in low earth orbit"}}
	satisfiability := &model.Entity{Name: "SAT", Properties: model.Metadata{"definition": "the boolean satisfiability problem, an NP-complete decision problem"}}
	exam := &model.Entity{Name: "SAT", Properties: model.Metadata{"definition": "a standardized college admission exam"}}

	assert.NotEqual(t, ContextBucket(satellite), ContextBucket(satisfiability))
	assert.NotEqual(t, ContextBucket(satellite), ContextBucket(exam))
	assert.NotEqual(t, ContextBucket(satisfiability), ContextBucket(exam))
}

func TestContextBucketDefaultForUnambiguousNames(t *testing.T) {
	e := &model.Entity{Name: "graph neural network"}
	assert.Equal(t, "default", ContextBucket(e))
}

func TestGroupDeterministicSeparatesByTypeNameAndContext(t *testing.T) {
	entities := []*model.Entity{
		{Name: "fine-tuning", Kind: model.KindMethod},
		{Name: "finetuning", Kind: model.KindMethod},
		{Name: "finetuning", Kind: model.KindConcept},
	}

	groups := GroupDeterministic(entities)
	assert.Len(t, groups, 2)

	for key, group := range groups {
		if key.Kind == model.KindMethod {
			assert.Len(t, group, 2)
		}
		if key.Kind == model.KindConcept {
			assert.Len(t, group, 1)
		}
	}
}
