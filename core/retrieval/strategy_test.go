package retrieval

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litreview/conceptgraph/model"
)

func TestSortedTopKOrdersByScoreDescending(t *testing.T) {
	low := &model.RetrievalResult{Chunk: &model.Chunk{ID: uuid.New()}, Score: 0.2}
	high := &model.RetrievalResult{Chunk: &model.Chunk{ID: uuid.New()}, Score: 0.9}
	mid := &model.RetrievalResult{Chunk: &model.Chunk{ID: uuid.New()}, Score: 0.5}

	resultMap := map[string]*model.RetrievalResult{
		"low":  low,
		"high": high,
		"mid":  mid,
	}

	sorted := sortedTopK(resultMap, 0)
	require.Len(t, sorted, 3)
	assert.Equal(t, high, sorted[0])
	assert.Equal(t, mid, sorted[1])
	assert.Equal(t, low, sorted[2])
}

func TestSortedTopKRespectsLimit(t *testing.T) {
	resultMap := map[string]*model.RetrievalResult{
		"a": {Chunk: &model.Chunk{ID: uuid.New()}, Score: 1},
		"b": {Chunk: &model.Chunk{ID: uuid.New()}, Score: 2},
		"c": {Chunk: &model.Chunk{ID: uuid.New()}, Score: 3},
	}

	sorted := sortedTopK(resultMap, 2)
	assert.Len(t, sorted, 2)
}

func TestStrategyForRejectsUnrecognizedStrategy(t *testing.T) {
	_, err := StrategyFor(model.RetrievalStrategy("bogus"), nil, nil)
	assert.Error(t, err)
}

func TestStrategyForResolvesEachKnownStrategy(t *testing.T) {
	engine := &Engine{}
	for _, strategy := range []model.RetrievalStrategy{model.StrategyVector, model.StrategyGraphTraversal, model.StrategyHybrid} {
		resolved, err := StrategyFor(strategy, engine, nil)
		require.NoError(t, err)
		assert.NotNil(t, resolved)
	}
}
