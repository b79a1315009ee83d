package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/litreview/conceptgraph/model"
)

func TestClassifyQueryRoutesRelationalKeywordsToGraphTraversal(t *testing.T) {
	strategy := ClassifyQuery(context.Background(), nil, "How does attention relate to transformer architectures?")
	assert.Equal(t, model.StrategyGraphTraversal, strategy)
}

func TestClassifyQueryRoutesSurveyKeywordsToHybrid(t *testing.T) {
	strategy := ClassifyQuery(context.Background(), nil, "Summarize the state of the art in graph neural networks")
	assert.Equal(t, model.StrategyHybrid, strategy)
}

func TestClassifyQueryDefaultsToVectorWithoutLLM(t *testing.T) {
	strategy := ClassifyQuery(context.Background(), nil, "What is the dataset used in this paper?")
	assert.Equal(t, model.StrategyVector, strategy)
}
