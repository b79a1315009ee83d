package pipeline

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litreview/conceptgraph/model"
)

func TestExtractPaperGraphAbstractOnlyByDefault(t *testing.T) {
	response := `{"concepts": [{"name": "knowledge graphs"}], "methods": [], "findings": []}`
	extractor := NewExtractor(newTestLLMService(response))

	paper := &model.Paper{ID: uuid.New(), ProjectID: uuid.New(), Title: "T", Abstract: "A"}

	result := ExtractPaperGraph(context.Background(), testLogger(), extractor, paper, nil, false)

	require.Len(t, result.Entities, 1)
	require.Len(t, result.Relationships, 1)
	assert.Equal(t, model.EdgeDiscussesConcept, result.Relationships[0].Type)
}

func TestExtractPaperGraphWithLexicalGraphAddsSectionEntitiesAndCoOccurs(t *testing.T) {
	response := `{"concepts": ["graph theory"], "methods": ["clustering"], "findings": [], "datasets": [], "problems": []}`
	extractor := NewExtractor(newTestLLMService(response))

	paper := &model.Paper{ID: uuid.New(), ProjectID: uuid.New(), Title: "T", Abstract: "A"}
	chunks := []*model.Chunk{
		{ID: uuid.New(), ProjectID: paper.ProjectID, SectionType: model.SectionMethodology, Content: "We use clustering over a graph."},
	}

	result := ExtractPaperGraph(context.Background(), testLogger(), extractor, paper, chunks, true)

	// abstract-only pass (1 concept) + section-aware pass (1 concept response reused by methodology template)
	assert.GreaterOrEqual(t, len(result.Entities), 2)
	assert.NotEmpty(t, result.Relationships)
}

func TestExtractPaperGraphSkipsChunksOnCancelledContext(t *testing.T) {
	response := `{"concepts": [], "methods": [], "findings": []}`
	extractor := NewExtractor(newTestLLMService(response))
	paper := &model.Paper{ID: uuid.New(), ProjectID: uuid.New(), Title: "T", Abstract: "A"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chunks := []*model.Chunk{{ID: uuid.New(), SectionType: model.SectionResults, Content: "results text"}}
	result := ExtractPaperGraph(ctx, testLogger(), extractor, paper, chunks, true)

	assert.NotNil(t, result)
}
