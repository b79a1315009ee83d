package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/model"
)

// GraphExtractionResult bundles everything one paper's extraction pass
// produced.
type GraphExtractionResult struct {
	Entities      []*model.Entity
	Relationships []*model.Relationship
}

// ExtractPaperGraph runs the full entity+relation extraction pass for one
// paper: an abstract-only pass over the paper itself, followed by one
// section-aware pass per chunk when enableLexicalGraph is set. The LLM
// returns entities only; paper->entity edges (and, for section-aware
// entities, co-occurrence edges) are built in code from them.
func ExtractPaperGraph(ctx context.Context, log *slog.Logger, extractor *Extractor, paper *model.Paper, chunks []*model.Chunk, enableLexicalGraph bool) *GraphExtractionResult {
	result := &GraphExtractionResult{}

	abstractEntities, err := extractor.ExtractAbstractOnly(ctx, paper)
	if err != nil {
		log.Warn("abstract-only extraction failed", "paper_id", paper.ID, "error", err)
	} else {
		for _, e := range abstractEntities {
			e.ID = uuid.New()
		}
		result.Entities = append(result.Entities, abstractEntities...)
		result.Relationships = append(result.Relationships, RelationsForPaper(paper.ProjectID, paper.ID, abstractEntities)...)
	}

	if enableLexicalGraph {
		for _, chunk := range chunks {
			select {
			case <-ctx.Done():
				return result
			default:
			}

			sectionEntities, err := extractor.ExtractSectionAware(ctx, chunk)
			if err != nil {
				log.Warn("section-aware extraction failed", "paper_id", paper.ID, "chunk_id", chunk.ID, "error", err)
				continue
			}
			for _, e := range sectionEntities {
				e.ID = uuid.New()
			}

			result.Entities = append(result.Entities, sectionEntities...)
			result.Relationships = append(result.Relationships, RelationsForPaper(paper.ProjectID, paper.ID, sectionEntities)...)
			result.Relationships = append(result.Relationships, CoOccurrenceRelations(paper.ProjectID, sectionEntities)...)
		}
	}

	return result
}
