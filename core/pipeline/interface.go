package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/model"
)

// Pipeline combines the semantic chunker, embedding service and entity
// extractor into one staged "chunk -> embed -> extract" ingest pass per
// paper, over the two-level section/paragraph hierarchy and the closed
// relationship set.
type Pipeline struct {
	Embedder  *EmbeddingService
	Extractor *Extractor
	Log       *slog.Logger

	EnableLexicalGraph bool
}

// NewPipeline builds a Pipeline over an embedding service and entity
// extractor; EnableLexicalGraph defaults to false (abstract-only
// extraction).
func NewPipeline(log *slog.Logger, embedder *EmbeddingService, extractor *Extractor) *Pipeline {
	return &Pipeline{Embedder: embedder, Extractor: extractor, Log: log}
}

// ProcessingResult is everything one paper's ingest pass produced, ready
// for the store to persist: embedded chunks plus the entities and
// relationships extracted from them.
type ProcessingResult struct {
	Chunks        []*model.Chunk
	Entities      []*model.Entity
	Relationships []*model.Relationship
}

// Process chunks a paper's raw text into the two-level section/paragraph
// hierarchy, embeds every chunk, and runs entity+relation extraction over
// the paper's abstract (always) and its chunks (when EnableLexicalGraph
// is set). Embedding failures abort the paper; extraction failures are
// logged and skipped so one bad LLM response never aborts an ingest.
func (p *Pipeline) Process(ctx context.Context, paper *model.Paper) (*ProcessingResult, error) {
	sections := Chunk(paper.RawText)

	chunks, err := p.materializeChunks(ctx, paper, sections)
	if err != nil {
		return nil, err
	}

	graph := ExtractPaperGraph(ctx, p.Log, p.Extractor, paper, chunks, p.EnableLexicalGraph)

	return &ProcessingResult{
		Chunks:        chunks,
		Entities:      graph.Entities,
		Relationships: graph.Relationships,
	}, nil
}

// materializeChunks assigns ids to every section/paragraph chunk, wires
// the paragraph->section ParentChunkID self-FK, and embeds every chunk's
// content in one batch call.
func (p *Pipeline) materializeChunks(ctx context.Context, paper *model.Paper, sections []ChunkedSection) ([]*model.Chunk, error) {
	var chunks []*model.Chunk
	var contents []string

	for _, section := range sections {
		sectionID := uuid.New()
		sectionChunk := &model.Chunk{
			ID:            sectionID,
			ProjectID:     paper.ProjectID,
			PaperID:       paper.ID,
			HierarchyLvl:  model.HierarchySection,
			SectionType:   section.SectionType,
			SequenceOrder: section.SequenceOrder,
			Content:       section.Heading,
		}
		chunks = append(chunks, sectionChunk)
		contents = append(contents, sectionChunk.Content)

		for _, para := range section.Paragraphs {
			paraChunk := &model.Chunk{
				ID:            uuid.New(),
				ProjectID:     paper.ProjectID,
				PaperID:       paper.ID,
				ParentChunkID: &sectionID,
				HierarchyLvl:  model.HierarchyParagraph,
				SectionType:   section.SectionType,
				SequenceOrder: para.SequenceOrder,
				Content:       para.Content,
				TokenCount:    para.TokenCount,
			}
			chunks = append(chunks, paraChunk)
			contents = append(contents, paraChunk.Content)
		}
	}

	embeddings, err := p.Embedder.Embed(ctx, contents)
	if err != nil {
		return nil, err
	}
	for i, chunk := range chunks {
		chunk.Embedding = embeddings[i]
	}

	return chunks, nil
}
