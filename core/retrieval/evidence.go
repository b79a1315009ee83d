package retrieval

import (
	"context"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/core/pipeline"
	"github.com/litreview/conceptgraph/database"
	"github.com/litreview/conceptgraph/model"
)

// Evidence is a resolved proof package for a claim: the chunks that back
// it, the tier the cascade settled on, and (for the lowest tier only) a
// generated explanation standing in for missing hard evidence.
type Evidence struct {
	Tier        model.ProvenanceSource
	Chunks      []*model.Chunk
	Explanation string
}

// EvidenceCascade resolves supporting evidence for a relationship or
// entity from four tiers in priority order, stopping at the first tier
// that produces something: direct relationship evidence links, an
// entity's own source chunks, a text search over the project's chunks by
// entity name, then (last resort) an LLM explanation. ForRelationship
// uses only the first and last tiers; ForEntity uses the last three.
type EvidenceCascade struct {
	relationships *database.RelationshipsDBHandler
	entities      *database.EntitiesDBHandler
	chunks        *database.ChunksDBHandler
	llm           *pipeline.LLMService
}

// NewEvidenceCascade wires an EvidenceCascade over the three storage
// handlers and an optional LLM service for the final tier.
func NewEvidenceCascade(relationships *database.RelationshipsDBHandler, entities *database.EntitiesDBHandler, chunks *database.ChunksDBHandler, llm *pipeline.LLMService) *EvidenceCascade {
	return &EvidenceCascade{relationships: relationships, entities: entities, chunks: chunks, llm: llm}
}

// ForRelationship resolves evidence for a specific relationship.
func (c *EvidenceCascade) ForRelationship(ctx context.Context, relationshipID uuid.UUID) (*Evidence, error) {
	chunkIDs, err := c.relationships.SelectRelationshipEvidence(relationshipID)
	if err == nil && len(chunkIDs) > 0 {
		chunks := c.resolveChunks(chunkIDs)
		if len(chunks) > 0 {
			return &Evidence{Tier: model.ProvenanceRelationshipEvidence, Chunks: chunks}, nil
		}
	}

	rel, err := c.relationships.SelectRelationship(relationshipID)
	if err != nil {
		return nil, err
	}
	return c.fallback(ctx, rel.ProjectID, "")
}

// ForEntity resolves evidence for a specific entity.
func (c *EvidenceCascade) ForEntity(ctx context.Context, entityID uuid.UUID) (*Evidence, error) {
	entity, err := c.entities.SelectEntity(entityID)
	if err != nil {
		return nil, err
	}

	if len(entity.SourceChunkIDs) > 0 {
		chunks := c.resolveChunks(entity.SourceChunkIDs)
		if len(chunks) > 0 {
			return &Evidence{Tier: model.ProvenanceSourceChunks, Chunks: chunks}, nil
		}
	}

	return c.fallback(ctx, entity.ProjectID, entity.Name)
}

func (c *EvidenceCascade) fallback(ctx context.Context, projectID uuid.UUID, searchTerm string) (*Evidence, error) {
	if searchTerm != "" {
		chunks, err := c.chunks.SearchChunks(projectID, searchTerm, 5)
		if err == nil && len(chunks) > 0 {
			return &Evidence{Tier: model.ProvenanceTextSearch, Chunks: chunks}, nil
		}
	}

	if c.llm == nil {
		return &Evidence{Tier: model.ProvenanceAIExplanation}, nil
	}

	system := `You explain, in one or two sentences, that a claim in a literature-review knowledge graph currently has no directly linked source passage.`
	explanation, ok := c.llm.GenerateOptional(ctx, system, searchTerm, false)
	if !ok {
		explanation = "No directly linked source passage was found for this claim."
	}
	return &Evidence{Tier: model.ProvenanceAIExplanation, Explanation: explanation}, nil
}

func (c *EvidenceCascade) resolveChunks(ids []uuid.UUID) []*model.Chunk {
	chunks := make([]*model.Chunk, 0, len(ids))
	for _, id := range ids {
		chunk, err := c.chunks.SelectChunk(id)
		if err != nil {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
