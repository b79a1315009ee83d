package orchestrator

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/core/pipeline"
	"github.com/litreview/conceptgraph/core/resolver"
	"github.com/litreview/conceptgraph/database"
	"github.com/litreview/conceptgraph/model"
)

// candidatePhrasePattern extracts capitalized or quoted phrases as
// candidate entity mentions from free-text query.
var candidatePhrasePattern = regexp.MustCompile(`"([^"]+)"|\b([A-Z][a-zA-Z0-9]*(?:\s+[A-Z][a-zA-Z0-9]*)*)\b`)

// ExtractConcepts recognizes entity mentions in the query and resolves
// each to a graph entity id via normalized-name match then embedding
// nearest-neighbor.
func ExtractConcepts(ctx context.Context, entities *database.EntitiesDBHandler, embedder *pipeline.EmbeddingService, projectID uuid.UUID, query string) (ConceptResult, error) {
	phrases := candidatePhrases(query)

	var refs []ExtractedEntityRef
	consumed := query
	for _, phrase := range phrases {
		ref := ExtractedEntityRef{Text: phrase}

		if matched := matchByNormalizedName(entities, projectID, phrase); matched != nil {
			ref.Kind = matched.Kind
			ref.MatchedID = &matched.ID
		} else if embedder != nil {
			if matched, err := matchByEmbedding(ctx, entities, embedder, projectID, phrase); err == nil && matched != nil {
				ref.Kind = matched.Kind
				ref.MatchedID = &matched.ID
			}
		}

		refs = append(refs, ref)
		consumed = strings.Replace(consumed, phrase, "", 1)
	}

	return ConceptResult{
		Entities:      refs,
		Keywords:      phrases,
		ResidualQuery: strings.Join(strings.Fields(consumed), " "),
	}, nil
}

func candidatePhrases(query string) []string {
	matches := candidatePhrasePattern.FindAllStringSubmatch(query, -1)
	seen := map[string]bool{}
	var phrases []string
	for _, m := range matches {
		phrase := m[1]
		if phrase == "" {
			phrase = m[2]
		}
		if phrase == "" || seen[phrase] {
			continue
		}
		seen[phrase] = true
		phrases = append(phrases, phrase)
	}
	return phrases
}

func matchByNormalizedName(entities *database.EntitiesDBHandler, projectID uuid.UUID, phrase string) *model.Entity {
	normalized := resolver.NormalizeName(phrase)
	for _, kind := range model.AllEntityKinds() {
		entity, err := entities.SelectEntityByNormalizedName(projectID, kind, normalized)
		if err == nil && entity != nil {
			return entity
		}
	}
	return nil
}

const embeddingMatchLimit = 1

func matchByEmbedding(ctx context.Context, entities *database.EntitiesDBHandler, embedder *pipeline.EmbeddingService, projectID uuid.UUID, phrase string) (*model.Entity, error) {
	embeddings, err := embedder.Embed(ctx, []string{phrase})
	if err != nil || len(embeddings) == 0 {
		return nil, err
	}

	for _, kind := range model.AllEntityKinds() {
		matched, similarities, err := entities.SelectEntitiesBySimilarity(projectID, kind, embeddings[0], embeddingMatchLimit)
		if err != nil || len(matched) == 0 {
			continue
		}
		if similarities[0] >= resolver.CandidateThreshold {
			return matched[0], nil
		}
	}
	return nil, nil
}
