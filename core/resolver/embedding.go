package resolver

import (
	"github.com/litreview/conceptgraph/core/pipeline"
	"github.com/litreview/conceptgraph/model"
)

const (
	// AutoMergeThreshold is the cosine similarity above which a pair is
	// merged without LLM confirmation.
	AutoMergeThreshold = 0.95
	// CandidateThreshold is the lower bound of the uncertainty window
	// queued for stage-3 LLM confirmation.
	CandidateThreshold = 0.85
)

// CandidatePair is an unresolved pair of same-(project,type) entities
// whose embedding similarity falls in the uncertainty window.
type CandidatePair struct {
	A, B       *model.Entity
	Similarity float32
}

// EmbeddingCandidates runs pairwise cosine similarity over entities not
// merged in stage 1, partitioning pairs into an auto-merge set (>=0.95)
// and a stage-3 candidate set (0.85-0.95). This is the plain O(n^2) scan
// fallback: the Graph Store's HNSW vector index can serve the same query
// as nearest-neighbor lookups per entity, but the pack carries no
// reference for driving pgvector's index from application code outside a
// SQL query, so the index-backed path is left to the store's
// SelectEntitiesBySimilarity query, and this function is the in-memory
// equivalent used when a candidate set is already materialized (e.g. all
// entities of one kind within one project, already fetched for stage 1).
func EmbeddingCandidates(entities []*model.Entity) (autoMerge [][2]*model.Entity, candidates []CandidatePair) {
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			a, b := entities[i], entities[j]
			if a.Kind != b.Kind || a.ProjectID != b.ProjectID {
				continue
			}
			if len(a.Embedding) == 0 || len(b.Embedding) == 0 {
				continue
			}

			sim := pipeline.CosineSimilarity(a.Embedding, b.Embedding)
			switch {
			case sim >= AutoMergeThreshold:
				autoMerge = append(autoMerge, [2]*model.Entity{a, b})
			case sim >= CandidateThreshold:
				candidates = append(candidates, CandidatePair{A: a, B: b, Similarity: sim})
			}
		}
	}
	return autoMerge, candidates
}
