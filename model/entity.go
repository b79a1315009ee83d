package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind is the closed set of concept-graph node types.
type EntityKind string

const (
	KindPaper      EntityKind = "Paper"
	KindAuthor     EntityKind = "Author"
	KindConcept    EntityKind = "Concept"
	KindMethod     EntityKind = "Method"
	KindFinding    EntityKind = "Finding"
	KindProblem    EntityKind = "Problem"
	KindDataset    EntityKind = "Dataset"
	KindMetric     EntityKind = "Metric"
	KindInnovation EntityKind = "Innovation"
	KindLimitation EntityKind = "Limitation"
	KindResult     EntityKind = "Result"
	KindClaim      EntityKind = "Claim"
)

// AllEntityKinds enumerates the closed EntityKind set, for callers that
// need to scan every kind (e.g. a cross-kind similarity search).
func AllEntityKinds() []EntityKind {
	return []EntityKind{
		KindPaper, KindAuthor, KindConcept, KindMethod, KindFinding,
		KindProblem, KindDataset, KindMetric, KindInnovation,
		KindLimitation, KindResult, KindClaim,
	}
}

// ValidEntityKind reports whether kind is one of the closed set above.
func ValidEntityKind(kind EntityKind) bool {
	switch kind {
	case KindPaper, KindAuthor, KindConcept, KindMethod, KindFinding,
		KindProblem, KindDataset, KindMetric, KindInnovation,
		KindLimitation, KindResult, KindClaim:
		return true
	default:
		return false
	}
}

// Entity is a typed node in the concept graph: a paper, author, concept,
// method, finding, or any other kind in the closed EntityKind set.
type Entity struct {
	ID             uuid.UUID  `json:"id"`
	ProjectID      uuid.UUID  `json:"project_id"`
	Kind           EntityKind `json:"kind"`
	Name           string     `json:"name"`
	NormalizedName string     `json:"normalized_name"`
	Aliases        []string   `json:"aliases,omitempty"`
	Properties     Metadata   `json:"properties,omitempty"`
	Embedding      []float32  `json:"embedding,omitempty"`

	DegreeCentrality      float64 `json:"degree_centrality"`
	BetweennessCentrality float64 `json:"betweenness_centrality"`
	PageRank              float64 `json:"pagerank"`

	ClusterID  *uuid.UUID `json:"cluster_id,omitempty"`
	Visualized bool       `json:"visualized"`

	FirstSeenYear *int `json:"first_seen_year,omitempty"`
	LastSeenYear  *int `json:"last_seen_year,omitempty"`

	ExtractionSection string      `json:"extraction_section,omitempty"`
	EvidenceSpans     Metadata    `json:"evidence_spans,omitempty"`
	SourceChunkIDs    []uuid.UUID `json:"source_chunk_ids,omitempty"`
	Confidence        float64     `json:"confidence,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChunkMention represents a chunk that mentions an entity, returned by
// entity-centric chunk lookups.
type ChunkMention struct {
	ChunkID  uuid.UUID `json:"chunk_id"`
	EdgeID   uuid.UUID `json:"edge_id"`
	EdgeKind EdgeType  `json:"edge_kind,omitempty"`
}
