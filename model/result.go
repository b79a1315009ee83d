package model

import "time"

// ProvenanceSource is the closed evidence-cascade tier a retrieval
// result's supporting evidence came from, in priority order.
type ProvenanceSource string

const (
	ProvenanceRelationshipEvidence ProvenanceSource = "relationship_evidence"
	ProvenanceSourceChunks         ProvenanceSource = "source_chunk_ids"
	ProvenanceTextSearch           ProvenanceSource = "text_search"
	ProvenanceAIExplanation        ProvenanceSource = "ai_explanation"
)

// RetrievalResult represents a chunk or entity retrieved by a query,
// carrying the score breakdown and the evidence cascade that backs it.
type RetrievalResult struct {
	Chunk   *Chunk  `json:"chunk,omitempty"`
	Entity  *Entity `json:"entity,omitempty"`
	Score   float64 `json:"score"`
	SimilarityScore float64 `json:"similarity_score"`
	GraphDistance   int     `json:"graph_distance"`
	RetrievalMethod string  `json:"retrieval_method"`

	ProvenanceTier ProvenanceSource `json:"provenance_tier,omitempty"`
	ConnectedEntities []Entity      `json:"connected_entities,omitempty"`
}

// TraceStep is one recorded step of the orchestrator/retrieval pipeline,
// returned alongside every Query response for auditability.
type TraceStep struct {
	Index      int           `json:"index"`
	Action     string        `json:"action"`
	NodeIDs    []string      `json:"node_ids,omitempty"`
	Thought    string        `json:"thought,omitempty"`
	DurationMS int64         `json:"duration_ms"`
	StartedAt  time.Time     `json:"started_at"`
}
