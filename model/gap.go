package model

import (
	"time"

	"github.com/google/uuid"
)

// GapStatus tracks a structural gap through its lifecycle.
type GapStatus string

const (
	GapDetected  GapStatus = "detected"
	GapExplored  GapStatus = "explored"
	GapBridged   GapStatus = "bridged"
	GapDismissed GapStatus = "dismissed"
)

// BridgeCandidate is an entity proposed as a connector between two
// weakly-linked clusters, ranked by betweenness * normalized degree.
type BridgeCandidate struct {
	EntityID uuid.UUID `json:"entity_id"`
	Name     string    `json:"name"`
	Score    float64   `json:"score"`
}

// GhostEdge is a plausible but unobserved relationship inferred from the
// gap analysis, offered as a research-question seed rather than a fact.
type GhostEdge struct {
	SourceID uuid.UUID `json:"source_id"`
	TargetID uuid.UUID `json:"target_id"`
	EdgeType EdgeType  `json:"edge_type"`
	Rationale string   `json:"rationale,omitempty"`
}

// Gap is a detected structural gap between two clusters: a pair of
// densely-studied neighborhoods with disproportionately few relationships
// crossing between them.
type Gap struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`

	ClusterAID uuid.UUID `json:"cluster_a_id"`
	ClusterBID uuid.UUID `json:"cluster_b_id"`

	GapStrength      float64 `json:"gap_strength"`
	SemanticDistance float64 `json:"semantic_distance"`

	BridgeCandidates  []BridgeCandidate `json:"bridge_candidates,omitempty"`
	ResearchQuestions []string          `json:"research_questions,omitempty"`
	GhostEdges        []GhostEdge       `json:"ghost_edges,omitempty"`

	Status GapStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClusterPairKey returns a and b ordered so (a,b) and (b,a) produce the
// same key, enforcing the unique-pair-per-project invariant.
func ClusterPairKey(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() <= b.String() {
		return a, b
	}
	return b, a
}
