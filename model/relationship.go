package model

import (
	"time"

	"github.com/google/uuid"
)

// EdgeType is the closed set of typed directed relationships between
// entities in the concept graph.
type EdgeType string

const (
	EdgeAuthoredBy       EdgeType = "AUTHORED_BY"
	EdgeCites            EdgeType = "CITES"
	EdgeDiscussesConcept EdgeType = "DISCUSSES_CONCEPT"
	EdgeUsesMethod       EdgeType = "USES_METHOD"
	EdgeUsesDataset      EdgeType = "USES_DATASET"
	EdgeHasFinding       EdgeType = "HAS_FINDING"
	EdgeSupports         EdgeType = "SUPPORTS"
	EdgeContradicts      EdgeType = "CONTRADICTS"
	EdgeCoOccurs         EdgeType = "CO_OCCURS"
	EdgeBridgesGap       EdgeType = "BRIDGES_GAP"
	EdgeUsedIn           EdgeType = "USED_IN"
	EdgeEvaluatedOn      EdgeType = "EVALUATED_ON"
	EdgeReports          EdgeType = "REPORTS"
	EdgeMentions         EdgeType = "MENTIONS"
	EdgeSameAs           EdgeType = "SAME_AS"
	EdgePrerequisiteOf   EdgeType = "PREREQUISITE_OF"
)

// ValidEdgeType reports whether t is one of the closed relationship types.
func ValidEdgeType(t EdgeType) bool {
	switch t {
	case EdgeAuthoredBy, EdgeCites, EdgeDiscussesConcept, EdgeUsesMethod,
		EdgeUsesDataset, EdgeHasFinding, EdgeSupports, EdgeContradicts,
		EdgeCoOccurs, EdgeBridgesGap, EdgeUsedIn, EdgeEvaluatedOn,
		EdgeReports, EdgeMentions, EdgeSameAs, EdgePrerequisiteOf:
		return true
	default:
		return false
	}
}

// Symmetric reports whether t has no inherent direction (SAME_AS is its
// own inverse; every other edge type is directional).
func (t EdgeType) Symmetric() bool {
	return t == EdgeSameAs
}

// Relationship is a typed directed edge between two entities.
type Relationship struct {
	ID         uuid.UUID `json:"id"`
	ProjectID  uuid.UUID `json:"project_id"`
	SourceID   uuid.UUID `json:"source_id"`
	TargetID   uuid.UUID `json:"target_id"`
	Type       EdgeType  `json:"edge_type"`
	Weight     float64   `json:"weight"`
	Properties Metadata  `json:"properties,omitempty"`

	EvidenceChunkIDs []uuid.UUID `json:"evidence_chunk_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ClampWeight clamps w into the valid relationship weight range [0, 1].
func ClampWeight(w float64) float64 {
	switch {
	case w < 0:
		return 0
	case w > 1:
		return 1
	default:
		return w
	}
}

// SelfLoop reports whether the relationship connects an entity to itself.
// The store does not reject self-loops.
func (r *Relationship) SelfLoop() bool {
	return r.SourceID == r.TargetID
}

// TraversalNode represents a node reached during a BFS/DFS graph walk.
type TraversalNode struct {
	EntityID uuid.UUID   `json:"entity_id"`
	Depth    int         `json:"depth"`
	Path     []uuid.UUID `json:"path"`
}
