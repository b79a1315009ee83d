package model

import "github.com/google/uuid"

// RetrievalStrategy is the closed set of retrieval routing strategies.
type RetrievalStrategy string

const (
	StrategyVector         RetrievalStrategy = "vector"
	StrategyGraphTraversal RetrievalStrategy = "graph_traversal"
	StrategyHybrid         RetrievalStrategy = "hybrid"
)

// QueryConfig configures a single retrieval call.
type QueryConfig struct {
	Strategy RetrievalStrategy `json:"strategy,omitempty"`

	// Vector search parameters
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`

	// Scope filtering
	ProjectID uuid.UUID   `json:"project_id"`
	PaperIDs  []uuid.UUID `json:"paper_ids,omitempty"`

	// Graph traversal parameters
	MaxHops             int        `json:"max_hops,omitempty"`
	EdgeTypes           []EdgeType `json:"edge_types,omitempty"`
	FollowBidirectional bool       `json:"follow_bidirectional"`

	// Hierarchy parameters
	IncludeAncestors   bool `json:"include_ancestors"`
	IncludeDescendants bool `json:"include_descendants"`
	IncludeSiblings    bool `json:"include_siblings"`

	// Ranking parameters
	VectorWeight    float64 `json:"vector_weight"`
	GraphWeight     float64 `json:"graph_weight"`
	HierarchyWeight float64 `json:"hierarchy_weight"`
	EntityWeight    float64 `json:"entity_weight"`
}

// DefaultQueryConfig returns a sensible default configuration.
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		Strategy:            StrategyHybrid,
		TopK:                5,
		SimilarityThreshold: 0.7,
		MaxHops:             2,
		EdgeTypes:           nil,
		FollowBidirectional: true,
		IncludeAncestors:    false,
		IncludeDescendants:  false,
		IncludeSiblings:     true,
		VectorWeight:        0.6,
		GraphWeight:         0.3,
		HierarchyWeight:     0.1,
		EntityWeight:        0.5,
	}
}
