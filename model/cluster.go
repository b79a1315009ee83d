package model

import (
	"time"

	"github.com/google/uuid"
)

// ClusterMethod records which algorithm produced a cluster, since the
// store may hold clusters computed by different methods across runs.
type ClusterMethod string

const (
	ClusterMethodConnectedComponents ClusterMethod = "connected_components"
	ClusterMethodLouvain             ClusterMethod = "louvain"
	ClusterMethodLeiden              ClusterMethod = "leiden"
)

// Cluster groups a set of entities (typically Concepts and Methods) that
// are densely interconnected relative to the rest of the graph.
type Cluster struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`

	Label     string    `json:"label,omitempty"`
	Keywords  []string  `json:"keywords,omitempty"`
	ConceptID []uuid.UUID `json:"concept_ids"`

	Size    int       `json:"size"`
	Density float64   `json:"density"`
	Level   int       `json:"level"`
	Method  ClusterMethod `json:"detection_method"`
	Centroid []float32 `json:"centroid,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
