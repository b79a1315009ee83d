// Package gaps detects structural gaps: pairs of densely-studied clusters
// that have disproportionately few relationships crossing between them,
// ranks bridge candidates, and optionally proposes research questions.
package gaps

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/core/graph"
	"github.com/litreview/conceptgraph/core/pipeline"
	"github.com/litreview/conceptgraph/model"
)

// DefaultGapStrengthThreshold is the gap_strength ceiling a cluster pair
// must stay under to be kept as a reportable gap. gap_strength is
// lower-is-stronger, so this is a maximum, not a minimum.
const DefaultGapStrengthThreshold = 0.1

const maxBridgeCandidates = 5

type entityStore interface {
	SelectEntitiesByProject(projectID uuid.UUID, limit int) ([]*model.Entity, error)
}

type relationshipStore interface {
	SelectRelationshipsByProject(projectID uuid.UUID) ([]*model.Relationship, error)
}

type clusterStore interface {
	SelectClustersByProject(projectID uuid.UUID) ([]*model.Cluster, error)
}

type gapStore interface {
	DeleteGapsByProject(projectID uuid.UUID) error
	InsertGap(gap *model.Gap) error
}

// Detector computes structural gaps for a project's cluster partition.
type Detector struct {
	entities      entityStore
	relationships relationshipStore
	clusters      clusterStore
	gapsTable     gapStore
	llm           *pipeline.LLMService
	log           *slog.Logger

	strengthThreshold float64
}

// NewDetector wires a Detector against the live database handlers.
func NewDetector(log *slog.Logger, entities entityStore, relationships relationshipStore, clusters clusterStore, gapsTable gapStore, llm *pipeline.LLMService) *Detector {
	return &Detector{
		entities:          entities,
		relationships:     relationships,
		clusters:          clusters,
		gapsTable:         gapsTable,
		llm:               llm,
		log:               log,
		strengthThreshold: DefaultGapStrengthThreshold,
	}
}

// WithStrengthThreshold overrides the default 0.1 gap_strength cutoff.
func (d *Detector) WithStrengthThreshold(threshold float64) *Detector {
	d.strengthThreshold = threshold
	return d
}

// DetectGaps recomputes every structural gap for a project and replaces
// its prior gaps rows in one logical step.
func (d *Detector) DetectGaps(ctx context.Context, projectID uuid.UUID) ([]*model.Gap, error) {
	clusters, err := d.clusters.SelectClustersByProject(projectID)
	if err != nil {
		return nil, err
	}
	if len(clusters) < 2 {
		return nil, d.gapsTable.DeleteGapsByProject(projectID)
	}

	entities, err := d.entities.SelectEntitiesByProject(projectID, 0)
	if err != nil {
		return nil, err
	}
	relationships, err := d.relationships.SelectRelationshipsByProject(projectID)
	if err != nil {
		return nil, err
	}

	clusterOf := make(map[uuid.UUID]uuid.UUID, len(entities))
	entityByID := make(map[uuid.UUID]*model.Entity, len(entities))
	for _, e := range entities {
		entityByID[e.ID] = e
	}
	for _, c := range clusters {
		for _, id := range c.ConceptID {
			clusterOf[id] = c.ID
		}
	}

	weights := crossClusterWeights(relationships, clusterOf)
	scores := graph.ComputeCentrality(entities, relationships)

	var gaps []*model.Gap
	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			a, b := clusters[i], clusters[j]
			strength := gapStrength(weights, a, b)
			if strength >= d.strengthThreshold {
				continue
			}

			gap := &model.Gap{
				ID:               uuid.New(),
				ProjectID:        projectID,
				GapStrength:      strength,
				SemanticDistance: semanticDistance(a, b),
				BridgeCandidates: bridgeCandidates(a, b, entityByID, scores),
				Status:           model.GapDetected,
			}
			gap.ClusterAID, gap.ClusterBID = model.ClusterPairKey(a.ID, b.ID)

			if d.llm != nil {
				gap.ResearchQuestions = d.proposeQuestions(ctx, a, b)
			}

			gaps = append(gaps, gap)
		}
	}

	sort.Slice(gaps, func(i, j int) bool { return gaps[i].GapStrength < gaps[j].GapStrength })

	if err := d.gapsTable.DeleteGapsByProject(projectID); err != nil {
		return nil, err
	}
	for _, gap := range gaps {
		if err := d.gapsTable.InsertGap(gap); err != nil {
			return nil, err
		}
	}

	return gaps, nil
}

// proposeQuestions asks the LLM for research questions bridging two
// clusters. Failure is non-fatal: the gap ships without questions.
func (d *Detector) proposeQuestions(ctx context.Context, a, b *model.Cluster) []string {
	system, user := pipeline.GapQuestionPrompt(a.Label, b.Label, a.Keywords, b.Keywords)
	raw, ok := d.llm.GenerateOptional(ctx, system, user, true)
	if !ok {
		return nil
	}

	var parsed struct {
		Questions []string `json:"questions"`
	}
	if err := pipeline.ParseJSON(raw, &parsed); err != nil {
		d.log.Info("gap question response unparsable, dropping", "error", err)
		return nil
	}
	return parsed.Questions
}

func crossClusterWeights(relationships []*model.Relationship, clusterOf map[uuid.UUID]uuid.UUID) map[[2]uuid.UUID]float64 {
	weights := make(map[[2]uuid.UUID]float64)
	for _, rel := range relationships {
		ca, okA := clusterOf[rel.SourceID]
		cb, okB := clusterOf[rel.TargetID]
		if !okA || !okB || ca == cb {
			continue
		}
		key1, key2 := model.ClusterPairKey(ca, cb)
		weights[[2]uuid.UUID{key1, key2}] += rel.Weight
	}
	return weights
}

// maxInterClusterEdgeCap bounds the gap-strength denominator so two
// large clusters with only a handful of real cross-links still register
// as a strong gap, rather than being squeezed toward 1 purely because
// |A|*|B| is large.
const maxInterClusterEdgeCap = 50.0

// gapStrength is the cross-cluster edge weight as a share of the
// maximum possible, capped by maxInterClusterEdgeCap: near 0 for a pair
// with almost no cross-links (a strong structural gap), near 1 for a
// pair that is densely cross-connected relative to its size (no gap).
// Lower is a stronger gap, matching the inter-edges(A,B) / min(|A|*|B|,
// threshold) formula.
func gapStrength(weights map[[2]uuid.UUID]float64, a, b *model.Cluster) float64 {
	key1, key2 := model.ClusterPairKey(a.ID, b.ID)
	cross := weights[[2]uuid.UUID{key1, key2}]

	maxPossible := float64(len(a.ConceptID)) * float64(len(b.ConceptID))
	if maxPossible > maxInterClusterEdgeCap {
		maxPossible = maxInterClusterEdgeCap
	}
	if maxPossible == 0 {
		return 0
	}

	strength := cross / maxPossible
	if strength > 1 {
		strength = 1
	}
	return strength
}

// semanticDistance is the cosine distance between cluster centroids,
// falling back to 0 (no distance signal) when either centroid is empty.
func semanticDistance(a, b *model.Cluster) float64 {
	if len(a.Centroid) == 0 || len(b.Centroid) == 0 {
		return 0
	}
	return 1 - float64(pipeline.CosineSimilarity(a.Centroid, b.Centroid))
}

// bridgeCandidates ranks the highest betweenness*closeness-scoring
// entities from either cluster as plausible connectors, approximating
// closeness with normalized degree since full closeness requires
// all-pairs shortest paths the gap detector does not otherwise compute.
func bridgeCandidates(a, b *model.Cluster, entityByID map[uuid.UUID]*model.Entity, scores map[uuid.UUID]*graph.CentralityScores) []model.BridgeCandidate {
	var candidates []model.BridgeCandidate
	for _, id := range append(append([]uuid.UUID{}, a.ConceptID...), b.ConceptID...) {
		e, ok := entityByID[id]
		if !ok {
			continue
		}
		s, ok := scores[id]
		if !ok {
			continue
		}
		score := s.Betweenness * s.Degree
		if score <= 0 {
			continue
		}
		candidates = append(candidates, model.BridgeCandidate{EntityID: id, Name: e.Name, Score: score})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > maxBridgeCandidates {
		candidates = candidates[:maxBridgeCandidates]
	}
	return candidates
}
