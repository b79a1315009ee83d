package resolver

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/core/pipeline"
	"github.com/litreview/conceptgraph/database"
	"github.com/litreview/conceptgraph/model"
)

// entityStore is the subset of database.EntitiesDBHandler the resolver
// depends on, kept narrow so tests can supply a fake.
type entityStore interface {
	SelectEntitiesByKind(projectID uuid.UUID, kind model.EntityKind, limit int) ([]*model.Entity, error)
	UpdateEntityMerge(entity *model.Entity) error
	DeleteEntity(id uuid.UUID) error
}

// relationshipStore is the subset of database.RelationshipsDBHandler the
// resolver depends on.
type relationshipStore interface {
	RewriteRelationshipsEndpoint(fromID, toID uuid.UUID) error
	InsertRelationship(rel *model.Relationship) error
	InsertResolutionDecision(projectID, entityAID, entityBID uuid.UUID, decision string) error
	SelectResolutionDecision(entityAID, entityBID uuid.UUID) (string, bool, error)
}

// Resolver runs the three-stage entity resolution cascade plus
// cross-paper SAME_AS linking, with explicit staged functions over
// typed handlers.
type Resolver struct {
	entities      entityStore
	relationships relationshipStore
	llm           *pipeline.LLMService
	log           *slog.Logger

	// MaxLLMBatch bounds how many stage-3 candidate pairs are submitted
	// to the LLM per run, to control spend.
	MaxLLMBatch int
}

// NewResolver builds a Resolver over the live database handlers.
func NewResolver(log *slog.Logger, entities *database.EntitiesDBHandler, relationships *database.RelationshipsDBHandler, llm *pipeline.LLMService) *Resolver {
	return NewResolverFromStores(log, entities, relationships, llm)
}

// NewResolverFromStores builds a Resolver over the narrow entityStore/
// relationshipStore interfaces directly, letting tests supply fakes.
func NewResolverFromStores(log *slog.Logger, entities entityStore, relationships relationshipStore, llm *pipeline.LLMService) *Resolver {
	return &Resolver{entities: entities, relationships: relationships, llm: llm, log: log, MaxLLMBatch: 50}
}

// Stats accumulates per-ingest resolution counters.
type Stats struct {
	TotalInput               int
	AutoMergedDeterministic  int
	EmbeddingCandidatePairs  int
	EmbeddingAutoMerged      int
	LLMPairsReviewed         int
	LLMConfirmedMerges       int
	PotentialFalseMerges     int
	PotentialFalseMergeNames [][2]string
	ResolutionDeferred       int
	FinalCanonicalCount      int
	CrossPaperSameAsCount    int
}

// CanonicalizationRate is the fraction of input entities that collapsed
// into a smaller canonical set.
func (s *Stats) CanonicalizationRate() float64 {
	if s.TotalInput == 0 {
		return 0
	}
	return 1 - float64(s.FinalCanonicalCount)/float64(s.TotalInput)
}

// Resolve runs stage 1 (deterministic grouping), stage 2 (embedding
// candidates), stage 3 (LLM confirmation), then cross-paper SAME_AS
// linking, over every entity of kind within a project. Idempotent:
// stage 3 consults resolution_decisions before re-submitting a pair.
func (r *Resolver) Resolve(ctx context.Context, projectID uuid.UUID, kind model.EntityKind) (*Stats, error) {
	entities, err := r.entities.SelectEntitiesByKind(projectID, kind, 0)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalInput: len(entities)}

	canonical, err := r.runStage1(entities, stats)
	if err != nil {
		return nil, err
	}

	canonical, err = r.runStage2And3(ctx, canonical, stats)
	if err != nil {
		return nil, err
	}

	stats.FinalCanonicalCount = len(canonical)

	if kind == model.KindMethod || kind == model.KindDataset || kind == model.KindConcept {
		crossPaperCount, err := r.linkCrossPaperSameAs(canonical)
		if err != nil {
			return nil, err
		}
		stats.CrossPaperSameAsCount = crossPaperCount
	}

	return stats, nil
}

// runStage1 groups entities deterministically and merges every
// multi-element group, writing the merge back through the store.
func (r *Resolver) runStage1(entities []*model.Entity, stats *Stats) ([]*model.Entity, error) {
	groups := GroupDeterministic(entities)

	var survivors []*model.Entity
	for _, group := range groups {
		if len(group) == 1 {
			survivors = append(survivors, group[0])
			continue
		}

		canonical, err := r.mergeGroup(group)
		if err != nil {
			return nil, err
		}
		stats.AutoMergedDeterministic += len(group) - 1
		survivors = append(survivors, canonical)
	}

	return survivors, nil
}

// runStage2And3 computes embedding candidates over stage-1 survivors,
// auto-merges high-similarity pairs, and submits uncertain pairs for LLM
// confirmation, skipping any pair already decided in a prior run.
func (r *Resolver) runStage2And3(ctx context.Context, entities []*model.Entity, stats *Stats) ([]*model.Entity, error) {
	autoMergePairs, candidatePairs := EmbeddingCandidates(entities)
	stats.EmbeddingCandidatePairs = len(candidatePairs)

	index := newSurvivorIndex(entities)

	for _, pair := range autoMergePairs {
		if index.alreadyMerged(pair[0].ID, pair[1].ID) {
			continue
		}
		if err := r.mergePairInto(index, pair[0], pair[1]); err != nil {
			return nil, err
		}
		stats.EmbeddingAutoMerged++
	}

	var toJudge []CandidatePair
	for _, pair := range candidatePairs {
		if index.alreadyMerged(pair.A.ID, pair.B.ID) {
			continue
		}
		if decision, found, err := r.relationships.SelectResolutionDecision(pair.A.ID, pair.B.ID); err != nil {
			return nil, err
		} else if found {
			r.applyPriorDecision(decision, pair, stats)
			continue
		}
		toJudge = append(toJudge, pair)
	}

	results := ConfirmPairs(ctx, r.log, r.llm, toJudge, r.MaxLLMBatch)
	for _, result := range results {
		stats.LLMPairsReviewed++

		if result.Deferred {
			stats.ResolutionDeferred++
			continue
		}

		decision := "declined"
		if result.SameEntity {
			decision = "merged"
			if err := r.mergePairInto(index, result.Pair.A, result.Pair.B); err != nil {
				return nil, err
			}
			stats.LLMConfirmedMerges++
		} else {
			stats.PotentialFalseMerges++
			if len(stats.PotentialFalseMergeNames) < 20 {
				stats.PotentialFalseMergeNames = append(stats.PotentialFalseMergeNames, [2]string{result.Pair.A.Name, result.Pair.B.Name})
			}
		}

		if err := r.relationships.InsertResolutionDecision(result.Pair.A.ProjectID, result.Pair.A.ID, result.Pair.B.ID, decision); err != nil {
			return nil, err
		}
	}

	return index.survivors(), nil
}

func (r *Resolver) applyPriorDecision(decision string, pair CandidatePair, stats *Stats) {
	if decision == "declined" {
		stats.PotentialFalseMerges++
	}
}

// survivorIndex tracks which entity id each original entity now resolves
// to, so repeated merges within one run stay consistent.
type survivorIndex struct {
	canonicalOf map[uuid.UUID]*model.Entity
}

func newSurvivorIndex(entities []*model.Entity) *survivorIndex {
	idx := &survivorIndex{canonicalOf: make(map[uuid.UUID]*model.Entity, len(entities))}
	for _, e := range entities {
		idx.canonicalOf[e.ID] = e
	}
	return idx
}

func (idx *survivorIndex) alreadyMerged(a, b uuid.UUID) bool {
	ca, okA := idx.canonicalOf[a]
	cb, okB := idx.canonicalOf[b]
	return okA && okB && ca.ID == cb.ID
}

func (idx *survivorIndex) survivors() []*model.Entity {
	seen := make(map[uuid.UUID]bool)
	var out []*model.Entity
	for _, e := range idx.canonicalOf {
		if !seen[e.ID] {
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	return out
}

func (r *Resolver) mergePairInto(idx *survivorIndex, a, b *model.Entity) error {
	canonical, duplicate := olderOf(a, b)
	merged := mergeEntities(canonical, duplicate)

	if err := r.entities.UpdateEntityMerge(merged); err != nil {
		return err
	}
	if err := r.relationships.RewriteRelationshipsEndpoint(duplicate.ID, merged.ID); err != nil {
		return err
	}
	if err := r.entities.DeleteEntity(duplicate.ID); err != nil {
		return err
	}

	for id, e := range idx.canonicalOf {
		if e.ID == duplicate.ID || e.ID == canonical.ID {
			idx.canonicalOf[id] = merged
		}
	}
	return nil
}

func (r *Resolver) mergeGroup(group []*model.Entity) (*model.Entity, error) {
	sort.Slice(group, func(i, j int) bool { return group[i].CreatedAt.Before(group[j].CreatedAt) })

	canonical := group[0]
	for _, duplicate := range group[1:] {
		canonical = mergeEntities(canonical, duplicate)
	}

	if err := r.entities.UpdateEntityMerge(canonical); err != nil {
		return nil, err
	}
	for _, duplicate := range group[1:] {
		if err := r.relationships.RewriteRelationshipsEndpoint(duplicate.ID, canonical.ID); err != nil {
			return nil, err
		}
		if err := r.entities.DeleteEntity(duplicate.ID); err != nil {
			return nil, err
		}
	}

	return canonical, nil
}

// olderOf returns (canonical, duplicate) ordered by creation time: the
// older entity survives as canonical.
func olderOf(a, b *model.Entity) (canonical, duplicate *model.Entity) {
	if a.CreatedAt.Before(b.CreatedAt) {
		return a, b
	}
	return b, a
}

// mergeEntities folds duplicate's aliases, properties, and source chunk
// ids onto canonical, widening its seen-year range.
func mergeEntities(canonical, duplicate *model.Entity) *model.Entity {
	merged := *canonical

	aliasSet := map[string]bool{}
	for _, alias := range append(append([]string{}, canonical.Aliases...), duplicate.Name) {
		aliasSet[alias] = true
	}
	for _, alias := range duplicate.Aliases {
		aliasSet[alias] = true
	}
	delete(aliasSet, canonical.Name)

	var aliases []string
	for alias := range aliasSet {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	merged.Aliases = aliases

	if merged.Properties == nil {
		merged.Properties = model.Metadata{}
	}
	for k, v := range duplicate.Properties {
		if _, exists := merged.Properties[k]; !exists {
			merged.Properties[k] = v
		}
	}

	merged.SourceChunkIDs = append(append([]uuid.UUID{}, canonical.SourceChunkIDs...), duplicate.SourceChunkIDs...)

	merged.FirstSeenYear = earlierYear(canonical.FirstSeenYear, duplicate.FirstSeenYear)
	merged.LastSeenYear = laterYear(canonical.LastSeenYear, duplicate.LastSeenYear)

	return &merged
}

func earlierYear(a, b *int) *int {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a < *b {
		return a
	}
	return b
}

func laterYear(a, b *int) *int {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a > *b {
		return a
	}
	return b
}

// linkCrossPaperSameAs creates symmetric SAME_AS relationships between
// entities sharing an exact normalized name, without merging them, so
// per-paper provenance survives while identity is visible.
func (r *Resolver) linkCrossPaperSameAs(entities []*model.Entity) (int, error) {
	byName := map[string][]*model.Entity{}
	for _, e := range entities {
		byName[NormalizeName(e.Name)] = append(byName[NormalizeName(e.Name)], e)
	}

	count := 0
	for _, group := range byName {
		if len(group) < 2 {
			continue
		}
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				rel := &model.Relationship{
					ProjectID: group[i].ProjectID,
					SourceID:  group[i].ID,
					TargetID:  group[j].ID,
					Type:      model.EdgeSameAs,
					Weight:    1,
				}
				if err := r.relationships.InsertRelationship(rel); err != nil {
					return count, err
				}
				count++
			}
		}
	}
	return count, nil
}
