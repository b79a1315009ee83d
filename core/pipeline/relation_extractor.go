package pipeline

import (
	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/model"
)

// kindEdge maps an extracted entity's kind to the edge type connecting it
// back to the paper it was extracted from, over the closed relationship
// set.
var kindEdge = map[model.EntityKind]model.EdgeType{
	model.KindConcept:    model.EdgeDiscussesConcept,
	model.KindMethod:     model.EdgeUsesMethod,
	model.KindDataset:    model.EdgeUsesDataset,
	model.KindFinding:    model.EdgeHasFinding,
	model.KindResult:     model.EdgeReports,
	model.KindMetric:     model.EdgeReports,
	model.KindClaim:      model.EdgeReports,
	model.KindInnovation: model.EdgeDiscussesConcept,
	model.KindLimitation: model.EdgeReports,
	model.KindProblem:    model.EdgeDiscussesConcept,
}

// RelationsForPaper builds the paper->entity edges for every newly
// extracted entity via a direct kind->edge lookup over the closed
// EntityKind set. Entities whose kind has no edge mapping (Paper,
// Author, themselves) are skipped;
// AUTHORED_BY edges are built separately by the caller from Paper.Authors,
// since author names never go through entity extraction.
func RelationsForPaper(projectID, paperID uuid.UUID, entities []*model.Entity) []*model.Relationship {
	var relationships []*model.Relationship

	for _, entity := range entities {
		edgeType, ok := kindEdge[entity.Kind]
		if !ok {
			continue
		}

		relationships = append(relationships, &model.Relationship{
			ProjectID:        projectID,
			SourceID:         paperID,
			TargetID:         entity.ID,
			Type:             edgeType,
			Weight:           model.ClampWeight(entity.Confidence),
			EvidenceChunkIDs: entity.SourceChunkIDs,
		})
	}

	return relationships
}

// coOccurrenceWindow bounds how many entities extracted from the same
// chunk are cross-linked with CO_OCCURS edges, avoiding an O(n^2) blowup
// on densely-populated sections.
const coOccurrenceWindow = 12

// CoOccurrenceRelations links entities extracted from the same chunk with
// symmetric CO_OCCURS edges at a fixed weight of 0.5 (the weight does not
// count how many chunks a pair shares), at the granularity of "same chunk" since LLM
// extraction doesn't yield per-entity character offsets.
func CoOccurrenceRelations(projectID uuid.UUID, entities []*model.Entity) []*model.Relationship {
	n := len(entities)
	if n > coOccurrenceWindow {
		n = coOccurrenceWindow
	}

	var relationships []*model.Relationship
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := entities[i], entities[j]
			if a.ID == b.ID {
				continue
			}
			relationships = append(relationships, &model.Relationship{
				ProjectID:        projectID,
				SourceID:         a.ID,
				TargetID:         b.ID,
				Type:             model.EdgeCoOccurs,
				Weight:           model.ClampWeight(0.5),
				EvidenceChunkIDs: intersectChunkIDs(a.SourceChunkIDs, b.SourceChunkIDs),
			})
		}
	}
	return relationships
}

func intersectChunkIDs(a, b []uuid.UUID) []uuid.UUID {
	set := make(map[uuid.UUID]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	var out []uuid.UUID
	for _, id := range b {
		if set[id] {
			out = append(out, id)
		}
	}
	return out
}

// AuthoredByRelations builds AUTHORED_BY edges from a paper to its
// (already-resolved) author entity ids.
func AuthoredByRelations(projectID, paperID uuid.UUID, authorEntityIDs []uuid.UUID) []*model.Relationship {
	var relationships []*model.Relationship
	for _, authorID := range authorEntityIDs {
		relationships = append(relationships, &model.Relationship{
			ProjectID: projectID,
			SourceID:  paperID,
			TargetID:  authorID,
			Type:      model.EdgeAuthoredBy,
			Weight:    1,
		})
	}
	return relationships
}
