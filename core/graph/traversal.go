package graph

import (
	"context"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/model"
)

// GraphDB defines the interface for entity-graph traversal operations.
type GraphDB interface {
	GetEntity(ctx context.Context, id string) (*model.Entity, error)
	GetRelationshipsConnected(ctx context.Context, entityID uuid.UUID, edgeType *model.EdgeType) ([]*model.Relationship, error)
}

// TraversalResult contains an entity and its distance from the source.
type TraversalResult struct {
	Entity   *model.Entity
	Distance int
	Path     []uuid.UUID
}

// BFS performs breadth-first search over the concept graph from a source entity.
func BFS(ctx context.Context, db GraphDB, sourceID uuid.UUID, maxHops int, edgeTypes []model.EdgeType, followBidirectional bool) ([]*TraversalResult, error) {
	sourceEntity, err := db.GetEntity(ctx, sourceID.String())
	if err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{sourceID: true}
	queue := []TraversalResult{{Entity: sourceEntity, Distance: 0, Path: []uuid.UUID{sourceID}}}

	var results []*TraversalResult
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		results = append(results, &current)

		if current.Distance >= maxHops {
			continue
		}

		for _, targetID := range neighborIDs(ctx, db, current.Entity.ID, edgeTypes, followBidirectional) {
			if visited[targetID] {
				continue
			}

			targetEntity, err := db.GetEntity(ctx, targetID.String())
			if err != nil {
				continue
			}

			visited[targetID] = true

			newPath := make([]uuid.UUID, len(current.Path), len(current.Path)+1)
			copy(newPath, current.Path)
			newPath = append(newPath, targetID)

			queue = append(queue, TraversalResult{
				Entity:   targetEntity,
				Distance: current.Distance + 1,
				Path:     newPath,
			})
		}
	}

	return results, nil
}

// DFS performs depth-first search over the concept graph from a source entity.
func DFS(ctx context.Context, db GraphDB, sourceID uuid.UUID, maxHops int, edgeTypes []model.EdgeType, followBidirectional bool) ([]*TraversalResult, error) {
	sourceEntity, err := db.GetEntity(ctx, sourceID.String())
	if err != nil {
		return nil, err
	}

	visited := make(map[uuid.UUID]bool)
	var results []*TraversalResult

	dfsRecursive(ctx, db, sourceEntity, 0, maxHops, []uuid.UUID{sourceID}, edgeTypes, followBidirectional, visited, &results)

	return results, nil
}

func dfsRecursive(
	ctx context.Context,
	db GraphDB,
	current *model.Entity,
	distance int,
	maxHops int,
	path []uuid.UUID,
	edgeTypes []model.EdgeType,
	followBidirectional bool,
	visited map[uuid.UUID]bool,
	results *[]*TraversalResult,
) {
	visited[current.ID] = true

	pathCopy := make([]uuid.UUID, len(path))
	copy(pathCopy, path)
	*results = append(*results, &TraversalResult{Entity: current, Distance: distance, Path: pathCopy})

	if distance >= maxHops {
		return
	}

	for _, targetID := range neighborIDs(ctx, db, current.ID, edgeTypes, followBidirectional) {
		if visited[targetID] {
			continue
		}

		targetEntity, err := db.GetEntity(ctx, targetID.String())
		if err != nil {
			continue
		}

		newPath := make([]uuid.UUID, len(path), len(path)+1)
		copy(newPath, path)
		newPath = append(newPath, targetID)

		dfsRecursive(ctx, db, targetEntity, distance+1, maxHops, newPath, edgeTypes, followBidirectional, visited, results)
	}
}

// neighborIDs resolves the set of entity ids reachable from entityID via a
// single relationship hop, honoring edgeTypes (nil/empty means any type)
// and whether non-symmetric edges may be walked backwards.
func neighborIDs(ctx context.Context, db GraphDB, entityID uuid.UUID, edgeTypes []model.EdgeType, followBidirectional bool) []uuid.UUID {
	var edgeType *model.EdgeType
	if len(edgeTypes) == 1 {
		edgeType = &edgeTypes[0]
	}

	rels, err := db.GetRelationshipsConnected(ctx, entityID, edgeType)
	if err != nil {
		return nil
	}

	allowed := make(map[model.EdgeType]bool, len(edgeTypes))
	for _, t := range edgeTypes {
		allowed[t] = true
	}

	var ids []uuid.UUID
	for _, rel := range rels {
		if len(edgeTypes) > 0 && !allowed[rel.Type] {
			continue
		}

		switch {
		case rel.SourceID == entityID:
			ids = append(ids, rel.TargetID)
		case rel.TargetID == entityID && (followBidirectional || rel.Type.Symmetric()):
			ids = append(ids, rel.SourceID)
		}
	}

	return ids
}

// GetNeighbors retrieves the immediate (1-hop) neighbors of an entity.
func GetNeighbors(ctx context.Context, db GraphDB, entityID uuid.UUID, edgeTypes []model.EdgeType, followBidirectional bool) ([]*model.Entity, error) {
	results, err := BFS(ctx, db, entityID, 1, edgeTypes, followBidirectional)
	if err != nil {
		return nil, err
	}

	neighbors := make([]*model.Entity, 0, len(results)-1)
	for i := 1; i < len(results); i++ {
		neighbors = append(neighbors, results[i].Entity)
	}

	return neighbors, nil
}
