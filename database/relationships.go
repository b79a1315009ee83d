package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/helper"
	"github.com/litreview/conceptgraph/model"
	sqlload "github.com/litreview/conceptgraph/sql"
)

// RelationshipsDBHandlerFunctions defines the interface for Relationships database operations.
type RelationshipsDBHandlerFunctions interface {
	InsertRelationship(rel *model.Relationship) error
	InsertRelationshipEvidence(relationshipID, chunkID uuid.UUID) error
	SelectRelationship(id uuid.UUID) (*model.Relationship, error)
	SelectRelationshipEvidence(relationshipID uuid.UUID) ([]uuid.UUID, error)
	SelectRelationshipsFromEntity(entityID uuid.UUID, edgeType *model.EdgeType) ([]*model.Relationship, error)
	SelectRelationshipsToEntity(entityID uuid.UUID, edgeType *model.EdgeType) ([]*model.Relationship, error)
	SelectRelationshipsConnected(entityID uuid.UUID, edgeType *model.EdgeType) ([]*model.Relationship, error)
	SelectRelationshipsByProject(projectID uuid.UUID) ([]*model.Relationship, error)
	UpdateRelationshipWeight(id uuid.UUID, weight float64) error
	RewriteRelationshipsEndpoint(fromID, toID uuid.UUID) error
	InsertResolutionDecision(projectID, entityAID, entityBID uuid.UUID, decision string) error
	SelectResolutionDecision(entityAID, entityBID uuid.UUID) (string, bool, error)
	DeleteRelationship(id uuid.UUID) error
}

// RelationshipsDBHandler handles relationship-related database operations.
type RelationshipsDBHandler struct {
	db *helper.Database
}

// NewRelationshipsDBHandler creates a new relationships database handler.
func NewRelationshipsDBHandler(db *helper.Database, force bool) (*RelationshipsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	h := &RelationshipsDBHandler{db: db}

	if err := sqlload.LoadRelationshipsSql(h.db.Instance, force); err != nil {
		return nil, helper.NewError("load relationships sql", err)
	}

	if err := h.CreateTable(); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationshipsDBHandler")

	return h, nil
}

// CreateTable creates the 'relationships', 'relationship_evidence', and
// 'resolution_decisions' tables if missing.
func (h *RelationshipsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_relationships();`)
	if err != nil {
		log.Panicf("error initializing relationships table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table relationships")

	return nil
}

func scanRelationship(row rowScanner, rel *model.Relationship) error {
	return row.Scan(
		&rel.ID,
		&rel.ProjectID,
		&rel.SourceID,
		&rel.TargetID,
		&rel.Type,
		&rel.Weight,
		&rel.Properties,
		&rel.CreatedAt,
	)
}

// InsertRelationship inserts a new relationship, or updates the weight of
// the matching (source, target, edge_type) triple if one already exists.
func (h *RelationshipsDBHandler) InsertRelationship(rel *model.Relationship) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_relationship($1, $2, $3, $4, $5, $6)`,
		rel.ProjectID,
		rel.SourceID,
		rel.TargetID,
		rel.Type,
		rel.Weight,
		rel.Properties,
	)

	if err := scanRelationship(row, rel); err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// InsertRelationshipEvidence links a chunk as evidence for a relationship.
func (h *RelationshipsDBHandler) InsertRelationshipEvidence(relationshipID, chunkID uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT insert_relationship_evidence($1, $2)`, relationshipID, chunkID)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectRelationship retrieves a relationship by ID.
func (h *RelationshipsDBHandler) SelectRelationship(id uuid.UUID) (*model.Relationship, error) {
	rel := &model.Relationship{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_relationship($1)`, id)

	if err := scanRelationship(row, rel); err != nil {
		return nil, helper.NewError("scan", err)
	}

	return rel, nil
}

// SelectRelationshipEvidence retrieves the chunk ids backing a relationship.
func (h *RelationshipsDBHandler) SelectRelationshipEvidence(relationshipID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_relationship_evidence($1)`, relationshipID)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunkIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, helper.NewError("scan", err)
		}
		chunkIDs = append(chunkIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunkIDs, nil
}

func (h *RelationshipsDBHandler) scanRelationshipRows(rows *sql.Rows) ([]*model.Relationship, error) {
	var rels []*model.Relationship
	for rows.Next() {
		rel := &model.Relationship{}
		if err := scanRelationship(rows, rel); err != nil {
			return nil, helper.NewError("scan", err)
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}
	return rels, nil
}

// SelectRelationshipsFromEntity retrieves relationships originating from an entity.
func (h *RelationshipsDBHandler) SelectRelationshipsFromEntity(entityID uuid.UUID, edgeType *model.EdgeType) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_relationships_from_entity($1, $2)`, entityID, edgeType)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return h.scanRelationshipRows(rows)
}

// SelectRelationshipsToEntity retrieves relationships targeting an entity.
func (h *RelationshipsDBHandler) SelectRelationshipsToEntity(entityID uuid.UUID, edgeType *model.EdgeType) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_relationships_to_entity($1, $2)`, entityID, edgeType)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return h.scanRelationshipRows(rows)
}

// SelectRelationshipsConnected retrieves relationships touching an entity in either direction.
func (h *RelationshipsDBHandler) SelectRelationshipsConnected(entityID uuid.UUID, edgeType *model.EdgeType) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_relationships_connected($1, $2)`, entityID, edgeType)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return h.scanRelationshipRows(rows)
}

// SelectRelationshipsByProject retrieves every relationship in a project,
// the clusterer's and gap detector's bulk input.
func (h *RelationshipsDBHandler) SelectRelationshipsByProject(projectID uuid.UUID) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_relationships_by_project($1)`, projectID)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return h.scanRelationshipRows(rows)
}

// UpdateRelationshipWeight updates the weight of a relationship.
func (h *RelationshipsDBHandler) UpdateRelationshipWeight(id uuid.UUID, weight float64) error {
	_, err := h.db.Instance.Exec(`SELECT * FROM update_relationship_weight($1, $2)`, id, weight)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// RewriteRelationshipsEndpoint repoints every relationship referencing
// fromID onto toID and dedups the result, the resolver's merge-time
// graph surgery when two entities are unified.
func (h *RelationshipsDBHandler) RewriteRelationshipsEndpoint(fromID, toID uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT rewrite_relationships_endpoint($1, $2)`, fromID, toID)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// InsertResolutionDecision records a resolver merge/keep-separate decision,
// making resolution idempotent across ingest re-runs.
func (h *RelationshipsDBHandler) InsertResolutionDecision(projectID, entityAID, entityBID uuid.UUID, decision string) error {
	a, b := entityAID, entityBID
	if a.String() > b.String() {
		a, b = b, a
	}
	_, err := h.db.Instance.Exec(`SELECT insert_resolution_decision($1, $2, $3, $4)`, projectID, a, b, decision)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectResolutionDecision looks up a prior resolver decision for a pair
// of entities, if one was recorded.
func (h *RelationshipsDBHandler) SelectResolutionDecision(entityAID, entityBID uuid.UUID) (string, bool, error) {
	a, b := entityAID, entityBID
	if a.String() > b.String() {
		a, b = b, a
	}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_resolution_decision($1, $2)`, a, b)

	var decision string
	if err := row.Scan(&decision); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, helper.NewError("scan", err)
	}

	return decision, true, nil
}

// DeleteRelationship deletes a relationship by ID.
func (h *RelationshipsDBHandler) DeleteRelationship(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT delete_relationship($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
