package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/litreview/conceptgraph/helper"
	"github.com/litreview/conceptgraph/model"
	sqlload "github.com/litreview/conceptgraph/sql"
)

// ClustersDBHandlerFunctions defines the interface for Clusters database operations.
type ClustersDBHandlerFunctions interface {
	InsertCluster(cluster *model.Cluster) error
	SelectCluster(id uuid.UUID) (*model.Cluster, error)
	SelectClustersByProject(projectID uuid.UUID) ([]*model.Cluster, error)
	DeleteClustersByProject(projectID uuid.UUID) error
}

// ClustersDBHandler handles cluster-related database operations.
type ClustersDBHandler struct {
	db *helper.Database
}

// NewClustersDBHandler creates a new clusters database handler.
func NewClustersDBHandler(db *helper.Database, force bool) (*ClustersDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	h := &ClustersDBHandler{db: db}

	if err := sqlload.LoadClustersSql(h.db.Instance, force); err != nil {
		return nil, helper.NewError("load clusters sql", err)
	}

	if err := h.CreateTable(); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ClustersDBHandler")

	return h, nil
}

// CreateTable creates the 'clusters' table if missing.
func (h *ClustersDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_clusters();`)
	if err != nil {
		log.Panicf("error initializing clusters table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table clusters")

	return nil
}

func scanCluster(row rowScanner, cluster *model.Cluster) error {
	var centroid pgvector.Vector
	var centroidNull bool
	err := row.Scan(
		&cluster.ID,
		&cluster.ProjectID,
		&cluster.Label,
		pq.Array(&cluster.Keywords),
		pq.Array(&cluster.ConceptID),
		&cluster.Size,
		&cluster.Density,
		&cluster.Level,
		&cluster.Method,
		scanVectorOrNull(&centroid, &centroidNull),
		&cluster.CreatedAt,
	)
	if err != nil {
		return err
	}
	if !centroidNull {
		cluster.Centroid = centroid.Slice()
	}
	return nil
}

// InsertCluster inserts a new cluster.
func (h *ClustersDBHandler) InsertCluster(cluster *model.Cluster) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_cluster($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		cluster.ProjectID,
		cluster.Label,
		pq.Array(cluster.Keywords),
		pq.Array(cluster.ConceptID),
		cluster.Size,
		cluster.Density,
		cluster.Level,
		cluster.Method,
		vectorOrNil(cluster.Centroid),
	)

	if err := scanCluster(row, cluster); err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectCluster retrieves a cluster by ID.
func (h *ClustersDBHandler) SelectCluster(id uuid.UUID) (*model.Cluster, error) {
	cluster := &model.Cluster{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_cluster($1)`, id)

	if err := scanCluster(row, cluster); err != nil {
		return nil, helper.NewError("scan", err)
	}

	return cluster, nil
}

// SelectClustersByProject retrieves all clusters in a project, largest first.
func (h *ClustersDBHandler) SelectClustersByProject(projectID uuid.UUID) ([]*model.Cluster, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_clusters_by_project($1)`, projectID)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var clusters []*model.Cluster
	for rows.Next() {
		cluster := &model.Cluster{}
		if err := scanCluster(rows, cluster); err != nil {
			return nil, helper.NewError("scan", err)
		}
		clusters = append(clusters, cluster)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return clusters, nil
}

// DeleteClustersByProject deletes every cluster in a project, the
// replace-wholesale step Engine.RecomputeGaps takes before re-inserting.
func (h *ClustersDBHandler) DeleteClustersByProject(projectID uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT delete_clusters_by_project($1)`, projectID)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
