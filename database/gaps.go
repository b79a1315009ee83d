package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/litreview/conceptgraph/helper"
	"github.com/litreview/conceptgraph/model"
	sqlload "github.com/litreview/conceptgraph/sql"
)

// GapsDBHandlerFunctions defines the interface for Gaps database operations.
type GapsDBHandlerFunctions interface {
	InsertGap(gap *model.Gap) error
	SelectGap(id uuid.UUID) (*model.Gap, error)
	SelectGapsByProject(projectID uuid.UUID, minStrength float64) ([]*model.Gap, error)
	UpdateGapStatus(id uuid.UUID, status model.GapStatus) error
	DeleteGapsByProject(projectID uuid.UUID) error
}

// GapsDBHandler handles gap-related database operations.
type GapsDBHandler struct {
	db *helper.Database
}

// NewGapsDBHandler creates a new gaps database handler.
func NewGapsDBHandler(db *helper.Database, force bool) (*GapsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	h := &GapsDBHandler{db: db}

	if err := sqlload.LoadGapsSql(h.db.Instance, force); err != nil {
		return nil, helper.NewError("load gaps sql", err)
	}

	if err := h.CreateTable(); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized GapsDBHandler")

	return h, nil
}

// CreateTable creates the 'gaps' table if missing.
func (h *GapsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_gaps();`)
	if err != nil {
		log.Panicf("error initializing gaps table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table gaps")

	return nil
}

func scanGap(row rowScanner, gap *model.Gap) error {
	var bridgeCandidates, ghostEdges []byte
	err := row.Scan(
		&gap.ID,
		&gap.ProjectID,
		&gap.ClusterAID,
		&gap.ClusterBID,
		&gap.GapStrength,
		&gap.SemanticDistance,
		&bridgeCandidates,
		pq.Array(&gap.ResearchQuestions),
		&ghostEdges,
		&gap.Status,
		&gap.CreatedAt,
		&gap.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if len(bridgeCandidates) > 0 {
		if err := json.Unmarshal(bridgeCandidates, &gap.BridgeCandidates); err != nil {
			return helper.NewError("unmarshal bridge candidates", err)
		}
	}
	if len(ghostEdges) > 0 {
		if err := json.Unmarshal(ghostEdges, &gap.GhostEdges); err != nil {
			return helper.NewError("unmarshal ghost edges", err)
		}
	}

	return nil
}

// InsertGap inserts a new gap, or updates the existing gap for the same
// cluster pair (clusters are recomputed wholesale, so gaps follow suit).
func (h *GapsDBHandler) InsertGap(gap *model.Gap) error {
	bridgeCandidates, err := json.Marshal(gap.BridgeCandidates)
	if err != nil {
		return helper.NewError("marshal bridge candidates", err)
	}
	ghostEdges, err := json.Marshal(gap.GhostEdges)
	if err != nil {
		return helper.NewError("marshal ghost edges", err)
	}

	a, b := model.ClusterPairKey(gap.ClusterAID, gap.ClusterBID)

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_gap($1, $2, $3, $4, $5, $6, $7, $8)`,
		gap.ProjectID,
		a,
		b,
		gap.GapStrength,
		gap.SemanticDistance,
		bridgeCandidates,
		pq.Array(gap.ResearchQuestions),
		ghostEdges,
	)

	if err := scanGap(row, gap); err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectGap retrieves a gap by ID.
func (h *GapsDBHandler) SelectGap(id uuid.UUID) (*model.Gap, error) {
	gap := &model.Gap{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_gap($1)`, id)

	if err := scanGap(row, gap); err != nil {
		return nil, helper.NewError("scan", err)
	}

	return gap, nil
}

// SelectGapsByProject retrieves a project's gaps with gap_strength at
// or below minStrength (gap_strength is lower-is-stronger, so this is a
// strength floor expressed as a ceiling on the stored value), strongest
// first.
func (h *GapsDBHandler) SelectGapsByProject(projectID uuid.UUID, minStrength float64) ([]*model.Gap, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_gaps_by_project($1, $2)`, projectID, minStrength)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var gaps []*model.Gap
	for rows.Next() {
		gap := &model.Gap{}
		if err := scanGap(rows, gap); err != nil {
			return nil, helper.NewError("scan", err)
		}
		gaps = append(gaps, gap)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return gaps, nil
}

// UpdateGapStatus transitions a gap's lifecycle status.
func (h *GapsDBHandler) UpdateGapStatus(id uuid.UUID, status model.GapStatus) error {
	_, err := h.db.Instance.Exec(`SELECT * FROM update_gap_status($1, $2)`, id, status)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteGapsByProject deletes every gap in a project, the replace-wholesale
// step DetectGaps takes before re-inserting.
func (h *GapsDBHandler) DeleteGapsByProject(projectID uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT delete_gaps_by_project($1)`, projectID)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
