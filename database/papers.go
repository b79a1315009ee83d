package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/litreview/conceptgraph/helper"
	"github.com/litreview/conceptgraph/model"
	sqlload "github.com/litreview/conceptgraph/sql"
)

// PapersDBHandlerFunctions defines the interface for Papers database operations.
type PapersDBHandlerFunctions interface {
	InsertPaper(paper *model.Paper) error
	SelectPaper(id uuid.UUID) (*model.Paper, error)
	SelectPapersByProject(projectID uuid.UUID, limit int) ([]*model.Paper, error)
	SearchPapers(projectID uuid.UUID, term string, limit int) ([]*model.Paper, error)
	DeletePaper(id uuid.UUID) error
}

// PapersDBHandler handles paper-related database operations.
type PapersDBHandler struct {
	db *helper.Database
}

// NewPapersDBHandler creates a new papers database handler. It loads
// paper-related SQL functions and the papers table, reloading the SQL
// even if already present when force is true.
func NewPapersDBHandler(db *helper.Database, force bool) (*PapersDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	h := &PapersDBHandler{db: db}

	if err := sqlload.LoadPapersSql(h.db.Instance, force); err != nil {
		return nil, helper.NewError("load papers sql", err)
	}

	if err := h.CreateTable(); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized PapersDBHandler")

	return h, nil
}

// CreateTable creates the 'papers' table and its indexes if missing.
func (h *PapersDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_papers();`)
	if err != nil {
		log.Panicf("error initializing papers table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table papers")

	return nil
}

func scanPaper(row rowScanner, paper *model.Paper) error {
	return row.Scan(
		&paper.ID,
		&paper.ProjectID,
		&paper.Title,
		pq.Array(&paper.Authors),
		&paper.Abstract,
		&paper.Year,
		&paper.Venue,
		&paper.DOI,
		&paper.Metadata,
		&paper.CreatedAt,
		&paper.UpdatedAt,
	)
}

// InsertPaper inserts a new paper. RawText is accepted by the ingestion
// pipeline but is never persisted to this table.
func (h *PapersDBHandler) InsertPaper(paper *model.Paper) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_paper($1, $2, $3, $4, $5, $6, $7, $8)`,
		paper.ProjectID,
		paper.Title,
		pq.Array(paper.Authors),
		paper.Abstract,
		paper.Year,
		paper.Venue,
		paper.DOI,
		paper.Metadata,
	)

	if err := scanPaper(row, paper); err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectPaper retrieves a paper by ID.
func (h *PapersDBHandler) SelectPaper(id uuid.UUID) (*model.Paper, error) {
	paper := &model.Paper{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_paper($1)`, id)

	if err := scanPaper(row, paper); err != nil {
		return nil, helper.NewError("scan", err)
	}

	return paper, nil
}

// SelectPapersByProject retrieves all papers in a project, oldest first.
func (h *PapersDBHandler) SelectPapersByProject(projectID uuid.UUID, limit int) ([]*model.Paper, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_papers_by_project($1, $2)`, projectID, limit)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var papers []*model.Paper
	for rows.Next() {
		paper := &model.Paper{}
		if err := scanPaper(rows, paper); err != nil {
			return nil, helper.NewError("scan", err)
		}
		papers = append(papers, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return papers, nil
}

// SearchPapers returns papers whose title contains term (case-insensitive
// ILIKE), ordered by trigram similarity.
func (h *PapersDBHandler) SearchPapers(projectID uuid.UUID, term string, limit int) ([]*model.Paper, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM search_papers($1, $2, $3)`, projectID, term, limit)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var papers []*model.Paper
	for rows.Next() {
		paper := &model.Paper{}
		if err := scanPaper(rows, paper); err != nil {
			return nil, helper.NewError("scan", err)
		}
		papers = append(papers, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return papers, nil
}

// DeletePaper deletes a paper by ID, cascading to its chunks.
func (h *PapersDBHandler) DeletePaper(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT delete_paper($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
