package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/helper"
	"github.com/litreview/conceptgraph/model"
	sqlload "github.com/litreview/conceptgraph/sql"
)

// ProjectsDBHandlerFunctions defines the interface for Projects database operations.
type ProjectsDBHandlerFunctions interface {
	InsertProject(project *model.Project) error
	SelectProject(id uuid.UUID) (*model.Project, error)
	SelectAllProjects(limit int) ([]*model.Project, error)
	DeleteProject(id uuid.UUID) error
}

// ProjectsDBHandler handles project-related database operations. Project
// is the top-level scoping aggregate every other domain hangs off of.
type ProjectsDBHandler struct {
	db *helper.Database
}

// NewProjectsDBHandler creates a new projects database handler.
func NewProjectsDBHandler(db *helper.Database, force bool) (*ProjectsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	h := &ProjectsDBHandler{db: db}

	if err := sqlload.LoadProjectsSql(h.db.Instance, force); err != nil {
		return nil, helper.NewError("load projects sql", err)
	}

	if err := h.CreateTable(); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ProjectsDBHandler")

	return h, nil
}

// CreateTable creates the 'projects' table if missing.
func (h *ProjectsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_projects();`)
	if err != nil {
		log.Panicf("error initializing projects table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table projects")

	return nil
}

func scanProject(row rowScanner, project *model.Project) error {
	return row.Scan(&project.ID, &project.Name, &project.CreatedAt, &project.UpdatedAt)
}

// InsertProject inserts a new project.
func (h *ProjectsDBHandler) InsertProject(project *model.Project) error {
	row := h.db.Instance.QueryRow(`SELECT * FROM insert_project($1)`, project.Name)

	if err := scanProject(row, project); err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectProject retrieves a project by ID.
func (h *ProjectsDBHandler) SelectProject(id uuid.UUID) (*model.Project, error) {
	project := &model.Project{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_project($1)`, id)

	if err := scanProject(row, project); err != nil {
		return nil, helper.NewError("scan", err)
	}

	return project, nil
}

// SelectAllProjects retrieves all projects, most recent first.
func (h *ProjectsDBHandler) SelectAllProjects(limit int) ([]*model.Project, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_all_projects($1)`, limit)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		project := &model.Project{}
		if err := scanProject(rows, project); err != nil {
			return nil, helper.NewError("scan", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return projects, nil
}

// DeleteProject deletes a project by ID, cascading to everything it owns.
func (h *ProjectsDBHandler) DeleteProject(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT delete_project($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
