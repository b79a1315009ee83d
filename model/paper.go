package model

import (
	"time"

	"github.com/google/uuid"
)

// Paper is the ingestion-time source document: the raw text and
// bibliographic metadata handed to StartIngest. Once ingested it is
// mirrored into an Entity of KindPaper; Paper itself is never a graph
// node, only the record the pipeline consumes and checkpoints against.
type Paper struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`

	Title    string   `json:"title"`
	Authors  []string `json:"authors,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
	Year     *int     `json:"year,omitempty"`
	Venue    string   `json:"venue,omitempty"`
	DOI      string   `json:"doi,omitempty"`

	RawText string `json:"raw_text,omitempty" db:"-"`

	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
