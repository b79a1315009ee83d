package model

import (
	"time"

	"github.com/google/uuid"
)

// Project is the top-level scoping aggregate. Every entity, relationship,
// chunk, cluster and gap belongs to exactly one project; deleting a
// project cascades to everything it owns.
type Project struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
