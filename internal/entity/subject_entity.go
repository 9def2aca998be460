package entity

import (
	"time"

	"github.com/google/uuid"
)

// Subject is the retrieval namespace: every document and chunk belongs to
// exactly one subject, and the pipeline never retrieves across subjects.
type Subject struct {
	Id          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	DeletedAt   *time.Time
	IsDeleted   bool
}
