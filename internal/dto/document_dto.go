package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateDocumentRequest struct {
	SubjectId uuid.UUID `json:"subject_id" validate:"required"`
	FileName  string    `json:"file_name" validate:"required,max=255"`
	Content   string    `json:"content" validate:"required"`
	PageCount int       `json:"page_count" validate:"gte=0"`
}

type CreateDocumentResponse struct {
	Id uuid.UUID `json:"id"`
}

type ShowDocumentResponse struct {
	Id         uuid.UUID  `json:"id"`
	SubjectId  uuid.UUID  `json:"subject_id"`
	FileName   string     `json:"file_name"`
	PageCount  int        `json:"page_count"`
	ChunkCount int64      `json:"chunk_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

// EmbedDocumentEvent is the payload published to the embedding topic when
// a document is created or its content changes.
type EmbedDocumentEvent struct {
	DocumentId uuid.UUID `json:"document_id"`
}
