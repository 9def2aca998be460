package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChunkEmbedding is one indexed span of document text with its vector.
// FileName, Page and ChunkKey are the provenance metadata the pipeline
// turns into citations.
type ChunkEmbedding struct {
	Id             uuid.UUID
	DocumentId     uuid.UUID
	ChunkIndex     int
	ChunkKey       string
	Text           string
	FileName       string
	Page           *int
	EmbeddingValue []float32
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
