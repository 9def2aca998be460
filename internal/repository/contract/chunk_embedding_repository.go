package contract

import (
	"context"

	"crag-notes-be/internal/entity"
	"crag-notes-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredChunkEmbedding pairs an indexed chunk with its cosine similarity
// against a query vector.
type ScoredChunkEmbedding struct {
	Embedding  *entity.ChunkEmbedding
	Similarity float64
}

type ChunkEmbeddingRepository interface {
	Create(ctx context.Context, embedding *entity.ChunkEmbedding) error
	CreateBulk(ctx context.Context, embeddings []*entity.ChunkEmbedding) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	DeleteBySubjectId(ctx context.Context, subjectId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChunkEmbedding, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// SearchSimilarWithScore runs a nearest-neighbour query scoped to one
	// subject, returning up to limit chunks with similarity >= threshold,
	// most similar first.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, subjectId uuid.UUID, threshold float64) ([]*ScoredChunkEmbedding, error)
}
