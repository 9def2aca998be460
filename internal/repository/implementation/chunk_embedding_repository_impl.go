package implementation

import (
	"context"

	"crag-notes-be/internal/entity"
	"crag-notes-be/internal/mapper"
	"crag-notes-be/internal/model"
	"crag-notes-be/internal/repository/contract"
	"crag-notes-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ChunkEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChunkEmbeddingMapper
}

func NewChunkEmbeddingRepository(db *gorm.DB) contract.ChunkEmbeddingRepository {
	return &ChunkEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewChunkEmbeddingMapper(),
	}
}

func (r *ChunkEmbeddingRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChunkEmbeddingRepositoryImpl) Create(ctx context.Context, embedding *entity.ChunkEmbedding) error {
	m := r.mapper.ToModel(embedding)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*embedding = *r.mapper.ToEntity(m)
	return nil
}

func (r *ChunkEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.ChunkEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	models := r.mapper.ToModels(embeddings)
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	// Update generated IDs back to entities
	for i, m := range models {
		*embeddings[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *ChunkEmbeddingRepositoryImpl) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("document_id = ?", documentId).Delete(&model.ChunkEmbedding{}).Error
}

func (r *ChunkEmbeddingRepositoryImpl) DeleteBySubjectId(ctx context.Context, subjectId uuid.UUID) error {
	subQuery := r.db.Table("documents").Select("id").Where("subject_id = ?", subjectId)
	return r.db.WithContext(ctx).Where("document_id IN (?)", subQuery).Delete(&model.ChunkEmbedding{}).Error
}

func (r *ChunkEmbeddingRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChunkEmbedding, error) {
	var models []*model.ChunkEmbedding
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ChunkEmbeddingRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.ChunkEmbedding{}).Count(&count).Error
	return count, err
}

// SearchSimilarWithScore returns chunk embeddings with similarity scores,
// scoped to one subject and filtered by threshold.
func (r *ChunkEmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, subjectId uuid.UUID, threshold float64) ([]*contract.ScoredChunkEmbedding, error) {
	if limit <= 0 {
		limit = 5
	}

	// Cosine distance in pgvector is 1 - cosine_similarity, so
	// 1 - (embedding_value <=> query_vector) recovers the similarity.
	type result struct {
		model.ChunkEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("chunk_embeddings").
		Select("chunk_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Joins("JOIN documents ON documents.id = chunk_embeddings.document_id").
		Where("documents.subject_id = ?", subjectId).
		Where("chunk_embeddings.deleted_at IS NULL").
		Where("documents.deleted_at IS NULL").
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunkEmbedding, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredChunkEmbedding{
			Embedding:  r.mapper.ToEntity(&res.ChunkEmbedding),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
