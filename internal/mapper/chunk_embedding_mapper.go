package mapper

import (
	"encoding/json"
	"time"

	"crag-notes-be/internal/entity"
	"crag-notes-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// chunkMetadataDoc is the JSONB payload stored alongside each embedding.
type chunkMetadataDoc struct {
	FileName string `json:"file_name"`
	Page     *int   `json:"page"`
	ChunkId  string `json:"chunk_id"`
}

type ChunkEmbeddingMapper struct{}

func NewChunkEmbeddingMapper() *ChunkEmbeddingMapper {
	return &ChunkEmbeddingMapper{}
}

func (m *ChunkEmbeddingMapper) ToEntity(e *model.ChunkEmbedding) *entity.ChunkEmbedding {
	if e == nil {
		return nil
	}

	var deletedAt *time.Time
	if e.DeletedAt.Valid {
		t := e.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	// Missing or malformed metadata degrades to empty provenance fields;
	// the pipeline tolerates incomplete citations.
	var meta chunkMetadataDoc
	if len(e.Metadata) > 0 {
		_ = json.Unmarshal(e.Metadata, &meta)
	}

	return &entity.ChunkEmbedding{
		Id:             e.Id,
		DocumentId:     e.DocumentId,
		ChunkIndex:     e.ChunkIndex,
		ChunkKey:       meta.ChunkId,
		Text:           e.Text,
		FileName:       meta.FileName,
		Page:           meta.Page,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      e.DeletedAt.Valid,
	}
}

func (m *ChunkEmbeddingMapper) ToModel(e *entity.ChunkEmbedding) *model.ChunkEmbedding {
	if e == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if e.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *e.DeletedAt, Valid: true}
	} else if e.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	metaBytes, _ := json.Marshal(chunkMetadataDoc{
		FileName: e.FileName,
		Page:     e.Page,
		ChunkId:  e.ChunkKey,
	})

	return &model.ChunkEmbedding{
		Id:             e.Id,
		DocumentId:     e.DocumentId,
		ChunkIndex:     e.ChunkIndex,
		Text:           e.Text,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		Metadata:       datatypes.JSON(metaBytes),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *ChunkEmbeddingMapper) ToEntities(embeddings []*model.ChunkEmbedding) []*entity.ChunkEmbedding {
	entities := make([]*entity.ChunkEmbedding, len(embeddings))
	for i, e := range embeddings {
		entities[i] = m.ToEntity(e)
	}
	return entities
}

func (m *ChunkEmbeddingMapper) ToModels(embeddings []*entity.ChunkEmbedding) []*model.ChunkEmbedding {
	models := make([]*model.ChunkEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = m.ToModel(e)
	}
	return models
}
