package unitofwork

import (
	"context"

	"crag-notes-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SubjectRepository() contract.SubjectRepository
	DocumentRepository() contract.DocumentRepository
	ChunkEmbeddingRepository() contract.ChunkEmbeddingRepository
	AskExchangeRepository() contract.AskExchangeRepository
}
