package contract

import (
	"context"

	"crag-notes-be/internal/entity"
	"crag-notes-be/internal/repository/specification"

	"github.com/google/uuid"
)

type AskExchangeRepository interface {
	Create(ctx context.Context, exchange *entity.AskExchange) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AskExchange, error)
	DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error
}
