package contract

import (
	"context"

	"crag-notes-be/internal/entity"
	"crag-notes-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SubjectRepository interface {
	Create(ctx context.Context, subject *entity.Subject) error
	Update(ctx context.Context, subject *entity.Subject) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Subject, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Subject, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
