package implementation

import (
	"context"

	"crag-notes-be/internal/entity"
	"crag-notes-be/internal/mapper"
	"crag-notes-be/internal/model"
	"crag-notes-be/internal/repository/contract"
	"crag-notes-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AskExchangeRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AskExchangeMapper
}

func NewAskExchangeRepository(db *gorm.DB) contract.AskExchangeRepository {
	return &AskExchangeRepositoryImpl{
		db:     db,
		mapper: mapper.NewAskExchangeMapper(),
	}
}

func (r *AskExchangeRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AskExchangeRepositoryImpl) Create(ctx context.Context, exchange *entity.AskExchange) error {
	m := r.mapper.ToModel(exchange)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*exchange = *r.mapper.ToEntity(m)
	return nil
}

func (r *AskExchangeRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AskExchange, error) {
	var models []*model.AskExchange
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *AskExchangeRepositoryImpl) DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("thread_id = ?", threadId).Delete(&model.AskExchange{}).Error
}
