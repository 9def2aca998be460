package implementation

import (
	"context"
	"errors"

	"crag-notes-be/internal/entity"
	"crag-notes-be/internal/mapper"
	"crag-notes-be/internal/model"
	"crag-notes-be/internal/repository/contract"
	"crag-notes-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubjectRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SubjectMapper
}

func NewSubjectRepository(db *gorm.DB) contract.SubjectRepository {
	return &SubjectRepositoryImpl{
		db:     db,
		mapper: mapper.NewSubjectMapper(),
	}
}

func (r *SubjectRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SubjectRepositoryImpl) Create(ctx context.Context, subject *entity.Subject) error {
	m := r.mapper.ToModel(subject)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*subject = *r.mapper.ToEntity(m)
	return nil
}

func (r *SubjectRepositoryImpl) Update(ctx context.Context, subject *entity.Subject) error {
	m := r.mapper.ToModel(subject)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*subject = *r.mapper.ToEntity(m)
	return nil
}

func (r *SubjectRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Subject{}, id).Error
}

func (r *SubjectRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Subject, error) {
	var m model.Subject
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SubjectRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Subject, error) {
	var models []*model.Subject
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *SubjectRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Subject{}).Count(&count).Error
	return count, err
}
