package service

import (
	"context"
	"time"

	"crag-notes-be/internal/dto"
	"crag-notes-be/internal/entity"
	"crag-notes-be/internal/repository/specification"
	"crag-notes-be/internal/repository/unitofwork"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISubjectService interface {
	GetAll(ctx context.Context) ([]*dto.ShowSubjectResponse, error)
	Create(ctx context.Context, req *dto.CreateSubjectRequest) (*dto.CreateSubjectResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.ShowSubjectResponse, error)
	Update(ctx context.Context, req *dto.UpdateSubjectRequest) (*dto.UpdateSubjectResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type subjectService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewSubjectService(uowFactory unitofwork.RepositoryFactory) ISubjectService {
	return &subjectService{
		uowFactory: uowFactory,
	}
}

func (c *subjectService) GetAll(ctx context.Context) ([]*dto.ShowSubjectResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	subjects, err := uow.SubjectRepository().FindAll(ctx, specification.OrderBy{Field: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ShowSubjectResponse, 0, len(subjects))
	for _, subject := range subjects {
		count, err := uow.DocumentRepository().Count(ctx, specification.BySubjectID{SubjectID: subject.Id})
		if err != nil {
			return nil, err
		}
		result = append(result, &dto.ShowSubjectResponse{
			Id:            subject.Id,
			Name:          subject.Name,
			DocumentCount: count,
			CreatedAt:     subject.CreatedAt,
			UpdatedAt:     subject.UpdatedAt,
		})
	}

	return result, nil
}

func (c *subjectService) Create(ctx context.Context, req *dto.CreateSubjectRequest) (*dto.CreateSubjectResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	subject := entity.Subject{
		Id:        uuid.New(),
		Name:      req.Name,
		CreatedAt: time.Now(),
	}

	if err := uow.SubjectRepository().Create(ctx, &subject); err != nil {
		return nil, err
	}

	return &dto.CreateSubjectResponse{Id: subject.Id}, nil
}

func (c *subjectService) Show(ctx context.Context, id uuid.UUID) (*dto.ShowSubjectResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	subject, err := uow.SubjectRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Subject not found")
	}

	count, err := uow.DocumentRepository().Count(ctx, specification.BySubjectID{SubjectID: subject.Id})
	if err != nil {
		return nil, err
	}

	return &dto.ShowSubjectResponse{
		Id:            subject.Id,
		Name:          subject.Name,
		DocumentCount: count,
		CreatedAt:     subject.CreatedAt,
		UpdatedAt:     subject.UpdatedAt,
	}, nil
}

func (c *subjectService) Update(ctx context.Context, req *dto.UpdateSubjectRequest) (*dto.UpdateSubjectResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	subject, err := uow.SubjectRepository().FindOne(ctx, specification.ByID{ID: req.Id})
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Subject not found")
	}

	now := time.Now()
	subject.Name = req.Name
	subject.UpdatedAt = &now

	if err := uow.SubjectRepository().Update(ctx, subject); err != nil {
		return nil, err
	}

	return &dto.UpdateSubjectResponse{Id: subject.Id}, nil
}

// Delete removes a subject together with its documents and their index
// entries, inside one transaction.
func (c *subjectService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	subject, err := uow.SubjectRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if subject == nil {
		return fiber.NewError(fiber.StatusNotFound, "Subject not found")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChunkEmbeddingRepository().DeleteBySubjectId(ctx, id); err != nil {
		return err
	}

	documents, err := uow.DocumentRepository().FindAll(ctx, specification.BySubjectID{SubjectID: id})
	if err != nil {
		return err
	}
	for _, document := range documents {
		if err := uow.DocumentRepository().Delete(ctx, document.Id); err != nil {
			return err
		}
	}

	if err := uow.SubjectRepository().Delete(ctx, id); err != nil {
		return err
	}

	return uow.Commit()
}
