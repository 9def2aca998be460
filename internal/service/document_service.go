package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crag-notes-be/internal/dto"
	"crag-notes-be/internal/entity"
	"crag-notes-be/internal/repository/specification"
	"crag-notes-be/internal/repository/unitofwork"
	"crag-notes-be/pkg/events"
	pktNats "crag-notes-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentService interface {
	Create(ctx context.Context, req *dto.CreateDocumentRequest) (*dto.CreateDocumentResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.ShowDocumentResponse, error)
	GetAllBySubject(ctx context.Context, subjectId uuid.UUID) ([]*dto.ShowDocumentResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
	}
}

// Create stores the document and queues it for asynchronous chunking and
// embedding. Until the consumer finishes, the document is invisible to
// retrieval.
func (c *documentService) Create(ctx context.Context, req *dto.CreateDocumentRequest) (*dto.CreateDocumentResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	subject, err := uow.SubjectRepository().FindOne(ctx, specification.ByID{ID: req.SubjectId})
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Subject not found")
	}

	document := entity.Document{
		Id:        uuid.New(),
		SubjectId: req.SubjectId,
		FileName:  req.FileName,
		Content:   req.Content,
		PageCount: req.PageCount,
		CreatedAt: time.Now(),
	}

	if err := uow.DocumentRepository().Create(ctx, &document); err != nil {
		return nil, err
	}

	msgPayload := dto.EmbedDocumentEvent{
		DocumentId: document.Id,
	}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil, err
	}

	if err := c.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	if c.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: "DOCUMENT_CREATED",
			Data: map[string]interface{}{
				"document_id": document.Id,
				"subject_id":  document.SubjectId,
				"file_name":   document.FileName,
			},
			OccurredAt: time.Now(),
		}
		if err := c.eventPublisher.Publish(ctx, evt); err != nil {
			fmt.Printf("[WARN] Failed to publish DOCUMENT_CREATED event: %v\n", err)
		}
	}

	return &dto.CreateDocumentResponse{Id: document.Id}, nil
}

func (c *documentService) Show(ctx context.Context, id uuid.UUID) (*dto.ShowDocumentResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Document not found")
	}

	chunkCount, err := uow.ChunkEmbeddingRepository().Count(ctx, specification.ByDocumentID{DocumentID: document.Id})
	if err != nil {
		return nil, err
	}

	return &dto.ShowDocumentResponse{
		Id:         document.Id,
		SubjectId:  document.SubjectId,
		FileName:   document.FileName,
		PageCount:  document.PageCount,
		ChunkCount: chunkCount,
		CreatedAt:  document.CreatedAt,
		UpdatedAt:  document.UpdatedAt,
	}, nil
}

func (c *documentService) GetAllBySubject(ctx context.Context, subjectId uuid.UUID) ([]*dto.ShowDocumentResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	documents, err := uow.DocumentRepository().FindAll(ctx,
		specification.BySubjectID{SubjectID: subjectId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ShowDocumentResponse, 0, len(documents))
	for _, document := range documents {
		chunkCount, err := uow.ChunkEmbeddingRepository().Count(ctx, specification.ByDocumentID{DocumentID: document.Id})
		if err != nil {
			return nil, err
		}
		result = append(result, &dto.ShowDocumentResponse{
			Id:         document.Id,
			SubjectId:  document.SubjectId,
			FileName:   document.FileName,
			PageCount:  document.PageCount,
			ChunkCount: chunkCount,
			CreatedAt:  document.CreatedAt,
			UpdatedAt:  document.UpdatedAt,
		})
	}

	return result, nil
}

// Delete removes the document and its index entries in one transaction so
// retrieval never sees orphaned chunks.
func (c *documentService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if document == nil {
		return fiber.NewError(fiber.StatusNotFound, "Document not found")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChunkEmbeddingRepository().DeleteByDocumentId(ctx, id); err != nil {
		return err
	}
	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}

	return uow.Commit()
}
