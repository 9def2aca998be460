package service

import (
	"context"
	"fmt"
	"time"

	"crag-notes-be/internal/dto"
	"crag-notes-be/internal/entity"
	"crag-notes-be/internal/pkg/logger"
	"crag-notes-be/internal/repository/specification"
	"crag-notes-be/internal/repository/unitofwork"
	"crag-notes-be/pkg/crag"
	"crag-notes-be/pkg/crag/pipeline"
	"crag-notes-be/pkg/events"
	pktNats "crag-notes-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAskService interface {
	Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error)
	AskStream(ctx context.Context, req *dto.AskRequest, emit func(frame dto.AskStreamFrame) error) error
	GetHistory(ctx context.Context, threadId uuid.UUID) ([]*dto.AskHistoryItemResponse, error)
	DeleteThread(ctx context.Context, threadId uuid.UUID) error
}

// askService fronts the question pipeline. It resolves the subject,
// delegates to the orchestrator, and records every completed exchange for
// thread history listing.
type askService struct {
	orchestrator   *pipeline.Orchestrator
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewAskService(
	orchestrator *pipeline.Orchestrator,
	uowFactory unitofwork.RepositoryFactory,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IAskService {
	return &askService{
		orchestrator:   orchestrator,
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (c *askService) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	pipelineReq, err := c.resolveRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	response, err := c.orchestrator.Ask(ctx, *pipelineReq)
	if err != nil {
		return nil, err
	}

	c.recordExchange(ctx, req, response)

	return mapAskResponse(response), nil
}

func (c *askService) AskStream(ctx context.Context, req *dto.AskRequest, emit func(frame dto.AskStreamFrame) error) error {
	pipelineReq, err := c.resolveRequest(ctx, req)
	if err != nil {
		return err
	}

	return c.orchestrator.AskStream(ctx, *pipelineReq, func(event crag.StreamEvent) error {
		switch event.Type {
		case crag.StreamEventChunk:
			return emit(dto.AskStreamFrame{Type: "chunk", Delta: event.Delta})
		case crag.StreamEventFinal:
			c.recordExchange(ctx, req, event.Response)
			return emit(dto.AskStreamFrame{Type: "final", Final: mapAskResponse(event.Response)})
		default:
			return fmt.Errorf("unknown stream event type: %s", event.Type)
		}
	})
}

func (c *askService) GetHistory(ctx context.Context, threadId uuid.UUID) ([]*dto.AskHistoryItemResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	exchanges, err := uow.AskExchangeRepository().FindAll(ctx,
		specification.ByThreadID{ThreadID: threadId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.AskHistoryItemResponse, 0, len(exchanges))
	for _, exchange := range exchanges {
		citations := make([]crag.Citation, 0, len(exchange.Citations))
		for _, citation := range exchange.Citations {
			citations = append(citations, crag.Citation{
				FileName: citation.FileName,
				Page:     citation.Page,
				ChunkId:  citation.ChunkId,
			})
		}
		result = append(result, &dto.AskHistoryItemResponse{
			Id:         exchange.Id,
			Question:   exchange.Question,
			Answer:     exchange.Answer,
			Found:      exchange.Found,
			Confidence: exchange.Confidence,
			Citations:  citations,
			CreatedAt:  exchange.CreatedAt,
		})
	}

	return result, nil
}

func (c *askService) DeleteThread(ctx context.Context, threadId uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	return uow.AskExchangeRepository().DeleteByThreadId(ctx, threadId)
}

// resolveRequest validates the subject exists and builds the pipeline
// request with the subject's display name, which the refusal answer
// embeds verbatim.
func (c *askService) resolveRequest(ctx context.Context, req *dto.AskRequest) (*crag.AskRequest, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	subject, err := uow.SubjectRepository().FindOne(ctx, specification.ByID{ID: req.SubjectId})
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Subject not found")
	}

	return &crag.AskRequest{
		Question:    req.Question,
		SubjectId:   req.SubjectId.String(),
		SubjectName: subject.Name,
		ThreadId:    req.ThreadId.String(),
	}, nil
}

// recordExchange persists the completed turn for history listing and
// notifies the event bus. Failures are logged, never surfaced; the answer
// has already been produced.
func (c *askService) recordExchange(ctx context.Context, req *dto.AskRequest, response *crag.Response) {
	citations := make([]entity.AskCitation, 0, len(response.Citations))
	for _, citation := range response.Citations {
		citations = append(citations, entity.AskCitation{
			FileName: citation.FileName,
			Page:     citation.Page,
			ChunkId:  citation.ChunkId,
		})
	}

	exchange := entity.AskExchange{
		Id:         uuid.New(),
		ThreadId:   req.ThreadId,
		SubjectId:  req.SubjectId,
		Question:   req.Question,
		Answer:     response.Answer,
		Found:      response.Found,
		Confidence: string(response.Confidence),
		Citations:  citations,
		CreatedAt:  time.Now(),
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.AskExchangeRepository().Create(ctx, &exchange); err != nil {
		c.logger.Error("AskService", "Failed to record exchange", map[string]interface{}{
			"thread_id": req.ThreadId,
			"error":     err.Error(),
		})
	}

	if c.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: "QUESTION_ANSWERED",
			Data: map[string]interface{}{
				"thread_id":  req.ThreadId,
				"subject_id": req.SubjectId,
				"found":      response.Found,
				"confidence": response.Confidence,
			},
			OccurredAt: time.Now(),
		}
		if err := c.eventPublisher.Publish(ctx, evt); err != nil {
			c.logger.Warn("AskService", "Failed to publish QUESTION_ANSWERED event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

func mapAskResponse(response *crag.Response) *dto.AskResponse {
	return &dto.AskResponse{
		Answer:     response.Answer,
		Citations:  response.Citations,
		Confidence: response.Confidence,
		Evidence:   response.Evidence,
		Found:      response.Found,
	}
}
