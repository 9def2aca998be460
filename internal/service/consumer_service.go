package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"crag-notes-be/internal/dto"
	"crag-notes-be/internal/entity"
	"crag-notes-be/internal/repository/specification"
	"crag-notes-be/internal/repository/unitofwork"
	"crag-notes-be/pkg/embedding"
	"crag-notes-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// Chunking parameters. 1500 chars is roughly 375 tokens, comfortably
// inside embedding context limits; 200 chars of overlap preserves
// sentence boundaries between neighbours.
const (
	chunkSize    = 1500
	chunkOverlap = 200
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the embedding topic: for each queued document it
// splits the content, embeds every chunk, and atomically replaces the
// document's index entries.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.EmbedDocumentEvent
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Processing embeddings for DocumentId: %s", payload.DocumentId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		log.Printf("[ERROR] Failed to get document %s: %v", payload.DocumentId, err)
		msg.Nack()
		return
	}
	if document == nil {
		// Deleted before the queue drained. Ack.
		log.Printf("[WARN] Document not found: %s", payload.DocumentId)
		msg.Ack()
		return
	}

	chunks := utils.SplitText(document.Content, chunkSize, chunkOverlap)
	log.Printf("[INFO] Content split into %d chunks", len(chunks))

	var newEmbeddings []*entity.ChunkEmbedding
	for i, chunk := range chunks {
		res, err := cs.embeddingProvider.Generate(ctx, chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			log.Printf("[ERROR] Failed to generate embedding for chunk %d of document %s: %v", i, payload.DocumentId, err)
			msg.Nack()
			return
		}

		newEmbeddings = append(newEmbeddings, &entity.ChunkEmbedding{
			Id:             uuid.New(),
			DocumentId:     document.Id,
			ChunkIndex:     i,
			ChunkKey:       fmt.Sprintf("%s#%d", document.FileName, i),
			Text:           chunk,
			FileName:       document.FileName,
			Page:           estimatePage(i, len(chunks), document.PageCount),
			EmbeddingValue: res.Embedding.Values,
			CreatedAt:      time.Now(),
		})
	}

	if err := uow.Begin(ctx); err != nil {
		log.Printf("[ERROR] Failed to begin transaction: %v", err)
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if err := uow.ChunkEmbeddingRepository().DeleteByDocumentId(ctx, document.Id); err != nil {
		log.Printf("[ERROR] Failed to delete old embeddings: %v", err)
		msg.Nack()
		return
	}

	if len(newEmbeddings) > 0 {
		if err := uow.ChunkEmbeddingRepository().CreateBulk(ctx, newEmbeddings); err != nil {
			log.Printf("[ERROR] Failed to create bulk embeddings: %v", err)
			msg.Nack()
			return
		}
	}

	if err := uow.Commit(); err != nil {
		log.Printf("[ERROR] Failed to commit transaction: %v", err)
		msg.Nack()
		return
	}

	log.Printf("[SUCCESS] Document indexed: %d chunks for DocumentId: %s", len(newEmbeddings), payload.DocumentId)
	msg.Ack()
}

// estimatePage maps a chunk index onto the source document's page range.
// Proportional only; ingestion does not track true page offsets.
func estimatePage(chunkIndex, totalChunks, pageCount int) *int {
	if pageCount <= 0 || totalChunks <= 0 {
		return nil
	}
	page := chunkIndex*pageCount/totalChunks + 1
	if page > pageCount {
		page = pageCount
	}
	return &page
}
