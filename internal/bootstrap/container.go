package bootstrap

import (
	"context"
	"log"

	"crag-notes-be/internal/config"
	"crag-notes-be/internal/controller"
	"crag-notes-be/internal/pkg/logger"
	"crag-notes-be/internal/repository/implementation"
	"crag-notes-be/internal/repository/unitofwork"
	"crag-notes-be/internal/service"
	"crag-notes-be/pkg/crag/memory"
	"crag-notes-be/pkg/crag/pipeline"
	"crag-notes-be/pkg/crag/postprocess"
	"crag-notes-be/pkg/crag/rerank"
	"crag-notes-be/pkg/crag/retrieval"
	"crag-notes-be/pkg/embedding"
	"crag-notes-be/pkg/llm/factory"

	pktNats "crag-notes-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SubjectController  controller.ISubjectController
	DocumentController controller.IDocumentController
	AskController      controller.IAskController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
		cfg.Ai.StreamChunkSize,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Thread memory backend. Redis survives restarts and is shared across
	// instances; the in-process cache store is the single-node fallback.
	var memoryStore memory.Store
	opt, redisErr := redis.ParseURL(cfg.App.RedisURL)
	if redisErr == nil {
		rdb := redis.NewClient(opt)
		if _, pingErr := rdb.Ping(context.Background()).Result(); pingErr == nil {
			memoryStore = memory.NewRedisStore(cfg.App.RedisURL, cfg.Crag.MaxMemoryTurns)
			log.Printf("[INFO] Using Redis thread memory store")
		} else {
			log.Printf("[WARN] Redis unreachable (%v), falling back to in-process memory store", pingErr)
		}
	} else {
		log.Printf("[WARN] Invalid Redis URL (%v), falling back to in-process memory store", redisErr)
	}
	if memoryStore == nil {
		memoryStore = memory.NewCacheStore(cfg.Crag.MaxMemoryTurns)
	}

	// 5. Question Pipeline
	chunkRepo := implementation.NewChunkEmbeddingRepository(db)
	retriever := retrieval.NewRetriever(embeddingProvider, chunkRepo, sysLogger)
	reranker := rerank.NewReranker()
	postProcessor := postprocess.NewProcessor(cfg.Crag.HighThreshold, cfg.Crag.MediumThreshold)

	orchestrator := pipeline.NewOrchestrator(
		retriever,
		reranker,
		memoryStore,
		llmProvider,
		postProcessor,
		pipeline.Config{
			NotFoundThreshold: cfg.Crag.NotFoundThreshold,
			TopK:              cfg.Crag.TopK,
			RerankTopN:        cfg.Crag.RerankTopN,
		},
		sysLogger,
	)

	// 6. Services
	publisherService := service.NewPublisherService(cfg.Keys.EmbedDocsTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.EmbedDocsTopic,
		uowFactory,
		embeddingProvider,
	)

	subjectService := service.NewSubjectService(uowFactory)
	documentService := service.NewDocumentService(uowFactory, publisherService, natsPub)
	askService := service.NewAskService(orchestrator, uowFactory, natsPub, sysLogger)

	// 7. Controllers
	return &Container{
		SubjectController:  controller.NewSubjectController(subjectService),
		DocumentController: controller.NewDocumentController(documentService),
		AskController:      controller.NewAskController(askService, sysLogger),

		ConsumerService: consumerService,

		Logger: sysLogger,
	}
}
