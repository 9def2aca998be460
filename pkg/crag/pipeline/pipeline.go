package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crag-notes-be/internal/pkg/logger"
	"crag-notes-be/pkg/crag"
	"crag-notes-be/pkg/crag/memory"
	"crag-notes-be/pkg/crag/postprocess"
	"crag-notes-be/pkg/crag/prompt"
	"crag-notes-be/pkg/llm"

	"github.com/google/uuid"
)

// Retriever fetches candidate chunks for a question scoped to a subject.
type Retriever interface {
	Retrieve(ctx context.Context, question string, subjectId uuid.UUID, topK int) ([]crag.RetrievedChunk, error)
}

// Reranker reorders candidates with a secondary relevance signal.
type Reranker interface {
	Rerank(question string, candidates []crag.RetrievedChunk, topN int) []crag.RetrievedChunk
}

// EmitFunc receives stream events during AskStream. Returning an error
// aborts the run.
type EmitFunc func(event crag.StreamEvent) error

// Config is the tunable surface of the orchestrator.
type Config struct {
	NotFoundThreshold float64 // below this top score the LLM is never invoked
	TopK              int     // retrieval candidate count
	RerankTopN        int     // candidates kept after reranking
}

// DefaultConfig returns the stock pipeline thresholds.
func DefaultConfig() Config {
	return Config{
		NotFoundThreshold: 0.35,
		TopK:              8,
		RerankTopN:        5,
	}
}

// Orchestrator sequences one CRAG request: retrieve, rerank, gate on
// evidence quality, load memory, prompt, generate, post-process, append
// memory. It holds no per-request state; concurrent requests are
// independent.
type Orchestrator struct {
	retriever     Retriever
	reranker      Reranker
	memoryStore   memory.Store
	llmProvider   llm.LLMProvider
	promptBuilder *prompt.Builder
	postProcessor *postprocess.Processor
	config        Config
	logger        logger.ILogger
}

func NewOrchestrator(
	retriever Retriever,
	reranker Reranker,
	memoryStore memory.Store,
	llmProvider llm.LLMProvider,
	postProcessor *postprocess.Processor,
	config Config,
	log logger.ILogger,
) *Orchestrator {
	return &Orchestrator{
		retriever:     retriever,
		reranker:      reranker,
		memoryStore:   memoryStore,
		llmProvider:   llmProvider,
		promptBuilder: prompt.NewBuilder(),
		postProcessor: postProcessor,
		config:        config,
		logger:        log,
	}
}

// Ask runs the full pipeline synchronously and returns the complete
// response. Collaborator failures propagate; weak evidence and
// non-conforming model output do not.
func (o *Orchestrator) Ask(ctx context.Context, req crag.AskRequest) (*crag.Response, error) {
	prepared, notFound, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if notFound != nil {
		return notFound, nil
	}

	rawOutput, err := o.llmProvider.Chat(ctx, prepared.messages)
	if err != nil {
		return nil, fmt.Errorf("llm generation failed: %w", err)
	}

	return o.finish(ctx, req, prepared, rawOutput)
}

// AskStream runs the pipeline in streaming mode, pushing chunk events for
// each generation delta and exactly one final event. When the gate trips,
// only the final event is emitted. The sequence is single-pass and not
// restartable; a retry is a fresh run.
func (o *Orchestrator) AskStream(ctx context.Context, req crag.AskRequest, emit EmitFunc) error {
	prepared, notFound, err := o.prepare(ctx, req)
	if err != nil {
		return err
	}
	if notFound != nil {
		return emit(crag.StreamEvent{Type: crag.StreamEventFinal, Response: notFound})
	}

	rawOutput, err := o.llmProvider.ChatStream(ctx, prepared.messages, func(delta string) error {
		return emit(crag.StreamEvent{Type: crag.StreamEventChunk, Delta: delta})
	})
	if err != nil {
		// Chunks may already have been emitted; the caller turns this
		// into a terminal error signal, never a synthetic final event.
		return fmt.Errorf("llm generation failed: %w", err)
	}

	response, err := o.finish(ctx, req, prepared, rawOutput)
	if err != nil {
		return err
	}

	return emit(crag.StreamEvent{Type: crag.StreamEventFinal, Response: response})
}

// preparedRequest carries the state shared by both entry points between
// the gate and generation.
type preparedRequest struct {
	reranked []crag.RetrievedChunk
	topScore float64
	messages []llm.Message
}

// prepare runs retrieval, reranking and the confidence gate, then loads
// memory and builds the prompt. A non-nil *Response means the gate
// tripped and the canonical NotFound response must be returned without
// invoking the LLM.
func (o *Orchestrator) prepare(ctx context.Context, req crag.AskRequest) (*preparedRequest, *crag.Response, error) {
	subjectId, err := uuid.Parse(req.SubjectId)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid subject id %q: %w", req.SubjectId, err)
	}

	candidates, err := o.retriever.Retrieve(ctx, req.Question, subjectId, o.config.TopK)
	if err != nil {
		return nil, nil, err
	}

	reranked := o.reranker.Rerank(req.Question, candidates, o.config.RerankTopN)

	topScore := 0.0
	if len(reranked) > 0 {
		topScore = reranked[0].Score
	}

	o.logger.Debug("Pipeline", "Confidence gate", map[string]interface{}{
		"thread_id":  req.ThreadId,
		"candidates": len(reranked),
		"top_score":  topScore,
		"threshold":  o.config.NotFoundThreshold,
	})

	if topScore < o.config.NotFoundThreshold {
		o.logger.Info("Pipeline", "Gate tripped, returning NotFound", map[string]interface{}{
			"thread_id": req.ThreadId,
			"top_score": topScore,
		})
		return nil, crag.NewNotFoundResponse(req.SubjectName), nil
	}

	threadMemory, err := o.memoryStore.LoadThreadMemory(ctx, req.ThreadId)
	if err != nil {
		return nil, nil, fmt.Errorf("load thread memory: %w", err)
	}

	messages := o.promptBuilder.Build(prompt.BuildInput{
		Question:     req.Question,
		SubjectName:  req.SubjectName,
		Chunks:       reranked,
		ThreadMemory: threadMemory,
	})

	return &preparedRequest{
		reranked: reranked,
		topScore: topScore,
		messages: messages,
	}, nil, nil
}

// finish applies the post-generation sentinel check, post-processes the
// output, and appends memory on the Found path only.
func (o *Orchestrator) finish(ctx context.Context, req crag.AskRequest, prepared *preparedRequest, rawOutput string) (*crag.Response, error) {
	// The model can self-declare "no answer" by echoing the exact refusal
	// string. Substituting the canonical response here keeps the refusal
	// path structurally identical to a gate trip.
	if strings.TrimSpace(rawOutput) == crag.NotFoundAnswer(req.SubjectName) {
		o.logger.Info("Pipeline", "Model self-declared NotFound", map[string]interface{}{
			"thread_id": req.ThreadId,
		})
		return crag.NewNotFoundResponse(req.SubjectName), nil
	}

	response := o.postProcessor.BuildFoundResponse(rawOutput, prepared.reranked, prepared.topScore)

	turn := crag.MemoryTurn{
		Question:     req.Question,
		Answer:       response.Answer,
		SubjectId:    req.SubjectId,
		CreatedAtIso: time.Now().UTC().Format(time.RFC3339),
	}
	if err := o.memoryStore.AppendThreadMemory(ctx, req.ThreadId, turn); err != nil {
		return nil, fmt.Errorf("append thread memory: %w", err)
	}

	return response, nil
}
