package main

import (
	"context"
	"fmt"

	"crag-notes-be/internal/pkg/logger"
	"crag-notes-be/pkg/crag"
	"crag-notes-be/pkg/crag/memory"
	"crag-notes-be/pkg/crag/pipeline"
	"crag-notes-be/pkg/crag/postprocess"
	"crag-notes-be/pkg/crag/rerank"
	"crag-notes-be/pkg/llm"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Offline trace of the question pipeline with scripted collaborators.
// Useful for eyeballing gate decisions, reranked scores and stream
// framing without a database or a model server.

type scriptedRetriever struct {
	chunks []crag.RetrievedChunk
}

func (s *scriptedRetriever) Retrieve(ctx context.Context, question string, subjectId uuid.UUID, topK int) ([]crag.RetrievedChunk, error) {
	return s.chunks, nil
}

type scriptedLLM struct {
	output string
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.output, nil
}

func (s *scriptedLLM) ChatStream(ctx context.Context, history []llm.Message, onDelta llm.DeltaFunc, options ...llm.Option) (string, error) {
	if err := llm.EmitChunks(s.output, 24, onDelta); err != nil {
		return "", err
	}
	return s.output, nil
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.output, nil
}

func main() {
	color.Cyan("🚀 Pipeline trace (scripted collaborators, no external services)\n")

	page := 3
	strongChunks := []crag.RetrievedChunk{
		{
			Id:    "c1",
			Score: 0.91,
			Text:  "Newton's second law states that force equals mass times acceleration (F = ma).",
			Metadata: crag.ChunkMetadata{
				FileName: "physics.pdf",
				Page:     &page,
				ChunkId:  "physics.pdf#0",
			},
		},
		{
			Id:    "c2",
			Score: 0.62,
			Text:  "Force is measured in newtons, the SI derived unit.",
			Metadata: crag.ChunkMetadata{
				FileName: "physics.pdf",
				ChunkId:  "physics.pdf#1",
			},
		},
	}
	weakChunks := []crag.RetrievedChunk{
		{Id: "c3", Score: 0.12, Text: "Unrelated note about lunch plans."},
	}

	model := &scriptedLLM{
		output: `{"answer":"F = ma: force equals mass times acceleration.","confidence":"High","evidence":["Newton's second law states that force equals mass times acceleration (F = ma)."]}`,
	}

	buildOrchestrator := func(chunks []crag.RetrievedChunk) *pipeline.Orchestrator {
		return pipeline.NewOrchestrator(
			&scriptedRetriever{chunks: chunks},
			rerank.NewReranker(),
			memory.NewCacheStore(memory.DefaultMaxTurns),
			model,
			postprocess.NewProcessor(postprocess.DefaultHighThreshold, postprocess.DefaultMediumThreshold),
			pipeline.DefaultConfig(),
			logger.NewNopLogger(),
		)
	}

	req := crag.AskRequest{
		Question:    "What is Newton's second law?",
		SubjectId:   uuid.New().String(),
		SubjectName: "Physics",
		ThreadId:    uuid.New().String(),
	}

	ctx := context.Background()

	color.Yellow("\n[1] Ask with strong evidence")
	response, err := buildOrchestrator(strongChunks).Ask(ctx, req)
	if err != nil {
		color.Red("Failed: %v", err)
		return
	}
	color.Green("Found=%v Confidence=%s", response.Found, response.Confidence)
	fmt.Printf("Answer: %s\n", response.Answer)
	for _, citation := range response.Citations {
		fmt.Printf("Citation: %s (%s)\n", citation.FileName, citation.ChunkId)
	}

	color.Yellow("\n[2] Ask with weak evidence (gate should trip)")
	response, err = buildOrchestrator(weakChunks).Ask(ctx, req)
	if err != nil {
		color.Red("Failed: %v", err)
		return
	}
	color.Green("Found=%v", response.Found)
	fmt.Printf("Answer: %s\n", response.Answer)

	color.Yellow("\n[3] Streaming with strong evidence")
	chunkEvents := 0
	err = buildOrchestrator(strongChunks).AskStream(ctx, req, func(event crag.StreamEvent) error {
		switch event.Type {
		case crag.StreamEventChunk:
			chunkEvents++
			fmt.Printf("  chunk %d: %q\n", chunkEvents, event.Delta)
		case crag.StreamEventFinal:
			color.Green("  final: Found=%v Confidence=%s", event.Response.Found, event.Response.Confidence)
		}
		return nil
	})
	if err != nil {
		color.Red("Failed: %v", err)
		return
	}
	fmt.Printf("Total chunk events: %d\n", chunkEvents)

	color.Cyan("\n✅ Trace complete")
}
