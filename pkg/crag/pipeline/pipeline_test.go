package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"crag-notes-be/internal/pkg/logger"
	"crag-notes-be/pkg/crag"
	"crag-notes-be/pkg/crag/postprocess"
	"crag-notes-be/pkg/crag/rerank"
	"crag-notes-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	chunks []crag.RetrievedChunk
	err    error
	calls  int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, question string, subjectId uuid.UUID, topK int) ([]crag.RetrievedChunk, error) {
	f.calls++
	return f.chunks, f.err
}

type fakeMemoryStore struct {
	turns    map[string][]crag.MemoryTurn
	appended []crag.MemoryTurn
	loadErr  error
}

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{turns: make(map[string][]crag.MemoryTurn)}
}

func (f *fakeMemoryStore) LoadThreadMemory(ctx context.Context, threadId string) ([]crag.MemoryTurn, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.turns[threadId], nil
}

func (f *fakeMemoryStore) AppendThreadMemory(ctx context.Context, threadId string, turn crag.MemoryTurn) error {
	f.turns[threadId] = append(f.turns[threadId], turn)
	f.appended = append(f.appended, turn)
	return nil
}

// fakeLLM records invocations and replies with a canned output, either as
// one blob (Chat) or as the configured deltas (ChatStream).
type fakeLLM struct {
	output      string
	deltas      []string
	err         error
	chatCalls   int
	streamCalls int
	lastHistory []llm.Message
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.chatCalls++
	f.lastHistory = history
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

func (f *fakeLLM) ChatStream(ctx context.Context, history []llm.Message, onDelta llm.DeltaFunc, options ...llm.Option) (string, error) {
	f.streamCalls++
	f.lastHistory = history
	if f.err != nil {
		return "", f.err
	}
	deltas := f.deltas
	if deltas == nil {
		deltas = []string{f.output}
	}
	var full strings.Builder
	for _, d := range deltas {
		if err := onDelta(d); err != nil {
			return "", err
		}
		full.WriteString(d)
	}
	return full.String(), nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "human", Content: prompt}}, options...)
}

func physicsChunks() []crag.RetrievedChunk {
	page := 3
	return []crag.RetrievedChunk{
		{
			Id:    "c1",
			Score: 0.9,
			Text:  "Newton's second law states F = ma.",
			Metadata: crag.ChunkMetadata{
				FileName: "physics.pdf",
				Page:     &page,
				ChunkId:  "c1",
			},
		},
		{
			Id:    "c2",
			Score: 0.6,
			Text:  "Force is measured in newtons.",
			Metadata: crag.ChunkMetadata{
				FileName: "physics.pdf",
				ChunkId:  "c2",
			},
		},
	}
}

func newTestOrchestrator(retriever *fakeRetriever, store *fakeMemoryStore, model *fakeLLM) *Orchestrator {
	return NewOrchestrator(
		retriever,
		rerank.NewReranker(),
		store,
		model,
		postprocess.NewProcessor(postprocess.DefaultHighThreshold, postprocess.DefaultMediumThreshold),
		DefaultConfig(),
		logger.NewNopLogger(),
	)
}

func askRequest() crag.AskRequest {
	return crag.AskRequest{
		Question:    "What is Newton's second law?",
		SubjectId:   uuid.New().String(),
		SubjectName: "Physics",
		ThreadId:    "thread-1",
	}
}

func TestAskGateTripsWithoutInvokingModel(t *testing.T) {
	retriever := &fakeRetriever{chunks: []crag.RetrievedChunk{
		{Id: "c1", Score: 0.2, Text: "unrelated"},
	}}
	store := newFakeMemoryStore()
	model := &fakeLLM{output: "should never be seen"}
	o := newTestOrchestrator(retriever, store, model)

	resp, err := o.Ask(context.Background(), askRequest())

	require.NoError(t, err)
	assert.False(t, resp.Found)
	assert.Equal(t, "Not found in your notes for [Physics]", resp.Answer)
	assert.Equal(t, crag.ConfidenceLow, resp.Confidence)
	assert.Empty(t, resp.Citations)
	assert.Empty(t, resp.Evidence)
	assert.Equal(t, 0, model.chatCalls, "gate must short-circuit before generation")
	assert.Empty(t, store.appended, "NotFound must not be written to memory")
}

func TestAskGateTripsOnEmptyRetrieval(t *testing.T) {
	retriever := &fakeRetriever{chunks: nil}
	store := newFakeMemoryStore()
	model := &fakeLLM{}
	o := newTestOrchestrator(retriever, store, model)

	resp, err := o.Ask(context.Background(), askRequest())

	require.NoError(t, err)
	assert.False(t, resp.Found)
	assert.Equal(t, 0, model.chatCalls)
}

func TestAskFoundPath(t *testing.T) {
	retriever := &fakeRetriever{chunks: physicsChunks()}
	store := newFakeMemoryStore()
	model := &fakeLLM{output: `{"answer":"F = ma","confidence":"High","evidence":["Newton's second law states F = ma."]}`}
	o := newTestOrchestrator(retriever, store, model)

	req := askRequest()
	resp, err := o.Ask(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, resp.Found)
	assert.Equal(t, "F = ma", resp.Answer)
	assert.Equal(t, crag.ConfidenceHigh, resp.Confidence)
	require.Len(t, resp.Citations, 2)
	assert.Equal(t, "physics.pdf", resp.Citations[0].FileName)
	assert.Equal(t, 1, model.chatCalls)

	require.Len(t, store.appended, 1)
	turn := store.appended[0]
	assert.Equal(t, req.Question, turn.Question)
	assert.Equal(t, "F = ma", turn.Answer)
	assert.Equal(t, req.SubjectId, turn.SubjectId)
	ts, tsErr := time.Parse(time.RFC3339, turn.CreatedAtIso)
	require.NoError(t, tsErr)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

func TestAskModelSelfDeclaredNotFound(t *testing.T) {
	retriever := &fakeRetriever{chunks: physicsChunks()}
	store := newFakeMemoryStore()
	model := &fakeLLM{output: "  Not found in your notes for [Physics]\n"}
	o := newTestOrchestrator(retriever, store, model)

	resp, err := o.Ask(context.Background(), askRequest())

	require.NoError(t, err)
	assert.False(t, resp.Found)
	assert.Equal(t, "Not found in your notes for [Physics]", resp.Answer)
	assert.Empty(t, store.appended, "refusal must not be appended to memory")
}

func TestAskMalformedOutputStillFound(t *testing.T) {
	retriever := &fakeRetriever{chunks: physicsChunks()}
	store := newFakeMemoryStore()
	model := &fakeLLM{output: "The answer is F = ma, plain and simple."}
	o := newTestOrchestrator(retriever, store, model)

	resp, err := o.Ask(context.Background(), askRequest())

	require.NoError(t, err)
	assert.True(t, resp.Found)
	assert.Equal(t, "The answer is F = ma, plain and simple.", resp.Answer)
	assert.NotEmpty(t, resp.Evidence, "evidence falls back to chunk texts")
	require.Len(t, store.appended, 1)
}

func TestAskThreadMemoryReachesPrompt(t *testing.T) {
	retriever := &fakeRetriever{chunks: physicsChunks()}
	store := newFakeMemoryStore()
	store.turns["thread-1"] = []crag.MemoryTurn{
		{Question: "Earlier question", Answer: "Earlier answer", SubjectId: "s", CreatedAtIso: "2026-01-01T00:00:00Z"},
	}
	model := &fakeLLM{output: `{"answer":"ok","confidence":"High","evidence":[]}`}
	o := newTestOrchestrator(retriever, store, model)

	_, err := o.Ask(context.Background(), askRequest())

	require.NoError(t, err)
	require.Len(t, model.lastHistory, 2)
	assert.Contains(t, model.lastHistory[1].Content, "Earlier question")
	assert.Contains(t, model.lastHistory[1].Content, "Earlier answer")
}

func TestAskPropagatesRetrievalError(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("pgvector down")}
	store := newFakeMemoryStore()
	model := &fakeLLM{}
	o := newTestOrchestrator(retriever, store, model)

	_, err := o.Ask(context.Background(), askRequest())

	require.Error(t, err)
	assert.Equal(t, 0, model.chatCalls)
}

func TestAskRejectsInvalidSubjectId(t *testing.T) {
	o := newTestOrchestrator(&fakeRetriever{}, newFakeMemoryStore(), &fakeLLM{})

	req := askRequest()
	req.SubjectId = "not-a-uuid"
	_, err := o.Ask(context.Background(), req)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid subject id")
}

func TestAskStreamGateTripEmitsFinalOnly(t *testing.T) {
	retriever := &fakeRetriever{chunks: []crag.RetrievedChunk{
		{Id: "c1", Score: 0.1, Text: "noise"},
	}}
	store := newFakeMemoryStore()
	model := &fakeLLM{}
	o := newTestOrchestrator(retriever, store, model)

	var events []crag.StreamEvent
	err := o.AskStream(context.Background(), askRequest(), func(ev crag.StreamEvent) error {
		events = append(events, ev)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, crag.StreamEventFinal, events[0].Type)
	require.NotNil(t, events[0].Response)
	assert.False(t, events[0].Response.Found)
	assert.Equal(t, 0, model.streamCalls)
}

func TestAskStreamEmitsChunksThenFinal(t *testing.T) {
	retriever := &fakeRetriever{chunks: physicsChunks()}
	store := newFakeMemoryStore()
	payload := map[string]interface{}{
		"answer":     "F = mass × acceleration",
		"confidence": "High",
		"evidence":   []string{"Newton's second law states F = ma."},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	model := &fakeLLM{deltas: []string{string(raw[:len(raw)/2]), string(raw[len(raw)/2:])}}
	o := newTestOrchestrator(retriever, store, model)

	var events []crag.StreamEvent
	err = o.AskStream(context.Background(), askRequest(), func(ev crag.StreamEvent) error {
		events = append(events, ev)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, crag.StreamEventChunk, events[0].Type)
	assert.Equal(t, crag.StreamEventChunk, events[1].Type)
	assert.Equal(t, crag.StreamEventFinal, events[2].Type)
	assert.Equal(t, string(raw), events[0].Delta+events[1].Delta)

	final := events[2].Response
	require.NotNil(t, final)
	assert.True(t, final.Found)
	assert.Equal(t, "F = mass × acceleration", final.Answer)
	require.Len(t, store.appended, 1)
}

func TestAskStreamModelErrorNoFinalEvent(t *testing.T) {
	retriever := &fakeRetriever{chunks: physicsChunks()}
	store := newFakeMemoryStore()
	model := &fakeLLM{err: errors.New("connection reset")}
	o := newTestOrchestrator(retriever, store, model)

	var finals int
	err := o.AskStream(context.Background(), askRequest(), func(ev crag.StreamEvent) error {
		if ev.Type == crag.StreamEventFinal {
			finals++
		}
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, 0, finals)
	assert.Empty(t, store.appended)
}

func TestAskStreamEmitErrorAborts(t *testing.T) {
	retriever := &fakeRetriever{chunks: physicsChunks()}
	store := newFakeMemoryStore()
	model := &fakeLLM{deltas: []string{"a", "b", "c"}}
	o := newTestOrchestrator(retriever, store, model)

	calls := 0
	err := o.AskStream(context.Background(), askRequest(), func(ev crag.StreamEvent) error {
		calls++
		return errors.New("client gone")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, store.appended)
}
