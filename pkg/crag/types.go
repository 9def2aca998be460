package crag

import "fmt"

// Confidence is the qualitative confidence attached to a Found response.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// ChunkMetadata carries the provenance of an indexed chunk. Fields may be
// empty when the source document was indexed without them.
type ChunkMetadata struct {
	FileName string `json:"file_name"`
	Page     *int   `json:"page"`
	ChunkId  string `json:"chunk_id"`
}

// RetrievedChunk is one retrieval candidate. Score is the raw cosine
// similarity from the vector index; the reranker produces copies with a
// recomputed blended score and never mutates the original.
type RetrievedChunk struct {
	Id       string        `json:"id"`
	Score    float64       `json:"score"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Citation points back at indexed content. Citations are always derived
// from retrieved chunk metadata, never from model output.
type Citation struct {
	FileName string `json:"file_name"`
	Page     *int   `json:"page"`
	ChunkId  string `json:"chunk_id"`
}

// MemoryTurn is one completed question/answer exchange in a thread.
type MemoryTurn struct {
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	SubjectId    string `json:"subject_id"`
	CreatedAtIso string `json:"created_at_iso"`
}

// AskRequest is the per-call input to the pipeline. It is never persisted
// directly.
type AskRequest struct {
	Question    string `json:"question"`
	SubjectId   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	ThreadId    string `json:"thread_id"`
}

// Response is the pipeline output. Found is the discriminant: when false
// the remaining fields hold the canonical refusal values.
type Response struct {
	Answer     string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	Confidence Confidence `json:"confidence"`
	Evidence   []string   `json:"evidence"`
	Found      bool       `json:"found"`
}

// NotFoundAnswer formats the canonical refusal for a subject. The exact
// string doubles as the sentinel the orchestrator matches against when the
// model self-declares that no answer exists.
func NotFoundAnswer(subjectName string) string {
	return fmt.Sprintf("Not found in your notes for [%s]", subjectName)
}

// NewNotFoundResponse returns the canonical refusal response for a subject.
func NewNotFoundResponse(subjectName string) *Response {
	return &Response{
		Answer:     NotFoundAnswer(subjectName),
		Citations:  []Citation{},
		Confidence: ConfidenceLow,
		Evidence:   []string{},
		Found:      false,
	}
}

// Stream event types emitted by AskStream.
const (
	StreamEventChunk = "chunk"
	StreamEventFinal = "final"
)

// StreamEvent is one element of the streamed ask sequence: zero or more
// chunk events carrying text deltas, then exactly one final event carrying
// the complete response.
type StreamEvent struct {
	Type     string    `json:"type"`
	Delta    string    `json:"delta,omitempty"`
	Response *Response `json:"response,omitempty"`
}
