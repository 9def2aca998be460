package dto

import (
	"time"

	"github.com/google/uuid"

	"crag-notes-be/pkg/crag"
)

type AskRequest struct {
	SubjectId uuid.UUID `json:"subject_id" validate:"required"`
	ThreadId  uuid.UUID `json:"thread_id" validate:"required"`
	Question  string    `json:"question" validate:"required"`
}

type AskResponse struct {
	Answer     string          `json:"answer"`
	Citations  []crag.Citation `json:"citations"`
	Confidence crag.Confidence `json:"confidence"`
	Evidence   []string        `json:"evidence"`
	Found      bool            `json:"found"`
}

// AskStreamFrame is one websocket frame on the streaming endpoint. Type is
// "chunk", "final" or "error"; exactly one of the remaining fields is set.
type AskStreamFrame struct {
	Type  string       `json:"type"`
	Delta string       `json:"delta,omitempty"`
	Final *AskResponse `json:"final,omitempty"`
	Error string       `json:"error,omitempty"`
}

type AskHistoryItemResponse struct {
	Id         uuid.UUID       `json:"id"`
	Question   string          `json:"question"`
	Answer     string          `json:"answer"`
	Found      bool            `json:"found"`
	Confidence string          `json:"confidence"`
	Citations  []crag.Citation `json:"citations"`
	CreatedAt  time.Time       `json:"created_at"`
}
