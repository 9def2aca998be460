package entity

import (
	"time"

	"github.com/google/uuid"
)

// AskCitation is a persisted citation attached to an exchange.
type AskCitation struct {
	FileName string `json:"file_name"`
	Page     *int   `json:"page"`
	ChunkId  string `json:"chunk_id"`
}

// AskExchange is one completed question/answer pair recorded for thread
// history listing. Distinct from the bounded LLM context memory, which
// lives in the memory store.
type AskExchange struct {
	Id         uuid.UUID
	ThreadId   uuid.UUID
	SubjectId  uuid.UUID
	Question   string
	Answer     string
	Found      bool
	Confidence string
	Citations  []AskCitation
	CreatedAt  time.Time
}
