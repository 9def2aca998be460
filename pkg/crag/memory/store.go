package memory

import (
	"context"

	"crag-notes-be/pkg/crag"
)

// DefaultMaxTurns bounds a thread's retained history. Oldest turns are
// evicted first.
const DefaultMaxTurns = 20

// Store persists bounded conversational memory keyed by thread id. A
// thread's history is independent of subject and user. Implementations
// must perform their own one-time setup lazily and idempotently, and must
// return an empty slice, not an error, for unknown threads.
type Store interface {
	LoadThreadMemory(ctx context.Context, threadId string) ([]crag.MemoryTurn, error)
	AppendThreadMemory(ctx context.Context, threadId string, turn crag.MemoryTurn) error
}
