package memory

import (
	"context"
	"sync"
	"time"

	"crag-notes-be/pkg/crag"

	"github.com/patrickmn/go-cache"
)

// CacheStore is the in-process fallback used when no Redis is configured.
// Histories expire after an hour of inactivity, which is acceptable for a
// conversational context window.
type CacheStore struct {
	maxTurns int

	initOnce sync.Once
	mu       sync.Mutex
	cache    *cache.Cache
}

func NewCacheStore(maxTurns int) *CacheStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &CacheStore{
		maxTurns: maxTurns,
	}
}

func (s *CacheStore) ensureInit() {
	s.initOnce.Do(func() {
		s.cache = cache.New(1*time.Hour, 10*time.Minute)
	})
}

func (s *CacheStore) LoadThreadMemory(ctx context.Context, threadId string) ([]crag.MemoryTurn, error) {
	s.ensureInit()
	s.mu.Lock()
	defer s.mu.Unlock()

	if x, found := s.cache.Get(threadId); found {
		stored := x.([]crag.MemoryTurn)
		// Copy so callers cannot mutate the cached slice
		turns := make([]crag.MemoryTurn, len(stored))
		copy(turns, stored)
		return turns, nil
	}
	return []crag.MemoryTurn{}, nil
}

func (s *CacheStore) AppendThreadMemory(ctx context.Context, threadId string, turn crag.MemoryTurn) error {
	s.ensureInit()
	s.mu.Lock()
	defer s.mu.Unlock()

	var turns []crag.MemoryTurn
	if x, found := s.cache.Get(threadId); found {
		turns = x.([]crag.MemoryTurn)
	}

	turns = append(turns, turn)
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}

	s.cache.Set(threadId, turns, cache.DefaultExpiration)
	return nil
}
