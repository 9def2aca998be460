package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"crag-notes-be/pkg/crag"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each thread's memory in a Redis list, trimmed to the
// most recent maxTurns entries on every append. The connection is opened
// lazily on first use so the store can be constructed before Redis is
// reachable.
type RedisStore struct {
	redisURL string
	maxTurns int

	initOnce sync.Once
	initErr  error
	client   *redis.Client
}

func NewRedisStore(redisURL string, maxTurns int) *RedisStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &RedisStore{
		redisURL: redisURL,
		maxTurns: maxTurns,
	}
}

func (s *RedisStore) ensureInit() error {
	s.initOnce.Do(func() {
		opts, err := redis.ParseURL(s.redisURL)
		if err != nil {
			s.initErr = fmt.Errorf("parse redis url: %w", err)
			return
		}
		s.client = redis.NewClient(opts)
	})
	return s.initErr
}

func (s *RedisStore) key(threadId string) string {
	return "crag:memory:" + threadId
}

func (s *RedisStore) LoadThreadMemory(ctx context.Context, threadId string) ([]crag.MemoryTurn, error) {
	if err := s.ensureInit(); err != nil {
		return nil, err
	}

	raw, err := s.client.LRange(ctx, s.key(threadId), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load thread memory: %w", err)
	}

	turns := make([]crag.MemoryTurn, 0, len(raw))
	for _, item := range raw {
		var turn crag.MemoryTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			// Skip entries written by incompatible versions
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisStore) AppendThreadMemory(ctx context.Context, threadId string, turn crag.MemoryTurn) error {
	if err := s.ensureInit(); err != nil {
		return err
	}

	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal memory turn: %w", err)
	}

	key := s.key(threadId)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append thread memory: %w", err)
	}
	return nil
}
