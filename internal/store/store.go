// Package store tracks which modmail messages have already been handled so a
// redelivered trigger event never produces a duplicate response.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a processed-message marker is retained. Trigger
// redelivery happens within minutes; a day of retention is comfortably past
// that window.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "alreadyprocessed~"

// Store records processed message ids with an expiry.
type Store interface {
	// MarkProcessed atomically records messageID and reports whether it had
	// already been recorded.
	MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) (alreadySeen bool, err error)
}

// RedisStore keeps processed-message markers in redis, so the guarantee
// holds across responder restarts and replicas.
type RedisStore struct {
	Client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{Client: client}
}

func (s *RedisStore) MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	set, err := s.Client.SetNX(ctx, keyPrefix+messageID, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}

// ForAddr builds the store a deployment configured: redis-backed when a
// redis address is set, process-local otherwise.
func ForAddr(redisAddr string) Store {
	if redisAddr == "" {
		return NewMemoryStore()
	}
	return NewRedisStore(redis.NewClient(&redis.Options{Addr: redisAddr}))
}

// MemoryStore is a process-local Store for tests and single-instance runs.
type MemoryStore struct {
	mu      sync.Mutex
	expiry  map[string]time.Time
	timeNow func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		expiry:  make(map[string]time.Time),
		timeNow: time.Now,
	}
}

func (s *MemoryStore) MarkProcessed(_ context.Context, messageID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timeNow()
	if deadline, ok := s.expiry[messageID]; ok && now.Before(deadline) {
		return true, nil
	}
	s.expiry[messageID] = now.Add(ttl)

	for id, deadline := range s.expiry {
		if now.After(deadline) {
			delete(s.expiry, id)
		}
	}
	return false, nil
}
