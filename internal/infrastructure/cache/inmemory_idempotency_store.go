package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
)

const sweepInterval = 5 * time.Minute

// InMemoryIdempotencyStore holds subscriber keys for one process. It is the
// default backend and the fallback when Redis cannot be reached.
type InMemoryIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]time.Time

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		keys: make(map[string]time.Time),
		done: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop()
	return s
}

func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if until, ok := s.keys[key]; ok && now.Before(until) {
		return false, nil
	}
	s.keys[key] = now.Add(ttl)
	return true, nil
}

func (s *InMemoryIdempotencyStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()
	return nil
}

// Len counts keys, including expired ones not yet swept
func (s *InMemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Close stops the sweeper; repeated calls are no-ops
func (s *InMemoryIdempotencyStore) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) sweepLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *InMemoryIdempotencyStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, until := range s.keys {
		if !now.Before(until) {
			delete(s.keys, key)
			removed++
		}
	}
	return removed
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
