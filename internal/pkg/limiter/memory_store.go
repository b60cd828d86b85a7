package limiter

import (
	"context"
	"sync"
	"time"
)

type window struct {
	resetAt time.Time
	count   int64
}

// MemoryWindowStore keeps windows in process memory.
type MemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*window
}

// NewMemoryWindowStore returns an empty store.
func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{windows: make(map[string]*window)}
}

func (s *MemoryWindowStore) Incr(_ context.Context, key string, length time.Duration, now time.Time) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(length)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}

// Purge drops windows closed at now and returns how many it removed.
func (s *MemoryWindowStore) Purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// Run purges closed windows every interval until ctx is done.
func (s *MemoryWindowStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Purge(now)
		}
	}
}
