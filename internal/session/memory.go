package session

import (
	"context"
	"sync"
	"time"
)

// memoryStore keeps sessions in-process. The map is guarded by mu; each entry
// carries its own mutex so mutations for one session serialize without
// blocking other sessions. A janitor goroutine evicts sessions idle past the
// TTL; Close stops it.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	stop    chan struct{}
	done    chan struct{}
}

type memoryEntry struct {
	mu       sync.Mutex
	session  *Session
	lastUsed time.Time
	evicted  bool
}

func newMemoryStore(ttl time.Duration) *memoryStore {
	s := &memoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *memoryStore) Mutate(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for {
		entry := s.entry(id)

		entry.mu.Lock()
		if entry.evicted {
			// The janitor removed this entry between lookup and lock;
			// committing into it would be silently lost.
			entry.mu.Unlock()
			continue
		}

		if err := fn(entry.session); err != nil {
			entry.mu.Unlock()
			return nil, err
		}
		entry.session.Version++
		entry.session.UpdatedAt = time.Now().UTC()
		entry.lastUsed = time.Now()
		cp := entry.session.Clone()
		entry.mu.Unlock()
		return cp, nil
	}
}

func (s *memoryStore) Get(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.evicted {
		return nil, ErrNotFound
	}
	entry.lastUsed = time.Now()
	return entry.session.Clone(), nil
}

func (s *memoryStore) Close() error {
	close(s.stop)
	<-s.done

	s.mu.Lock()
	s.entries = make(map[string]*memoryEntry)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) entry(id string) *memoryEntry {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok = s.entries[id]; ok {
		return entry
	}
	entry = &memoryEntry{session: newSession(id), lastUsed: time.Now()}
	s.entries[id] = entry
	return entry
}

func (s *memoryStore) janitor() {
	defer close(s.done)

	interval := s.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

func (s *memoryStore) evictIdle() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		if entry.mu.TryLock() {
			if entry.lastUsed.Before(cutoff) {
				entry.evicted = true
				delete(s.entries, id)
			}
			entry.mu.Unlock()
		}
	}
}
