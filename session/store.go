package session

import (
	"context"
	"sync"
	"time"
)

// Store keeps session memories. GetOrCreate returns live *Memory values;
// the in-memory map is authoritative and Persist exists only so sessions can
// be inspected after a restart.
type Store interface {
	GetOrCreate(ctx context.Context, sessionID string, now time.Time) (*Memory, bool)
	Get(ctx context.Context, sessionID string) (*Memory, bool)
	Delete(ctx context.Context, sessionID string) error
	Persist(ctx context.Context, memory *Memory) error
	ExpiredBefore(ctx context.Context, cutoff time.Time) []string
	Close() error
}

// InMemoryStore is the default session store.
type InMemoryStore struct {
	mu       sync.RWMutex
	memories map[string]*Memory
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{memories: make(map[string]*Memory)}
}

func (s *InMemoryStore) GetOrCreate(ctx context.Context, sessionID string, now time.Time) (*Memory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if memory, ok := s.memories[sessionID]; ok {
		return memory, false
	}
	memory := newMemory(sessionID, now)
	s.memories[sessionID] = memory
	return memory, true
}

func (s *InMemoryStore) Get(ctx context.Context, sessionID string) (*Memory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	memory, ok := s.memories[sessionID]
	return memory, ok
}

func (s *InMemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.memories, sessionID)
	return nil
}

func (s *InMemoryStore) Persist(ctx context.Context, memory *Memory) error {
	return nil
}

// ExpiredBefore returns sessions whose last activity predates the cutoff.
func (s *InMemoryStore) ExpiredBefore(ctx context.Context, cutoff time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []string
	for id, memory := range s.memories {
		memory.mu.Lock()
		lastActive := memory.LastActive
		memory.mu.Unlock()
		if lastActive.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	return expired
}

func (s *InMemoryStore) Close() error {
	return nil
}

var _ Store = (*InMemoryStore)(nil)
