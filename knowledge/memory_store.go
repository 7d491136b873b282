package knowledge

import (
	"context"
	"sync"
)

// InMemoryStore keeps entries in a map. It backs tests and deployments that
// run without SQLite; entries are lost on restart.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*KnowledgeEntry
	order   []string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]*KnowledgeEntry),
	}
}

func (s *InMemoryStore) SaveEntries(ctx context.Context, entries []*KnowledgeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		cp := *entry
		if _, ok := s.entries[entry.ID]; !ok {
			s.order = append(s.order, entry.ID)
		}
		s.entries[entry.ID] = &cp
	}
	return nil
}

func (s *InMemoryStore) LoadEntries(ctx context.Context) ([]*KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*KnowledgeEntry, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.entries[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemoryStore) DeleteEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return nil
	}
	delete(s.entries, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

var _ Store = (*InMemoryStore)(nil)
