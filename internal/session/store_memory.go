package session

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory. Used in development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Load(_ context.Context, clientID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[clientID], nil
}

func (s *MemoryStore) Save(_ context.Context, clientID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[clientID] = rec
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, clientID)
	return nil
}
