package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process checkpoint store. It is the default when no
// Redis URL is configured, and the standard store for tests. Safe for
// concurrent use by independent sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Save(ctx context.Context, rec *Record) error {
	if rec.ThreadID == "" {
		return fmt.Errorf("thread id cannot be empty")
	}
	stored := *rec
	stored.Board = rec.Board.Clone()
	stored.SavedAtMs = time.Now().UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ThreadID] = &stored
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, threadID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	out.Board = rec.Board.Clone()
	return &out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, threadID)
	return nil
}
