package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps runs in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]Run)}
}

// SaveRun stores or replaces a run.
func (s *MemoryStore) SaveRun(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

// GetRun returns the run with the given id, if present.
func (s *MemoryStore) GetRun(_ context.Context, id string) (Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns all runs.
func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
