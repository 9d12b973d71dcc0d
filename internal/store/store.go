// Package store persists completed optimization runs. Two backends are
// provided: an in-memory map for development and tests, and SQLite for
// durable history.
package store

import (
	"context"
	"fmt"
	"time"
)

// Run is one recorded optimization run.
type Run struct {
	ID           string    `json:"id"`
	Objective    string    `json:"objective"`
	Goal         string    `json:"goal"`
	InitialGuess []float64 `json:"initial_guess"`
	BestPoint    []float64 `json:"best_point"`
	BestValue    float64   `json:"best_value"`
	Evaluations  int       `json:"evaluations"`
	Iterations   int       `json:"iterations"`
	Converged    bool      `json:"converged"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists optimization runs.
type Store interface {
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// New creates and initializes a store for the given backend. An empty kind
// selects the in-memory backend.
func New(ctx context.Context, kind, dsn string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		s := NewSQLiteStore(dsn)
		if err := s.Init(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}
