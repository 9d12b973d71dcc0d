package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists runs in a SQLite database. Init must be called before
// any other method.
type SQLiteStore struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore creates a store backed by the SQLite database at path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Init opens the database and creates the schema if needed. Calling Init on
// an already-initialized store is a no-op.
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id            TEXT PRIMARY KEY,
			objective     TEXT NOT NULL,
			goal          TEXT NOT NULL,
			initial_guess TEXT NOT NULL,
			best_point    TEXT NOT NULL,
			best_value    REAL NOT NULL,
			evaluations   INTEGER NOT NULL,
			iterations    INTEGER NOT NULL,
			converged     INTEGER NOT NULL,
			status        TEXT NOT NULL,
			created_at    TEXT NOT NULL
		)
	`)
	if err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.New("sqlite store is not initialized")
	}
	return s.db, nil
}

// SaveRun stores or replaces a run.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	guess, err := json.Marshal(run.InitialGuess)
	if err != nil {
		return err
	}
	point, err := json.Marshal(run.BestPoint)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, objective, goal, initial_guess, best_point,
			best_value, evaluations, iterations, converged, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			objective = excluded.objective,
			goal = excluded.goal,
			initial_guess = excluded.initial_guess,
			best_point = excluded.best_point,
			best_value = excluded.best_value,
			evaluations = excluded.evaluations,
			iterations = excluded.iterations,
			converged = excluded.converged,
			status = excluded.status,
			created_at = excluded.created_at
	`, run.ID, run.Objective, run.Goal, string(guess), string(point),
		run.BestValue, run.Evaluations, run.Iterations, run.Converged,
		run.Status, run.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// GetRun returns the run with the given id, if present.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, false, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, objective, goal, initial_guess, best_point, best_value,
			evaluations, iterations, converged, status, created_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}
	return run, true, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, objective, goal, initial_guess, best_point, best_value,
			evaluations, iterations, converged, status, created_at
		FROM runs ORDER BY created_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run       Run
		guess     string
		point     string
		createdAt string
	)
	err := row.Scan(&run.ID, &run.Objective, &run.Goal, &guess, &point,
		&run.BestValue, &run.Evaluations, &run.Iterations, &run.Converged,
		&run.Status, &createdAt)
	if err != nil {
		return Run{}, err
	}

	if err := json.Unmarshal([]byte(guess), &run.InitialGuess); err != nil {
		return Run{}, fmt.Errorf("decode initial guess for run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(point), &run.BestPoint); err != nil {
		return Run{}, fmt.Errorf("decode best point for run %s: %w", run.ID, err)
	}
	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("decode timestamp for run %s: %w", run.ID, err)
	}
	return run, nil
}
