package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(id string, createdAt time.Time) Run {
	return Run{
		ID:           id,
		Objective:    "circlefit",
		Goal:         "minimize",
		InitialGuess: []float64{0.3, 0.4, 0.6},
		BestPoint:    []float64{0, 0, 1},
		BestValue:    1.2e-9,
		Evaluations:  412,
		Iterations:   208,
		Converged:    true,
		Status:       "completed",
		CreatedAt:    createdAt,
	}
}

// storeUnderTest runs the shared contract tests against any Store.
func storeUnderTest(t *testing.T, s Store) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// Missing run.
	_, found, err := s.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	// Round trip.
	run := sampleRun("run-1", base)
	require.NoError(t, s.SaveRun(ctx, run))

	got, found, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, run.Objective, got.Objective)
	assert.Equal(t, run.InitialGuess, got.InitialGuess)
	assert.Equal(t, run.BestPoint, got.BestPoint)
	assert.Equal(t, run.BestValue, got.BestValue)
	assert.Equal(t, run.Evaluations, got.Evaluations)
	assert.True(t, got.Converged)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))

	// Upsert replaces.
	run.Status = "failed"
	require.NoError(t, s.SaveRun(ctx, run))
	got, _, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Status)

	// Listing is newest first and honors the limit.
	require.NoError(t, s.SaveRun(ctx, sampleRun("run-2", base.Add(time.Minute))))
	require.NoError(t, s.SaveRun(ctx, sampleRun("run-3", base.Add(2*time.Minute))))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-1", runs[2].ID)

	runs, err = s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	storeUnderTest(t, s)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s := NewSQLiteStore(path)
	require.NoError(t, s.Init(context.Background()))
	defer s.Close()

	storeUnderTest(t, s)
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	_, err := s.ListRuns(context.Background(), 10)
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, "memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New(ctx, "sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = New(ctx, "cassandra", "")
	assert.Error(t, err)
}
