package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simplexkit/simplexd/internal/config"
	"github.com/simplexkit/simplexd/internal/store"
)

func testConfig() *config.Config {
	cfg := &config.Config{Environment: "test"}
	cfg.Optimization.MaxEvaluations = 10000
	cfg.Optimization.RelTolerance = 1e-10
	cfg.Optimization.AbsTolerance = 1e-30
	cfg.Optimization.InitialStep = 0.1
	return cfg
}

func testServer(t *testing.T) (*Server, *chi.Mux) {
	t.Helper()

	srv := NewServer(testConfig(), zap.NewNop(), store.NewMemoryStore(), NewMetrics(prometheus.NewRegistry()))
	t.Cleanup(func() { _ = srv.Close() })

	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return srv, r
}

func postJSON(t *testing.T, r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// waitForJob polls the status endpoint until the job reaches a terminal state.
func waitForJob(t *testing.T, r http.Handler, id string) jobStatus {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+id, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var status jobStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		switch status.Status {
		case StatusCompleted, StatusFailed, StatusCancelled:
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", id)
	return jobStatus{}
}

func TestFitParaboloid(t *testing.T) {
	_, r := testServer(t)

	w := postJSON(t, r, "/api/v1/fit", map[string]interface{}{
		"objective":     "paraboloid",
		"initial_guess": []float64{0.5, 0.5},
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.JobID)

	status := waitForJob(t, r, accepted.JobID)
	assert.Equal(t, StatusCompleted, status.Status)
	assert.True(t, status.Converged)
	require.NotNil(t, status.BestValue)
	assert.Less(t, *status.BestValue, 1e-6)
	assert.InDelta(t, 0, status.BestPoint[0], 1e-4)
	assert.InDelta(t, 0, status.BestPoint[1], 1e-4)
}

func TestFitCircleWithSamples(t *testing.T) {
	_, r := testServer(t)

	w := postJSON(t, r, "/api/v1/fit", map[string]interface{}{
		"objective":     "circlefit",
		"initial_guess": []float64{0.3, 0.4, 0.6},
		"samples": map[string][]float64{
			"x": {1, -1, 0, 0},
			"y": {0, 0, 1, -1},
		},
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))

	status := waitForJob(t, r, accepted.JobID)
	require.Equal(t, StatusCompleted, status.Status)
	assert.InDelta(t, 0, status.BestPoint[0], 1e-3)
	assert.InDelta(t, 0, status.BestPoint[1], 1e-3)
	assert.InDelta(t, 1, status.BestPoint[2], 1e-3)
}

func TestFitValidation(t *testing.T) {
	_, r := testServer(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "unknown objective",
			body: map[string]interface{}{
				"objective":     "rosenbrock",
				"initial_guess": []float64{0, 0},
			},
		},
		{
			name: "missing samples",
			body: map[string]interface{}{
				"objective":     "linefit",
				"initial_guess": []float64{0, 0},
			},
		},
		{
			name: "dimension mismatch",
			body: map[string]interface{}{
				"objective":     "paraboloid",
				"initial_guess": []float64{0, 0, 0},
			},
		},
		{
			name: "unknown goal",
			body: map[string]interface{}{
				"objective":     "paraboloid",
				"initial_guess": []float64{0, 0},
				"goal":          "satisfice",
			},
		},
		{
			name: "mismatched samples",
			body: map[string]interface{}{
				"objective":     "linefit",
				"initial_guess": []float64{0, 0},
				"samples":       map[string][]float64{"x": {1, 2}, "y": {1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, r, "/api/v1/fit", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestJobNotFound(t *testing.T) {
	_, r := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelFinishedJob(t *testing.T) {
	_, r := testServer(t)

	w := postJSON(t, r, "/api/v1/fit", map[string]interface{}{
		"objective":     "paraboloid",
		"initial_guess": []float64{0.1, 0.1},
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	waitForJob(t, r, accepted.JobID)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+accepted.JobID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListJobsPersisted(t *testing.T) {
	_, r := testServer(t)

	w := postJSON(t, r, "/api/v1/fit", map[string]interface{}{
		"objective":     "paraboloid",
		"initial_guess": []float64{0.2, 0.2},
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	waitForJob(t, r, accepted.JobID)

	// The run record is written after the job reaches its terminal state,
	// so allow a moment for it to land in the store.
	var runs []store.Run
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Runs []store.Run `json:"runs"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		if len(body.Runs) > 0 {
			runs = body.Runs
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.Len(t, runs, 1)
	assert.Equal(t, accepted.JobID, runs[0].ID)
	assert.Equal(t, "paraboloid", runs[0].Objective)
	assert.Equal(t, StatusCompleted, runs[0].Status)
}

func TestJSONRPCFitLifecycle(t *testing.T) {
	_, r := testServer(t)

	w := postJSON(t, r, "/rpc", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "fit.start",
		"params": map[string]interface{}{
			"objective":     "linefit",
			"initial_guess": []float64{0.3, 0.7},
			"samples": map[string][]float64{
				"x": {-1, 0, 1},
				"y": {-1, 0, 1},
			},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var started struct {
		Result struct {
			JobID string `json:"job_id"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	require.NotEmpty(t, started.Result.JobID)

	waitForJob(t, r, started.Result.JobID)

	w = postJSON(t, r, "/rpc", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "fit.status",
		"params":  map[string]string{"job_id": started.Result.JobID},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		Result jobStatus `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, StatusCompleted, status.Result.Status)
	require.NotNil(t, status.Result.BestValue)
	assert.InDelta(t, 1.0, status.Result.BestPoint[0], 1e-3)
	assert.InDelta(t, 0.0, status.Result.BestPoint[1], 1e-3)
}

func TestJSONRPCErrors(t *testing.T) {
	_, r := testServer(t)

	tests := []struct {
		name string
		body map[string]interface{}
		code int
	}{
		{
			name: "wrong version",
			body: map[string]interface{}{"jsonrpc": "1.0", "id": 1, "method": "fit.start"},
			code: rpcInvalidRequest,
		},
		{
			name: "unknown method",
			body: map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": "fit.pause"},
			code: rpcMethodNotFound,
		},
		{
			name: "missing job id",
			body: map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": "fit.status", "params": map[string]string{}},
			code: rpcInvalidParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, r, "/rpc", tt.body)
			require.Equal(t, http.StatusOK, w.Code)

			var resp struct {
				Error *struct {
					Code    int    `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error, "expected a JSON-RPC error")
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestMetricsRecorded(t *testing.T) {
	registry := prometheus.NewRegistry()
	srv := NewServer(testConfig(), zap.NewNop(), store.NewMemoryStore(), NewMetrics(registry))
	t.Cleanup(func() { _ = srv.Close() })

	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	w := postJSON(t, r, "/api/v1/fit", map[string]interface{}{
		"objective":     "paraboloid",
		"initial_guess": []float64{0.5, 0.5},
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	waitForJob(t, r, accepted.JobID)

	// The counter is bumped just after the status flips, so poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if jobsTotal(t, registry) == 1.0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("simplexd_jobs_total never reached 1, got %v", jobsTotal(t, registry))
}

func jobsTotal(t *testing.T, registry *prometheus.Registry) float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() == "simplexd_jobs_total" {
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}
