// Package server exposes the fit service over HTTP: a small REST API and a
// JSON-RPC 2.0 endpoint for starting, inspecting, and cancelling
// optimization jobs.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simplexkit/simplexd/internal/config"
	"github.com/simplexkit/simplexd/internal/optimization"
	"github.com/simplexkit/simplexd/internal/optimization/objectives"
	"github.com/simplexkit/simplexd/internal/optimization/simplex"
	"github.com/simplexkit/simplexd/internal/store"
)

// Server manages optimization jobs: it starts runs in goroutines, tracks
// their state, and persists completed runs to the store.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   store.Store
	metrics *Metrics

	mu   sync.RWMutex
	jobs map[string]*job
}

// NewServer creates a server with the given configuration, logger, store,
// and metrics. metrics may be nil, in which case no instruments are updated.
func NewServer(cfg *config.Config, logger *zap.Logger, st store.Store, metrics *Metrics) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		metrics: metrics,
		jobs:    make(map[string]*job),
	}
}

// RegisterRoutes mounts the REST and JSON-RPC endpoints on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/fit", s.handleFit)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleJobStatus)
		r.Delete("/jobs/{id}", s.handleCancelJob)
	})
	r.Post("/rpc", s.handleJSONRPC)
}

// Close cancels all running jobs and closes the store.
func (s *Server) Close() error {
	s.mu.Lock()
	for _, j := range s.jobs {
		j.requestCancel()
	}
	s.mu.Unlock()
	return s.store.Close()
}

// fitRequest is the job submission payload, shared by REST and JSON-RPC.
type fitRequest struct {
	Objective    string    `json:"objective"`
	Goal         string    `json:"goal,omitempty"`
	InitialGuess []float64 `json:"initial_guess"`
	Samples      *samples  `json:"samples,omitempty"`
	Criteria     *criteria `json:"criteria,omitempty"`
	InitialStep  float64   `json:"initial_step,omitempty"`
}

type samples struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

type criteria struct {
	RelTolerance   *float64 `json:"rel_tolerance,omitempty"`
	AbsTolerance   *float64 `json:"abs_tolerance,omitempty"`
	MaxEvaluations *int     `json:"max_evaluations,omitempty"`
}

// start validates a fit request, registers a job, and launches the run.
func (s *Server) start(req fitRequest) (*job, error) {
	obj, err := s.buildObjective(req)
	if err != nil {
		return nil, err
	}

	goal, err := parseGoal(req.Goal)
	if err != nil {
		return nil, err
	}

	if len(req.InitialGuess) != obj.Dim() {
		return nil, fmt.Errorf("initial guess has dimension %d, objective %q expects %d",
			len(req.InitialGuess), obj.Name(), obj.Dim())
	}

	crit := simplex.Criteria{
		RelTolerance:   s.cfg.Optimization.RelTolerance,
		AbsTolerance:   s.cfg.Optimization.AbsTolerance,
		MaxEvaluations: s.cfg.Optimization.MaxEvaluations,
	}
	if req.Criteria != nil {
		if req.Criteria.RelTolerance != nil {
			crit.RelTolerance = *req.Criteria.RelTolerance
		}
		if req.Criteria.AbsTolerance != nil {
			crit.AbsTolerance = *req.Criteria.AbsTolerance
		}
		if req.Criteria.MaxEvaluations != nil {
			crit.MaxEvaluations = *req.Criteria.MaxEvaluations
		}
	}

	step := s.cfg.Optimization.InitialStep
	if req.InitialStep != 0 {
		step = req.InitialStep
	}

	opt, err := simplex.New(
		simplex.WithInitialStep(step),
		simplex.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := newJob(uuid.NewString(), obj.Name(), goal, req.InitialGuess, cancel)

	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()

	go s.run(ctx, j, opt, obj, crit)
	return j, nil
}

// run executes one job to its terminal state.
func (s *Server) run(ctx context.Context, j *job, opt *simplex.Optimizer, obj optimization.Objective, crit simplex.Criteria) {
	defer j.cancel()

	j.setRunning()
	if s.metrics != nil {
		s.metrics.jobStarted()
	}

	result, err := opt.Optimize(ctx, obj, j.guess, j.goal, crit)
	j.finish(result, err)

	status := j.snapshot()
	if s.metrics != nil {
		evals := 0
		if result != nil {
			evals = result.Evaluations
		}
		s.metrics.jobFinished(j.objective, status.Status, evals)
	}

	if err != nil {
		s.logger.Warn("job finished with error",
			zap.String("job_id", j.id),
			zap.String("objective", j.objective),
			zap.String("status", status.Status),
			zap.Error(err),
		)
	} else {
		s.logger.Info("job completed",
			zap.String("job_id", j.id),
			zap.String("objective", j.objective),
			zap.Float64("best_value", result.Best.Value),
			zap.Int("evaluations", result.Evaluations),
			zap.Bool("converged", result.Converged),
		)
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.SaveRun(saveCtx, runRecord(j, status)); err != nil {
		s.logger.Error("failed to persist run", zap.String("job_id", j.id), zap.Error(err))
	}
}

func runRecord(j *job, status jobStatus) store.Run {
	run := store.Run{
		ID:           j.id,
		Objective:    j.objective,
		Goal:         j.goal.String(),
		InitialGuess: append([]float64(nil), j.guess...),
		Status:       status.Status,
		CreatedAt:    j.startTime,
	}
	if status.BestValue != nil {
		run.BestPoint = status.BestPoint
		run.BestValue = *status.BestValue
		run.Evaluations = status.Evaluations
		run.Iterations = status.Iterations
		run.Converged = status.Converged
	}
	return run
}

// buildObjective constructs the named objective, binding sample data for the
// curve fits.
func (s *Server) buildObjective(req fitRequest) (optimization.Objective, error) {
	switch req.Objective {
	case "paraboloid":
		return objectives.NewParaboloid(), nil
	case "linefit":
		if req.Samples == nil {
			return nil, fmt.Errorf("objective %q requires samples", req.Objective)
		}
		return objectives.NewLineFit(req.Samples.X, req.Samples.Y)
	case "circlefit":
		if req.Samples == nil {
			return nil, fmt.Errorf("objective %q requires samples", req.Objective)
		}
		return objectives.NewCircleFit(req.Samples.X, req.Samples.Y)
	default:
		return nil, fmt.Errorf("unknown objective %q", req.Objective)
	}
}

func parseGoal(goal string) (optimization.Goal, error) {
	switch goal {
	case "", "minimize":
		return optimization.Minimize, nil
	case "maximize":
		return optimization.Maximize, nil
	default:
		return 0, fmt.Errorf("unknown goal %q", goal)
	}
}

func (s *Server) lookup(id string) (*job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

// handleFit handles POST /api/v1/fit.
func (s *Server) handleFit(w http.ResponseWriter, r *http.Request) {
	var req fitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	j, err := s.start(req)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": j.id, "status": StatusPending})
}

// handleJobStatus handles GET /api/v1/jobs/{id}.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, ok := s.lookup(id)
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	respondJSON(w, http.StatusOK, j.snapshot())
}

// handleListJobs handles GET /api/v1/jobs, returning stored run history.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list runs", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list runs"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// handleCancelJob handles DELETE /api/v1/jobs/{id}.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, ok := s.lookup(id)
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	if !j.requestCancel() {
		respondJSON(w, http.StatusConflict, map[string]string{"error": "job already finished"})
		return
	}
	s.logger.Info("job cancelled", zap.String("job_id", id))
	respondJSON(w, http.StatusOK, map[string]string{"status": StatusCancelled})
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
