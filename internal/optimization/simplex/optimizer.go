// Package simplex implements the Nelder-Mead downhill simplex method, a
// derivative-free minimizer for scalar functions of several real variables.
package simplex

import (
	"context"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/simplexkit/simplexd/internal/optimization"
)

// Default stopping criteria, matching the classic simplex-optimizer examples.
const (
	DefaultRelTolerance   = 1e-10
	DefaultAbsTolerance   = 1e-30
	DefaultMaxEvaluations = 10000
)

// DefaultInitialStep is the per-axis displacement used to build the initial
// simplex around the guess.
const DefaultInitialStep = 0.1

// Criteria are the stopping criteria for a run. The run converges when the
// objective values across the simplex stop changing between successive
// iterations, within either tolerance, and stops without converging once
// MaxEvaluations objective evaluations have been spent.
type Criteria struct {
	RelTolerance   float64
	AbsTolerance   float64
	MaxEvaluations int
}

// DefaultCriteria returns the default stopping criteria.
func DefaultCriteria() Criteria {
	return Criteria{
		RelTolerance:   DefaultRelTolerance,
		AbsTolerance:   DefaultAbsTolerance,
		MaxEvaluations: DefaultMaxEvaluations,
	}
}

func (c Criteria) validate() error {
	if c.MaxEvaluations <= 0 {
		return optimization.NewConfigError("max evaluations must be positive, got %d", c.MaxEvaluations).
			WithOp("simplex.criteria")
	}
	if c.RelTolerance < 0 || c.AbsTolerance < 0 {
		return optimization.NewConfigError("tolerances must be non-negative, got rel=%v abs=%v",
			c.RelTolerance, c.AbsTolerance).WithOp("simplex.criteria")
	}
	return nil
}

// Optimizer runs the Nelder-Mead method. It holds no per-run state, so a
// single Optimizer is safe for concurrent independent runs.
type Optimizer struct {
	// Move coefficients.
	reflection  float64 // alpha
	expansion   float64 // gamma
	contraction float64 // rho
	shrink      float64 // sigma

	step   float64
	logger *zap.Logger
}

// Option configures an Optimizer.
type Option func(*Optimizer) error

// WithCoefficients overrides the four move coefficients. The standard values
// are reflection=1, expansion=2, contraction=0.5, shrink=0.5.
func WithCoefficients(reflection, expansion, contraction, shrink float64) Option {
	return func(o *Optimizer) error {
		if reflection <= 0 || expansion <= 1 || contraction <= 0 || contraction >= 1 || shrink <= 0 || shrink >= 1 {
			return optimization.NewConfigError(
				"invalid coefficients: reflection=%v expansion=%v contraction=%v shrink=%v",
				reflection, expansion, contraction, shrink).WithOp("simplex.options")
		}
		o.reflection = reflection
		o.expansion = expansion
		o.contraction = contraction
		o.shrink = shrink
		return nil
	}
}

// WithInitialStep sets the per-axis displacement used to build the initial
// simplex. A zero step would make every vertex coincide with the guess, so
// it is rejected.
func WithInitialStep(step float64) Option {
	return func(o *Optimizer) error {
		if step == 0 {
			return optimization.NewConfigError("initial step must be nonzero").WithOp("simplex.options")
		}
		o.step = step
		return nil
	}
}

// WithLogger attaches a logger for per-iteration debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Optimizer) error {
		o.logger = logger
		return nil
	}
}

// New creates a Nelder-Mead optimizer with the standard coefficients, then
// applies the given options.
func New(opts ...Option) (*Optimizer, error) {
	o := &Optimizer{
		reflection:  1.0,
		expansion:   2.0,
		contraction: 0.5,
		shrink:      0.5,
		step:        DefaultInitialStep,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Optimize minimizes (or maximizes) obj starting from the initial guess.
//
/// The run is deterministic: identical inputs yield identical results. ctx is
// checked between iterations; cancellation aborts the run with ctx.Err().
// Exhausting the evaluation budget is not an error and returns the best
// point found with Converged=false.
func (o *Optimizer) Optimize(ctx context.Context, obj optimization.Objective, initial []float64, goal optimization.Goal, criteria Criteria) (*optimization.Result, error) {
	if obj == nil {
		return nil, optimization.NewConfigError("objective is required").WithOp("simplex.optimize")
	}
	if len(initial) != obj.Dim() {
		return nil, optimization.NewConfigError("initial guess has dimension %d, objective %q expects %d",
			len(initial), obj.Name(), obj.Dim()).WithOp("simplex.optimize")
	}
	if err := criteria.validate(); err != nil {
		return nil, err
	}

	run := &run{
		obj:    obj,
		goal:   goal,
		budget: criteria.MaxEvaluations,
	}

	sim := newSimplex(initial, o.step)
	for i := range sim.vertices {
		if run.exhausted() {
			// Budget spent during initialization; park the remaining
			// vertices at the bottom of the ordering.
			sim.vertices[i].value = math.Inf(1)
			continue
		}
		v, err := run.eval(sim.vertices[i].point)
		if err != nil {
			return nil, err
		}
		sim.vertices[i].value = v
	}
	sim.sort()

	n := sim.dim()
	centroid := make([]float64, n)
	dir := make([]float64, n)
	candidate := make([]float64, n)
	expanded := make([]float64, n)

	prevValues := sim.values(nil)
	iterations := 0
	converged := false

	for !run.exhausted() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		sim.centroid(centroid)
		worst := sim.worst()

		// Reflection: candidate = centroid + alpha*(centroid - worst).
		floats.SubTo(dir, centroid, worst.point)
		floats.AddScaledTo(candidate, centroid, o.reflection, dir)
		reflected, err := run.eval(candidate)
		if err != nil {
			return nil, err
		}

		switch {
		case reflected < sim.best().value:
			// Expansion: push further along the reflection direction and
			// keep whichever of the two candidates is better.
			floats.SubTo(dir, candidate, centroid)
			floats.AddScaledTo(expanded, centroid, o.expansion, dir)
			expandedVal, err := run.eval(expanded)
			if err != nil {
				return nil, err
			}
			if expandedVal < reflected {
				sim.replaceWorst(expanded, expandedVal)
			} else {
				sim.replaceWorst(candidate, reflected)
			}
		case reflected < sim.secondWorst().value:
			sim.replaceWorst(candidate, reflected)
		default:
			// Contraction: pull the worst vertex toward the centroid.
			floats.SubTo(dir, worst.point, centroid)
			floats.AddScaledTo(candidate, centroid, o.contraction, dir)
			contracted, err := run.eval(candidate)
			if err != nil {
				return nil, err
			}
			if contracted < worst.value {
				sim.replaceWorst(candidate, contracted)
			} else if err := o.shrinkToward(run, sim); err != nil {
				return nil, err
			}
		}

		sim.sort()
		iterations++

		if simplexConverged(prevValues, sim, criteria) {
			converged = true
			break
		}
		prevValues = sim.values(prevValues)

		if o.logger.Core().Enabled(zap.DebugLevel) {
			o.logger.Debug("iteration complete",
				zap.Int("iteration", iterations),
				zap.Int("evaluations", run.evals),
				zap.Float64("best", run.external(sim.best().value)),
			)
		}
	}

	best := sim.best()
	return &optimization.Result{
		Best: &optimization.Solution{
			Point: append([]float64(nil), best.point...),
			Value: run.external(best.value),
		},
		Evaluations: run.evals,
		Iterations:  iterations,
		Converged:   converged,
	}, nil
}

// shrinkToward pulls every vertex except the best toward the best by the
// shrink coefficient and re-evaluates each.
func (o *Optimizer) shrinkToward(run *run, sim *simplex) error {
	best := sim.best()
	for i := 1; i < len(sim.vertices); i++ {
		v := &sim.vertices[i]
		for j := range v.point {
			v.point[j] = best.point[j] + o.shrink*(v.point[j]-best.point[j])
		}
		value, err := run.eval(v.point)
		if err != nil {
			return err
		}
		v.value = value
		if run.exhausted() {
			break
		}
	}
	return nil
}

// simplexConverged reports whether every vertex value changed by less than a
// tolerance since the previous iteration. Comparing the whole simplex rather
// than only the best vertex matters: most iterations replace the worst
// vertex and leave the best untouched, so a best-only check would read a
// zero delta as convergence on the very first such iteration.
func simplexConverged(prev []float64, sim *simplex, c Criteria) bool {
	for i, v := range sim.vertices {
		if !valueConverged(prev[i], v.value, c) {
			return false
		}
	}
	return true
}

// valueConverged checks a single value change against the tolerances.
func valueConverged(prev, cur float64, c Criteria) bool {
	delta := math.Abs(prev - cur)
	if delta <= c.AbsTolerance {
		return true
	}
	scale := math.Max(math.Abs(prev), math.Abs(cur))
	return delta <= c.RelTolerance*scale
}

// run carries the per-run evaluation state: the budget, the count, and the
// goal normalization. For Maximize the objective is negated so the engine
// only ever minimizes; external converts values back.
type run struct {
	obj    optimization.Objective
	goal   optimization.Goal
	budget int
	evals  int
}

func (r *run) exhausted() bool {
	return r.evals >= r.budget
}

func (r *run) eval(x []float64) (float64, error) {
	value, err := r.obj.Eval(x)
	if err != nil {
		return 0, optimization.WrapNumeric(err, "objective evaluation failed").WithOp("simplex.eval")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, optimization.NewNumericError("objective %q evaluated to %v at %v",
			r.obj.Name(), value, x).WithOp("simplex.eval")
	}
	r.evals++
	if r.goal == optimization.Maximize {
		return -value, nil
	}
	return value, nil
}

func (r *run) external(internal float64) float64 {
	if r.goal == optimization.Maximize {
		return -internal
	}
	return internal
}
