// Package optimization defines the shared types for derivative-free
// optimization: objectives, goals, solutions, and the optimizer contract.
package optimization

import (
	"context"
	"math/rand"
)

// Goal selects the direction of the search.
type Goal int

const (
	// Minimize searches for the smallest objective value.
	Minimize Goal = iota
	// Maximize searches for the largest objective value. Internally the
	// objective is negated so the engine only ever minimizes.
	Maximize
)

// String returns the goal name.
func (g Goal) String() string {
	if g == Maximize {
		return "maximize"
	}
	return "minimize"
}

// ObjectiveFunc is a scalar-valued function of a point in R^n. It may return
// an error when the function is undefined at x; the optimizer aborts the run
// in that case rather than masking the value.
type ObjectiveFunc func(x []float64) (float64, error)

// Objective is an objective function bound to fixed auxiliary data, such as
// the sample coordinates of a curve fit. Implementations must be safe for
// concurrent use: Eval must not mutate any state.
type Objective interface {
	// Eval computes the objective value at x.
	Eval(x []float64) (float64, error)

	// Dim returns the expected dimensionality of x.
	Dim() int

	// Name identifies the objective in logs and stored runs.
	Name() string
}

// Solution is a point in the search space together with its objective value.
// It is immutable after construction.
type Solution struct {
	Point []float64
	Value float64
}

// Clone returns a deep copy of the solution.
func (s *Solution) Clone() *Solution {
	if s == nil {
		return nil
	}
	return &Solution{
		Point: append([]float64(nil), s.Point...),
		Value: s.Value,
	}
}

// Result is the outcome of one optimization run.
//
// Converged reports whether a stopping tolerance was met. Exhausting the
// evaluation budget is a normal terminal state, not an error: Converged is
// false and Best still holds the best point found.
type Result struct {
	Best        *Solution
	Evaluations int
	Iterations  int
	Converged   bool
}

// Optimizer runs a search over an objective from an initial guess.
type Optimizer interface {
	Optimize(ctx context.Context, obj Objective, initial []float64, goal Goal) (*Result, error)
}

// RandomPoint draws a uniform random point in [min, max)^n from the supplied
// generator. The optimizer itself is deterministic; callers who want a
// randomized start seed their own generator so runs stay reproducible.
func RandomPoint(rng *rand.Rand, n int, min, max float64) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = min + rng.Float64()*(max-min)
	}
	return p
}
