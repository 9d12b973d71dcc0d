// Package objectives provides the built-in objective functions: a paraboloid,
// a line fit, and a circle fit. Each is a pure function of a point; the fits
// close over fixed sample coordinates bound at construction time.
package objectives

import "github.com/simplexkit/simplexd/internal/optimization"

// Paraboloid is the 2-D bowl f(x, y) = x^2 + y^2, minimal at the origin.
// It has no auxiliary data and mainly serves to validate convergence.
type Paraboloid struct{}

// NewParaboloid creates the paraboloid objective.
func NewParaboloid() *Paraboloid {
	return &Paraboloid{}
}

// Eval computes x^2 + y^2.
func (p *Paraboloid) Eval(x []float64) (float64, error) {
	if len(x) != p.Dim() {
		return 0, optimization.NewConfigError("paraboloid expects %d variables, got %d", p.Dim(), len(x))
	}
	return x[0]*x[0] + x[1]*x[1], nil
}

// Dim returns 2.
func (p *Paraboloid) Dim() int { return 2 }

// Name returns the objective name.
func (p *Paraboloid) Name() string { return "paraboloid" }
