package objectives

import (
	"math"

	"github.com/simplexkit/simplexd/internal/optimization"
)

// CircleFit measures how well a circle fits a fixed set of sample points.
// For each sample the vector from the candidate center to the sample is
// projected onto the candidate circle, and the error is the sum of Euclidean
// distances between each sample and its projection.
//
// The variables are (centerX, centerY, radius). A sample that coincides
// exactly with the candidate center has no defined projection; evaluating
// there is a numeric error, not a silent NaN.
type CircleFit struct {
	xs, ys []float64
}

// NewCircleFit creates a circle-fit objective over the given sample
// coordinates. The slices must be parallel and hold at least one pair.
func NewCircleFit(xs, ys []float64) (*CircleFit, error) {
	if err := validateSamples(xs, ys); err != nil {
		return nil, err
	}
	return &CircleFit{
		xs: append([]float64(nil), xs...),
		ys: append([]float64(nil), ys...),
	}, nil
}

// Eval sums the distances from each sample to its projection on the
// candidate circle.
func (c *CircleFit) Eval(x []float64) (float64, error) {
	if len(x) != c.Dim() {
		return 0, optimization.NewConfigError("circle fit expects %d variables, got %d", c.Dim(), len(x))
	}
	centerX, centerY, radius := x[0], x[1], x[2]
	var total float64
	for i := range c.xs {
		dx := c.xs[i] - centerX
		dy := c.ys[i] - centerY
		mag := math.Sqrt(dx*dx + dy*dy)
		if mag == 0 {
			return 0, optimization.NewNumericError(
				"sample (%v, %v) coincides with the candidate center", c.xs[i], c.ys[i])
		}
		closestX := centerX + dx/mag*radius
		closestY := centerY + dy/mag*radius
		ex := closestX - c.xs[i]
		ey := closestY - c.ys[i]
		total += math.Sqrt(ex*ex + ey*ey)
	}
	return total, nil
}

// Dim returns 3.
func (c *CircleFit) Dim() int { return 3 }

// Name returns the objective name.
func (c *CircleFit) Name() string { return "circlefit" }

// Samples returns copies of the sample coordinates.
func (c *CircleFit) Samples() (xs, ys []float64) {
	return append([]float64(nil), c.xs...), append([]float64(nil), c.ys...)
}
