package objectives

import (
	"math"

	"github.com/simplexkit/simplexd/internal/optimization"
)

// LineFit measures how well the line y = slope*x + intercept fits a fixed
// set of sample points. The error is the sum of absolute vertical residuals,
// not their squares, so this is a least-absolute-deviation fit rather than
// least squares. The sample arrays are read-only after construction, so one
// LineFit may back concurrent runs.
type LineFit struct {
	xs, ys []float64
}

// NewLineFit creates a line-fit objective over the given sample coordinates.
// The slices must be parallel and hold at least one pair.
func NewLineFit(xs, ys []float64) (*LineFit, error) {
	if err := validateSamples(xs, ys); err != nil {
		return nil, err
	}
	return &LineFit{
		xs: append([]float64(nil), xs...),
		ys: append([]float64(nil), ys...),
	}, nil
}

// Eval sums |slope*x_i + intercept - y_i| over the samples. The variables
// are (slope, intercept).
func (l *LineFit) Eval(x []float64) (float64, error) {
	if len(x) != l.Dim() {
		return 0, optimization.NewConfigError("line fit expects %d variables, got %d", l.Dim(), len(x))
	}
	slope, intercept := x[0], x[1]
	var total float64
	for i := range l.xs {
		total += math.Abs(slope*l.xs[i] + intercept - l.ys[i])
	}
	return total, nil
}

// Dim returns 2.
func (l *LineFit) Dim() int { return 2 }

// Name returns the objective name.
func (l *LineFit) Name() string { return "linefit" }

// Samples returns copies of the sample coordinates.
func (l *LineFit) Samples() (xs, ys []float64) {
	return append([]float64(nil), l.xs...), append([]float64(nil), l.ys...)
}

func validateSamples(xs, ys []float64) error {
	if len(xs) != len(ys) {
		return optimization.NewConfigError("sample slices must be parallel, got %d x values and %d y values",
			len(xs), len(ys))
	}
	if len(xs) == 0 {
		return optimization.NewConfigError("at least one sample pair is required")
	}
	return nil
}
