package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/simplexkit/simplexd/internal/optimization"
	"github.com/simplexkit/simplexd/internal/optimization/objectives"
	"github.com/simplexkit/simplexd/internal/optimization/simplex"
)

var (
	seed     int64
	maxEvals int
	step     float64
)

var fitCmd = &cobra.Command{
	Use:   "fit [paraboloid|line|circle]",
	Short: "Run the demonstration fits",
	Long: `Runs one or all of the demonstration problems and prints the best
point and its objective value. The initial guess is drawn from a seeded
generator so runs are reproducible.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFit,
}

func init() {
	fitCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the random initial guess")
	fitCmd.Flags().IntVar(&maxEvals, "max-evals", simplex.DefaultMaxEvaluations, "Evaluation budget per run")
	fitCmd.Flags().Float64Var(&step, "step", simplex.DefaultInitialStep, "Initial simplex step per axis")
	rootCmd.AddCommand(fitCmd)
}

// demoObjective builds the named demonstration problem.
func demoObjective(name string) (optimization.Objective, error) {
	switch name {
	case "paraboloid":
		return objectives.NewParaboloid(), nil
	case "line":
		// The best fit is the line y = x.
		return objectives.NewLineFit(
			[]float64{-1, 0, 1},
			[]float64{-1, 0, 1},
		)
	case "circle":
		// The best fit is the unit circle centered at the origin.
		return objectives.NewCircleFit(
			[]float64{1, -1, 0, 0},
			[]float64{0, 0, 1, -1},
		)
	default:
		return nil, fmt.Errorf("unknown problem %q", name)
	}
}

func runFit(cmd *cobra.Command, args []string) error {
	problems := []string{"paraboloid", "line", "circle"}
	if len(args) == 1 {
		problems = args
	}

	rng := rand.New(rand.NewSource(seed))
	opt, err := simplex.New(
		simplex.WithInitialStep(step),
		simplex.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	criteria := simplex.DefaultCriteria()
	criteria.MaxEvaluations = maxEvals

	for _, name := range problems {
		obj, err := demoObjective(name)
		if err != nil {
			return err
		}

		guess := optimization.RandomPoint(rng, obj.Dim(), 0, 1)
		result, err := opt.Optimize(cmd.Context(), obj, guess, optimization.Minimize, criteria)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		fmt.Printf("%-10s %v : %g (evaluations=%d converged=%v)\n",
			name, result.Best.Point, result.Best.Value, result.Evaluations, result.Converged)
	}
	return nil
}
