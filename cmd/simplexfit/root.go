package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/simplexkit/simplexd/internal/logging"
)

var (
	logLevel string
	logger   *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "simplexfit",
	Short: "Derivative-free fitting with the Nelder-Mead simplex method",
	Long: `simplexfit runs the built-in demonstration problems through the
Nelder-Mead simplex optimizer: a paraboloid, a line fit, and a circle fit.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.NewLogger(&logging.Config{
			Level:  logLevel,
			Format: "console",
			Output: "stderr",
		})
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}
