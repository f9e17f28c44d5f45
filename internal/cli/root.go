// Package cli implements the timetabler command line.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/logger"
)

var (
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cliLogger = zap.NewNop()
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "timetabler",
		Short: "Course timetabling with particle swarm optimisation",
		Long: `timetabler places courses on a weekly grid so that teacher and class
preferences are maximised and no teacher, class or room is double-booked.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagDebug {
				flagLogLevel = "debug"
			}
			l, err := logger.Build(logger.Options{Level: flagLogLevel, Format: flagLogFormat})
			if err != nil {
				return err
			}
			cliLogger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = cliLogger.Sync()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "console", "Log format (console, json)")

	root.AddCommand(
		newRunCmd(),
		newGenerateCmd(),
	)

	return root
}
