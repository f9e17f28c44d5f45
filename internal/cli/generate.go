package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/catalog"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/swarm"
)

func newGenerateCmd() *cobra.Command {
	cfg := catalog.DefaultGeneratorConfig()
	var seed int64
	var out string
	forbiddenRate := *cfg.ForbiddenRate

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic problem file",
		Long: `generate writes a random course catalog with teacher and class
preferences. The same flags and seed always produce the same file. The
encoding follows the --out extension (.json or YAML otherwise); without
--out the YAML goes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.ForbiddenRate = catalog.Rate(forbiddenRate)
			if err := cfg.Validate(); err != nil {
				return err
			}
			problem := catalog.Generate(cfg, seed)
			if err := problem.Validate(); err != nil {
				return err
			}
			if out == "" {
				return catalog.Encode(cmd.OutOrStdout(), problem, catalog.FormatYAML)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create problem file: %w", err)
			}
			if err := catalog.Encode(f, problem, catalog.FormatFromPath(out)); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			cliLogger.Info("problem written", zap.String("path", out), zap.Int("courses", len(problem.Courses)))
			return nil
		},
	}

	f := cmd.Flags()
	f.Int64Var(&seed, "seed", swarm.DefaultSeed, "Generator seed")
	f.StringVar(&out, "out", "", "Output file (.yaml or .json)")
	f.IntVar(&cfg.Courses, "courses", cfg.Courses, "Number of courses")
	f.IntVar(&cfg.Teachers, "teachers", cfg.Teachers, "Number of teachers")
	f.IntVar(&cfg.Classes, "classes", cfg.Classes, "Number of classes")
	f.IntVar(&cfg.Rooms, "rooms", cfg.Rooms, "Number of rooms")
	f.IntVar(&cfg.Horizon, "horizon", cfg.Horizon, "Number of global timeslots")
	f.IntSliceVar(&cfg.Blocked, "blocked", cfg.Blocked, "Globally blocked slots")
	f.IntSliceVar(&cfg.Durations, "durations", cfg.Durations, "Course durations to draw from")
	f.Float64Var(&forbiddenRate, "forbidden-rate", forbiddenRate, "Probability that a slot is forbidden")

	return cmd
}
