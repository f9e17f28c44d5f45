package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/catalog"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/dto"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/swarm"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/timetable"
)

type runOptions struct {
	params       swarm.Params
	problemPath  string
	problemSeed  int64
	penalty      int
	historyPath  string
	outputFormat string
}

// runReport is the --format json output.
type runReport struct {
	BestFitness   int                   `json:"bestFitness"`
	Preference    int                   `json:"preference"`
	Penalty       int                   `json:"penalty"`
	Valid         bool                  `json:"valid"`
	History       []int                 `json:"history"`
	Schedule      []dto.ScheduleEntry   `json:"schedule"`
	Violations    []timetable.Violation `json:"violations,omitempty"`
	ForbiddenHits []timetable.Violation `json:"forbiddenHits,omitempty"`
	DurationMs    int64                 `json:"durationMs"`
}

func newRunCmd() *cobra.Command {
	opts := runOptions{params: swarm.DefaultParams(1000)}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Optimise a timetable and print the best schedule",
		Long: `run optimises either a problem file (--problem, YAML or JSON) or a
synthetic instance generated from --problem-seed.

Examples:
  timetabler run --iterations 200
  timetabler run --problem week.yaml --history history.csv --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.outputFormat {
			case "text", "json":
			default:
				return fmt.Errorf("unknown format %q (want text or json)", opts.outputFormat)
			}
			return runOptimisation(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.params.Cognitive, "c1", swarm.DefaultCognition, "Cognitive coefficient")
	f.Float64Var(&opts.params.Social, "c2", swarm.DefaultSocial, "Social coefficient")
	f.Float64Var(&opts.params.Inertia, "w", swarm.DefaultInertia, "Inertia weight")
	f.Int64Var(&opts.params.Seed, "seed", swarm.DefaultSeed, "Optimiser random seed")
	f.IntVar(&opts.params.Particles, "particles", swarm.DefaultParticles, "Swarm size")
	f.IntVar(&opts.params.Iterations, "iterations", 1000, "Number of generations")
	f.BoolVar(&opts.params.LocalSearch, "local-search", true, "Apply the interchange heuristic after each move")
	f.StringVar(&opts.problemPath, "problem", "", "Problem file (YAML or JSON); generated when empty")
	f.Int64Var(&opts.problemSeed, "problem-seed", swarm.DefaultSeed, "Seed for the generated problem")
	f.IntVar(&opts.penalty, "penalty", 0, "Override the penalty constant (0 keeps the problem's)")
	f.StringVar(&opts.historyPath, "history", "", "Write the best-fitness history to this CSV file")
	f.StringVarP(&opts.outputFormat, "format", "o", "text", "Output format (text, json)")

	return cmd
}

func loadProblem(opts runOptions) (*timetable.Problem, error) {
	var problem *timetable.Problem
	if opts.problemPath != "" {
		loaded, err := catalog.LoadFile(opts.problemPath)
		if err != nil {
			return nil, err
		}
		problem = loaded
	} else {
		problem = catalog.Generate(catalog.DefaultGeneratorConfig(), opts.problemSeed)
	}
	if opts.penalty != 0 {
		problem.Penalty = opts.penalty
	}
	return problem, problem.Validate()
}

func runOptimisation(ctx context.Context, out io.Writer, opts runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	problem, err := loadProblem(opts)
	if err != nil {
		return err
	}

	sw, err := swarm.New(problem, opts.params,
		swarm.WithLogger(cliLogger),
		swarm.WithObserver(func(g swarm.Generation) {
			if g.Improved {
				cliLogger.Info("new global best", zap.Int("generation", g.Index), zap.Int("fitness", g.BestFitness))
			}
		}),
	)
	if err != nil {
		return err
	}

	start := time.Now()
	for i := 0; i < opts.params.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("interrupted after %d generations: %w", i, err)
		}
		sw.Step()
	}
	result := sw.Result()
	elapsed := time.Since(start)

	if opts.historyPath != "" {
		if err := writeHistoryFile(opts.historyPath, result.History); err != nil {
			return err
		}
	}

	score := timetable.Evaluate(problem, result.BestSchedule)
	report := runReport{
		BestFitness:   result.BestFitness,
		Preference:    score.Preference,
		Penalty:       score.Penalty,
		Valid:         timetable.IsValid(problem, result.BestSchedule),
		History:       result.History,
		Schedule:      dto.ScheduleEntries(result.BestSchedule),
		Violations:    score.Violations,
		ForbiddenHits: timetable.ForbiddenHits(problem, result.BestSchedule),
		DurationMs:    elapsed.Milliseconds(),
	}

	if opts.outputFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return writeText(out, report)
}

func writeText(out io.Writer, r runReport) error {
	fmt.Fprintf(out, "best fitness: %d (preference %d, penalty %d)\n", r.BestFitness, r.Preference, r.Penalty)
	fmt.Fprintf(out, "valid: %t  generations: %d  time: %dms\n\n", r.Valid, len(r.History)-1, r.DurationMs)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COURSE\tTEACHER\tCLASS\tROOM\tSTART\tDURATION")
	for _, e := range r.Schedule {
		start := "-"
		if e.Start != nil {
			start = strconv.Itoa(*e.Start)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", e.CourseID, e.TeacherID, e.ClassID, e.RoomID, start, e.Duration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Violations) > 0 {
		fmt.Fprintln(out, "\nviolations:")
		for _, v := range r.Violations {
			fmt.Fprintf(out, "  %s\n", v.Error())
		}
	}
	if len(r.ForbiddenHits) > 0 {
		fmt.Fprintf(out, "\nforbidden slots used: %d\n", len(r.ForbiddenHits))
	}
	return nil
}

func writeHistoryFile(path string, history []int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create history file: %w", err)
	}
	if err := writeHistory(f, history); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeHistory(w io.Writer, history []int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"generation", "best_fitness"}); err != nil {
		return err
	}
	for i, v := range history {
		if err := cw.Write([]string{strconv.Itoa(i), strconv.Itoa(v)}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
