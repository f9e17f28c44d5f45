// timetabler runs the course timetable optimiser from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
