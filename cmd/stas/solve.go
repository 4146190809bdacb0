package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/stas/internal/config"
	"github.com/elektrokombinacija/stas/internal/oracle"
	"github.com/elektrokombinacija/stas/internal/scheduler"
	"github.com/elektrokombinacija/stas/internal/search"
	"github.com/elektrokombinacija/stas/internal/telemetry"
	"github.com/elektrokombinacija/stas/internal/wire"
)

func newSolveCmd(configPath *string) *cobra.Command {
	var outPath string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "solve <problem.json>",
		Short: "Search for and schedule an allocation satisfying a problem's desired traits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(args[0], outPath, logLevel, *configPath)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write the solution document here instead of stdout")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "overrides the config file's log_level")
	return cmd
}

func runSolve(problemPath, outPath, logLevel, configPath string) error {
	start := time.Now()

	data, err := os.ReadFile(problemPath)
	if err != nil {
		return codedError{exitInvalidInput, fmt.Errorf("read problem: %w", err)}
	}
	p, err := wire.DecodeProblem(data)
	if err != nil {
		return codedError{exitInvalidInput, err}
	}
	if err := p.Validate(); err != nil {
		return codedError{exitInvalidInput, fmt.Errorf("invalid problem: %w", err)}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return codedError{exitInvalidInput, err}
	}
	p.SchedulerParams = cfg.OverlayScheduler(p.SchedulerParams)
	p.ItagsParams = cfg.OverlayItags(p.ItagsParams)

	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	if logLevel == "" {
		logLevel = "info"
	}
	log, err := telemetry.NewLogger(logLevel)
	if err != nil {
		return codedError{exitInvalidInput, err}
	}
	defer log.Sync() //nolint:errcheck

	o := oracle.New(oracle.EuclideanPlanner{}, cfg.CacheSize())
	sched := scheduler.New(o, func() scheduler.SolverBackend { return scheduler.NewBranchAndBoundBackend() }, log)

	ctx := context.Background()
	var cancel context.CancelFunc
	if p.ItagsParams.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.ItagsParams.Timeout*float64(time.Second)))
		defer cancel()
	}

	s := search.New(p, sched, search.Options{
		RetainClosed: p.ItagsParams.RetainClosed,
		RetainPruned: p.ItagsParams.RetainPruned,
	})

	goal, err := s.Run(ctx)
	if err != nil {
		return codedError{exitInvalidInput, err}
	}
	if goal == nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return codedError{exitTimeout, fmt.Errorf("search timed out after %s", time.Since(start))}
		}
		return codedError{exitUnsolvable, fmt.Errorf("no allocation satisfies the desired traits")}
	}

	outcome, err := sched.Solve(ctx, p, goal.Allocation())
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return codedError{exitTimeout, fmt.Errorf("scheduling timed out after %s", time.Since(start))}
		}
		return codedError{exitUnsolvable, fmt.Errorf("scheduling failed: %s", outcome.Failure)}
	}

	stats := s.Stats()
	sol := wire.Solution{
		Problem:     p,
		Allocation:  goal.Allocation(),
		Schedule:    outcome.Schedule,
		Transitions: outcome.Transitions,
		Stats: wire.Statistics{
			NodesGenerated:          stats.Generated,
			NodesExpanded:           stats.Expanded,
			NodesEvaluated:          stats.Evaluated,
			NodesPruned:             stats.Pruned,
			NodesDeadEnd:            stats.DeadEnd,
			TotalTimeSeconds:        time.Since(start).Seconds(),
			NumSchedulingIterations: outcome.Iterations,
			NumSchedulingFailures:   int(scheduler.GlobalFailureCount()),
		},
	}

	out, err := wire.EncodeSolution(sol)
	if err != nil {
		return codedError{exitInvalidInput, err}
	}
	if outPath == "" {
		fmt.Println(string(out))
		return nil
	}
	return os.WriteFile(outPath, out, 0o644)
}
