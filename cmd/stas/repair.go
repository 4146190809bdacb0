package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/stas/internal/allocnode"
	"github.com/elektrokombinacija/stas/internal/config"
	"github.com/elektrokombinacija/stas/internal/core"
	"github.com/elektrokombinacija/stas/internal/oracle"
	"github.com/elektrokombinacija/stas/internal/repair"
	"github.com/elektrokombinacija/stas/internal/scheduler"
	"github.com/elektrokombinacija/stas/internal/search"
	"github.com/elektrokombinacija/stas/internal/telemetry"
	"github.com/elektrokombinacija/stas/internal/wire"
)

// changeDoc is the CLI's own changes.json shape, not part of spec §6's wire
// format (which only defines problem and solution documents): it is the
// minimal description `repair` needs to drive internal/repair.ChangeSet.
type changeDoc struct {
	LostRobots       []int `json:"lost_robots,omitempty"`
	NewRobots        []int `json:"new_robots,omitempty"`
	MapChanged       bool  `json:"map_changed,omitempty"`
	CoverageImproved bool  `json:"coverage_improved,omitempty"`
	CoverageWorsened bool  `json:"coverage_worsened,omitempty"`
	ScheduleTouched  bool  `json:"schedule_touched,omitempty"`
}

func newRepairCmd(configPath *string) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "repair <problem.json> <prior-solution.json> <changes.json>",
		Short: "Resume a search against a changed problem, salvaging a prior solution",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(args[0], args[1], args[2], outPath, *configPath)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write the solution document here instead of stdout")
	return cmd
}

// priorAllocation extracts the coalition assignments from a solution
// document without needing a dedicated decoder: the solution's "allocation"
// field is the only part repair needs back.
func priorAllocation(data []byte, m, n int) (*core.Allocation, error) {
	var doc struct {
		Allocation [][]int `json:"allocation"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode prior solution: %w", err)
	}
	alloc := core.NewAllocation(m, n)
	for t, row := range doc.Allocation {
		if t >= m {
			break
		}
		for r, v := range row {
			if r < n && v != 0 {
				alloc.Set(core.TaskID(t), core.RobotID(r))
			}
		}
	}
	return alloc, nil
}

func allocationToNode(alloc *core.Allocation) *allocnode.Node {
	n := allocnode.NewRoot(alloc.M, alloc.N)
	for t := 0; t < alloc.M; t++ {
		for r := 0; r < alloc.N; r++ {
			if alloc.Get(core.TaskID(t), core.RobotID(r)) {
				n = allocnode.NewChild(n, core.Assignment{Task: core.TaskID(t), Robot: core.RobotID(r)})
			}
		}
	}
	return n
}

func runRepair(problemPath, priorSolutionPath, changesPath, outPath, configPath string) error {
	start := time.Now()

	problemData, err := os.ReadFile(problemPath)
	if err != nil {
		return codedError{exitInvalidInput, fmt.Errorf("read problem: %w", err)}
	}
	newInputs, err := wire.DecodeProblem(problemData)
	if err != nil {
		return codedError{exitInvalidInput, err}
	}
	if err := newInputs.Validate(); err != nil {
		return codedError{exitInvalidInput, fmt.Errorf("invalid problem: %w", err)}
	}

	priorData, err := os.ReadFile(priorSolutionPath)
	if err != nil {
		return codedError{exitInvalidInput, fmt.Errorf("read prior solution: %w", err)}
	}
	priorAlloc, err := priorAllocation(priorData, newInputs.NumTasks(), newInputs.NumRobots())
	if err != nil {
		return codedError{exitInvalidInput, err}
	}

	changesData, err := os.ReadFile(changesPath)
	if err != nil {
		return codedError{exitInvalidInput, fmt.Errorf("read changes: %w", err)}
	}
	var cd changeDoc
	if err := json.Unmarshal(changesData, &cd); err != nil {
		return codedError{exitInvalidInput, fmt.Errorf("decode changes: %w", err)}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return codedError{exitInvalidInput, err}
	}
	newInputs.SchedulerParams = cfg.OverlayScheduler(newInputs.SchedulerParams)
	newInputs.ItagsParams = cfg.OverlayItags(newInputs.ItagsParams)

	level := cfg.LogLevel
	if level == "" {
		level = "info"
	}
	log, err := telemetry.NewLogger(level)
	if err != nil {
		return codedError{exitInvalidInput, err}
	}
	defer log.Sync() //nolint:errcheck

	o := oracle.New(oracle.EuclideanPlanner{}, cfg.CacheSize())
	sched := scheduler.New(o, func() scheduler.SolverBackend { return scheduler.NewBranchAndBoundBackend() }, log)

	// The wire solution format (spec §6) persists only the final allocation
	// and schedule, not a search's open/closed/pruned frontiers, so a
	// cross-process repair call can only reseed a fresh search with the
	// prior best as its starting point — it cannot promote nodes from a
	// prior run's closed/pruned sets, since those never left that process.
	base := search.New(newInputs, sched, search.Options{
		RetainClosed: newInputs.ItagsParams.RetainClosed,
		RetainPruned: newInputs.ItagsParams.RetainPruned,
	})
	d := repair.NewDeep(base, o)

	changes := repair.ChangeSet{
		NewInputs:        newInputs,
		PreviousBest:     allocationToNode(priorAlloc),
		MapChanged:       cd.MapChanged,
		CoverageImproved: cd.CoverageImproved,
		CoverageWorsened: cd.CoverageWorsened,
		ScheduleTouched:  cd.ScheduleTouched,
	}
	for _, r := range cd.LostRobots {
		changes.LostRobots = append(changes.LostRobots, core.RobotID(r))
	}
	for _, r := range cd.NewRobots {
		changes.NewRobots = append(changes.NewRobots, core.RobotID(r))
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if newInputs.ItagsParams.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(newInputs.ItagsParams.Timeout*float64(time.Second)))
		defer cancel()
	}

	d.Refresh(ctx, changes)
	goal, err := d.Run(ctx)
	if err != nil {
		return codedError{exitInvalidInput, err}
	}
	if goal == nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return codedError{exitTimeout, fmt.Errorf("repair search timed out after %s", time.Since(start))}
		}
		return codedError{exitUnsolvable, fmt.Errorf("no allocation satisfies the desired traits after repair")}
	}

	outcome, err := sched.Solve(ctx, newInputs, goal.Allocation())
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return codedError{exitTimeout, fmt.Errorf("scheduling timed out after %s", time.Since(start))}
		}
		return codedError{exitUnsolvable, fmt.Errorf("scheduling failed: %s", outcome.Failure)}
	}

	stats := d.Stats()
	sol := wire.Solution{
		Problem:     newInputs,
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
