package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/elektrokombinacija/stas/internal/core"
	"github.com/elektrokombinacija/stas/internal/oracle"
	"github.com/elektrokombinacija/stas/internal/scheduler"
)

func newSchedulerForTest() *scheduler.DeterministicScheduler {
	return scheduler.New(oracle.New(oracle.EuclideanPlanner{}, 0),
		func() scheduler.SolverBackend { return scheduler.NewBranchAndBoundBackend() }, nil)
}

// one task needing 2 units of a trait, two candidate robots each supplying
// 1 unit: the goal requires both in the coalition.
func twoRobotCoverageProblem() *core.ProblemInputs {
	species := core.Species{ID: 1, Name: "s", Speed: 1}
	robot0 := core.Robot{ID: 0, SpeciesID: 1, InitialConfig: core.SE2(0, 0, 0)}
	robot1 := core.Robot{ID: 1, SpeciesID: 1, InitialConfig: core.SE2(0, 0, 0)}
	task := core.Task{ID: 0, InitialConfig: core.SE2(0, 0, 0), TerminalConfig: core.SE2(0, 0, 0)}

	return &core.ProblemInputs{
		Robots:                []core.Robot{robot0, robot1},
		Species:               []core.Species{species},
		Tasks:                 []core.Task{task},
		DesiredTraits:         mat.NewDense(1, 1, []float64{2}),
		TeamTraits:            mat.NewDense(2, 1, []float64{1, 1}),
		Alpha:                 1, // weight entirely on APR to keep the test deterministic and oracle-free
		ScheduleBestMakespan:  0,
		ScheduleWorstMakespan: 10,
	}
}

func TestRunFindsGoalRequiringBothRobots(t *testing.T) {
	p := twoRobotCoverageProblem()
	s := New(p, newSchedulerForTest(), Options{})

	goal, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, goal)

	alloc := goal.Allocation()
	require.True(t, alloc.Get(0, 0))
	require.True(t, alloc.Get(0, 1))
	require.NotNil(t, goal.APR)
	require.InDelta(t, 0.0, *goal.APR, 1e-9)
}

func TestRunReturnsNilWhenGoalUnreachable(t *testing.T) {
	species := core.Species{ID: 1, Name: "s", Speed: 1}
	robot := core.Robot{ID: 0, SpeciesID: 1, InitialConfig: core.SE2(0, 0, 0)}
	task := core.Task{ID: 0, InitialConfig: core.SE2(0, 0, 0), TerminalConfig: core.SE2(0, 0, 0)}
	p := &core.ProblemInputs{
		Robots:        []core.Robot{robot},
		Species:       []core.Species{species},
		Tasks:         []core.Task{task},
		DesiredTraits: mat.NewDense(1, 1, []float64{5}), // no coalition can ever reach this
		TeamTraits:    mat.NewDense(1, 1, []float64{1}),
		Alpha:         1,
	}
	s := New(p, newSchedulerForTest(), Options{})

	goal, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Nil(t, goal)
	require.Equal(t, 0, s.OpenLen())
}

func TestRunRespectsCancelledContext(t *testing.T) {
	p := twoRobotCoverageProblem()
	s := New(p, newSchedulerForTest(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	goal, err := s.Run(ctx)
	require.NoError(t, err)
	require.Nil(t, goal)
}

func TestTraitsImprovementPrunerSkipsUselessAssignment(t *testing.T) {
	// A second, zero-trait robot should never appear in the search's
	// frontier: every child that assigns it is pruned as non-improving.
	species := core.Species{ID: 1, Name: "s", Speed: 1}
	robots := []core.Robot{
		{ID: 0, SpeciesID: 1, InitialConfig: core.SE2(0, 0, 0)},
		{ID: 1, SpeciesID: 1, InitialConfig: core.SE2(0, 0, 0)},
	}
	task := core.Task{ID: 0, InitialConfig: core.SE2(0, 0, 0), TerminalConfig: core.SE2(0, 0, 0)}
	p := &core.ProblemInputs{
		Robots:                robots,
		Species:               []core.Species{species},
		Tasks:                 []core.Task{task},
		DesiredTraits:         mat.NewDense(1, 1, []float64{1}),
		TeamTraits:            mat.NewDense(2, 1, []float64{1, 0}),
		Alpha:                 1,
		ScheduleBestMakespan:  0,
		ScheduleWorstMakespan: 10,
	}
	s := New(p, newSchedulerForTest(), Options{RetainPruned: true})

	goal, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, goal)
	require.True(t, goal.Allocation().Get(0, 0))

	stats := s.Stats()
	require.Greater(t, stats.Pruned, 0)
}
