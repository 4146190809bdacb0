package repair

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/elektrokombinacija/stas/internal/allocnode"
	"github.com/elektrokombinacija/stas/internal/core"
	"github.com/elektrokombinacija/stas/internal/oracle"
	"github.com/elektrokombinacija/stas/internal/scheduler"
	"github.com/elektrokombinacija/stas/internal/search"
)

func newSchedulerForTest() *scheduler.DeterministicScheduler {
	return scheduler.New(oracle.New(oracle.EuclideanPlanner{}, 0),
		func() scheduler.SolverBackend { return scheduler.NewBranchAndBoundBackend() }, nil)
}

func twoRobotProblem(y float64) *core.ProblemInputs {
	species := core.Species{ID: 1, Name: "s", Speed: 1}
	robot0 := core.Robot{ID: 0, SpeciesID: 1, InitialConfig: core.SE2(0, 0, 0)}
	robot1 := core.Robot{ID: 1, SpeciesID: 1, InitialConfig: core.SE2(0, 0, 0)}
	task := core.Task{ID: 0, InitialConfig: core.SE2(0, 0, 0), TerminalConfig: core.SE2(0, 0, 0)}
	return &core.ProblemInputs{
		Robots:                []core.Robot{robot0, robot1},
		Species:               []core.Species{species},
		Tasks:                 []core.Task{task},
		DesiredTraits:         mat.NewDense(1, 1, []float64{y}),
		TeamTraits:            mat.NewDense(2, 1, []float64{1, 1}),
		Alpha:                 1,
		ScheduleBestMakespan:  0,
		ScheduleWorstMakespan: 10,
	}
}

// With Y=3 and only 2 units of total capacity the search exhausts open
// without ever finding a goal, but closes the full-coalition node along the
// way; lowering Y to 2 afterwards should let that closed node be promoted
// straight to a goal.
func TestRefreshPromotesClosedGoalNodeOnCoverageImproved(t *testing.T) {
	p := twoRobotProblem(3)
	base := search.New(p, newSchedulerForTest(), search.Options{RetainClosed: true})
	goal, err := base.Run(context.Background())
	require.NoError(t, err)
	require.Nil(t, goal)
	require.NotEmpty(t, base.ClosedNodes())

	d := NewDeep(base, nil)
	newInputs := twoRobotProblem(2)
	d.Refresh(context.Background(), ChangeSet{NewInputs: newInputs, CoverageImproved: true})

	promoted, err := d.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, promoted)
	require.True(t, promoted.Allocation().Get(0, 0))
	require.True(t, promoted.Allocation().Get(0, 1))
}

func TestRefreshFiltersOpenNodesTouchingLostRobot(t *testing.T) {
	p := twoRobotProblem(3)
	base := search.New(p, newSchedulerForTest(), search.Options{})
	d := NewDeep(base, nil)

	touchesLost := allocnode.NewChild(d.Root(), core.Assignment{Task: 0, Robot: 0})
	untouched := allocnode.NewChild(d.Root(), core.Assignment{Task: 0, Robot: 1})
	d.PushOpen(touchesLost, d.Evaluate(context.Background(), touchesLost))
	d.PushOpen(untouched, d.Evaluate(context.Background(), untouched))
	require.Equal(t, 3, d.OpenLen()) // root + the two hand-built children

	d.Refresh(context.Background(), ChangeSet{NewInputs: p, LostRobots: []core.RobotID{0}})

	for _, n := range d.OpenNodes() {
		require.False(t, n.Assigned(0, 0))
	}
	require.Equal(t, 2, d.OpenLen()) // root survives (touches nothing), untouched survives
}

func TestRefreshSpawnsChildrenForNewRobot(t *testing.T) {
	species := core.Species{ID: 1, Name: "s", Speed: 1}
	robot0 := core.Robot{ID: 0, SpeciesID: 1, InitialConfig: core.SE2(0, 0, 0)}
	task := core.Task{ID: 0, InitialConfig: core.SE2(0, 0, 0), TerminalConfig: core.SE2(0, 0, 0)}
	p := &core.ProblemInputs{
		Robots:                []core.Robot{robot0},
		Species:               []core.Species{species},
		Tasks:                 []core.Task{task},
		DesiredTraits:         mat.NewDense(1, 1, []float64{2}),
		TeamTraits:            mat.NewDense(1, 1, []float64{1}),
		Alpha:                 1,
		ScheduleBestMakespan:  0,
		ScheduleWorstMakespan: 10,
	}
	base := search.New(p, newSchedulerForTest(), search.Options{})

	d := NewDeep(base, nil)
	grown := twoRobotProblem(2)
	before := d.OpenLen()
	d.Refresh(context.Background(), ChangeSet{NewInputs: grown, NewRobots: []core.RobotID{1}})

	require.Greater(t, d.OpenLen(), before)
	sawNewRobotAssignment := false
	for _, n := range d.OpenNodes() {
		if n.Assigned(0, 1) {
			sawNewRobotAssignment = true
		}
	}
	require.True(t, sawNewRobotAssignment)
}

func TestShallowSearchReadsParentClosedSet(t *testing.T) {
	p := twoRobotProblem(3)
	base := search.New(p, newSchedulerForTest(), search.Options{RetainClosed: true})
	_, err := base.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, base.ClosedNodes())

	parent := NewDeep(base, nil)
	child := NewShallow(parent.ItagsSearch, parent, nil)

	for _, n := range parent.ItagsSearch.ClosedNodes() {
		require.True(t, child.IsClosed(n.Hash()))
	}
	require.Empty(t, child.ItagsSearch.ClosedNodes())
	require.NotEmpty(t, child.AllClosedNodes())
}

func TestRefreshInvalidatesOracleCacheOnMapChange(t *testing.T) {
	p := twoRobotProblem(2)
	o := oracle.New(oracle.EuclideanPlanner{}, 0)
	sp := &p.Species[0]
	_, _ = o.Query(sp, core.SE2(0, 0, 0), core.SE2(1, 0, 0))
	require.True(t, o.IsMemoised(sp, core.SE2(0, 0, 0), core.SE2(1, 0, 0)))

	base := search.New(p, newSchedulerForTest(), search.Options{})
	d := NewDeep(base, o)
	d.Refresh(context.Background(), ChangeSet{NewInputs: p, MapChanged: true})

	require.False(t, o.IsMemoised(sp, core.SE2(0, 0, 0), core.SE2(1, 0, 0)))
}
