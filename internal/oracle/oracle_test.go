package oracle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/stas/internal/core"
)

type countingPlanner struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (p *countingPlanner) Plan(species *core.Species, from, to core.Configuration) (float64, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.fail {
		return 0, ErrInfeasible
	}
	return from.EuclideanDistance(to), nil
}

func speciesA() *core.Species {
	return &core.Species{ID: 1, Name: "a"}
}

func TestQueryCachesSuccess(t *testing.T) {
	p := &countingPlanner{}
	o := New(p, 0)
	s := speciesA()
	from := core.SE2(0, 0, 0)
	to := core.SE2(3, 4, 0)

	got, err := o.Query(s, from, to)
	require.NoError(t, err)
	require.Equal(t, 5.0, got)

	got2, err := o.Query(s, from, to)
	require.NoError(t, err)
	require.Equal(t, got, got2)
	require.Equal(t, 1, p.calls)
	require.True(t, o.IsMemoised(s, from, to))
}

func TestQueryCachesFailure(t *testing.T) {
	p := &countingPlanner{fail: true}
	o := New(p, 0)
	s := speciesA()
	from := core.SE2(0, 0, 0)
	to := core.SE2(1, 1, 0)

	_, err := o.Query(s, from, to)
	require.ErrorIs(t, err, ErrInfeasible)

	_, err = o.Query(s, from, to)
	require.ErrorIs(t, err, ErrInfeasible)
	require.Equal(t, 1, p.calls)
}

func TestQueryDifferentSpeciesDoNotShareCache(t *testing.T) {
	p := &countingPlanner{}
	o := New(p, 0)
	from := core.SE2(0, 0, 0)
	to := core.SE2(3, 4, 0)

	_, err := o.Query(&core.Species{ID: 1}, from, to)
	require.NoError(t, err)
	_, err = o.Query(&core.Species{ID: 2}, from, to)
	require.NoError(t, err)
	require.Equal(t, 2, p.calls)
}

func TestQueryConcurrentCallersCollapseToOnePlannerCall(t *testing.T) {
	p := &countingPlanner{}
	o := New(p, 0)
	s := speciesA()
	from := core.SE2(0, 0, 0)
	to := core.SE2(3, 4, 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Query(s, from, to)
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, p.calls)
}

func TestDurationUsesSlowestRobot(t *testing.T) {
	d, err := Duration(10, []float64{2, 5, 1})
	require.NoError(t, err)
	require.Equal(t, 10.0, d)
}

func TestDurationRejectsEmptyCoalition(t *testing.T) {
	_, err := Duration(10, nil)
	require.Error(t, err)
}

func TestDurationRejectsNonPositiveSpeed(t *testing.T) {
	_, err := Duration(10, []float64{0})
	require.Error(t, err)
}

func TestHeuristicDurationZeroSpeed(t *testing.T) {
	require.Equal(t, 0.0, HeuristicDuration(core.SE2(0, 0, 0), core.SE2(1, 0, 0), 0))
}

func TestGraphPlannerFindsShortestPath(t *testing.T) {
	g := NewGraphPlanner()
	g.AddEdge(0, 1, 1)
	g.AddEdge(1, 2, 1)
	g.AddEdge(0, 2, 5)

	from := core.GraphConfiguration(0)
	to := core.GraphConfiguration(2)
	length, err := g.Plan(speciesA(), from, to)
	require.NoError(t, err)
	require.Equal(t, 2.0, length)
}

func TestGraphPlannerRespectsNoFlyZone(t *testing.T) {
	g := NewGraphPlanner()
	g.AddEdge(0, 1, 1)
	g.AddEdge(1, 2, 1)
	g.Restrict(1)

	from := core.GraphConfiguration(0)
	to := core.GraphConfiguration(2)
	_, err := g.Plan(speciesA(), from, to)
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestGraphPlannerSameVertexIsZero(t *testing.T) {
	g := NewGraphPlanner()
	v := core.GraphConfiguration(7)
	length, err := g.Plan(speciesA(), v, v)
	require.NoError(t, err)
	require.Equal(t, 0.0, length)
}

func TestGraphPlannerRejectsNonGraphConfigs(t *testing.T) {
	g := NewGraphPlanner()
	_, err := g.Plan(speciesA(), core.SE2(0, 0, 0), core.GraphConfiguration(1))
	require.Error(t, err)
}
