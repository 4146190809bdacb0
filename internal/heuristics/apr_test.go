package heuristics

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/elektrokombinacija/stas/internal/core"
)

func problemWithTraits(y, q *mat.Dense) *core.ProblemInputs {
	return &core.ProblemInputs{DesiredTraits: y, TeamTraits: q}
}

func TestAPRZeroWhenFullyCovered(t *testing.T) {
	y := mat.NewDense(1, 1, []float64{2})
	q := mat.NewDense(1, 1, []float64{2})
	a := core.NewAllocation(1, 1)
	a.Set(0, 0)
	p := problemWithTraits(y, q)

	require.Equal(t, 0.0, APR(a, p, nil))
}

func TestAPRNonZeroWhenUncovered(t *testing.T) {
	y := mat.NewDense(1, 1, []float64{4})
	q := mat.NewDense(1, 1, []float64{1})
	a := core.NewAllocation(1, 1)
	a.Set(0, 0)
	p := problemWithTraits(y, q)

	require.InDelta(t, 3.0/4.0, APR(a, p, nil), 1e-9)
}

func TestAPRZeroWhenDesiredTraitsAllZero(t *testing.T) {
	y := mat.NewDense(1, 1, []float64{0})
	q := mat.NewDense(1, 1, []float64{5})
	a := core.NewAllocation(1, 1)
	p := problemWithTraits(y, q)

	require.Equal(t, 0.0, APR(a, p, nil))
}

func TestAPRNonIncreasingAsCoalitionGrows(t *testing.T) {
	y := mat.NewDense(1, 2, []float64{3, 3})
	q := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	p := problemWithTraits(y, q)

	empty := core.NewAllocation(1, 2)
	oneRobot := core.NewAllocation(1, 2)
	oneRobot.Set(0, 0)
	both := core.NewAllocation(1, 2)
	both.Set(0, 0)
	both.Set(0, 1)

	aprEmpty := APR(empty, p, nil)
	aprOne := APR(oneRobot, p, nil)
	aprBoth := APR(both, p, nil)

	require.GreaterOrEqual(t, aprEmpty, aprOne)
	require.GreaterOrEqual(t, aprOne, aprBoth)
}
