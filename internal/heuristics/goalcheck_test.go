package heuristics

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/elektrokombinacija/stas/internal/core"
)

func TestMismatchGoalCheckAchievedWhenFullyCovered(t *testing.T) {
	y := mat.NewDense(1, 1, []float64{2})
	q := mat.NewDense(1, 1, []float64{2})
	a := core.NewAllocation(1, 1)
	a.Set(0, 0)
	p := problemWithTraits(y, q)

	require.True(t, MismatchGoalCheck{}.Achieved(a, p))
}

func TestMismatchGoalCheckNotAchievedWhenUncovered(t *testing.T) {
	y := mat.NewDense(1, 1, []float64{4})
	q := mat.NewDense(1, 1, []float64{1})
	a := core.NewAllocation(1, 1)
	a.Set(0, 0)
	p := problemWithTraits(y, q)

	require.False(t, MismatchGoalCheck{}.Achieved(a, p))
}
