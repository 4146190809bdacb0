package traits

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestTMEZeroWhenAllOnesCovers(t *testing.T) {
	a := mat.NewDense(1, 2, []float64{1, 1})
	y := mat.NewDense(1, 1, []float64{2})
	q := mat.NewDense(2, 1, []float64{1, 1})

	require.Equal(t, 0.0, TME(a, y, q, nil))
}

func TestTMEMonotonicAsCellsFlipOn(t *testing.T) {
	y := mat.NewDense(1, 1, []float64{2})
	q := mat.NewDense(2, 1, []float64{1, 1})

	empty := mat.NewDense(1, 2, []float64{0, 0})
	partial := mat.NewDense(1, 2, []float64{1, 0})
	full := mat.NewDense(1, 2, []float64{1, 1})

	tmeEmpty := TME(empty, y, q, nil)
	tmePartial := TME(partial, y, q, nil)
	tmeFull := TME(full, y, q, nil)

	require.GreaterOrEqual(t, tmeEmpty, tmePartial)
	require.GreaterOrEqual(t, tmePartial, tmeFull)
	require.Equal(t, 0.0, tmeFull)
}

func TestThresholdCumulativeReducer(t *testing.T) {
	reducer := ThresholdCumulativeReducer([]float32{5})
	a := mat.NewDense(1, 2, []float64{1, 1})
	q := mat.NewDense(2, 1, []float64{2, 2})

	allocated := Allocated(a, q, reducer)
	// Combined payload (4) is below threshold (5) -> treated as zero.
	require.Equal(t, 0.0, allocated.At(0, 0))

	q2 := mat.NewDense(2, 1, []float64{3, 3})
	allocated2 := Allocated(a, q2, reducer)
	require.Equal(t, 6.0, allocated2.At(0, 0))
}

func TestPositiveMismatchClampsNegative(t *testing.T) {
	a := mat.NewDense(1, 1, []float64{1})
	y := mat.NewDense(1, 1, []float64{1})
	q := mat.NewDense(1, 1, []float64{5}) // over-allocated

	pm := PositiveMismatch(a, y, q, nil)
	require.Equal(t, 0.0, pm.At(0, 0))
}
