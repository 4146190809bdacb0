// Package heuristics implements the search guidance functions (spec §4.6):
// APR, NSQ, TETAQ, the goal check, and the pruners that gate successor
// expansion in internal/search.
package heuristics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/elektrokombinacija/stas/internal/core"
	"github.com/elektrokombinacija/stas/internal/traits"
)

func sumAll(m *mat.Dense) float64 {
	r, c := m.Dims()
	total := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			total += m.At(i, j)
		}
	}
	return total
}

// APR (allocation percentage remaining) is tme(A,Y,Q)/sum(Y), zero if Y is
// all-zero. It is non-increasing along any path that only adds assignments,
// since TME can only shrink as coverage grows.
func APR(a *core.Allocation, p *core.ProblemInputs, reducer traits.Reducer) float64 {
	sum := sumAll(p.DesiredTraits)
	if sum <= 0 {
		return 0
	}
	tme := traits.TME(a.Dense(), p.DesiredTraits, p.TeamTraits, reducer)
	return tme / sum
}
