package heuristics

import (
	"github.com/elektrokombinacija/stas/internal/core"
	"github.com/elektrokombinacija/stas/internal/traits"
)

// GoalCheck decides whether an allocation satisfies a problem's desired
// traits, pluggable per spec §9's narrow-interface translation of the
// original's deep goal-check hierarchy.
type GoalCheck interface {
	Achieved(a *core.Allocation, p *core.ProblemInputs) bool
}

// MismatchGoalCheck is the one contract spec §4.6 pins: every entry of
// mismatch(A,Y,Q) must be <= 0.
type MismatchGoalCheck struct {
	Reducer traits.Reducer
}

func (g MismatchGoalCheck) Achieved(a *core.Allocation, p *core.ProblemInputs) bool {
	mismatch := traits.Mismatch(a.Dense(), p.DesiredTraits, p.TeamTraits, g.Reducer)
	r, c := mismatch.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if mismatch.At(i, j) > 0 {
				return false
			}
		}
	}
	return true
}
