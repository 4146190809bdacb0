package heuristics

import (
	"github.com/elektrokombinacija/stas/internal/allocnode"
	"github.com/elektrokombinacija/stas/internal/core"
	"github.com/elektrokombinacija/stas/internal/traits"
)

// Pruner decides whether a candidate child should be discarded before
// evaluation (prepruner) or after (postpruner), spec §4.7 step 6.
type Pruner interface {
	Prune(parent, child *allocnode.Node, p *core.ProblemInputs) bool
}

// TraitsImprovementPruner is the mandatory prepruner (spec §4.6): a child is
// pruned iff its last assignment did not strictly improve trait coverage.
// Safe because APR is non-increasing along any path, so a non-improving
// child can never reach the goal by a shorter route than an improving
// sibling would.
type TraitsImprovementPruner struct {
	Reducer traits.Reducer
}

func (t TraitsImprovementPruner) Prune(parent, child *allocnode.Node, p *core.ProblemInputs) bool {
	parentTME := traits.TME(parent.Allocation().Dense(), p.DesiredTraits, p.TeamTraits, t.Reducer)
	childTME := traits.TME(child.Allocation().Dense(), p.DesiredTraits, p.TeamTraits, t.Reducer)
	return childTME >= parentTME
}

// ConjunctivePruner composes several Pruners. Per the Open Question
// decision recorded in DESIGN.md (§9, "conjunctive pruning method"), it
// prunes on any sub-pruner vetoing — a short-circuit logical OR over the
// sub-pruners, not literal conjunction of their "keep" decisions.
type ConjunctivePruner struct {
	Pruners []Pruner
}

func (c ConjunctivePruner) Prune(parent, child *allocnode.Node, p *core.ProblemInputs) bool {
	for _, sub := range c.Pruners {
		if sub.Prune(parent, child, p) {
			return true
		}
	}
	return false
}
