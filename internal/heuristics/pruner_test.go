package heuristics

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/elektrokombinacija/stas/internal/allocnode"
	"github.com/elektrokombinacija/stas/internal/core"
)

func TestTraitsImprovementPrunerKeepsImprovingChild(t *testing.T) {
	y := mat.NewDense(1, 1, []float64{3})
	q := mat.NewDense(2, 1, []float64{2, 0}) // robot0 contributes 2, robot1 contributes 0
	p := problemWithTraits(y, q)

	root := allocnode.NewRoot(1, 2)
	improving := allocnode.NewChild(root, core.Assignment{Task: 0, Robot: 0})

	pruner := TraitsImprovementPruner{}
	require.False(t, pruner.Prune(root, improving, p))
}

func TestTraitsImprovementPrunerDropsNonImprovingChild(t *testing.T) {
	y := mat.NewDense(1, 1, []float64{3})
	q := mat.NewDense(2, 1, []float64{2, 0})
	p := problemWithTraits(y, q)

	root := allocnode.NewRoot(1, 2)
	useless := allocnode.NewChild(root, core.Assignment{Task: 0, Robot: 1})

	pruner := TraitsImprovementPruner{}
	require.True(t, pruner.Prune(root, useless, p))
}

type fixedPruner bool

func (f fixedPruner) Prune(parent, child *allocnode.Node, p *core.ProblemInputs) bool { return bool(f) }

func TestConjunctivePrunerPrunesOnAnyVeto(t *testing.T) {
	p := problemWithTraits(mat.NewDense(1, 1, []float64{1}), mat.NewDense(1, 1, []float64{1}))
	root := allocnode.NewRoot(1, 1)
	child := allocnode.NewChild(root, core.Assignment{Task: 0, Robot: 0})

	require.True(t, ConjunctivePruner{Pruners: []Pruner{fixedPruner(false), fixedPruner(true)}}.Prune(root, child, p))
	require.False(t, ConjunctivePruner{Pruners: []Pruner{fixedPruner(false), fixedPruner(false)}}.Prune(root, child, p))
}
