package scheduler

import (
	"context"
	"math"
	"sort"
)

// SolverBackend is the MILP capability surface pinned by spec §6. The
// scheduler builds a Model purely against this interface; a backend is free
// to implement it however it likes.
type SolverBackend interface {
	NewModel(name string)
	AddContinuousVar(name string, lb, ub float64) VarID
	AddBinaryVar(name string) VarID
	AddLinearConstraint(expr *LinearExpr, sense ConstraintSense, rhs float64, name string)
	AddIndicatorConstraint(binVar VarID, value bool, expr *LinearExpr, sense ConstraintSense, rhs float64, name string)
	AddMaxAggregate(target VarID, inputs []VarID)
	SetObjective(expr *LinearExpr, sense ObjectiveSense)
	SetHierarchicalObjective(exprs []*LinearExpr, senses []ObjectiveSense)
	Solve(ctx context.Context) (SolveStatus, error)
	GetValue(v VarID) float64
}

// BranchAndBoundBackend is the one concrete SolverBackend this core ships
// (no third-party MILP engine is wired — out of scope per spec.md §1).
//
// All constraints this scheduler builds are difference constraints (a single
// variable bound, or the difference of exactly two variables) — duration,
// precedence, mutex and initial-transition are all of this shape. That lets
// a fixed binary assignment be solved exactly by a longest-path relaxation
// (the classic difference-constraint / critical-path trick) instead of a
// general LP, and lets branching happen solely over the mutex/indicator
// binaries with a sound lower bound from the same relaxation ignoring
// undecided indicators.
type BranchAndBoundBackend struct {
	model *Model
}

// NewBranchAndBoundBackend returns a ready backend.
func NewBranchAndBoundBackend() *BranchAndBoundBackend {
	return &BranchAndBoundBackend{}
}

func (b *BranchAndBoundBackend) NewModel(name string) {
	b.model = &Model{name: name}
}

func (b *BranchAndBoundBackend) AddContinuousVar(name string, lb, ub float64) VarID {
	b.model.vars = append(b.model.vars, variable{name: name, kind: continuousVar, lb: lb, ub: ub})
	return VarID(len(b.model.vars) - 1)
}

func (b *BranchAndBoundBackend) AddBinaryVar(name string) VarID {
	b.model.vars = append(b.model.vars, variable{name: name, kind: binaryVar, lb: 0, ub: 1})
	return VarID(len(b.model.vars) - 1)
}

func (b *BranchAndBoundBackend) AddLinearConstraint(expr *LinearExpr, sense ConstraintSense, rhs float64, name string) {
	b.model.constraints = append(b.model.constraints, linearConstraint{expr: expr, sense: sense, rhs: rhs, name: name})
}

func (b *BranchAndBoundBackend) AddIndicatorConstraint(binVar VarID, value bool, expr *LinearExpr, sense ConstraintSense, rhs float64, name string) {
	b.model.indicators = append(b.model.indicators, indicatorConstraint{
		binVar: binVar, value: value,
		constraint: linearConstraint{expr: expr, sense: sense, rhs: rhs, name: name},
	})
}

func (b *BranchAndBoundBackend) AddMaxAggregate(target VarID, inputs []VarID) {
	b.model.maxAggs = append(b.model.maxAggs, maxAggregate{target: target, inputs: inputs})
}

func (b *BranchAndBoundBackend) SetObjective(expr *LinearExpr, sense ObjectiveSense) {
	b.model.objectives = []*LinearExpr{expr}
	b.model.senses = []ObjectiveSense{sense}
}

func (b *BranchAndBoundBackend) SetHierarchicalObjective(exprs []*LinearExpr, senses []ObjectiveSense) {
	b.model.objectives = exprs
	b.model.senses = senses
}

func (b *BranchAndBoundBackend) GetValue(v VarID) float64 {
	return b.model.values[v]
}

// sourceVar is the virtual zero-time origin of the longest-path graph.
const sourceVar VarID = -1

type edge struct {
	from, to VarID
	weight   float64
}

// edgesFor converts one constraint into longest-path edges. EQ expands into
// both directions. Only two-term ±1-coefficient expressions and single-term
// expressions whose coefficient is +1 once in >= form are supported, which
// covers every constraint this scheduler builds; anything
// else is a programmer error in the caller and is reported via ok=false.
func edgesFor(c linearConstraint) ([]edge, bool) {
	var ges []linearConstraint
	switch c.sense {
	case GE:
		ges = []linearConstraint{c}
	case LE:
		ges = []linearConstraint{negateConstraint(c)}
	case EQ:
		ges = []linearConstraint{c, negateConstraint(c)}
	default:
		return nil, false
	}

	var out []edge
	for _, g := range ges {
		rhs := g.rhs - g.expr.constant
		switch len(g.expr.terms) {
		case 1:
			for v, coeff := range g.expr.terms {
				if coeff != 1 {
					return nil, false
				}
				out = append(out, edge{from: sourceVar, to: v, weight: rhs})
			}
		case 2:
			var pos, neg VarID
			var hasPos, hasNeg bool
			for v, coeff := range g.expr.terms {
				switch coeff {
				case 1:
					pos, hasPos = v, true
				case -1:
					neg, hasNeg = v, true
				default:
					return nil, false
				}
			}
			if !hasPos || !hasNeg {
				return nil, false
			}
			out = append(out, edge{from: neg, to: pos, weight: rhs})
		default:
			return nil, false
		}
	}
	return out, true
}

// relax solves the longest-path relaxation for a (possibly partial) binary
// assignment: fixed/active constraints are enforced exactly, undecided
// indicator constraints are ignored. For a full assignment this is exact;
// for a partial one it is a valid lower bound on every completion's
// makespan, since dropping constraints can only shrink required start times.
func relax(m *Model, assignment map[VarID]bool) (map[VarID]float64, bool) {
	dist := make(map[VarID]float64, len(m.vars)+1)
	dist[sourceVar] = 0
	for i, v := range m.vars {
		dist[VarID(i)] = v.lb
	}

	var edges []edge
	for i, v := range m.vars {
		edges = append(edges, edge{from: sourceVar, to: VarID(i), weight: v.lb})
	}
	for _, c := range m.constraints {
		es, ok := edgesFor(c)
		if !ok {
			continue
		}
		edges = append(edges, es...)
	}
	for _, ind := range m.indicators {
		val, decided := assignment[ind.binVar]
		if !decided || val != ind.value {
			continue
		}
		es, ok := edgesFor(ind.constraint)
		if !ok {
			continue
		}
		edges = append(edges, es...)
	}

	nodeCount := len(m.vars) + 1
	for iter := 0; iter < nodeCount; iter++ {
		changed := false
		for _, e := range edges {
			if dist[e.from]+e.weight > dist[e.to]+1e-9 {
				dist[e.to] = dist[e.from] + e.weight
				changed = true
			}
		}
		if !changed {
			break
		}
		if iter == nodeCount-1 {
			return nil, false // positive cycle: contradictory constraints
		}
	}

	values := make(map[VarID]float64, len(m.vars))
	for i, v := range m.vars {
		val := dist[VarID(i)]
		if val > v.ub+1e-9 {
			return nil, false
		}
		values[VarID(i)] = val
	}
	for _, ma := range m.maxAggs {
		best := math.Inf(-1)
		for _, in := range ma.inputs {
			if values[in] > best {
				best = values[in]
			}
		}
		if best == math.Inf(-1) {
			best = 0
		}
		values[ma.target] = best
	}
	return values, true
}

func objectiveVector(m *Model, values map[VarID]float64) []float64 {
	vec := make([]float64, len(m.objectives))
	for i, e := range m.objectives {
		v := evalExpr(e, values)
		if m.senses[i] == Maximize {
			v = -v
		}
		vec[i] = v
	}
	return vec
}

// lexLess reports whether a is a strictly better (lexicographically
// smaller) objective vector than b. A nil b means "no incumbent yet".
func lexLess(a, b []float64) bool {
	if b == nil {
		return true
	}
	for i := range a {
		if i >= len(b) {
			break
		}
		if a[i] < b[i]-1e-9 {
			return true
		}
		if a[i] > b[i]+1e-9 {
			return false
		}
	}
	return false
}

// Solve runs an exact DFS branch-and-bound over the model's binary
// variables in ascending VarID order, true-before-false at each branch, so
// the search (and hence the optimal solution chosen among ties) is fully
// deterministic.
func (b *BranchAndBoundBackend) Solve(ctx context.Context) (SolveStatus, error) {
	m := b.model

	var binVars []VarID
	for i, v := range m.vars {
		if v.kind == binaryVar {
			binVars = append(binVars, VarID(i))
		}
	}
	sort.Slice(binVars, func(i, j int) bool { return binVars[i] < binVars[j] })

	assignment := make(map[VarID]bool, len(binVars))
	var bestValues map[VarID]float64
	var bestObjective []float64
	found := false

	var recurse func(idx int) error
	recurse = func(idx int) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if found {
			if bound, feasible := relax(m, assignment); feasible {
				if !lexLess(objectiveVector(m, bound), bestObjective) {
					return nil // lower bound already no better than incumbent
				}
			} else {
				return nil
			}
		}

		if idx == len(binVars) {
			values, feasible := relax(m, assignment)
			if !feasible {
				return nil
			}
			obj := objectiveVector(m, values)
			if lexLess(obj, bestObjective) {
				found, bestObjective, bestValues = true, obj, values
			}
			return nil
		}

		v := binVars[idx]
		for _, val := range [2]bool{true, false} {
			assignment[v] = val
			if err := recurse(idx + 1); err != nil {
				delete(assignment, v)
				return err
			}
		}
		delete(assignment, v)
		return nil
	}

	if err := recurse(0); err != nil {
		return StatusTimeout, nil
	}
	if !found {
		return StatusInfeasible, nil
	}
	m.values = bestValues
	return StatusOptimal, nil
}
