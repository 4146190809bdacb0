package core

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"gonum.org/v1/gonum/mat"
)

// PrecedenceConstraint is a predecessor -> successor pair over task indices.
type PrecedenceConstraint struct {
	Predecessor TaskID
	Successor   TaskID
}

// SchedulerParameters configures the deterministic scheduler (spec §4.5).
type SchedulerParameters struct {
	Timeout                   float64 // seconds; carried through config and JSON, not read by the scheduler
	Threads                   int
	MIPGap                    float64
	HierarchicalObjective     bool
	ComputeTransitionHeuristics bool
}

// ItagsParameters configures the best-first search (spec §4.7).
type ItagsParameters struct {
	Timeout        float64 // seconds, 0 = no wall-clock budget
	RetainClosed   bool
	RetainPruned   bool
}

// ProblemInputs is the immutable, shared-by-reference description of a STAS
// problem instance (spec §3).
type ProblemInputs struct {
	Name        string
	Robots      []Robot
	Species     []Species
	Tasks       []Task
	Precedences []PrecedenceConstraint

	// PlanTaskIndices is an ordered subset of task indices produced by an
	// external (out-of-scope) task planner; preserved for JSON round-trips.
	PlanTaskIndices []int

	DesiredTraits *mat.Dense // Y, M x T
	TeamTraits    *mat.Dense // Q, N x T

	Alpha float64 // TETAQ weight, in [0,1]

	ScheduleBestMakespan  float64 // sigma_best
	ScheduleWorstMakespan float64 // sigma_worst

	SchedulerParams SchedulerParameters
	ItagsParams     ItagsParameters
}

// NumTasks returns M.
func (p *ProblemInputs) NumTasks() int { return len(p.Tasks) }

// NumRobots returns N.
func (p *ProblemInputs) NumRobots() int { return len(p.Robots) }

// SpeciesByID resolves a robot's species, or nil if not found.
func (p *ProblemInputs) SpeciesByID(id SpeciesID) *Species {
	for i := range p.Species {
		if p.Species[i].ID == id {
			return &p.Species[i]
		}
	}
	return nil
}

// RobotSpecies resolves the species of robot index n.
func (p *ProblemInputs) RobotSpecies(n int) *Species {
	if n < 0 || n >= len(p.Robots) {
		return nil
	}
	return p.SpeciesByID(p.Robots[n].SpeciesID)
}

// Successors returns the task indices that declare predecessor m.
func (p *ProblemInputs) Successors(m TaskID) []TaskID {
	var out []TaskID
	for _, pc := range p.Precedences {
		if pc.Predecessor == m {
			out = append(out, pc.Successor)
		}
	}
	return out
}

// Validate checks the invariants from spec §3 and §7, collecting every
// violation rather than failing on the first (mirrors the pack's
// go-multierror idiom for batch-reporting input errors). The infeasible-team
// check runs only when every other check passes.
func (p *ProblemInputs) Validate() error {
	var result *multierror.Error

	m, n := p.NumTasks(), p.NumRobots()

	for i, pc := range p.Precedences {
		if int(pc.Predecessor) >= m || int(pc.Successor) >= m {
			result = multierror.Append(result, fmt.Errorf(
				"precedence[%d]: endpoint out of range (pred=%d, succ=%d, M=%d)", i, pc.Predecessor, pc.Successor, m))
		}
	}

	if p.DesiredTraits == nil || p.TeamTraits == nil {
		result = multierror.Append(result, fmt.Errorf("desired/team traits matrices must be non-nil"))
	} else {
		yr, yc := p.DesiredTraits.Dims()
		qr, qc := p.TeamTraits.Dims()
		if yc != qc {
			result = multierror.Append(result, fmt.Errorf(
				"trait dimension mismatch: Y has %d columns, Q has %d", yc, qc))
		}
		if yr != m {
			result = multierror.Append(result, fmt.Errorf(
				"desired traits matrix has %d rows, want %d (one per task)", yr, m))
		}
		if qr != n {
			result = multierror.Append(result, fmt.Errorf(
				"team traits matrix has %d rows, want %d (one per robot)", qr, n))
		}
	}

	if p.Alpha < 0 || p.Alpha > 1 {
		result = multierror.Append(result, fmt.Errorf("alpha must be in [0,1], got %f", p.Alpha))
	}

	if p.ScheduleBestMakespan > p.ScheduleWorstMakespan {
		result = multierror.Append(result, fmt.Errorf(
			"schedule_best_makespan (%f) must be <= schedule_worst_makespan (%f)",
			p.ScheduleBestMakespan, p.ScheduleWorstMakespan))
	}

	if result != nil && result.Len() > 0 {
		return result.ErrorOrNil()
	}

	// Infeasible-team check requires valid dimensions, checked last.
	if p.DesiredTraits != nil && p.TeamTraits != nil {
		allOnes := mat.NewDense(m, n, nil)
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				allOnes.Set(i, j, 1)
			}
		}
		if tme := allOnesTME(allOnes, p.DesiredTraits, p.TeamTraits); tme > 0 {
			return fmt.Errorf("infeasible team: tme(all-ones) = %f > 0, no allocation can satisfy desired traits", tme)
		}
	}

	return nil
}

// allOnesTME avoids importing internal/traits here to keep core free of
// downstream package dependencies; the all-ones feasibility precondition is
// simple enough to inline directly against gonum.
func allOnesTME(a, y, q *mat.Dense) float64 {
	m, n := a.Dims()
	_ = n
	_, t := y.Dims()
	allocated := mat.NewDense(m, t, nil)
	allocated.Mul(a, q)

	total := 0.0
	for i := 0; i < m; i++ {
		for j := 0; j < t; j++ {
			diff := y.At(i, j) - allocated.At(i, j)
			if diff > 0 {
				total += diff
			}
		}
	}
	return total
}
