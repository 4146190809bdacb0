package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/stas/internal/core"
	"github.com/elektrokombinacija/stas/internal/oracle"
)

// FailureReason classifies why Solve did not return a Schedule (spec §4.5
// failure taxonomy).
type FailureReason int

const (
	FailureNone FailureReason = iota
	FailureInfeasibleTransition
	FailureSolverTimeout
	FailureSolverSuboptimal
	FailureInfeasibleModel
)

func (f FailureReason) String() string {
	switch f {
	case FailureInfeasibleTransition:
		return "infeasible_transition"
	case FailureSolverTimeout:
		return "solver_timeout"
	case FailureSolverSuboptimal:
		return "solver_suboptimal"
	case FailureInfeasibleModel:
		return "infeasible_model"
	default:
		return "none"
	}
}

// globalFailureCount is the monotonic counter spec §4.5 requires across
// every scheduling attempt made by this process.
var globalFailureCount atomic.Int64

// GlobalFailureCount returns the number of scheduling failures recorded by
// any DeterministicScheduler in this process so far.
func GlobalFailureCount() int64 { return globalFailureCount.Load() }

func recordFailure() { globalFailureCount.Add(1) }

// ErrScheduling wraps a non-success outcome so callers can errors.Is/As it.
var ErrScheduling = errors.New("scheduler: scheduling failed")

// Outcome is the result of one Solve/SolveQuick call.
type Outcome struct {
	Schedule    *core.Schedule
	Transitions map[core.TransitionKey]core.TransitionInfo
	Failure     FailureReason
	Iterations  int
}

// DeterministicScheduler builds and solves the spec §4.5 model over a fixed
// allocation, using an oracle.Oracle for transition durations and a fresh
// SolverBackend per solve.
type DeterministicScheduler struct {
	oracle  *oracle.Oracle
	backend func() SolverBackend
	log     *zap.Logger
}

// New builds a scheduler. backend is a factory so each Solve/SolveQuick call
// (and each re-solve within a single call) gets a clean model. A nil logger
// falls back to a no-op logger.
func New(o *oracle.Oracle, backend func() SolverBackend, log *zap.Logger) *DeterministicScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeterministicScheduler{oracle: o, backend: backend, log: log}
}

type taskVars struct {
	start, finish VarID
}

type transitionLookup struct {
	info map[core.TransitionKey]core.TransitionInfo
}

func newTransitionLookup() *transitionLookup {
	return &transitionLookup{info: make(map[core.TransitionKey]core.TransitionInfo)}
}

// transitionDuration resolves the travel time for the slowest robot among
// shared, over the transition (from, to) between fromTask and toTask (the
// same task id for a task's own internal motion). Each robot's piece of the
// transition is priced individually against realised: a robot whose
// (fromTask, toTask, robot) key is already realised gets a real oracle
// query, any other gets the euclidean/speed heuristic underestimate
// (heuristicOnly forces every robot onto the heuristic path, used for the
// single-shot Quick variant; Solve's first iteration is all-heuristic only
// because nothing is realised yet).
func (s *DeterministicScheduler) transitionDuration(p *core.ProblemInputs, fromTask, toTask core.TaskID, from, to core.Configuration, shared []core.RobotID, heuristicOnly bool, realised map[core.TransitionKey]bool) (float64, core.TransitionStatus, error) {
	if len(shared) == 0 {
		return 0, core.TransitionNone, nil
	}
	worst := 0.0
	anyHeuristic := false
	for _, r := range shared {
		sp := p.RobotSpecies(int(r))
		if sp == nil {
			continue
		}
		key := core.TransitionKey{From: fromTask, To: toTask, Robot: r}
		heuristic := heuristicOnly || !realised[key]
		var d float64
		if heuristic {
			d = oracle.HeuristicDuration(from, to, sp.Speed)
			anyHeuristic = true
		} else {
			length, err := s.oracle.Query(sp, from, to)
			if err != nil {
				return 0, core.TransitionFailed, err
			}
			duration, derr := oracle.Duration(length, []float64{sp.Speed})
			if derr != nil {
				return 0, core.TransitionFailed, derr
			}
			d = duration
		}
		if d > worst {
			worst = d
		}
	}
	status := core.TransitionSuccess
	if anyHeuristic {
		status = core.TransitionHeuristic
	}
	return worst, status, nil
}

func intersect(a, b []core.RobotID) []core.RobotID {
	set := make(map[core.RobotID]bool, len(a))
	for _, r := range a {
		set[r] = true
	}
	var out []core.RobotID
	for _, r := range b {
		if set[r] {
			out = append(out, r)
		}
	}
	return out
}

func hasDeclaredPrecedence(p *core.ProblemInputs, i, j core.TaskID) bool {
	for _, pc := range p.Precedences {
		if (pc.Predecessor == i && pc.Successor == j) || (pc.Predecessor == j && pc.Successor == i) {
			return true
		}
	}
	return false
}

// buildModel constructs the spec §4.5 model, constraints 1-5, against
// backend, using heuristic transition durations wherever real is not yet
// known. It returns per-task variable handles and a record of every
// transition it priced, or a fatal FailureReason.
func (s *DeterministicScheduler) buildModel(p *core.ProblemInputs, alloc *core.Allocation, backend SolverBackend, heuristicOnly bool, realised map[core.TransitionKey]bool) (map[core.TaskID]taskVars, *transitionLookup, VarID, FailureReason, error) {
	backend.NewModel("stas-schedule")
	m := p.NumTasks()

	tv := make(map[core.TaskID]taskVars, m)
	finishVars := make([]VarID, 0, m)
	trans := newTransitionLookup()

	coalitions := make([][]core.RobotID, m)
	for i := 0; i < m; i++ {
		coalitions[i] = alloc.Coalition(core.TaskID(i))
	}

	// Decision variables + constraint 1 (duration) + constraint 5 (initial
	// transition).
	for i := 0; i < m; i++ {
		task := p.Tasks[i]
		startVar := backend.AddContinuousVar(fmt.Sprintf("start_%d", i), 0, math.Inf(1))
		finishVar := backend.AddContinuousVar(fmt.Sprintf("finish_%d", i), 0, math.Inf(1))
		tv[core.TaskID(i)] = taskVars{start: startVar, finish: finishVar}
		finishVars = append(finishVars, finishVar)

		coalition := coalitions[i]
		internalDur, status, err := s.transitionDuration(p, task.ID, task.ID, task.InitialConfig, task.TerminalConfig, coalition, heuristicOnly, realised)
		internalKey := core.TransitionKey{From: task.ID, To: task.ID, Robot: 0}
		if err != nil {
			trans.info[internalKey] = core.TransitionInfo{Status: core.TransitionFailed}
			return nil, nil, 0, FailureInfeasibleTransition, err
		}
		trans.info[internalKey] = core.TransitionInfo{Status: status, Duration: internalDur}
		d := task.StaticDuration + internalDur

		expr := NewExpr().Plus(finishVar, 1).Plus(startVar, -1)
		backend.AddLinearConstraint(expr, EQ, d, fmt.Sprintf("duration_%d", i))

		// Constraint 5: initial transition, max over coalition robots.
		worstInitial := 0.0
		for _, r := range coalition {
			robot := p.Robots[r]
			sp := p.RobotSpecies(int(r))
			if sp == nil {
				continue
			}
			key := core.TransitionKey{From: core.InitialTransitionFrom, To: task.ID, Robot: r}
			heuristic := heuristicOnly || !realised[key]
			var d float64
			var st core.TransitionStatus
			if heuristic {
				d = oracle.HeuristicDuration(robot.InitialConfig, task.InitialConfig, sp.Speed)
				st = core.TransitionHeuristic
			} else {
				length, err := s.oracle.Query(sp, robot.InitialConfig, task.InitialConfig)
				if err != nil {
					trans.info[key] = core.TransitionInfo{Status: core.TransitionFailed}
					return nil, nil, 0, FailureInfeasibleTransition, err
				}
				dur, derr := oracle.Duration(length, []float64{sp.Speed})
				if derr != nil {
					return nil, nil, 0, FailureInfeasibleModel, derr
				}
				d, st = dur, core.TransitionSuccess
			}
			trans.info[key] = core.TransitionInfo{Status: st, Duration: d}
			if d > worstInitial {
				worstInitial = d
			}
		}
		if worstInitial > 0 {
			backend.AddLinearConstraint(NewExpr().Plus(startVar, 1), GE, worstInitial, fmt.Sprintf("initial_%d", i))
		}
	}

	// Constraint 2: precedence.
	declared := make(map[[2]core.TaskID]bool)
	for _, pc := range p.Precedences {
		declared[[2]core.TaskID{pc.Predecessor, pc.Successor}] = true
		shared := intersect(coalitions[pc.Predecessor], coalitions[pc.Successor])
		tau, status, err := s.transitionDuration(p, pc.Predecessor, pc.Successor,
			p.Tasks[pc.Predecessor].TerminalConfig, p.Tasks[pc.Successor].InitialConfig, shared, heuristicOnly, realised)
		key := core.TransitionKey{From: pc.Predecessor, To: pc.Successor, Robot: 0}
		if err != nil {
			trans.info[key] = core.TransitionInfo{Status: core.TransitionFailed}
			return nil, nil, 0, FailureInfeasibleTransition, err
		}
		trans.info[key] = core.TransitionInfo{Status: status, Duration: tau}

		expr := NewExpr().Plus(tv[pc.Successor].start, 1).Plus(tv[pc.Predecessor].finish, -1)
		backend.AddLinearConstraint(expr, GE, tau, fmt.Sprintf("prec_%d_%d", pc.Predecessor, pc.Successor))
	}

	// Constraints 3 & 4: MP-induced precedence and the reduced mutex set.
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			ti, tj := core.TaskID(i), core.TaskID(j)
			if declared[[2]core.TaskID{ti, tj}] || declared[[2]core.TaskID{tj, ti}] {
				continue
			}
			if !alloc.SharesRobot(ti, tj) {
				continue
			}
			shared := intersect(coalitions[i], coalitions[j])

			fwdKey := core.TransitionKey{From: ti, To: tj, Robot: 0}
			bwdKey := core.TransitionKey{From: tj, To: ti, Robot: 0}
			fwd, fwdStatus, fwdErr := s.transitionDuration(p, ti, tj, p.Tasks[i].TerminalConfig, p.Tasks[j].InitialConfig, shared, heuristicOnly, realised)
			bwd, bwdStatus, bwdErr := s.transitionDuration(p, tj, ti, p.Tasks[j].TerminalConfig, p.Tasks[i].InitialConfig, shared, heuristicOnly, realised)

			fwdFeasible := fwdErr == nil
			bwdFeasible := bwdErr == nil
			if fwdFeasible {
				trans.info[fwdKey] = core.TransitionInfo{Status: fwdStatus, Duration: fwd}
			} else {
				trans.info[fwdKey] = core.TransitionInfo{Status: core.TransitionFailed}
			}
			if bwdFeasible {
				trans.info[bwdKey] = core.TransitionInfo{Status: bwdStatus, Duration: bwd}
			} else {
				trans.info[bwdKey] = core.TransitionInfo{Status: core.TransitionFailed}
			}

			switch {
			case !fwdFeasible && !bwdFeasible:
				return nil, nil, 0, FailureInfeasibleTransition, fmt.Errorf(
					"scheduler: both transition directions infeasible between tasks %d and %d", i, j)
			case !fwdFeasible:
				// only j->i works: hard precedence j before i.
				expr := NewExpr().Plus(tv[ti].start, 1).Plus(tv[tj].finish, -1)
				backend.AddLinearConstraint(expr, GE, bwd, fmt.Sprintf("mp_induced_%d_%d", j, i))
			case !bwdFeasible:
				expr := NewExpr().Plus(tv[tj].start, 1).Plus(tv[ti].finish, -1)
				backend.AddLinearConstraint(expr, GE, fwd, fmt.Sprintf("mp_induced_%d_%d", i, j))
			default:
				p_ij := backend.AddBinaryVar(fmt.Sprintf("mutex_%d_%d", i, j))
				exprTrue := NewExpr().Plus(tv[tj].start, 1).Plus(tv[ti].finish, -1)
				backend.AddIndicatorConstraint(p_ij, true, exprTrue, GE, fwd, fmt.Sprintf("mutex_%d_%d_true", i, j))
				exprFalse := NewExpr().Plus(tv[ti].start, 1).Plus(tv[tj].finish, -1)
				backend.AddIndicatorConstraint(p_ij, false, exprFalse, GE, bwd, fmt.Sprintf("mutex_%d_%d_false", i, j))
			}
		}
	}

	makespan := backend.AddContinuousVar("makespan", 0, math.Inf(1))
	backend.AddMaxAggregate(makespan, finishVars)

	if p.SchedulerParams.HierarchicalObjective {
		sumStarts := NewExpr()
		for i := 0; i < m; i++ {
			sumStarts.Plus(tv[core.TaskID(i)].start, 1)
		}
		backend.SetHierarchicalObjective(
			[]*LinearExpr{NewExpr().Plus(makespan, 1), sumStarts},
			[]ObjectiveSense{Minimize, Minimize})
	} else {
		backend.SetObjective(NewExpr().Plus(makespan, 1), Minimize)
	}

	return tv, trans, makespan, FailureNone, nil
}

// readSchedule extracts a core.Schedule and the resolved mutex ordering
// (for every pair of tasks that share a robot and have no declared
// precedence, which one starts first) from a solved backend.
func readSchedule(p *core.ProblemInputs, alloc *core.Allocation, backend SolverBackend, tv map[core.TaskID]taskVars, makespan VarID) *core.Schedule {
	m := p.NumTasks()
	timepoints := make([]core.Timepoint, m)
	for i := 0; i < m; i++ {
		v := tv[core.TaskID(i)]
		timepoints[i] = core.Timepoint{Start: backend.GetValue(v.start), Finish: backend.GetValue(v.finish)}
	}

	var mutexes []core.MutexPair
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			ti, tj := core.TaskID(i), core.TaskID(j)
			if hasDeclaredPrecedence(p, ti, tj) || !alloc.SharesRobot(ti, tj) {
				continue
			}
			if timepoints[i].Start <= timepoints[j].Start {
				mutexes = append(mutexes, core.MutexPair{First: ti, Second: tj})
			} else {
				mutexes = append(mutexes, core.MutexPair{First: tj, Second: ti})
			}
		}
	}

	return &core.Schedule{Makespan: backend.GetValue(makespan), Timepoints: timepoints, PrecedenceSetMutexConstraints: mutexes}
}

// robotSequence returns, for robot n, the tasks it is assigned to, ordered
// by solved start time.
func robotSequence(p *core.ProblemInputs, alloc *core.Allocation, sched *core.Schedule, robot core.RobotID) []core.TaskID {
	var tasks []core.TaskID
	for i := 0; i < p.NumTasks(); i++ {
		if alloc.Get(core.TaskID(i), robot) {
			tasks = append(tasks, core.TaskID(i))
		}
	}
	sort.Slice(tasks, func(a, b int) bool {
		return sched.Timepoints[tasks[a]].Start < sched.Timepoints[tasks[b]].Start
	})
	return tasks
}

// Solve runs the iterative lazy refinement procedure (spec §4.5): solve with
// heuristic transitions, realise the consecutive per-robot transitions the
// solved order actually uses, and re-solve if any were upgraded. Each
// realised transition stays realised, so this converges in at most
// len(transitions) iterations.
func (s *DeterministicScheduler) Solve(ctx context.Context, p *core.ProblemInputs, alloc *core.Allocation) (*Outcome, error) {
	realised := make(map[core.TransitionKey]bool)

	for iteration := 1; ; iteration++ {
		s.log.Debug("scheduler iteration", zap.Int("iteration", iteration), zap.Int("realised_transitions", len(realised)))
		backend := s.backend()
		tv, trans, makespan, failure, err := s.buildModel(p, alloc, backend, false, realised)
		if failure != FailureNone {
			recordFailure()
			s.log.Warn("scheduling failed during model build", zap.String("reason", failure.String()), zap.Error(err))
			return &Outcome{Failure: failure, Iterations: iteration}, err
		}

		status, err := backend.Solve(ctx)
		if err != nil {
			recordFailure()
			return &Outcome{Failure: FailureSolverTimeout, Iterations: iteration}, err
		}
		switch status {
		case StatusInfeasible:
			recordFailure()
			return &Outcome{Failure: FailureInfeasibleModel, Iterations: iteration}, ErrScheduling
		case StatusTimeout:
			recordFailure()
			return &Outcome{Failure: FailureSolverTimeout, Iterations: iteration}, ErrScheduling
		case StatusSuboptimal:
			recordFailure()
			return &Outcome{Failure: FailureSolverSuboptimal, Iterations: iteration}, ErrScheduling
		}

		sched := readSchedule(p, alloc, backend, tv, makespan)

		// Realise exactly the transitions the solved schedule actually uses:
		// each robot's own initial transition into its first task, the
		// internal motion of every task it is on, and every consecutive
		// task-to-task pair in its solved order.
		upgraded := false
		markRealised := func(key core.TransitionKey) {
			if !realised[key] {
				realised[key] = true
				upgraded = true
			}
		}
		for n := 0; n < p.NumRobots(); n++ {
			seq := robotSequence(p, alloc, sched, core.RobotID(n))
			if len(seq) > 0 {
				markRealised(core.TransitionKey{From: core.InitialTransitionFrom, To: seq[0], Robot: core.RobotID(n)})
			}
			for _, t := range seq {
				markRealised(core.TransitionKey{From: t, To: t, Robot: core.RobotID(n)})
			}
			for k := 0; k+1 < len(seq); k++ {
				markRealised(core.TransitionKey{From: seq[k], To: seq[k+1], Robot: core.RobotID(n)})
			}
		}

		// Converged once nothing new got realised: every transition the
		// solved schedule actually exercises has already been priced with a
		// real oracle query, so re-solving again would reproduce the same
		// model (some never-exercised constraint-5 slack bounds may remain
		// heuristic forever, which is harmless since they are not binding).
		if !upgraded {
			s.log.Info("scheduling converged", zap.Int("iterations", iteration), zap.Float64("makespan", sched.Makespan))
			return &Outcome{Schedule: sched, Transitions: trans.info, Failure: FailureNone, Iterations: iteration}, nil
		}
	}
}

// SolveQuick is the single-shot variant (spec §4.5): it accepts the first
// heuristic-mode MILP solution and patches start times forward by the delta
// between heuristic and realised per-robot consecutive transitions, without
// re-solving. Valid only for NSQ guidance, not for a final schedule.
func (s *DeterministicScheduler) SolveQuick(ctx context.Context, p *core.ProblemInputs, alloc *core.Allocation) (*Outcome, error) {
	backend := s.backend()
	tv, trans, makespan, failure, err := s.buildModel(p, alloc, backend, true, nil)
	if failure != FailureNone {
		recordFailure()
		return &Outcome{Failure: failure}, err
	}

	status, err := backend.Solve(ctx)
	if err != nil {
		recordFailure()
		return &Outcome{Failure: FailureSolverTimeout}, err
	}
	if status != StatusOptimal {
		recordFailure()
		reason := FailureInfeasibleModel
		if status == StatusTimeout {
			reason = FailureSolverTimeout
		} else if status == StatusSuboptimal {
			reason = FailureSolverSuboptimal
		}
		return &Outcome{Failure: reason}, ErrScheduling
	}

	sched := readSchedule(p, alloc, backend, tv, makespan)

	for n := 0; n < p.NumRobots(); n++ {
		seq := robotSequence(p, alloc, sched, core.RobotID(n))
		for k := 0; k+1 < len(seq); k++ {
			from, to := seq[k], seq[k+1]
			sp := p.RobotSpecies(n)
			if sp == nil {
				continue
			}
			realLength, err := s.oracle.Query(sp, p.Tasks[from].TerminalConfig, p.Tasks[to].InitialConfig)
			if err != nil {
				recordFailure()
				return &Outcome{Failure: FailureInfeasibleTransition}, err
			}
			real, derr := oracle.Duration(realLength, []float64{sp.Speed})
			if derr != nil {
				return nil, derr
			}
			// A real transition duration only ever pushes the downstream
			// timepoint later, never earlier: other constraints (mutex
			// orderings, precedences) were solved against the heuristic
			// schedule and are not re-checked here, so pulling a start
			// earlier than what the MILP already committed to could
			// silently violate one of them.
			candidateStart := sched.Timepoints[from].Finish + real
			if candidateStart > sched.Timepoints[to].Start {
				delta := candidateStart - sched.Timepoints[to].Start
				sched.Timepoints[to].Start += delta
				sched.Timepoints[to].Finish += delta
			}
			key := core.TransitionKey{From: from, To: to, Robot: core.RobotID(n)}
			trans.info[key] = core.TransitionInfo{Status: core.TransitionSuccess, Duration: real}
		}
	}

	makespanVal := 0.0
	for _, tp := range sched.Timepoints {
		if tp.Finish > makespanVal {
			makespanVal = tp.Finish
		}
	}
	sched.Makespan = makespanVal

	return &Outcome{Schedule: sched, Transitions: trans.info, Failure: FailureNone, Iterations: 1}, nil
}
