// Package search implements the greedy best-first allocation search (spec
// §4.7): a deterministic, row-major expansion of internal/allocnode.Node
// guided by internal/heuristics's APR/NSQ/TETAQ and pruners, with hash-based
// de-duplication against closed and pruned sets.
package search

import (
	"context"
	"math"

	"github.com/elektrokombinacija/stas/internal/allocnode"
	"github.com/elektrokombinacija/stas/internal/core"
	"github.com/elektrokombinacija/stas/internal/heuristics"
	"github.com/elektrokombinacija/stas/internal/pqueue"
	"github.com/elektrokombinacija/stas/internal/scheduler"
	"github.com/elektrokombinacija/stas/internal/traits"
)

// Stats counts search events (spec §4.7). Deliberately wall-clock free so a
// replayed search over the same inputs produces identical statistics.
type Stats struct {
	Generated int
	Expanded  int
	Evaluated int
	Pruned    int
	DeadEnd   int
}

// Options configures an ItagsSearch. Zero values pick the spec-mandated
// defaults: MismatchGoalCheck, a lone TraitsImprovementPruner prepruner, and
// no postpruner.
type Options struct {
	GoalCheck  heuristics.GoalCheck
	Prepruner  heuristics.Pruner
	Postpruner heuristics.Pruner
	Reducer    traits.Reducer

	RetainClosed bool
	RetainPruned bool
}

// ItagsSearch owns one search's open/closed/pruned state over a fixed
// problem.
type ItagsSearch struct {
	problem  *core.ProblemInputs
	sched    *scheduler.DeterministicScheduler
	opts     Options
	reducer  traits.Reducer

	open *pqueue.Queue[uint64, float64, *allocnode.Node]

	closedIDs   map[uint64]bool
	closedNodes []*allocnode.Node
	prunedIDs   map[uint64]bool
	prunedNodes []*allocnode.Node

	root  *allocnode.Node
	stats Stats
}

// New builds a search rooted at an empty M x N allocation.
func New(p *core.ProblemInputs, sched *scheduler.DeterministicScheduler, opts Options) *ItagsSearch {
	if opts.GoalCheck == nil {
		opts.GoalCheck = heuristics.MismatchGoalCheck{Reducer: opts.Reducer}
	}
	if opts.Prepruner == nil {
		opts.Prepruner = heuristics.TraitsImprovementPruner{Reducer: opts.Reducer}
	}

	root := allocnode.NewRoot(p.NumTasks(), p.NumRobots())
	s := &ItagsSearch{
		problem:   p,
		sched:     sched,
		opts:      opts,
		reducer:   opts.Reducer,
		open:      pqueue.New[uint64, float64, *allocnode.Node](),
		closedIDs: make(map[uint64]bool),
		prunedIDs: make(map[uint64]bool),
		root:      root,
	}
	apr := heuristics.APR(root.Allocation(), p, opts.Reducer)
	root.APR = &apr
	s.open.Push(root.Hash(), heuristics.TETAQ(p.Alpha, apr, 0), root)
	return s
}

// Stats returns a snapshot of the search's event counters.
func (s *ItagsSearch) Stats() Stats { return s.stats }

// Root returns the search's root node.
func (s *ItagsSearch) Root() *allocnode.Node { return s.root }

// Problem returns the inputs this search is running against.
func (s *ItagsSearch) Problem() *core.ProblemInputs { return s.problem }

// SetProblem swaps in new inputs, used by internal/repair step 1.
func (s *ItagsSearch) SetProblem(p *core.ProblemInputs) { s.problem = p }

// IsClosed reports whether hash was closed by this search (not any parent).
func (s *ItagsSearch) IsClosed(hash uint64) bool { return s.closedIDs[hash] }

// IsPruned reports whether hash was pruned by this search (not any parent).
func (s *ItagsSearch) IsPruned(hash uint64) bool { return s.prunedIDs[hash] }

// ClosedNodes returns the retained closed set, if RetainClosed was set.
func (s *ItagsSearch) ClosedNodes() []*allocnode.Node { return s.closedNodes }

// PrunedNodes returns the retained pruned set, if RetainPruned was set.
func (s *ItagsSearch) PrunedNodes() []*allocnode.Node { return s.prunedNodes }

// OpenLen returns the number of nodes currently in the open queue.
func (s *ItagsSearch) OpenLen() int { return s.open.Len() }

// OpenNodes returns a snapshot of the open queue's payloads, for
// internal/repair's per-node refresh steps.
func (s *ItagsSearch) OpenNodes() []*allocnode.Node { return s.open.Ordered() }

// Options returns the search's configured goal check and pruners, for
// internal/repair's promotion step.
func (s *ItagsSearch) Options() Options { return s.opts }

// Evaluate computes and caches a node's APR/NSQ/TETAQ, exported for
// internal/repair's refresh procedure.
func (s *ItagsSearch) Evaluate(ctx context.Context, n *allocnode.Node) float64 {
	return s.evaluate(ctx, n)
}

// PushOpen inserts n into open at priority (a duplicate hash updates the
// existing entry), for internal/repair's promote/re-inject steps.
func (s *ItagsSearch) PushOpen(n *allocnode.Node, priority float64) {
	n.Status = allocnode.StatusOpen
	s.open.Push(n.Hash(), priority, n)
}

// Clone deep-copies a search: closed, pruned and open sets are all
// duplicated into independent containers. The nodes themselves are shared
// by pointer, so a change made to a node through one search (its Status,
// re-evaluated APR/NSQ, or the root's dimensions) is seen by the other.
// Used by internal/repair's deep-copy mode.
func (s *ItagsSearch) Clone() *ItagsSearch {
	clone := s.cloneShell()
	clone.closedIDs = make(map[uint64]bool, len(s.closedIDs))
	for k, v := range s.closedIDs {
		clone.closedIDs[k] = v
	}
	clone.closedNodes = append([]*allocnode.Node(nil), s.closedNodes...)
	clone.prunedIDs = make(map[uint64]bool, len(s.prunedIDs))
	for k, v := range s.prunedIDs {
		clone.prunedIDs[k] = v
	}
	clone.prunedNodes = append([]*allocnode.Node(nil), s.prunedNodes...)
	return clone
}

// CloneOpenOnly copies only the open queue, leaving closed/pruned empty.
// Used by internal/repair's shallow-copy mode, which reads the parent
// search's closed/pruned sets instead of duplicating them.
func (s *ItagsSearch) CloneOpenOnly() *ItagsSearch {
	return s.cloneShell()
}

func (s *ItagsSearch) cloneShell() *ItagsSearch {
	clone := &ItagsSearch{
		problem:   s.problem,
		sched:     s.sched,
		opts:      s.opts,
		reducer:   s.reducer,
		open:      pqueue.New[uint64, float64, *allocnode.Node](),
		closedIDs: make(map[uint64]bool),
		prunedIDs: make(map[uint64]bool),
		root:      s.root,
		stats:     s.stats,
	}
	for _, n := range s.open.Ordered() {
		var apr, nsq float64
		if n.APR != nil {
			apr = *n.APR
		}
		if n.NSQ != nil {
			nsq = *n.NSQ
		}
		clone.open.Push(n.Hash(), heuristics.TETAQ(clone.problem.Alpha, apr, nsq), n)
	}
	return clone
}

// FilterOpen rebuilds the open queue keeping only nodes for which keep
// returns true, used by internal/repair step 4 (lost-agent filtering).
func (s *ItagsSearch) FilterOpen(keep func(*allocnode.Node) bool) {
	all := s.open.Ordered()
	s.open = pqueue.New[uint64, float64, *allocnode.Node]()
	for _, n := range all {
		if !keep(n) {
			continue
		}
		var apr, nsq float64
		if n.APR != nil {
			apr = *n.APR
		}
		if n.NSQ != nil {
			nsq = *n.NSQ
		}
		s.open.Push(n.Hash(), heuristics.TETAQ(s.problem.Alpha, apr, nsq), n)
	}
}

// evaluate computes and caches a node's APR, NSQ and TETAQ priority.
func (s *ItagsSearch) evaluate(ctx context.Context, n *allocnode.Node) float64 {
	apr := heuristics.APR(n.Allocation(), s.problem, s.reducer)
	nsq := heuristics.NSQ(ctx, s.sched, s.problem, n.Allocation())
	n.APR = &apr
	n.NSQ = &nsq
	return heuristics.TETAQ(s.problem.Alpha, apr, nsq)
}

// generateChildren returns one child per (task, robot) pair not already
// assigned on n's path, in deterministic row-major (task-major) order.
func generateChildren(n *allocnode.Node, m, nRobots int) []*allocnode.Node {
	var children []*allocnode.Node
	for t := 0; t < m; t++ {
		for r := 0; r < nRobots; r++ {
			task, robot := core.TaskID(t), core.RobotID(r)
			if n.Assigned(task, robot) {
				continue
			}
			children = append(children, allocnode.NewChild(n, core.Assignment{Task: task, Robot: robot}))
		}
	}
	return children
}

// Run executes the greedy best-first loop (spec §4.7 steps 1-7) until a
// goal is found, the open queue empties, or ctx is done (cooperative
// timeout, checked once per iteration). It returns the goal node, or nil if
// none was found.
func (s *ItagsSearch) Run(ctx context.Context) (*allocnode.Node, error) {
	m, n := s.problem.NumTasks(), s.problem.NumRobots()

	for {
		if s.open.Len() == 0 {
			return nil, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, nil
		}

		_, _, node, ok := s.open.Pop()
		if !ok {
			return nil, nil
		}
		node.Status = allocnode.StatusClosed
		s.closedIDs[node.Hash()] = true
		if s.opts.RetainClosed {
			s.closedNodes = append(s.closedNodes, node)
		}

		if s.opts.GoalCheck.Achieved(node.Allocation(), s.problem) {
			return node, nil
		}

		children := generateChildren(node, m, n)
		for _, child := range children {
			s.stats.Generated++

			hash := child.Hash()
			if s.closedIDs[hash] || s.prunedIDs[hash] {
				continue
			}

			if s.opts.Prepruner.Prune(node, child, s.problem) {
				s.markPruned(child)
				continue
			}

			priority := s.evaluate(ctx, child)
			s.stats.Evaluated++
			if math.IsInf(priority, 1) {
				s.stats.DeadEnd++
			}

			if s.opts.Postpruner != nil && s.opts.Postpruner.Prune(node, child, s.problem) {
				s.markPruned(child)
				continue
			}

			child.Status = allocnode.StatusOpen
			s.open.Push(hash, priority, child)
		}

		s.stats.Expanded++
	}
}

func (s *ItagsSearch) markPruned(n *allocnode.Node) {
	n.Status = allocnode.StatusPruned
	s.prunedIDs[n.Hash()] = true
	s.stats.Pruned++
	if s.opts.RetainPruned {
		s.prunedNodes = append(s.prunedNodes, n)
	}
}
