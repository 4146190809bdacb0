// Package repair implements D-ITAGS (spec §4.8): salvage of a prior
// ItagsSearch's open/closed/pruned frontiers under localised problem
// changes, instead of restarting the search from an empty root.
package repair

import (
	"context"

	"github.com/elektrokombinacija/stas/internal/allocnode"
	"github.com/elektrokombinacija/stas/internal/core"
	"github.com/elektrokombinacija/stas/internal/oracle"
	"github.com/elektrokombinacija/stas/internal/search"
)

// ChangeSet describes one localised problem change driving a repair call
// (spec §4.8 "Problem changes accepted").
type ChangeSet struct {
	NewInputs *core.ProblemInputs

	// PreviousBest is the prior search's goal node, re-injected into open
	// to guarantee monotonic improvement-or-equal (step 3).
	PreviousBest *allocnode.Node

	LostRobots []core.RobotID
	NewRobots  []core.RobotID

	// MapChanged invalidates affected oracle cache entries and marks NSQ
	// stale (step 5). ChangedSpecies names which species' cached plans are
	// no longer trustworthy; empty invalidates every species.
	MapChanged     bool
	ChangedSpecies []core.SpeciesID

	// CoverageImproved marks that traits went up or requirements went down,
	// so closed/pruned goal candidates may now qualify (step 6).
	CoverageImproved bool

	// CoverageWorsened and ScheduleTouched mark which open nodes need their
	// APR/NSQ refreshed (steps 7-8).
	CoverageWorsened bool
	ScheduleTouched  bool
}

// DitagsSearch wraps an *search.ItagsSearch with the staleness bookkeeping
// and parent-chain lookups D-ITAGS needs (spec §4.8). A zero-value parent
// means the search owns its closed/pruned sets outright (a "deep" search or
// the original, unrepaired search); a non-nil parent means this search is a
// "shallow" copy whose closed/pruned sets are read through the chain.
type DitagsSearch struct {
	*search.ItagsSearch

	parent *DitagsSearch
	oracle *oracle.Oracle

	aprStaleClosed bool
	nsqStaleClosed bool
	aprStalePruned bool
	nsqStalePruned bool
}

// NewDeep duplicates base's open, closed and pruned sets into a new search
// (spec §4.8 "Deep copy"). The nodes are shared with base, not copied, so
// Refresh's root-dimension update and node re-evaluation also change the
// nodes base holds.
func NewDeep(base *search.ItagsSearch, o *oracle.Oracle) *DitagsSearch {
	return &DitagsSearch{ItagsSearch: base.Clone(), oracle: o}
}

// NewShallow clones only base's open queue; closed/pruned lookups fall
// through to parent (spec §4.8 "Shallow copy"). parent must outlive the
// returned search: it is held as an owning Go reference, not a raw pointer,
// so there is nothing to dangle as long as the caller keeps both alive
// (spec §9's redesign note on the original's raw parent pointer).
func NewShallow(base *search.ItagsSearch, parent *DitagsSearch, o *oracle.Oracle) *DitagsSearch {
	return &DitagsSearch{ItagsSearch: base.CloneOpenOnly(), parent: parent, oracle: o}
}

// IsClosed reports whether hash was closed by this search or any ancestor.
func (d *DitagsSearch) IsClosed(hash uint64) bool {
	if d.ItagsSearch.IsClosed(hash) {
		return true
	}
	return d.parent != nil && d.parent.IsClosed(hash)
}

// IsPruned reports whether hash was pruned by this search or any ancestor.
func (d *DitagsSearch) IsPruned(hash uint64) bool {
	if d.ItagsSearch.IsPruned(hash) {
		return true
	}
	return d.parent != nil && d.parent.IsPruned(hash)
}

// AllClosedNodes walks the parent chain, newest search first.
func (d *DitagsSearch) AllClosedNodes() []*allocnode.Node {
	out := append([]*allocnode.Node(nil), d.ItagsSearch.ClosedNodes()...)
	if d.parent != nil {
		out = append(out, d.parent.AllClosedNodes()...)
	}
	return out
}

// AllPrunedNodes walks the parent chain, newest search first.
func (d *DitagsSearch) AllPrunedNodes() []*allocnode.Node {
	out := append([]*allocnode.Node(nil), d.ItagsSearch.PrunedNodes()...)
	if d.parent != nil {
		out = append(out, d.parent.AllPrunedNodes()...)
	}
	return out
}

func pathTouchesRobot(n *allocnode.Node, lost map[core.RobotID]bool) bool {
	for _, a := range n.Path() {
		if lost[a.Robot] {
			return true
		}
	}
	return false
}

// Refresh runs the ten-step refresh procedure (spec §4.8) and leaves d ready
// for Run to resume the ordinary search loop (step 10).
func (d *DitagsSearch) Refresh(ctx context.Context, c ChangeSet) {
	// Step 1: swap in new inputs.
	d.SetProblem(c.NewInputs)

	// Step 2: grow the root's dimensions.
	d.Root().SetRootDims(c.NewInputs.NumTasks(), c.NewInputs.NumRobots())

	// Step 3: re-inject the previous best solution.
	if c.PreviousBest != nil {
		priority := d.Evaluate(ctx, c.PreviousBest)
		d.PushOpen(c.PreviousBest, priority)
	}

	// Step 4: drop any open node whose path assigns a lost robot.
	if len(c.LostRobots) > 0 {
		lost := make(map[core.RobotID]bool, len(c.LostRobots))
		for _, r := range c.LostRobots {
			lost[r] = true
		}
		d.FilterOpen(func(n *allocnode.Node) bool { return !pathTouchesRobot(n, lost) })
	}

	// Step 5: invalidate affected oracle cache entries, mark NSQ stale.
	if c.MapChanged {
		if d.oracle != nil {
			if len(c.ChangedSpecies) == 0 {
				d.oracle.InvalidateAll()
			} else {
				for _, sp := range c.ChangedSpecies {
					d.oracle.InvalidateSpecies(sp)
				}
			}
		}
		d.nsqStaleClosed = true
		d.nsqStalePruned = true
	}

	// Step 6: promote qualifying closed/pruned goal nodes into open.
	if c.CoverageImproved {
		d.aprStaleClosed = true
		d.aprStalePruned = true
		for _, n := range append(d.AllClosedNodes(), d.AllPrunedNodes()...) {
			if !d.goalCheck(n) {
				continue
			}
			priority := d.Evaluate(ctx, n)
			d.PushOpen(n, priority)
		}
	}

	// Steps 7-8: recompute APR/NSQ for every retained open node whose
	// fingerprint or schedule crossed the change.
	if c.CoverageWorsened || c.ScheduleTouched || c.MapChanged || c.CoverageImproved {
		for _, n := range d.OpenNodes() {
			priority := d.Evaluate(ctx, n)
			d.PushOpen(n, priority)
		}
	}

	// Step 9: spawn children for new agents from every retained open node.
	if len(c.NewRobots) > 0 {
		m := c.NewInputs.NumTasks()
		for _, n := range d.OpenNodes() {
			for t := 0; t < m; t++ {
				for _, r := range c.NewRobots {
					task := core.TaskID(t)
					if n.Assigned(task, r) {
						continue
					}
					child := allocnode.NewChild(n, core.Assignment{Task: task, Robot: r})
					priority := d.Evaluate(ctx, child)
					d.PushOpen(child, priority)
				}
			}
		}
	}
}

func (d *DitagsSearch) goalCheck(n *allocnode.Node) bool {
	opts := d.Options()
	if opts.GoalCheck == nil {
		return false
	}
	return opts.GoalCheck.Achieved(n.Allocation(), d.Problem())
}
