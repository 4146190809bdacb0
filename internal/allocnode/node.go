// Package allocnode implements the AllocationNode DAG (spec §4.4): an
// immutable node carrying at most one incremental assignment, lazily
// materialising its allocation matrix by walking its parent chain.
package allocnode

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/elektrokombinacija/stas/internal/core"
)

// Status tracks a node's position in the search (spec §4.4).
type Status int

const (
	StatusNew Status = iota
	StatusOpen
	StatusClosed
	StatusDeadEnd
	StatusPruned
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusDeadEnd:
		return "dead-end"
	case StatusPruned:
		return "pruned"
	default:
		return "new"
	}
}

// Node is one point in the allocation search DAG. Root nodes carry explicit
// dimensions and no assignment; non-root nodes carry one assignment plus an
// owning reference to their parent.
type Node struct {
	ID             uint64
	Parent         *Node
	LastAssignment *core.Assignment // nil for the root

	rootM, rootN int // only meaningful on the root

	Status    Status
	Heuristic float64
	APR       *float64
	NSQ       *float64
	Schedule  *core.Schedule
}

var nextID uint64

// NewRoot builds the root node for an M x N allocation space.
func NewRoot(m, n int) *Node {
	nextID++
	return &Node{ID: nextID, rootM: m, rootN: n, Status: StatusNew}
}

// NewChild builds a non-root node appending one assignment to parent's path.
func NewChild(parent *Node, assignment core.Assignment) *Node {
	nextID++
	return &Node{ID: nextID, Parent: parent, LastAssignment: &assignment, Status: StatusNew}
}

// Dims returns (M, N), inherited from the root along the parent chain.
func (n *Node) Dims() (int, int) {
	cur := n
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur.rootM, cur.rootN
}

// SetRootDims updates the root's dimensions in place, used by repair when
// the problem grows new tasks/robots (spec §4.8 step 2). It may be called on
// any node: it walks the parent chain and updates the root it finds.
func (n *Node) SetRootDims(m, newN int) {
	root := n
	for root.Parent != nil {
		root = root.Parent
	}
	root.rootM, root.rootN = m, newN
}

// Allocation materialises the dense M x N matrix by walking the parent
// chain and setting one cell per assignment found (spec §4.4, O(depth)).
func (n *Node) Allocation() *core.Allocation {
	m, num := n.Dims()
	alloc := core.NewAllocation(m, num)
	n.collect(alloc)
	return alloc
}

func (n *Node) collect(alloc *core.Allocation) {
	if n.Parent != nil {
		n.Parent.collect(alloc)
	}
	if n.LastAssignment != nil {
		alloc.Set(n.LastAssignment.Task, n.LastAssignment.Robot)
	}
}

// Depth returns the number of assignments on this node's path.
func (n *Node) Depth() int {
	d := 0
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		d++
	}
	return d
}

// Path returns the assignments on this node's path, root-to-leaf order.
func (n *Node) Path() []core.Assignment {
	path := make([]core.Assignment, 0, n.Depth())
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		path = append(path, *cur.LastAssignment)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Assigned reports whether robot is already assigned to task anywhere on
// this node's path (spec §3: "each cell is set to 1 at most once").
func (n *Node) Assigned(task core.TaskID, robot core.RobotID) bool {
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		if cur.LastAssignment.Task == task && cur.LastAssignment.Robot == robot {
			return true
		}
	}
	return false
}

// Hash satisfies spec §4.4's weak hash contract: equal allocation matrices
// must hash equal. Two nodes reaching the same matrix via different
// assignment orders collapse to the same hash because the path is sorted
// before hashing.
func (n *Node) Hash() uint64 {
	path := n.Path()
	sort.Slice(path, func(i, j int) bool {
		if path[i].Task != path[j].Task {
			return path[i].Task < path[j].Task
		}
		return path[i].Robot < path[j].Robot
	})
	h := fnv.New64a()
	for _, a := range path {
		fmt.Fprintf(h, "%d:%d;", a.Task, a.Robot)
	}
	return h.Sum64()
}

// Equal compares materialised allocation matrices.
func (n *Node) Equal(other *Node) bool {
	a, b := n.Allocation(), other.Allocation()
	if a.M != b.M || a.N != b.N {
		return false
	}
	for m := 0; m < a.M; m++ {
		for robot := 0; robot < a.N; robot++ {
			if a.Get(core.TaskID(m), core.RobotID(robot)) != b.Get(core.TaskID(m), core.RobotID(robot)) {
				return false
			}
		}
	}
	return true
}
