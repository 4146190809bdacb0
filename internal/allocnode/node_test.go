package allocnode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/stas/internal/core"
)

func TestAllocationMaterializesParentChain(t *testing.T) {
	root := NewRoot(2, 2)
	child1 := NewChild(root, core.Assignment{Task: 0, Robot: 0})
	child2 := NewChild(child1, core.Assignment{Task: 1, Robot: 1})

	alloc := child2.Allocation()
	require.True(t, alloc.Get(0, 0))
	require.True(t, alloc.Get(1, 1))
	require.False(t, alloc.Get(0, 1))
	require.False(t, alloc.Get(1, 0))
}

func TestHashEqualForEqualAllocations(t *testing.T) {
	root := NewRoot(2, 2)
	a := NewChild(NewChild(root, core.Assignment{Task: 0, Robot: 0}), core.Assignment{Task: 1, Robot: 1})
	b := NewChild(NewChild(root, core.Assignment{Task: 1, Robot: 1}), core.Assignment{Task: 0, Robot: 0})

	require.Equal(t, a.Hash(), b.Hash())
	require.True(t, a.Equal(b))
}

func TestAssignedDetectsPathMembership(t *testing.T) {
	root := NewRoot(2, 2)
	child := NewChild(root, core.Assignment{Task: 0, Robot: 0})
	require.True(t, child.Assigned(0, 0))
	require.False(t, child.Assigned(0, 1))
}

func TestSetRootDimsUpdatesDescendants(t *testing.T) {
	root := NewRoot(1, 1)
	child := NewChild(root, core.Assignment{Task: 0, Robot: 0})
	child.SetRootDims(2, 2)

	m, n := child.Dims()
	require.Equal(t, 2, m)
	require.Equal(t, 2, n)
}
