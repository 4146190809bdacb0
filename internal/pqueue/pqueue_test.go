package pqueue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPopOrder(t *testing.T) {
	q := New[string, float64, int]()
	q.Push("c", 3, 3)
	q.Push("a", 1, 1)
	q.Push("b", 2, 2)

	for _, want := range []int{1, 2, 3} {
		_, _, payload, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, want, payload)
	}
	_, _, _, ok := q.Pop()
	require.False(t, ok)
}

func TestPushDuplicateKeyUpdatesInPlace(t *testing.T) {
	q := New[string, float64, string]()
	q.Push("x", 5, "old")
	require.Equal(t, 1, q.Len())
	q.Push("x", 1, "new")
	require.Equal(t, 1, q.Len())

	_, priority, payload, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 1.0, priority)
	require.Equal(t, "new", payload)
}

func TestFIFOTieBreak(t *testing.T) {
	q := New[int, float64, int]()
	for i := 0; i < 5; i++ {
		q.Push(i, 1.0, i) // all same priority
	}
	for i := 0; i < 5; i++ {
		_, _, payload, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, payload)
	}
}

func TestEraseAndContains(t *testing.T) {
	q := New[string, float64, int]()
	q.Push("a", 1, 1)
	q.Push("b", 2, 2)
	require.True(t, q.Contains("a"))
	require.True(t, q.Erase("a"))
	require.False(t, q.Contains("a"))
	require.False(t, q.Erase("a"))

	_, _, payload, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 2, payload)
}

func TestUpdateChangesPriority(t *testing.T) {
	q := New[string, float64, int]()
	q.Push("a", 10, 1)
	q.Push("b", 20, 2)
	q.Update("a", 30)

	_, _, payload, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 2, payload)
}

func TestOrderedDoesNotMutateQueue(t *testing.T) {
	q := New[string, float64, int]()
	q.Push("a", 3, 3)
	q.Push("b", 1, 1)
	q.Push("c", 2, 2)

	ordered := q.Ordered()
	require.Equal(t, []int{1, 2, 3}, ordered)
	require.Equal(t, 3, q.Len())

	_, _, payload, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 1, payload)
}
