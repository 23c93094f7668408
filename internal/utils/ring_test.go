package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingDropsOldest(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	assert.Equal(t, []int{3, 4, 5}, r.Items())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Cap())
}

func TestRingUnderCapacity(t *testing.T) {
	r := NewRing[string](4)
	r.Push("a")
	r.Push("b")
	assert.Equal(t, []string{"a", "b"}, r.Items())
	assert.Equal(t, 2, r.Len())
}

func TestRingItemsIsACopy(t *testing.T) {
	r := NewRing[int](2)
	r.Push(1)
	r.Push(2)

	items := r.Items()
	items[0] = 99
	require.Equal(t, []int{1, 2}, r.Items())
}

func TestRingMinimumCapacity(t *testing.T) {
	r := NewRing[int](0)
	r.Push(1)
	r.Push(2)
	assert.Equal(t, []int{2}, r.Items())
	assert.Equal(t, 1, r.Cap())
}
