package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_PushAndLen(t *testing.T) {
	b := New[int](3)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 3, b.Cap())

	b.Push(1)
	b.Push(2)
	assert.Equal(t, 2, b.Len())
	assert.False(t, b.Full())

	b.Push(3)
	assert.True(t, b.Full())
}

func TestBuffer_OverwritesOldest(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 5; i++ {
		b.Push(i)
	}

	assert.Equal(t, 3, b.Len())

	oldest, ok := b.Oldest()
	require.True(t, ok)
	assert.Equal(t, 3, oldest)

	newest, ok := b.Newest()
	require.True(t, ok)
	assert.Equal(t, 5, newest)
}

func TestBuffer_DoIteratesOldestToNewest(t *testing.T) {
	b := New[string](4)
	b.Push("a")
	b.Push("b")
	b.Push("c")
	b.Push("d")
	b.Push("e")

	var got []string
	b.Do(func(v string) { got = append(got, v) })
	assert.Equal(t, []string{"b", "c", "d", "e"}, got)
}

func TestBuffer_At(t *testing.T) {
	b := New[int](2)
	b.Push(10)
	b.Push(20)
	b.Push(30)

	assert.Equal(t, 20, b.At(0))
	assert.Equal(t, 30, b.At(1))
	assert.Panics(t, func() { b.At(2) })
}

func TestBuffer_Empty(t *testing.T) {
	b := New[float64](5)

	_, ok := b.Oldest()
	assert.False(t, ok)
	_, ok = b.Newest()
	assert.False(t, ok)

	calls := 0
	b.Do(func(float64) { calls++ })
	assert.Equal(t, 0, calls)
}

func TestBuffer_Reset(t *testing.T) {
	b := New[int](3)
	b.Push(1)
	b.Push(2)
	b.Reset()

	assert.Equal(t, 0, b.Len())
	b.Push(7)
	v, ok := b.Newest()
	require.True(t, ok)
	assert.Equal(t, 7, v)
}
