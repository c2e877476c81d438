package mem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocReturnsRequestedLength(t *testing.T) {
	a := NewArena(0)
	buf, err := a.Alloc(100)
	require.NoError(t, err)
	require.Len(t, buf, 100)
}

func TestAllocAboveLargestClassBypassesPool(t *testing.T) {
	a := NewArena(0)
	buf, err := a.Alloc(1 << 20)
	require.NoError(t, err)
	require.Len(t, buf, 1<<20)
}

func TestAllocOverCeilingFails(t *testing.T) {
	a := NewArena(64)
	_, err := a.Alloc(128)
	require.ErrorIs(t, err, ErrAllocTooLarge)
}

func TestFreeReturnsBufferToPoolForReuse(t *testing.T) {
	a := NewArena(0)
	buf, err := a.Alloc(50)
	require.NoError(t, err)
	copy(buf, []byte("hello world, this fits in the 64-byte class"))
	a.Free(buf)

	buf2, err := a.Alloc(50)
	require.NoError(t, err)
	require.Len(t, buf2, 50)
}

func TestReallocGrowsAndCopiesContent(t *testing.T) {
	a := NewArena(0)
	buf, err := a.Alloc(4)
	require.NoError(t, err)
	copy(buf, []byte("abcd"))

	grown, err := a.Realloc(buf, 4096)
	require.NoError(t, err)
	require.Len(t, grown, 4096)
	require.Equal(t, []byte("abcd"), grown[:4])
}

func TestStatsTracksAllocsAndFrees(t *testing.T) {
	a := NewArena(0)
	buf, err := a.Alloc(10)
	require.NoError(t, err)
	a.Free(buf)

	s := a.Stats()
	require.EqualValues(t, 1, s.Allocs)
	require.EqualValues(t, 1, s.Frees)
}

func TestFreeOfNilIsNoOp(t *testing.T) {
	a := NewArena(0)
	require.NotPanics(t, func() { a.Free(nil) })
}
