// Package mem is the concrete stand-in for §6's external "Allocator surface":
// Alloc/Realloc/Free/Stats over a small set of sync.Pool size-classes.
// Adapted from the teacher's memsys.MMSA slab allocator (see memsys/a_test.go
// for the API shape this mirrors: `mem.Init(0)`, `mem.Free(buf)`), simplified
// from raw slab/mmap management to stdlib sync.Pool size classes, since this
// module has no need to bypass the Go allocator the way a slab allocator
// fronting real page-aligned syscalls does.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package mem

import (
	"sync"
	"sync/atomic"

	"github.com/darragh-downey/goo-messaging/cmn/cos"
)

// size classes, matching typical small-message payload sizes
var classes = [...]int{64, 256, 1024, 4096, 16384, 65536}

// ErrAllocTooLarge is returned when a requested size exceeds the arena's
// configured ceiling — the one out-of-memory-shaped failure a pool-backed
// allocator can actually produce.
var ErrAllocTooLarge = cos.NewResourceError("allocation exceeds arena ceiling", nil)

type ArenaStats struct {
	Allocs   int64
	Frees    int64
	Bytes    int64 // currently outstanding (allocated - freed), best-effort
	MaxAlloc int64 // ceiling, 0 == unbounded
}

// Arena is a size-classed pool of reusable byte buffers.
type Arena struct {
	pools    [len(classes)]sync.Pool
	maxAlloc int64
	allocs   atomic.Int64
	frees    atomic.Int64
	bytes    atomic.Int64
}

// NewArena builds an Arena. maxAlloc of 0 means unbounded.
func NewArena(maxAlloc int64) *Arena {
	a := &Arena{maxAlloc: maxAlloc}
	for i, sz := range classes {
		sz := sz
		a.pools[i].New = func() any { return make([]byte, 0, sz) }
	}
	return a
}

func classFor(n int) int {
	for i, sz := range classes {
		if n <= sz {
			return i
		}
	}
	return -1
}

// Alloc returns a buffer with length n. Buffers larger than the largest size
// class, or exceeding the configured ceiling, bypass the pool entirely (or
// fail, if over the ceiling).
func (a *Arena) Alloc(n int) ([]byte, error) {
	if a.maxAlloc > 0 && int64(n) > a.maxAlloc {
		return nil, ErrAllocTooLarge
	}
	a.allocs.Add(1)
	a.bytes.Add(int64(n))
	idx := classFor(n)
	if idx < 0 {
		return make([]byte, n), nil
	}
	buf := a.pools[idx].Get().([]byte)
	if cap(buf) < n {
		buf = make([]byte, classes[idx])
	}
	return buf[:n], nil
}

// Realloc grows or shrinks buf to newSize, copying existing content.
func (a *Arena) Realloc(buf []byte, newSize int) ([]byte, error) {
	if newSize <= cap(buf) {
		return buf[:newSize], nil
	}
	nb, err := a.Alloc(newSize)
	if err != nil {
		return nil, err
	}
	copy(nb, buf)
	a.Free(buf)
	return nb, nil
}

// Free returns buf to its size class pool. A nil buf is a no-op.
func (a *Arena) Free(buf []byte) {
	if buf == nil {
		return
	}
	a.frees.Add(1)
	a.bytes.Add(-int64(len(buf)))
	idx := classFor(cap(buf))
	if idx < 0 {
		return
	}
	a.pools[idx].Put(buf[:0]) //nolint:staticcheck // intentional size-classed reuse
}

func (a *Arena) Stats() ArenaStats {
	return ArenaStats{
		Allocs:   a.allocs.Load(),
		Frees:    a.frees.Load(),
		Bytes:    a.bytes.Load(),
		MaxAlloc: a.maxAlloc,
	}
}

// Default is the package-level arena msg.Message uses unless a caller
// supplies its own. It is unbounded; runtime.Init builds a separate Arena
// with the configured ceiling and does not replace Default.
var Default = NewArena(0)
