// Package hk provides a mechanism for registering cleanup functions invoked
// at specified intervals: idle-connection teardown in transport, stale
// inproc registry entries, periodic stats logging.
//
// Adapted from the teacher's hk package (same doc-comment intent) and its
// transport/collect.go stream collector, which schedules per-item ticks on a
// container/heap min-heap rather than one time.Timer per item.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package hk

import (
	"container/heap"
	"time"

	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/cmn/debug"
)

const dfltTick = time.Second

type entry struct {
	name   string
	fn     func() time.Duration // returns the delay until next run; <=0 unregisters
	ticks  int64                // ticks (in dfltTick units) until next run
	index  int
}

type ctrl struct {
	e   *entry
	add bool
}

// Housekeeper runs registered entries on their own schedule from a single
// goroutine driven by a min-heap of next-due ticks, the same shape as the
// teacher's stream collector.
type Housekeeper struct {
	entries map[string]*entry
	heap    []*entry
	ctrlCh  chan ctrl
	stopCh  cos.StopCh
	ticker  *time.Ticker
}

func New() *Housekeeper {
	h := &Housekeeper{
		entries: make(map[string]*entry, 16),
		ctrlCh:  make(chan ctrl, 64),
	}
	h.stopCh.Init()
	heap.Init(h)
	return h
}

func (*Housekeeper) Name() string { return "housekeeper" }

// Reg registers fn to run after `after`, and again after whatever delay fn
// itself returns; fn returning <= 0 deregisters it.
func (h *Housekeeper) Reg(name string, fn func() time.Duration, after time.Duration) {
	e := &entry{name: name, fn: fn, ticks: ticksOf(after)}
	h.ctrlCh <- ctrl{e: e, add: true}
}

func (h *Housekeeper) Unreg(name string) {
	h.ctrlCh <- ctrl{e: &entry{name: name}, add: false}
}

func ticksOf(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	t := int64(d / dfltTick)
	if t <= 0 {
		t = 1
	}
	return t
}

// Run is the housekeeper's main loop; implements cos.Runner.
func (h *Housekeeper) Run() error {
	h.ticker = time.NewTicker(dfltTick)
	defer h.ticker.Stop()
	for {
		select {
		case <-h.ticker.C:
			h.tick()
		case c := <-h.ctrlCh:
			h.apply(c)
		case <-h.stopCh.Listen():
			return nil
		}
	}
}

func (h *Housekeeper) Stop(error) { h.stopCh.Close() }

func (h *Housekeeper) apply(c ctrl) {
	if c.add {
		if old, ok := h.entries[c.e.name]; ok {
			heap.Remove(h, old.index)
		}
		h.entries[c.e.name] = c.e
		heap.Push(h, c.e)
		return
	}
	if old, ok := h.entries[c.e.name]; ok {
		heap.Remove(h, old.index)
		delete(h.entries, c.e.name)
	}
}

func (h *Housekeeper) tick() {
	for len(h.heap) > 0 && h.heap[0].ticks <= 0 {
		e := heap.Pop(h).(*entry)
		delete(h.entries, e.name)
		next := e.fn()
		if next > 0 {
			e.ticks = ticksOf(next)
			heap.Push(h, e)
			h.entries[e.name] = e
		}
	}
	for _, e := range h.heap {
		e.ticks--
	}
}

// heap.Interface
func (h *Housekeeper) Len() int { return len(h.heap) }
func (h *Housekeeper) Less(i, j int) bool { return h.heap[i].ticks < h.heap[j].ticks }
func (h *Housekeeper) Swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
	h.heap[i].index, h.heap[j].index = i, j
}

func (h *Housekeeper) Push(x any) {
	e := x.(*entry)
	e.index = len(h.heap)
	h.heap = append(h.heap, e)
}

func (h *Housekeeper) Pop() any {
	old := h.heap
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	h.heap = old[:n-1]
	debug.Assert(e.index == n-1)
	return e
}

var _ cos.Runner = (*Housekeeper)(nil)
