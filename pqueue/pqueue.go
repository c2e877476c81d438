// Package pqueue implements §4.B: a triply-banded bounded FIFO (Low, Normal,
// and a combined High+Critical top band). Capacity is enforced across all
// bands combined; dequeue always drains the highest non-empty band first,
// FIFO within a band, with Critical draining strictly ahead of High within
// the top band regardless of arrival order.
//
// Grounded on the teacher's transport stream-bundler buffering discipline
// (mutex + condition-variable-style blocking with a bounded backlog) for the
// blocking enqueue/dequeue shape, generalized from a single FIFO to three
// priority bands.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package pqueue

import (
	"container/list"
	"sync"
	"time"

	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/msg"
)

// band maps a msg.Priority onto one of four internal FIFO lists. Critical and
// High are logically the "top band" of §4.A/§4.B, but Critical must always
// drain ahead of High regardless of arrival order (property #3), so they are
// kept as two separate lists and merged only for external reporting via
// PeekCountPerBand.
type band int

const (
	bandLow band = iota
	bandNormal
	bandHigh
	bandCritical
	numBands
)

func bandOf(p msg.Priority) band {
	switch p {
	case msg.Low:
		return bandLow
	case msg.Normal:
		return bandNormal
	case msg.Critical:
		return bandCritical
	default: // High
		return bandHigh
	}
}

// Queue is a bounded FIFO with three priority bands, protected by a single
// mutex shared with its two condition variables, per §5 ("every Queue is
// protected by the same mutex that guards its condition variables").
type Queue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	bands    [numBands]list.List
	capacity int
	size     int
	closed   bool
}

// New creates a Queue with the given capacity (must be >= 1).
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue{capacity: capacity}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue places m into the band matching its priority. If blocking, waits
// on notFull until space is available, the deadline passes, or the queue is
// closed. timeout <= 0 with blocking true waits indefinitely.
func (q *Queue) Enqueue(m *msg.Message, blocking bool, timeout time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return cos.ErrClosed
	}
	if q.size >= q.capacity {
		if !blocking {
			return cos.ErrQueueFull
		}
		if !q.waitNotFull(timeout) {
			if q.closed {
				return cos.ErrClosed
			}
			return cos.ErrTimeout
		}
	}
	if q.closed {
		return cos.ErrClosed
	}

	q.bands[bandOf(m.Priority())].PushBack(m)
	q.size++
	q.notEmpty.Signal()
	return nil
}

// Dequeue drains the highest non-empty band first, FIFO within a band. Once
// closed, Dequeue continues to drain remaining messages, then returns
// ClosedAndEmpty.
func (q *Queue) Dequeue(blocking bool, timeout time.Duration) (*msg.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		if q.closed {
			return nil, cos.ErrClosedAndEmpty
		}
		if !blocking {
			return nil, cos.ErrQueueEmpty
		}
		if !q.waitNotEmpty(timeout) {
			if q.closed && q.size == 0 {
				return nil, cos.ErrClosedAndEmpty
			}
			return nil, cos.ErrTimeout
		}
		if q.size == 0 && q.closed {
			return nil, cos.ErrClosedAndEmpty
		}
	}

	for b := numBands - 1; b >= 0; b-- {
		if e := q.bands[b].Front(); e != nil {
			q.bands[b].Remove(e)
			q.size--
			q.notFull.Signal()
			return e.Value.(*msg.Message), nil
		}
	}
	// unreachable: q.size > 0 implies some band is non-empty
	return nil, cos.ErrQueueEmpty
}

// waitNotFull blocks on notFull until space frees up, the queue closes, or
// timeout elapses (0 or negative means wait indefinitely). sync.Cond has no
// native timed wait, so a watcher goroutine performs the timed wake, the
// same workaround the teacher uses around condition variables in places that
// need a deadline (see transport's send-side backpressure wait).
func (q *Queue) waitNotFull(timeout time.Duration) bool {
	return q.waitCond(q.notFull, timeout, func() bool { return q.closed || q.size < q.capacity })
}

func (q *Queue) waitNotEmpty(timeout time.Duration) bool {
	return q.waitCond(q.notEmpty, timeout, func() bool { return q.closed || q.size > 0 })
}

// waitCond waits on c until ready() holds. With a positive timeout, a timer
// sets expired and broadcasts c, so the loop below returns false once the
// deadline has passed.
func (q *Queue) waitCond(c *sync.Cond, timeout time.Duration, ready func() bool) bool {
	if timeout <= 0 {
		for !ready() {
			c.Wait()
		}
		return true
	}

	deadline := time.Now().Add(timeout)
	expired := false
	timer := time.AfterFunc(timeout, func() {
		q.mu.Lock()
		expired = true
		q.mu.Unlock()
		c.Broadcast()
	})
	defer timer.Stop()

	for !ready() {
		if expired || !time.Now().Before(deadline) {
			return false
		}
		c.Wait()
	}
	return true
}

// Close marks the queue closed and wakes every waiter; remaining messages
// are left in place for Dequeue to drain (and are destroyed by the owning
// Channel, per §4.B's lifecycle note).
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

func (q *Queue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the total number of queued messages across all bands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// PeekCountPerBand returns {low, normal, high+critical} counts.
func (q *Queue) PeekCountPerBand() [3]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return [3]int{q.bands[bandLow].Len(), q.bands[bandNormal].Len(), q.bands[bandHigh].Len() + q.bands[bandCritical].Len()}
}

// Drain removes and destroys every remaining message, for use when a Channel
// that owns this Queue is itself destroyed.
func (q *Queue) Drain() {
	q.mu.Lock()
	var leftover []*msg.Message
	for b := range q.bands {
		for e := q.bands[b].Front(); e != nil; e = e.Next() {
			leftover = append(leftover, e.Value.(*msg.Message))
		}
		q.bands[b].Init()
	}
	q.size = 0
	q.mu.Unlock()
	for _, m := range leftover {
		m.Destroy()
	}
}
