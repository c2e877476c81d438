package pqueue

import (
	"sync"
	"time"

	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/msg"
)

// Interface is the subset of Queue's public API that a Channel depends on.
// Buffered channels back it with a real *Queue; Unbuffered channels back it
// with a Rendezvous, so Channel never has to nil-check its queue.
type Interface interface {
	Enqueue(m *msg.Message, blocking bool, timeout time.Duration) error
	Dequeue(blocking bool, timeout time.Duration) (*msg.Message, error)
	Close()
	IsClosed() bool
	Len() int
	PeekCountPerBand() [3]int
	Drain()
}

var (
	_ Interface = (*Queue)(nil)
	_ Interface = (*Rendezvous)(nil)
)

// Rendezvous is a zero-capacity handoff queue for Unbuffered channels
// (§4.B/§4.C: an Unbuffered channel has no backing queue, but must still
// support a direct sender-to-receiver handoff rather than panicking or
// silently dropping). Enqueue blocks until a concurrent Dequeue is ready to
// take the message (or the deadline/close interrupts the handoff), matching
// the blocking rendezvous shape of an unbuffered Go channel.
type Rendezvous struct {
	handoff  chan *msg.Message
	mu       sync.Mutex
	closed   bool
	closeCh  chan struct{}
	closeOne sync.Once
}

// NewRendezvous creates a ready-to-use zero-capacity handoff queue.
func NewRendezvous() *Rendezvous {
	return &Rendezvous{
		handoff: make(chan *msg.Message),
		closeCh: make(chan struct{}),
	}
}

// Enqueue hands m directly to a waiting Dequeue. Priority is ignored: a
// rendezvous has no bands to order, since nothing is ever buffered.
func (r *Rendezvous) Enqueue(m *msg.Message, blocking bool, timeout time.Duration) error {
	if r.IsClosed() {
		return cos.ErrClosed
	}
	if !blocking {
		select {
		case r.handoff <- m:
			return nil
		case <-r.closeCh:
			return cos.ErrClosed
		default:
			return cos.ErrQueueFull
		}
	}
	if timeout <= 0 {
		select {
		case r.handoff <- m:
			return nil
		case <-r.closeCh:
			return cos.ErrClosed
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r.handoff <- m:
		return nil
	case <-r.closeCh:
		return cos.ErrClosed
	case <-timer.C:
		return cos.ErrTimeout
	}
}

// Dequeue waits for a concurrent Enqueue to hand off a message.
func (r *Rendezvous) Dequeue(blocking bool, timeout time.Duration) (*msg.Message, error) {
	if !blocking {
		select {
		case m := <-r.handoff:
			return m, nil
		case <-r.closeCh:
			return nil, cos.ErrClosedAndEmpty
		default:
			if r.IsClosed() {
				return nil, cos.ErrClosedAndEmpty
			}
			return nil, cos.ErrQueueEmpty
		}
	}
	if timeout <= 0 {
		select {
		case m := <-r.handoff:
			return m, nil
		case <-r.closeCh:
			return nil, cos.ErrClosedAndEmpty
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case m := <-r.handoff:
		return m, nil
	case <-r.closeCh:
		return nil, cos.ErrClosedAndEmpty
	case <-timer.C:
		return nil, cos.ErrTimeout
	}
}

// Close wakes every blocked Enqueue/Dequeue. A rendezvous never buffers
// anything, so there is nothing left to drain once closed.
func (r *Rendezvous) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.closeOne.Do(func() { close(r.closeCh) })
}

func (r *Rendezvous) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Len is always 0: a rendezvous never holds a message outside of an
// in-progress handoff.
func (r *Rendezvous) Len() int { return 0 }

func (r *Rendezvous) PeekCountPerBand() [3]int { return [3]int{} }

// Drain is a no-op: nothing is ever buffered in a rendezvous.
func (r *Rendezvous) Drain() {}
