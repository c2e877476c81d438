// Package channel implements §4.C (Channel) and §4.F (Pattern Engine): the
// aggregate of a priority queue, pattern-specific routing state, statistics,
// and lifecycle flags that the rest of the messaging core talks to.
//
// Grounded on the teacher's `cluster.Clu` / `xact` aggregates (a mutex-
// guarded struct combining a data path, a state machine, and a stats block)
// for the overall shape of Channel, and on the teacher's `stats` package for
// the monotonic-counter snapshot idiom adapted below into Stats/Snapshot.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package channel

import (
	"sync"
	"time"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/msg"
	"github.com/darragh-downey/goo-messaging/pqueue"
	"github.com/darragh-downey/goo-messaging/registry"
	"github.com/darragh-downey/goo-messaging/transport"
)

// Pattern selects which Pattern Engine contract a Channel follows.
type Pattern int

const (
	Normal Pattern = iota
	Pub
	Sub
	Push
	Pull
	Req
	Rep
	Dealer
	Router
	Pair
	Broadcast
)

// Options is the §3 bitset.
type Options uint32

const (
	Blocking Options = 1 << iota
	NonBlocking
	Buffered
	Unbuffered
	Reliable
	Distributed
	Local
	Secure
	Multicast
	HighWater
	Conflate
	Priority
)

func (o Options) has(f Options) bool { return o&f != 0 }

// Stats mirrors §3's monotonic counters.
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	BytesSent        int64
	BytesReceived    int64
	SendErrors       int64
	ReceiveErrors    int64
	Dropped          int64
	Retried          int64
	CurrentQueueSize int64
	MaxQueueSize     int64
}

type statsBox struct {
	mu sync.Mutex
	s  Stats
}

func (b *statsBox) snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.s
}

func (b *statsBox) reset() {
	b.mu.Lock()
	b.s = Stats{}
	b.mu.Unlock()
}

// subscription is one Sub topic filter.
type subscription struct {
	topic    string
	callback func(*msg.Message)
}

// Channel is the unit of addressability described in §4.C.
type Channel struct {
	mu sync.Mutex

	pattern     Pattern
	options     Options
	elementSize int
	queue       pqueue.Interface

	subscriptions  []subscription
	cuckooFilter   *cuckoo.Filter // fast-miss pre-check once len(subscriptions) grows large
	subscribers    []*Channel // weak: Pub's fan-out targets
	pendingRequest *msg.Message
	receivers      []*Channel // weak: Broadcast's fan-out targets

	endpoints     []*transport.Endpoint
	peerEndpoint  *transport.Endpoint // Rep/Pair server: the single accepted peer connection to reply on
	isDistributed bool

	pushIdx int // Push round-robin cursor over endpoints

	stats         statsBox
	highWaterMark int64
	lowWaterMark  int64
	timeout       time.Duration

	closed  bool
	errored bool

	waitingSenders   int
	waitingReceivers int

	registry *registry.Registry
	address  string // bound/connected address, for registry cleanup on close

	pairConnected bool // Pair: true once a socket Bind or Connect has succeeded
}

// Create allocates a Channel per §4.C: a banded Queue when Buffered (the
// default), a zero-capacity Rendezvous when Unbuffered, blocking semantics
// per options, and (for patterns that are inherently distributed) marks
// isDistributed without creating endpoints yet. c.queue is never nil: an
// Unbuffered channel is spec-legal and still sends/receives, it just never
// holds a message outside of a direct handoff.
func Create(pattern Pattern, elementSize, capacity int, options Options) *Channel {
	c := &Channel{
		pattern:       pattern,
		options:       options,
		elementSize:   elementSize,
		timeout:       0,
		lowWaterMark:  0,
		highWaterMark: -1, // unset
	}
	if options.has(Unbuffered) && !options.has(Buffered) {
		c.queue = pqueue.NewRendezvous()
	} else {
		if capacity < 1 {
			capacity = 1
		}
		c.queue = pqueue.New(capacity)
	}
	switch pattern {
	case Pub, Sub, Push, Pull, Req, Rep, Dealer, Router, Pair:
		c.isDistributed = options.has(Distributed)
	}
	return c
}

// WithRegistry binds the registry this channel's Inproc endpoints resolve
// through; used by runtime.Init to wire a single process-wide registry.
func (c *Channel) WithRegistry(r *registry.Registry) *Channel {
	c.registry = r
	return c
}

func (c *Channel) Pattern() Pattern { return c.pattern }
func (c *Channel) Options() Options { return c.options }

func (c *Channel) blocking(flags msg.Flags) bool {
	if flags&msg.NonBlock != 0 {
		return false
	}
	return !c.options.has(NonBlocking)
}

// SendMessage is the pattern-agnostic entry point used directly by Normal
// and as the mechanical primitive the per-pattern files in this package
// build on. It implements msg.ReplyTo so a Message's reply_to can point
// straight at a Channel.
//
// Req, Rep, and Pair correlate one request to one reply on a single
// connection rather than routing both directions through the local queue:
// when this channel has a direct peer connection (a Req/Pair client's own
// dialed endpoint, or a Rep/Pair server's accepted peerEndpoint), send goes
// straight out that connection. Every other pattern enqueues locally, the
// same path a listener loop or registry queue also feeds.
func (c *Channel) SendMessage(m *msg.Message) error {
	if ep := c.directPeer(); ep != nil {
		_, err := ep.Send(m.Payload())
		c.stats.mu.Lock()
		if err != nil {
			c.stats.s.SendErrors++
		} else {
			c.stats.s.MessagesSent++
			c.stats.s.BytesSent += int64(len(m.Payload()))
		}
		c.stats.mu.Unlock()
		return err
	}
	return c.enqueueLocal(m, c.blocking(m.Flags()))
}

// directPeer returns the single connection a Req/Rep/Pair channel should
// address directly, or nil if this channel routes through its local queue
// instead (every other pattern, or a Req/Pair channel that hasn't
// connected/accepted yet).
func (c *Channel) directPeer() *transport.Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.pattern {
	case Req:
		if len(c.endpoints) > 0 {
			return c.endpoints[0]
		}
	case Rep:
		if c.peerEndpoint != nil {
			return c.peerEndpoint
		}
	case Pair:
		if len(c.endpoints) > 0 {
			return c.endpoints[0] // client side: dialed directly
		}
		if c.peerEndpoint != nil {
			return c.peerEndpoint // server side: accepted peer
		}
	}
	return nil
}

func (c *Channel) enqueueLocal(m *msg.Message, blocking bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.stats.mu.Lock()
		c.stats.s.SendErrors++
		c.stats.mu.Unlock()
		return cos.ErrClosed
	}
	q := c.queue
	c.waitingSenders++
	c.mu.Unlock()

	err := q.Enqueue(m, blocking, c.timeout)

	c.mu.Lock()
	c.waitingSenders--
	c.mu.Unlock()

	c.stats.mu.Lock()
	if err != nil {
		c.stats.s.SendErrors++
	} else {
		c.stats.s.MessagesSent++
		c.stats.s.BytesSent += int64(len(m.Payload()))
		c.stats.s.CurrentQueueSize = int64(q.Len())
		if c.stats.s.CurrentQueueSize > c.stats.s.MaxQueueSize {
			c.stats.s.MaxQueueSize = c.stats.s.CurrentQueueSize
		}
	}
	c.stats.mu.Unlock()
	return err
}

// ReceiveMessage dequeues the next Message per §4.C's blocking semantics.
// A Req channel with a direct peer connection reads its reply straight off
// that connection rather than the local queue, mirroring SendMessage.
func (c *Channel) ReceiveMessage(flags msg.Flags) (*msg.Message, error) {
	if c.pattern == Req {
		if ep := c.directPeer(); ep != nil {
			data, err := ep.Receive()
			c.stats.mu.Lock()
			if err != nil {
				c.stats.s.ReceiveErrors++
			} else {
				c.stats.s.MessagesReceived++
				c.stats.s.BytesReceived += int64(len(data))
			}
			c.stats.mu.Unlock()
			if err != nil {
				return nil, err
			}
			return msg.Create(msg.Binary, data, msg.Reply)
		}
	}

	c.mu.Lock()
	q := c.queue
	blocking := c.blocking(flags)
	c.waitingReceivers++
	c.mu.Unlock()

	m, err := q.Dequeue(blocking, c.timeout)

	c.mu.Lock()
	c.waitingReceivers--
	c.mu.Unlock()

	c.stats.mu.Lock()
	if err != nil {
		if err != cos.ErrQueueEmpty && err != cos.ErrTimeout {
			c.stats.s.ReceiveErrors++
		}
	} else {
		c.stats.s.MessagesReceived++
		c.stats.s.BytesReceived += int64(len(m.Payload()))
		c.stats.s.CurrentQueueSize = int64(q.Len())
	}
	c.stats.mu.Unlock()
	return m, err
}

// Send is the byte-oriented convenience wrapper over SendMessage.
func (c *Channel) Send(data []byte, flags msg.Flags) error {
	m, err := msg.Create(msg.Binary, data, flags)
	if err != nil {
		return err
	}
	return c.SendMessage(m)
}

// Receive is the byte-oriented convenience wrapper over ReceiveMessage.
func (c *Channel) Receive(flags msg.Flags) ([]byte, error) {
	m, err := c.ReceiveMessage(flags)
	if err != nil {
		return nil, err
	}
	return m.Payload(), nil
}

// Stats returns a point-in-time snapshot of this channel's counters.
func (c *Channel) Stats() Stats { return c.stats.snapshot() }

// ResetStats zeroes every counter.
func (c *Channel) ResetStats() { c.stats.reset() }

func (c *Channel) SetHighWaterMark(hwm int64) {
	c.mu.Lock()
	c.highWaterMark = hwm
	c.mu.Unlock()
}

func (c *Channel) SetTimeout(d time.Duration) {
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

func (c *Channel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Channel) IsErrored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errored
}

// setErrored flips the errored flag; called by endpoint failure paths. It
// never closes the channel.
func (c *Channel) setErrored(v bool) {
	c.mu.Lock()
	c.errored = v
	c.mu.Unlock()
}

// Close implements §4.C's close(): sets closed, closes the owned queue,
// shuts down endpoints and listener tasks, and wakes all waiters.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	q := c.queue
	eps := c.endpoints
	c.endpoints = nil
	addr := c.address
	reg := c.registry
	c.mu.Unlock()

	q.Close()
	for _, ep := range eps {
		_ = ep.Close()
	}
	if reg != nil && addr != "" {
		reg.Remove(addr)
	}
	return nil
}

// Destroy closes the channel (if not already closed) and releases any
// messages left in its queue, per §4.B's "destroyed when the Channel is
// destroyed" lifecycle note.
func (c *Channel) Destroy() {
	_ = c.Close()
	c.mu.Lock()
	q := c.queue
	c.mu.Unlock()
	q.Drain()
}
