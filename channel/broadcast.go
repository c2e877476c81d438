// broadcast.go implements §4.F's Broadcast: fan-out to all registered
// receivers, like Pub without topic filtering. Shares Pub's errgroup-bounded
// fan-out threshold for the same reason: past a handful of destinations,
// sequential delivery dominates wall-clock latency.
package channel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/msg"
)

// AddReceiver registers a weak reference to a downstream channel.
func (c *Channel) AddReceiver(r *Channel) {
	c.mu.Lock()
	c.receivers = append(c.receivers, r)
	c.mu.Unlock()
}

// RemoveReceiver drops a previously registered weak reference.
func (c *Channel) RemoveReceiver(r *Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, rr := range c.receivers {
		if rr == r {
			c.receivers = append(c.receivers[:i], c.receivers[i+1:]...)
			return
		}
	}
}

// Broadcast fans data out to every registered receiver. One receiver's
// failure is counted and does not abort delivery to the rest.
func (c *Channel) Broadcast(data []byte, flags msg.Flags) error {
	if c.pattern != Broadcast {
		return cos.ErrWrongPattern
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return cos.ErrClosed
	}
	receivers := append([]*Channel(nil), c.receivers...)
	reliable := c.options.has(Reliable)
	c.mu.Unlock()

	deliver := func(r *Channel) error {
		m, err := msg.Create(msg.Binary, data, flags)
		if err != nil {
			return nil
		}
		if err := r.enqueueLocal(m, reliable); err != nil {
			c.stats.mu.Lock()
			c.stats.s.Dropped++
			c.stats.mu.Unlock()
		}
		return nil
	}

	if len(receivers) > fanoutErrgroupThreshold {
		g, _ := errgroup.WithContext(context.Background())
		g.SetLimit(runtime.GOMAXPROCS(0))
		for _, r := range receivers {
			r := r
			g.Go(func() error { return deliver(r) })
		}
		_ = g.Wait()
	} else {
		for _, r := range receivers {
			_ = deliver(r)
		}
	}

	c.stats.mu.Lock()
	c.stats.s.MessagesSent++
	c.stats.s.BytesSent += int64(len(data))
	c.stats.mu.Unlock()
	return nil
}
