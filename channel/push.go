// push.go / pull.go implement §4.F's Push/Pull contract: Push behaves as
// Normal over local connectivity, and round-robins across connected
// distributed endpoints with a bounded retry count; Pull is the
// receive-only counterpart, blocking on the local queue fed by listener
// loops.
//
// Grounded on the teacher's mirror package's round-robin target selection
// over a set of mountpaths for load distribution.
package channel

import (
	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/msg"
)

// DefaultMaxRetries is Push's default retry budget before returning Error.
const DefaultMaxRetries = 1

// PushSend implements Push: local delivery behaves like Normal; with
// connected distributed endpoints present, it round-robins among them,
// advancing the index and retrying on failure up to maxRetries times.
func (c *Channel) PushSend(data []byte, flags msg.Flags, maxRetries int) error {
	if c.pattern != Push {
		return cos.ErrWrongPattern
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	c.mu.Lock()
	eps := c.endpoints
	c.mu.Unlock()

	if len(eps) == 0 {
		return c.Send(data, flags)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		c.mu.Lock()
		if len(c.endpoints) == 0 {
			c.mu.Unlock()
			return c.Send(data, flags)
		}
		idx := c.pushIdx % len(c.endpoints)
		ep := c.endpoints[idx]
		c.pushIdx++
		c.mu.Unlock()

		_, err := ep.Send(data)
		if err == nil {
			c.stats.mu.Lock()
			c.stats.s.MessagesSent++
			c.stats.s.BytesSent += int64(len(data))
			c.stats.mu.Unlock()
			return nil
		}
		lastErr = err
		c.stats.mu.Lock()
		c.stats.s.Retried++
		c.stats.mu.Unlock()
	}
	c.stats.mu.Lock()
	c.stats.s.SendErrors++
	c.stats.mu.Unlock()
	return lastErr
}

// PullReceive implements Pull: receive-only, blocks on the local queue.
func (c *Channel) PullReceive(flags msg.Flags) (*msg.Message, error) {
	if c.pattern != Pull {
		return nil, cos.ErrWrongPattern
	}
	return c.ReceiveMessage(flags)
}
