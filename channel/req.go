// req.go / rep.go implement §4.F's synchronous Req/Rep contract: Req sets
// pending_request, sends, then blocks on receive; a second send while a
// request is pending is a ProtocolViolation. Rep mirrors it: receive then
// send, and a send before a matching receive is a ProtocolViolation.
//
// Grounded on the teacher's dsort coordinator's request/ack correlation
// (one in-flight request per peer, enforced by a single pending-slot field).
package channel

import (
	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/msg"
)

// Request implements Req: send, blocking the caller until a reply arrives.
// Over a connected endpoint the wait is bounded only by that endpoint's
// RecvTimeout option; the channel's timeout applies only when the reply is
// read from the local queue.
func (c *Channel) Request(data []byte, flags msg.Flags) (*msg.Message, error) {
	if c.pattern != Req {
		return nil, cos.ErrWrongPattern
	}
	c.mu.Lock()
	if c.pendingRequest != nil {
		c.mu.Unlock()
		return nil, cos.ErrProtocolViolation
	}
	m, err := msg.Create(msg.Binary, data, flags|msg.Request)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.pendingRequest = m
	c.mu.Unlock()

	if sendErr := c.SendMessage(m); sendErr != nil {
		c.mu.Lock()
		c.pendingRequest = nil
		c.mu.Unlock()
		return nil, sendErr
	}

	reply, err := c.ReceiveMessage(0)
	c.mu.Lock()
	c.pendingRequest = nil
	c.mu.Unlock()
	return reply, err
}

// HasPendingRequest reports whether a Req channel is awaiting a reply.
func (c *Channel) HasPendingRequest() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingRequest != nil
}
