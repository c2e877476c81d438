package channel

import (
	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/msg"
)

// ReceiveRequest implements Rep's receive half: pulls the next request off the
// local queue (fed by the accept loop's onFrame handler) and remembers that
// a reply is now owed, so a premature Reply is rejected.
func (c *Channel) ReceiveRequest(flags msg.Flags) (*msg.Message, error) {
	if c.pattern != Rep {
		return nil, cos.ErrWrongPattern
	}
	m, err := c.ReceiveMessage(flags)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.pendingRequest = m
	c.mu.Unlock()
	return m, nil
}

// Reply implements Rep's send half. Replying before a matching
// ReceiveRequest is a ProtocolViolation, mirroring Req's own guard.
func (c *Channel) Reply(data []byte, flags msg.Flags) error {
	if c.pattern != Rep {
		return cos.ErrWrongPattern
	}
	c.mu.Lock()
	if c.pendingRequest == nil {
		c.mu.Unlock()
		return cos.ErrProtocolViolation
	}
	c.mu.Unlock()

	m, err := msg.Create(msg.Binary, data, flags|msg.Reply)
	if err != nil {
		return err
	}
	err = c.SendMessage(m)

	c.mu.Lock()
	c.pendingRequest = nil
	c.mu.Unlock()
	return err
}
