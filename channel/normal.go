// normal.go implements §4.F's Normal contract: plain single
// producer-consumer priority FIFO. send enqueues, receive dequeues — the
// mechanical primitives already on Channel, exposed here under Normal's own
// names for callers that want the pattern check.
package channel

import (
	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/msg"
)

func (c *Channel) NormalSend(data []byte, flags msg.Flags) error {
	if c.pattern != Normal {
		return cos.ErrWrongPattern
	}
	return c.Send(data, flags)
}

func (c *Channel) NormalReceive(flags msg.Flags) ([]byte, error) {
	if c.pattern != Normal {
		return nil, cos.ErrWrongPattern
	}
	return c.Receive(flags)
}
