// pair.go implements §4.F's Pair: an exclusive one-to-one connection. Bind
// accepts at most one peer and closes later connections; Bind/Connect after
// a socket Bind or Connect has already succeeded return AlreadyConnected
// (enforced in bind.go, shared with Rep's peerEndpoint bookkeeping for the
// accept side).
package channel

import (
	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/msg"
)

// PairSend sends over the exclusive peer connection if one is attached,
// otherwise enqueues locally (the Inproc Pair case, where the "connection"
// is the shared registry queue itself).
func (c *Channel) PairSend(data []byte, flags msg.Flags) error {
	if c.pattern != Pair {
		return cos.ErrWrongPattern
	}
	return c.Send(data, flags)
}

// PairReceive is the Pair receive half.
func (c *Channel) PairReceive(flags msg.Flags) (*msg.Message, error) {
	if c.pattern != Pair {
		return nil, cos.ErrWrongPattern
	}
	if ep := c.directPeer(); ep != nil {
		data, err := ep.Receive()
		if err != nil {
			return nil, err
		}
		return msg.Create(msg.Binary, data, 0)
	}
	return c.ReceiveMessage(flags)
}
