// dealer.go / router.go implement §4.F's asynchronous Req/Rep: no
// pending_request correlation, correlation metadata travels inside the
// message's multipart chain instead. Router prepends a routing-identity
// part on delivery; Dealer passes messages through unchanged.
//
// Grounded on the teacher's transport multipart `Obj` chain used to carry a
// routing prefix ahead of payload parts in stream-bundled sends.
package channel

import (
	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/msg"
)

// DealerSend passes m through unchanged; correlation, if any, is already
// encoded in m's multipart chain by the caller.
func (c *Channel) DealerSend(m *msg.Message) error {
	if c.pattern != Dealer {
		return cos.ErrWrongPattern
	}
	return c.SendMessage(m)
}

// DealerReceive is the Dealer receive half.
func (c *Channel) DealerReceive(flags msg.Flags) (*msg.Message, error) {
	if c.pattern != Dealer {
		return nil, cos.ErrWrongPattern
	}
	return c.ReceiveMessage(flags)
}

// RouterReceive prepends a routing identity part carrying the caller-supplied
// identity string ahead of the payload, so a Router can later address a
// reply to the correct peer without its own pending_request correlation.
func (c *Channel) RouterReceive(flags msg.Flags, identity string) (*msg.Message, error) {
	if c.pattern != Router {
		return nil, cos.ErrWrongPattern
	}
	m, err := c.ReceiveMessage(flags)
	if err != nil {
		return nil, err
	}
	idPart, err := msg.Create(msg.String, []byte(identity), 0)
	if err != nil {
		return m, nil // identity prefix is best-effort; the payload is still valid
	}
	idPart.AppendPart(m.Payload(), m.Flags())
	return idPart, nil
}

// RouterSend delivers m to the connected endpoint matching its leading
// identity part. With no distributed endpoints, it falls back to local
// enqueue like Normal.
func (c *Channel) RouterSend(m *msg.Message) error {
	if c.pattern != Router {
		return cos.ErrWrongPattern
	}
	c.mu.Lock()
	eps := c.endpoints
	c.mu.Unlock()
	if len(eps) == 0 {
		return c.SendMessage(m)
	}
	identity := string(m.Payload())
	next := m.NextPart()
	for _, ep := range eps {
		if ep.URL().Raw == identity {
			payload := m.Payload()
			if next != nil {
				payload = next.Payload()
			}
			_, err := ep.Send(payload)
			return err
		}
	}
	return cos.ErrNotFound
}
