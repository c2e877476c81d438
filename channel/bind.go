// bind.go implements §4.C's bind/connect/disconnect over both the in-process
// registry (Inproc protocol) and socket transports, shared by every pattern.
package channel

import (
	"net"

	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/msg"
	"github.com/darragh-downey/goo-messaging/transport"
)

// Bind creates a server-role endpoint at raw and attaches it to the channel.
// For Pair, a Bind or Connect after a successful socket Bind or Connect
// fails with AlreadyConnected, and the listener keeps only the first
// accepted connection, closing any later one.
func (c *Channel) Bind(raw string, opts transport.Options) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return cos.ErrClosed
	}
	if c.pattern == Pair && c.pairConnected {
		c.mu.Unlock()
		return cos.ErrAlreadyConnected
	}
	c.mu.Unlock()

	u, err := transport.ParseURL(raw)
	if err != nil {
		return err
	}

	if u.Proto == transport.Inproc {
		return c.bindInproc(raw)
	}

	handler := c.onFrame
	if c.pattern == Sub {
		handler = c.onSubFrame
	}
	ep, err := transport.Listen(raw, opts, handler)
	if err != nil {
		return err
	}
	if c.pattern == Rep || c.pattern == Pair {
		ep.SetAcceptHook(func(conn net.Conn) {
			c.mu.Lock()
			if c.pattern == Pair && c.peerEndpoint != nil {
				c.mu.Unlock()
				_ = conn.Close()
				return
			}
			c.peerEndpoint = transport.WrapConn(conn, opts, u)
			c.mu.Unlock()
		})
	}
	c.mu.Lock()
	c.endpoints = append(c.endpoints, ep)
	c.address = raw
	c.isDistributed = true
	if c.pattern == Pair {
		c.pairConnected = true
	}
	c.mu.Unlock()
	return nil
}

// Connect creates a client-role endpoint to raw and attaches it.
func (c *Channel) Connect(raw string, opts transport.Options) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return cos.ErrClosed
	}
	if c.pattern == Pair && c.pairConnected {
		c.mu.Unlock()
		return cos.ErrAlreadyConnected
	}
	c.mu.Unlock()

	u, err := transport.ParseURL(raw)
	if err != nil {
		return err
	}
	if u.Proto == transport.Inproc {
		return c.connectInproc(raw)
	}

	ep, err := transport.Dial(raw, opts)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.endpoints = append(c.endpoints, ep)
	c.isDistributed = true
	if c.pattern == Pair {
		c.pairConnected = true
	}
	c.mu.Unlock()

	if c.pattern == Sub {
		go c.subClientLoop(ep)
	}
	return nil
}

// bindInproc registers this channel's queue as the server side of an inproc
// address in the shared registry.
func (c *Channel) bindInproc(raw string) error {
	if c.registry == nil {
		return cos.NewArgumentError("channel: inproc bind requires a registry (see runtime.Init)")
	}
	u, _ := transport.ParseURL(raw)
	q, err := c.registry.GetOrCreate(u.Address, true, 64)
	if err != nil {
		return err
	}
	c.mu.Lock()
	// The registry becomes the queue of record for an inproc-bound channel;
	// any private buffered queue created by Create is superseded so clients
	// that connect later see the same messages this channel enqueues.
	c.queue = q
	c.address = raw
	c.mu.Unlock()
	return nil
}

// connectInproc attaches this channel's queue pointer to an existing
// server-owned queue; sends/receives on this channel now operate on the
// shared queue rather than a private one.
func (c *Channel) connectInproc(raw string) error {
	if c.registry == nil {
		return cos.NewArgumentError("channel: inproc connect requires a registry (see runtime.Init)")
	}
	u, _ := transport.ParseURL(raw)
	q, err := c.registry.GetOrCreate(u.Address, false, 64)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.queue = q
	c.address = ""
	c.mu.Unlock()
	return nil
}

// Disconnect removes and closes a previously bound/connected endpoint.
func (c *Channel) Disconnect(epURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ep := range c.endpoints {
		if ep.URL().Raw == epURL {
			c.endpoints = append(c.endpoints[:i], c.endpoints[i+1:]...)
			_ = ep.Close()
			if len(c.endpoints) == 0 {
				c.errored = true
			}
			return nil
		}
	}
	return cos.ErrNotFound
}

// onFrame is the default transport.Handler: decode raw bytes into a Message
// and enqueue locally. Sub overrides this with topic-frame decoding.
func (c *Channel) onFrame(data []byte, _ net.Addr) {
	m, err := msg.Create(msg.Binary, data, 0)
	if err != nil {
		return
	}
	_ = c.enqueueLocal(m, false)
}
