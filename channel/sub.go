// sub.go implements §4.F's Sub contract: exact-match topic filters, local
// direct-enqueue delivery from a Pub, and distributed delivery decoded from
// framed <topic_len><topic><payload> transport frames.
//
// Grounded on the teacher's `cluster.Smap` listener pattern (subscribing to
// a filtered event stream) for the filter-list shape, and wired to
// seiflotfy/cuckoofilter as a fast-path membership pre-check once a Sub
// channel accumulates more than a handful of topic filters: the cuckoo
// filter only ever short-circuits a definite miss (false positives fall
// through to the exact string-equality check), so it cannot change Sub's
// exact-match semantics, only skip the linear scan for topics nothing
// filters on.
package channel

import (
	"net"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/msg"
	"github.com/darragh-downey/goo-messaging/transport"
)

// cuckooThreshold is the filter-count above which a Sub channel keeps a
// cuckoo-filter fast path alongside the exact subscriptions list.
const cuckooThreshold = 8

// Subscribe appends a topic filter together with an optional callback. The
// callback is only stored with the filter: delivery never invokes it, and
// matching messages are always left on the queue for Receive.
func (c *Channel) Subscribe(topic string, callback func(*msg.Message)) error {
	if c.pattern != Sub {
		return cos.ErrWrongPattern
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions = append(c.subscriptions, subscription{topic: topic, callback: callback})
	if c.cuckooFilter == nil && len(c.subscriptions) > cuckooThreshold {
		c.rebuildCuckoo()
	} else if c.cuckooFilter != nil {
		c.cuckooFilter.InsertUnique([]byte(topic))
	}
	return nil
}

// Unsubscribe removes every filter matching topic exactly.
func (c *Channel) Unsubscribe(topic string) error {
	if c.pattern != Sub {
		return cos.ErrWrongPattern
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.subscriptions[:0]
	for _, s := range c.subscriptions {
		if s.topic != topic {
			kept = append(kept, s)
		}
	}
	c.subscriptions = kept
	if c.cuckooFilter != nil {
		c.rebuildCuckoo()
	}
	return nil
}

func (c *Channel) rebuildCuckoo() {
	cf := cuckoo.NewFilter(1024)
	for _, s := range c.subscriptions {
		cf.InsertUnique([]byte(s.topic))
	}
	c.cuckooFilter = cf
}

// subscriptionMatches reports whether topic matches any current filter,
// exact string equality only (§4.F: "prefix or wildcard matching is not
// required"). When a cuckoo filter is present, a definite miss there skips
// the linear scan; a hit (true or false-positive) still falls through to
// the exact check so false positives never change delivery outcomes.
func (c *Channel) subscriptionMatches(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cuckooFilter != nil && !c.cuckooFilter.Lookup([]byte(topic)) {
		return false
	}
	for _, s := range c.subscriptions {
		if s.topic == topic {
			return true
		}
	}
	return false
}

// subClientLoop drives a Sub channel's client-role connection: it has no
// Accept loop of its own, so this goroutine repeatedly calls Receive and
// feeds frames through the same decode-and-match path as the server side.
func (c *Channel) subClientLoop(ep *transport.Endpoint) {
	for {
		frame, err := ep.Receive()
		if err != nil {
			c.setErrored(true)
			return
		}
		c.onSubFrame(frame, nil)
	}
}

// onSubFrame is the transport.Handler a distributed Sub endpoint installs:
// decode the topic frame, drop non-matching topics (counted), and enqueue
// matches locally.
func (c *Channel) onSubFrame(data []byte, _ net.Addr) {
	topic, payload, err := transport.DecodeTopicFrame(data)
	if err != nil {
		c.stats.mu.Lock()
		c.stats.s.ReceiveErrors++
		c.stats.mu.Unlock()
		return
	}
	if !c.subscriptionMatches(topic) {
		c.stats.mu.Lock()
		c.stats.s.Dropped++
		c.stats.mu.Unlock()
		return
	}
	m, err := msg.Create(msg.Binary, payload, 0)
	if err != nil {
		return
	}
	m.SetTopic(topic)
	_ = c.enqueueLocal(m, false)
}
