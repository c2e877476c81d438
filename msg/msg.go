// Package msg implements §4.A: the Message Object. A Message is an owned,
// immutable-after-send value carrying a kind-tagged payload, priority, an
// optional topic, a multipart chain, and an optional reply-to reference.
//
// Grounded on the teacher's transport.Msg/Obj split (a small, cheaply-copied
// header plus an owned body) and on go-mcast's types.Message (UID,
// Destination, State, Timestamp fields used for protocol correlation) for the
// general shape of an owned, chainable protocol message.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package msg

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/cmn/debug"
	"github.com/darragh-downey/goo-messaging/mem"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind tags how payload bytes must be interpreted.
type Kind int

const (
	None Kind = iota
	Int
	Float
	Bool
	String
	Binary
	Json
	Custom
)

// Priority selects a Priority Queue band (§4.B): Critical and High share the
// top band, Normal and Low each own a band.
type Priority int

const (
	Low Priority = iota
	Normal
	High
	Critical
)

// Flags is the §3 bitset.
type Flags uint32

const (
	NonBlock Flags = 1 << iota
	Peek
	OutOfBand
	More
	PriorityFlag
	Request
	Reply
)

var (
	ErrAllocFailed  = errors.New("message: payload allocation failed")
	ErrCycle        = errors.New("message: cycle in multipart chain")
	ErrPubNoTopic   = errors.New("message: topic required when routed through a Pub channel")
)

// ReplyTo is a non-owning reference to whatever can receive a reply: channel
// implements this with *channel.Channel's SendMessage method set. Defined
// here (rather than imported from channel) to avoid an import cycle, per the
// ownership note in §3 ("non-owning reference to a Channel").
type ReplyTo interface {
	SendMessage(m *Message) error
}

// Message is the unit of transfer. The zero value is not valid; use Create.
type Message struct {
	kind     Kind
	payload  []byte
	priority Priority
	topic    string
	flags    Flags
	next     *Message
	replyTo  ReplyTo
	uid      string
	arena    *mem.Arena
}

// Create allocates an owned payload buffer, copies bytes, and returns a
// Message with Normal priority and no topic.
func Create(kind Kind, data []byte, flags Flags) (*Message, error) {
	return CreateIn(mem.Default, kind, data, flags)
}

// CreateIn is Create with an explicit arena, for callers that want their own
// allocator (e.g. a bounded test arena).
func CreateIn(arena *mem.Arena, kind Kind, data []byte, flags Flags) (*Message, error) {
	buf, err := arena.Alloc(len(data))
	if err != nil {
		return nil, ErrAllocFailed
	}
	copy(buf, data)
	return &Message{
		kind:     kind,
		payload:  buf,
		priority: Normal,
		flags:    flags &^ More, // a freshly created message is never non-terminal yet
		uid:      cos.GenID(),
		arena:    arena,
	}, nil
}

// CreateJSON marshals v with jsoniter and wraps it as a Json-kind Message.
func CreateJSON(v any, flags Flags) (*Message, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Create(Json, b, flags)
}

func (m *Message) Kind() Kind       { return m.kind }
func (m *Message) Payload() []byte  { return m.payload }
func (m *Message) Priority() Priority { return m.priority }
func (m *Message) Topic() string    { return m.topic }
func (m *Message) Flags() Flags     { return m.flags }
func (m *Message) UID() string      { return m.uid }
func (m *Message) ReplyTo() ReplyTo { return m.replyTo }
func (m *Message) Has(f Flags) bool { return m.flags&f != 0 }

func (m *Message) SetReplyTo(r ReplyTo) { m.replyTo = r }

// UnmarshalJSON decodes a Json-kind payload into v.
func (m *Message) UnmarshalJSON(v any) error {
	if m.kind != Json {
		return errors.New("message: not a Json-kind message")
	}
	return json.Unmarshal(m.payload, v)
}

// SetTopic replaces any prior topic with an owned copy. Required before a
// Message is routed through a Pub channel (§3 invariant).
func (m *Message) SetTopic(topic string) { m.topic = topic }

// SetPriority also sets the Priority flag, per §4.A.
func (m *Message) SetPriority(p Priority) {
	m.priority = p
	m.flags |= PriorityFlag
}

// AppendPart appends a new Message to the multipart chain tail, setting More
// on the previous last part. Returns false (leaving the chain untouched) if
// allocation fails, per §4.A ("no partial chain is created").
func (m *Message) AppendPart(data []byte, flags Flags) bool {
	part, err := CreateIn(m.arena, m.kind, data, flags)
	if err != nil {
		return false
	}
	tail := m
	for tail.next != nil {
		tail = tail.next
	}
	tail.flags |= More
	tail.next = part
	return true
}

// NextPart returns the next part in the chain, or nil at the tail.
func (m *Message) NextPart() *Message { return m.next }

// Parts walks the chain head-to-tail, head included.
func (m *Message) Parts() []*Message {
	out := []*Message{m}
	for p := m.next; p != nil; p = p.next {
		out = append(out, p)
	}
	return out
}

// Destroy releases the payload of every part in the chain back to its arena.
// Idempotent: Destroy clears each part's payload and chain link, so a second
// call frees nothing. Callers should still treat a destroyed Message as dead.
func (m *Message) Destroy() {
	debug.Assert(m != nil)
	for p := m; p != nil; {
		next := p.next
		if p.arena != nil && p.payload != nil {
			p.arena.Free(p.payload)
		}
		p.payload = nil
		p.next = nil
		p = next
	}
}

// Validate enforces the §3 invariants that are cheap to check at the
// boundary: topic required under Pub routing (caller-supplied flag), and no
// cycles in the multipart chain.
func (m *Message) Validate(requireTopic bool) error {
	if requireTopic && m.topic == "" {
		return ErrPubNoTopic
	}
	seen := make(map[*Message]bool)
	for p := m; p != nil; p = p.next {
		if seen[p] {
			return ErrCycle
		}
		seen[p] = true
	}
	return nil
}
