// bus.go
package bus

import (
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of tokens. In subscriptions "+" matches exactly one
// token and a trailing "#" matches any remainder (including none).
type Topic []string

const (
	wildOne  = "+"
	wildRest = "#"
)

// T builds a Topic from tokens.
func T(tokens ...string) Topic { return Topic(tokens) }

func (t Topic) Len() int        { return len(t) }
func (t Topic) At(i int) string { return t[i] }
func (t Topic) String() string  { return strings.Join(t, "/") }

// Match reports whether the concrete topic t satisfies pattern p.
func Match(p, t Topic) bool {
	for i, tok := range p {
		if tok == wildRest {
			return true
		}
		if i >= len(t) {
			return false
		}
		if tok != wildOne && tok != t[i] {
			return false
		}
	}
	return len(p) == len(t)
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

// NewMessage builds a message; retained messages are replayed to late
// subscribers, and a retained nil payload clears the slot.
func (b *Bus) NewMessage(t Topic, payload any, retained bool) *Message {
	return &Message{Topic: t, Payload: payload, Retained: retained}
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic  Topic
	ch     chan *Message
	conn   *Connection
	notify func() // optional; runs after each delivery, must not block
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// TryRecv returns the next queued message without blocking.
func (s *Subscription) TryRecv() (*Message, bool) {
	select {
	case m, ok := <-s.ch:
		return m, ok && m != nil
	default:
		return nil, false
	}
}

// deliver enqueues m, dropping the oldest queued message when full.
// Caller holds the bus lock.
func (s *Subscription) deliver(m *Message) {
	select {
	case s.ch <- m:
	default:
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- m:
		default:
		}
	}
}

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[string]*node
	subs     []*Subscription
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu       sync.Mutex
	root     *node
	retained map[string]*Message
	qLen     int
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		root:     &node{},
		retained: map[string]*Message{},
		qLen:     queueLen,
	}
}

// addSubscription inserts a subscription into the trie and replays matching
// retained messages. It returns the notify hook to run if anything was queued.
func (b *Bus) addSubscription(sub *Subscription) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range sub.topic {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	queued := false
	for _, m := range b.retained {
		if Match(sub.topic, m.Topic) {
			sub.deliver(m)
			queued = true
		}
	}
	if queued {
		return sub.notify
	}
	return nil
}

// collect appends every subscription whose pattern matches t.
func collect(n *node, t Topic, out []*Subscription) []*Subscription {
	if n == nil {
		return out
	}
	if len(t) == 0 {
		out = append(out, n.subs...)
		// "a/#" also matches "a".
		if rest := n.children[wildRest]; rest != nil {
			out = append(out, rest.subs...)
		}
		return out
	}
	if rest := n.children[wildRest]; rest != nil {
		out = append(out, rest.subs...)
	}
	out = collect(n.children[t[0]], t[1:], out)
	out = collect(n.children[wildOne], t[1:], out)
	return out
}

// Publish delivers a message to all subscribers whose pattern matches its topic.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	if msg.Retained {
		key := msg.Topic.String()
		if msg.Payload == nil {
			delete(b.retained, key)
		} else {
			b.retained[key] = msg
		}
	}
	subs := collect(b.root, msg.Topic, nil)
	for _, sub := range subs {
		sub.deliver(msg)
	}
	b.mu.Unlock()

	// Hooks run outside the lock so they may publish.
	for _, sub := range subs {
		if sub.notify != nil {
			sub.notify()
		}
	}
}

// unsubscribe removes a subscription from the trie.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, t := range sub.topic {
		if n.children == nil {
			return
		}
		child, ok := n.children[t]
		if !ok {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := sub.topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{
		bus: b,
		id:  id,
	}
}

func (c *Connection) ID() string { return c.id }

// NewMessage is a convenience for c.bus.NewMessage.
func (c *Connection) NewMessage(t Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(t, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	return c.SubscribeNotify(topic, nil)
}

// SubscribeNotify is Subscribe with a hook that runs after every delivery.
// Cooperative tasks use it to post a wake event instead of blocking on the
// channel.
func (c *Connection) SubscribeNotify(topic Topic, notify func()) *Subscription {
	sub := &Subscription{
		topic:  topic,
		ch:     make(chan *Message, c.bus.qLen),
		conn:   c,
		notify: notify,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	if hook := c.bus.addSubscription(sub); hook != nil {
		hook()
	}
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}
