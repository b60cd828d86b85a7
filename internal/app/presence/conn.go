package presence

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQueueSize is the outbound buffer of a connection. A full buffer marks a slow consumer.
const DefaultQueueSize = 256

// State is the lifecycle position of a connection.
type State int32

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Conn is one live transport session as seen by the router. The transport drains Send and
// calls Touch on inbound traffic; every state change goes through the Router.
type Conn struct {
	id string

	// mu guards identity, state and the send channel against close.
	mu       sync.Mutex
	identity string
	state    State
	send     chan []byte

	lastSeen atomic.Int64
}

// NewConn returns an unauthenticated connection with an outbound queue of queueSize frames.
func NewConn(id string, queueSize int) *Conn {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	c := &Conn{
		id:   id,
		send: make(chan []byte, queueSize),
	}
	c.Touch(time.Now())
	return c
}

func (c *Conn) ID() string { return c.id }

// Identity returns the bound identity, or "" before authentication.
func (c *Conn) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send is the outbound queue. It is closed once the connection is disconnected.
func (c *Conn) Send() <-chan []byte {
	return c.send
}

// Touch records inbound activity at t.
func (c *Conn) Touch(t time.Time) {
	c.lastSeen.Store(t.UnixNano())
}

// LastSeen returns the time of the last recorded activity.
func (c *Conn) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// Push queues frame without blocking. It reports false when the queue is full or closed.
func (c *Conn) Push(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisconnected {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// bind moves an unauthenticated connection to authenticated. It reports whether the binding
// changed anything.
func (c *Conn) bind(identity string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateDisconnected:
		return false, ErrConnClosed
	case StateAuthenticated:
		if c.identity == identity {
			return false, nil
		}
		return false, ErrIdentityMismatch
	}

	c.identity = identity
	c.state = StateAuthenticated
	return true, nil
}

// close marks the connection disconnected and closes its queue. It reports false if the
// connection was already closed.
func (c *Conn) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisconnected {
		return false
	}
	c.state = StateDisconnected
	close(c.send)
	return true
}
