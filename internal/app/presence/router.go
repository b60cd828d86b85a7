/*
Package presence tracks who is online and where live events go.

A Directory maps identities to connections; a Router owns room membership and pushes events to
the connections of one or more rooms. Both are in-memory caches rebuilt as clients reconnect.
*/
package presence

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"quicktalk/internal/pkg/logx"
	"quicktalk/internal/pkg/randx"
)

const (
	// StaleSweepInterval is how often the router looks for silent connections.
	StaleSweepInterval = 30 * time.Second

	// StaleAfter is the inactivity after which a connection is evicted by the sweep.
	StaleAfter = 2 * time.Minute
)

var (
	ErrNotAuthenticated = errors.New("connection is not authenticated")
	ErrIdentityMismatch = errors.New("connection is bound to another identity")
	ErrInvalidRoom      = errors.New("invalid room")
	ErrConnClosed       = errors.New("connection is closed")
)

// Router owns room membership and fans events out to live connections.
type Router struct {
	dir *Directory

	// mu guards rooms and memberships. It is never held while writing to a transport.
	mu          sync.RWMutex
	rooms       map[string]map[*Conn]struct{}
	memberships map[*Conn]map[string]struct{}

	staleAfter    time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	logger zerolog.Logger
}

// RouterOption customises a Router.
type RouterOption func(*Router)

// WithStaleAfter sets the inactivity window; zero disables eviction.
func WithStaleAfter(d time.Duration) RouterOption {
	return func(r *Router) { r.staleAfter = d }
}

// WithSweepInterval sets the sweep period; zero disables the sweep loop.
func WithSweepInterval(d time.Duration) RouterOption {
	return func(r *Router) { r.sweepInterval = d }
}

// WithRouterClock replaces the clock used by the sweep.
func WithRouterClock(now func() time.Time) RouterOption {
	return func(r *Router) { r.now = now }
}

// NewRouter returns a Router registering identities in dir and starts its sweep loop.
func NewRouter(dir *Directory, opts ...RouterOption) *Router {
	r := &Router{
		dir:           dir,
		rooms:         make(map[string]map[*Conn]struct{}),
		memberships:   make(map[*Conn]map[string]struct{}),
		staleAfter:    StaleAfter,
		sweepInterval: StaleSweepInterval,
		now:           time.Now,
		stop:          make(chan struct{}),
		logger:        logx.Component("router"),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.sweepInterval > 0 && r.staleAfter > 0 {
		r.wg.Add(1)
		go r.runSweepLoop()
	}
	return r
}

// Directory returns the identity directory the router registers into.
func (r *Router) Directory() *Directory {
	return r.dir
}

// Authenticate binds c to identity, registers it in the directory and joins the personal room.
// Repeating it with the same identity is a no-op.
func (r *Router) Authenticate(c *Conn, identity string) error {
	if identity == "" {
		return ErrNotAuthenticated
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	changed, err := c.bind(identity)
	if err != nil || !changed {
		return err
	}

	r.dir.Register(identity, c)
	r.join(c, identity)

	r.logger.Debug().Str("conn_id", c.ID()).Str("user_id", identity).Msg("Connection authenticated.")
	return nil
}

// Join adds c to room. Joining a room twice is a no-op. Another identity's personal room
// cannot be joined.
func (r *Router) Join(c *Conn, room string) error {
	if room == "" {
		return ErrInvalidRoom
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := requireAuthenticated(c); err != nil {
		return err
	}
	if room != c.Identity() && r.isPersonalRoom(room) {
		r.logger.Warn().
			Str("conn_id", c.ID()).
			Str("user_id", c.Identity()).
			Str("room", room).
			Msg("Rejected join of another user's personal room.")
		return ErrInvalidRoom
	}
	r.join(c, room)
	return nil
}

// Leave removes c from room. Leaving a room c is not in is a no-op; the personal room cannot be left.
func (r *Router) Leave(c *Conn, room string) error {
	if room == "" {
		return ErrInvalidRoom
	}
	if identity := c.Identity(); identity != "" && identity == room {
		return ErrInvalidRoom
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.leave(c, room)
	return nil
}

// Disconnect removes c from every room and from the directory, then closes its queue.
// It is terminal and idempotent.
func (r *Router) Disconnect(c *Conn) {
	r.mu.Lock()
	for room := range r.memberships[c] {
		r.leave(c, room)
	}
	delete(r.memberships, c)
	r.dir.Unregister(c)
	closed := c.close()
	r.mu.Unlock()

	if closed {
		r.logger.Debug().Str("conn_id", c.ID()).Str("user_id", c.Identity()).Msg("Connection disconnected.")
	}
}

// Route pushes ev to every connection in rooms, once per connection. It returns the number
// of connections the event was queued for.
func (r *Router) Route(ev Event, rooms ...string) int {
	return r.RouteExcept(ev, "", rooms...)
}

// RouteExcept is Route skipping every connection owned by exclude.
func (r *Router) RouteExcept(ev Event, exclude string, rooms ...string) int {
	frame, err := json.Marshal(ev)
	if err != nil {
		r.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("Failed to encode event for routing.")
		return 0
	}

	targets := r.snapshot(exclude, rooms)

	delivered := 0
	var slow []*Conn
	for _, c := range targets {
		if c.Push(frame) {
			delivered++
			continue
		}
		if c.State() != StateDisconnected {
			slow = append(slow, c)
		}
	}

	for _, c := range slow {
		r.logger.Warn().
			Str("conn_id", c.ID()).
			Str("user_id", c.Identity()).
			Str("event", string(ev.Type)).
			Msg("Connection send queue full, dropping event and evicting slow consumer.")
		r.Disconnect(c)
	}

	return delivered
}

// NotifyTyping tells room target that c's identity started or stopped typing. None of the
// sender's own connections receive it.
func (r *Router) NotifyTyping(c *Conn, target string, isTyping bool) error {
	if target == "" {
		return ErrInvalidRoom
	}
	if err := requireAuthenticated(c); err != nil {
		return err
	}

	identity := c.Identity()
	ev, err := NewEvent(EventTypingStatus, TypingStatusPayload{UserID: identity, IsTyping: isTyping})
	if err != nil {
		return err
	}

	r.RouteExcept(ev, identity, target)
	return nil
}

// Members returns the number of connections in room.
func (r *Router) Members(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// RoomsOf returns the rooms c belongs to.
func (r *Router) RoomsOf(c *Conn) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.memberships[c]))
	for room := range r.memberships[c] {
		out = append(out, room)
	}
	return out
}

// Shutdown stops the sweep loop and disconnects every tracked connection.
func (r *Router) Shutdown() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()

	r.mu.RLock()
	conns := make([]*Conn, 0, len(r.memberships))
	for c := range r.memberships {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		r.Disconnect(c)
	}

	r.logger.Info().Int("connections", len(conns)).Msg("Router shutdown complete.")
}

// Sweep evicts connections silent for longer than the stale window and returns how many it removed.
func (r *Router) Sweep() int {
	if r.staleAfter <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.staleAfter)

	r.mu.RLock()
	var stale []*Conn
	for c := range r.memberships {
		if c.LastSeen().Before(cutoff) {
			stale = append(stale, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range stale {
		r.logger.Info().
			Str("conn_id", c.ID()).
			Str("user_id", c.Identity()).
			Time("last_seen", c.LastSeen()).
			Msg("Evicting stale connection.")
		r.Disconnect(c)
	}
	return len(stale)
}

func (r *Router) runSweepLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.sweepInterval).Dur("stale_after", r.staleAfter).Msg("Stale sweep loop started.")

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-r.stop:
			r.logger.Info().Msg("Stale sweep loop stopped.")
			return
		}
	}
}

// snapshot collects the distinct members of rooms, minus exclude's connections.
func (r *Router) snapshot(exclude string, rooms []string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[*Conn]struct{})
	out := make([]*Conn, 0)
	for _, room := range rooms {
		for c := range r.rooms[room] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			if exclude != "" && c.Identity() == exclude {
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

// isPersonalRoom reports whether room is a user's personal room: anything shaped like a user id,
// or the identity of someone online.
func (r *Router) isPersonalRoom(room string) bool {
	return randx.IsValidID(room) || r.dir.Online(room)
}

// join and leave require r.mu held for writing.
func (r *Router) join(c *Conn, room string) {
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[*Conn]struct{})
		r.rooms[room] = members
	}
	members[c] = struct{}{}

	joined, ok := r.memberships[c]
	if !ok {
		joined = make(map[string]struct{})
		r.memberships[c] = joined
	}
	joined[room] = struct{}{}
}

func (r *Router) leave(c *Conn, room string) {
	if members, ok := r.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if joined, ok := r.memberships[c]; ok {
		delete(joined, room)
	}
}

func requireAuthenticated(c *Conn) error {
	switch c.State() {
	case StateAuthenticated:
		return nil
	case StateDisconnected:
		return ErrConnClosed
	}
	return ErrNotAuthenticated
}
