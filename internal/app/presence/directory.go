package presence

import "sync"

// Directory maps identities to their live connections. It holds no durable state.
type Directory struct {
	mu    sync.RWMutex
	conns map[string]map[*Conn]struct{}
}

// NewDirectory returns an empty Directory.
func NewDirectory() *Directory {
	return &Directory{conns: make(map[string]map[*Conn]struct{})}
}

// Register adds c to identity's connection set.
func (d *Directory) Register(identity string, c *Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.conns[identity]
	if !ok {
		set = make(map[*Conn]struct{})
		d.conns[identity] = set
	}
	set[c] = struct{}{}
}

// Unregister removes c from whichever identity it is registered under. Unknown connections are ignored.
func (d *Directory) Unregister(c *Conn) {
	identity := c.Identity()

	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.conns[identity]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(d.conns, identity)
	}
}

// Lookup returns a snapshot of identity's connections. It is empty when the identity is offline.
func (d *Directory) Lookup(identity string) []*Conn {
	d.mu.RLock()
	defer d.mu.RUnlock()

	set := d.conns[identity]
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Online reports whether identity has at least one live connection.
func (d *Directory) Online(identity string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.conns[identity]) > 0
}

// Count returns the number of online identities.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.conns)
}

// Connections returns the number of registered connections across all identities.
func (d *Directory) Connections() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := 0
	for _, set := range d.conns {
		n += len(set)
	}
	return n
}
