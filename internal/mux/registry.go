package mux

import "sync"

// Registry is the reverse map named in spec §4.4 and §9's design notes:
// identity to connection id, looked up by the router and the auth engine,
// never held as a pointer so a stale reference can't outlive a closed
// connection.
type Registry struct {
	mu         sync.RWMutex
	conns      map[string]*Conn // connId -> Conn
	byIdentity map[string]string // whisperId -> connId
}

func NewRegistry() *Registry {
	return &Registry{
		conns:      make(map[string]*Conn),
		byIdentity: make(map[string]string),
	}
}

// Track registers c as a live connection without binding it to an
// identity yet. Accept calls this for every upgraded socket; tests that
// construct a Conn directly (via NewLoopbackConn) must call it too,
// since Bind alone only updates the identity pointer.
func (r *Registry) Track(c *Conn) { r.add(c) }

func (r *Registry) add(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = c
}

func (r *Registry) remove(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c.ID)
	if whisperID := c.WhisperID(); whisperID != "" {
		if cur, ok := r.byIdentity[whisperID]; ok && cur == c.ID {
			delete(r.byIdentity, whisperID)
		}
	}
}

// Bind associates whisperID with c, displacing any previous connection
// bound to the same identity (without closing it -- the auth engine
// decides whether to force_logout the displaced connection).
func (r *Registry) Bind(whisperID string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byIdentity[whisperID] = c.ID
	c.setWhisperID(whisperID)
}

// Lookup returns the connection currently bound to whisperID, if any.
func (r *Registry) Lookup(whisperID string) (*Conn, bool) {
	r.mu.RLock()
	connID, ok := r.byIdentity[whisperID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	c, ok := r.conns[connID]
	r.mu.RUnlock()
	return c, ok
}

// ForceLogout implements auth.ConnNotifier: it enqueues a force_logout
// frame on the connection bound to whisperID, then closes it.
func (r *Registry) ForceLogout(whisperID, reason string) bool {
	c, ok := r.Lookup(whisperID)
	if !ok {
		return false
	}
	c.SendForceLogout(reason)
	c.Close()
	return true
}

// Count returns the number of tracked connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Range calls fn for every tracked connection. fn must not block.
func (r *Registry) Range(fn func(c *Conn)) {
	r.mu.RLock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()
	for _, c := range conns {
		fn(c)
	}
}
