// Package presence tracks which identities currently have a live
// connection. The mapping is volatile and process-scoped: it is never
// persisted and is rebuilt from scratch as clients reconnect.
package presence

import "sync"

// Conn is one live bidirectional client session. Implementations must
// tolerate Send being called concurrently.
type Conn interface {
	// ID identifies this exact transport session.
	ID() string
	// Send dispatches one named event to the client.
	Send(event string, payload any) error
}

// Directory is the bidirectional identity <-> connection mapping.
// Absence is a normal outcome on every method, never an error.
type Directory interface {
	// Register binds identity to conn, replacing any previous binding.
	Register(identity string, conn Conn)
	// Lookup returns the live connection for identity, if any.
	Lookup(identity string) (Conn, bool)
	// Unregister removes the binding owned by conn and returns the
	// identity it carried. A conn whose identity has since re-registered
	// on a newer connection removes nothing.
	Unregister(conn Conn) (string, bool)
	// Size returns the number of currently bound identities.
	Size() int
}

type directory struct {
	mu     sync.RWMutex
	byUser map[string]Conn
	byConn map[string]string // conn id -> identity
}

// NewDirectory returns an empty in-memory directory.
func NewDirectory() Directory {
	return &directory{
		byUser: make(map[string]Conn),
		byConn: make(map[string]string),
	}
}

func (d *directory) Register(identity string, conn Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// Drop a previous connection's claim on this identity, and a
	// previous identity's claim on this connection, so the two maps
	// stay mirror images.
	if old, ok := d.byUser[identity]; ok {
		delete(d.byConn, old.ID())
	}
	if prev, ok := d.byConn[conn.ID()]; ok {
		delete(d.byUser, prev)
	}
	d.byUser[identity] = conn
	d.byConn[conn.ID()] = identity
}

func (d *directory) Lookup(identity string) (Conn, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	conn, ok := d.byUser[identity]
	return conn, ok
}

func (d *directory) Unregister(conn Conn) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	identity, ok := d.byConn[conn.ID()]
	if !ok {
		// Never registered, or the identity moved to a newer connection
		// and took the binding with it. Stale disconnects land here.
		return "", false
	}
	delete(d.byConn, conn.ID())
	delete(d.byUser, identity)
	return identity, true
}

func (d *directory) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byUser)
}
