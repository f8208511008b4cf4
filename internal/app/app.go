// Package app contains the message routing core: the delivery router,
// the conversation resolver, and the read paths backing the REST
// surface. All shared mutable state lives either in the injected
// presence directory or behind the store's atomic operations.
package app

import (
	"fmt"
	"log/slog"

	"biosync/internal/identity"
	"biosync/internal/presence"
	"biosync/internal/store"
)

// Config wires the app's collaborators.
type Config struct {
	Store    store.Store
	Presence presence.Directory
	// Profiles is optional; without it contact views carry no display
	// name or image.
	Profiles identity.Source
}

// App orchestrates message delivery between the store and the presence
// directory.
type App struct {
	store    store.Store
	presence presence.Directory
	profiles identity.Source
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	dir := cfg.Presence
	if dir == nil {
		dir = presence.NewDirectory()
	}
	return &App{
		store:    cfg.Store,
		presence: dir,
		profiles: cfg.Profiles,
	}, nil
}

// send dispatches one event to conn, reporting whether it was written.
// A failed write means the connection is going away; the caller treats
// that the same as the recipient being absent.
func (a *App) send(conn presence.Conn, event string, payload any) bool {
	if conn == nil {
		return false
	}
	if err := conn.Send(event, payload); err != nil {
		slog.Warn("event dispatch failed", "event", event, "conn", conn.ID(), "err", err)
		return false
	}
	return true
}
