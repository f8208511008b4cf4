package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"biosync/internal/app"
)

// wsConn adapts one websocket session to the presence.Conn contract.
// Writes are serialized so concurrent delivery pipelines cannot
// interleave frames.
type wsConn struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.ws, envelope{Event: event, Payload: raw})
}

// socketHandler runs the read loop for one client connection. Each
// event is handled to completion before the next is read, so one
// connection's events are ordered; different connections interleave
// freely.
func (s *Server) socketHandler() http.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		conn := &wsConn{id: uuid.NewString(), ws: ws}
		slog.Info("socket connected", "conn", conn.id)
		defer func() {
			s.app.HandleDisconnect(conn)
			slog.Info("socket closed", "conn", conn.id)
		}()
		for {
			var env envelope
			if err := websocket.JSON.Receive(ws, &env); err != nil {
				if !errors.Is(err, io.EOF) {
					slog.Debug("socket read", "conn", conn.id, "err", err)
				}
				return
			}
			s.dispatch(conn, env)
		}
	})
}

func (s *Server) dispatch(conn *wsConn, env envelope) {
	switch env.Event {
	case eventRegisterUser:
		var p registerUserPayload
		if !decodePayload(env, &p) {
			return
		}
		s.app.HandleRegister(p.Identity, conn)
	case eventSendMessage:
		var p sendMessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			// A send must always terminate in an outcome event.
			_ = conn.Send(app.EventMessageFailed, app.MessageFailedPayload{Error: "Malformed payload"})
			return
		}
		s.app.HandleSendMessage(conn, p.FromIdentity, p.ToIdentity, p.Text)
	case eventMarkAsRead:
		var p markAsReadPayload
		if !decodePayload(env, &p) {
			return
		}
		s.app.HandleMarkAsRead(conn, p.MessageIDs)
	case eventTypingStart:
		var p typingPayload
		if !decodePayload(env, &p) {
			return
		}
		s.app.HandleTyping(p.FromIdentity, p.ToIdentity, true)
	case eventTypingStop:
		var p typingPayload
		if !decodePayload(env, &p) {
			return
		}
		s.app.HandleTyping(p.FromIdentity, p.ToIdentity, false)
	default:
		slog.Debug("unknown socket event", "event", env.Event)
	}
}

func decodePayload(env envelope, dst any) bool {
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		slog.Warn("malformed event payload", "event", env.Event, "err", err)
		return false
	}
	return true
}
