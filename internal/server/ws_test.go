package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"biosync/internal/app"
	"biosync/internal/presence"
	"biosync/internal/store"
)

type socketHarness struct {
	srv *httptest.Server
	dir presence.Directory
	st  *store.MemoryStore
}

func newSocketHarness(t *testing.T) *socketHarness {
	t.Helper()
	st := store.NewMemoryStore()
	dir := presence.NewDirectory()
	core, err := app.New(app.Config{Store: st, Presence: dir})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv := httptest.NewServer(New(Config{App: core}).Router())
	t.Cleanup(srv.Close)
	return &socketHarness{srv: srv, dir: dir, st: st}
}

func (h *socketHarness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws"
	ws, err := websocket.Dial(url, "", h.srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func sendEvent(t *testing.T, ws *websocket.Conn, event string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s: %v", event, err)
	}
	if err := websocket.JSON.Send(ws, envelope{Event: event, Payload: raw}); err != nil {
		t.Fatalf("send %s: %v", event, err)
	}
}

func readEvent(t *testing.T, ws *websocket.Conn) envelope {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	if err := websocket.JSON.Receive(ws, &env); err != nil {
		t.Fatalf("receive: %v", err)
	}
	return env
}

func register(t *testing.T, ws *websocket.Conn, identity string) {
	t.Helper()
	sendEvent(t, ws, eventRegisterUser, registerUserPayload{Identity: identity})
	env := readEvent(t, ws)
	if env.Event != app.EventRegistered {
		t.Fatalf("expected registered ack, got %s", env.Event)
	}
	var ack app.RegisteredPayload
	if err := json.Unmarshal(env.Payload, &ack); err != nil {
		t.Fatalf("ack payload: %v", err)
	}
	if !ack.Success || ack.Identity != identity || ack.ConnectionHandle == "" {
		t.Fatalf("ack: %+v", ack)
	}
}

func TestSocketDeliveryBetweenLiveClients(t *testing.T) {
	h := newSocketHarness(t)
	alice := h.dial(t)
	bob := h.dial(t)
	register(t, alice, "u1")
	register(t, bob, "u2")

	sendEvent(t, alice, eventSendMessage, sendMessagePayload{
		FromIdentity: "u1",
		ToIdentity:   "u2",
		Text:         "hello",
	})

	env := readEvent(t, bob)
	if env.Event != app.EventReceiveMessage {
		t.Fatalf("bob expected receive_message, got %s", env.Event)
	}
	var received app.ReceiveMessagePayload
	if err := json.Unmarshal(env.Payload, &received); err != nil {
		t.Fatalf("receive payload: %v", err)
	}
	if received.From != "u1" || received.Text != "hello" {
		t.Fatalf("receive: %+v", received)
	}

	env = readEvent(t, alice)
	if env.Event != app.EventMessageDelivered {
		t.Fatalf("alice expected message_delivered, got %s", env.Event)
	}
	var outcome app.MessageDeliveredPayload
	if err := json.Unmarshal(env.Payload, &outcome); err != nil {
		t.Fatalf("outcome payload: %v", err)
	}
	if outcome.Status != app.DeliveryStatusDelivered || outcome.MessageID != received.MessageID {
		t.Fatalf("outcome: %+v", outcome)
	}
}

func TestSocketOfflineRecipientGetsSavedOutcome(t *testing.T) {
	h := newSocketHarness(t)
	alice := h.dial(t)
	register(t, alice, "u1")

	sendEvent(t, alice, eventSendMessage, sendMessagePayload{
		FromIdentity: "u1",
		ToIdentity:   "u2",
		Text:         "anyone home?",
	})

	env := readEvent(t, alice)
	if env.Event != app.EventMessageDelivered {
		t.Fatalf("expected message_delivered, got %s", env.Event)
	}
	var outcome app.MessageDeliveredPayload
	if err := json.Unmarshal(env.Payload, &outcome); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if outcome.Status != app.DeliveryStatusSaved || outcome.Note == "" {
		t.Fatalf("outcome: %+v", outcome)
	}
}

func TestSocketDisconnectCleansPresence(t *testing.T) {
	h := newSocketHarness(t)
	alice := h.dial(t)
	bob := h.dial(t)
	register(t, alice, "u1")
	register(t, bob, "u2")

	_ = bob.Close()
	waitFor(t, func() bool { return h.dir.Size() == 1 })

	sendEvent(t, alice, eventSendMessage, sendMessagePayload{
		FromIdentity: "u1",
		ToIdentity:   "u2",
		Text:         "late",
	})
	env := readEvent(t, alice)
	var outcome app.MessageDeliveredPayload
	if err := json.Unmarshal(env.Payload, &outcome); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if outcome.Status != app.DeliveryStatusSaved {
		t.Fatalf("expected saved after disconnect, got %s", outcome.Status)
	}
}

func TestSocketTypingForwarded(t *testing.T) {
	h := newSocketHarness(t)
	alice := h.dial(t)
	bob := h.dial(t)
	register(t, alice, "u1")
	register(t, bob, "u2")

	sendEvent(t, alice, eventTypingStart, typingPayload{FromIdentity: "u1", ToIdentity: "u2"})
	env := readEvent(t, bob)
	if env.Event != app.EventUserTyping {
		t.Fatalf("expected user_typing, got %s", env.Event)
	}
	var typing app.UserTypingPayload
	if err := json.Unmarshal(env.Payload, &typing); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if typing.UserID != "u1" || !typing.IsTyping {
		t.Fatalf("typing: %+v", typing)
	}
}

func TestSocketMalformedSendYieldsFailure(t *testing.T) {
	h := newSocketHarness(t)
	alice := h.dial(t)
	register(t, alice, "u1")

	if err := websocket.JSON.Send(alice, envelope{
		Event:   eventSendMessage,
		Payload: json.RawMessage(`"not an object"`),
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	env := readEvent(t, alice)
	if env.Event != app.EventMessageFailed {
		t.Fatalf("expected message_failed, got %s", env.Event)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}
