package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"biosync/internal/app"
	"biosync/internal/presence"
	"biosync/internal/store"
)

type restHarness struct {
	srv  *httptest.Server
	core *app.App
	st   *store.MemoryStore
}

func newRESTHarness(t *testing.T) *restHarness {
	t.Helper()
	st := store.NewMemoryStore()
	core, err := app.New(app.Config{Store: st, Presence: presence.NewDirectory()})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv := httptest.NewServer(New(Config{App: core}).Router())
	t.Cleanup(srv.Close)
	return &restHarness{srv: srv, core: core, st: st}
}

func (h *restHarness) do(t *testing.T, method, path, identity string, body any) *http.Response {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, payload)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if identity != "" {
		req.Header.Set("X-Identity", identity)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestIdentityHeaderRequired(t *testing.T) {
	h := newRESTHarness(t)
	resp := h.do(t, http.MethodGet, "/contacts", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", resp.StatusCode)
	}
}

func TestOnboardingFlow(t *testing.T) {
	h := newRESTHarness(t)

	// First check-in: no row yet, client must onboard.
	resp := h.do(t, http.MethodGet, "/users/me", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status: %d", resp.StatusCode)
	}
	var me struct {
		User *json.RawMessage `json:"user"`
	}
	decodeBody(t, resp, &me)
	if me.User != nil {
		t.Fatalf("expected null user before onboarding, got %s", *me.User)
	}

	resp = h.do(t, http.MethodPost, "/users", "u1", map[string]any{"isParalyzed": true})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("onboard status: %d", resp.StatusCode)
	}

	resp = h.do(t, http.MethodGet, "/users/me", "u1", nil)
	var after struct {
		User struct {
			Identity    string `json:"identity"`
			Status      string `json:"status"`
			IsParalyzed bool   `json:"isParalyzed"`
		} `json:"user"`
	}
	decodeBody(t, resp, &after)
	if after.User.Identity != "u1" || !after.User.IsParalyzed || after.User.Status != "online" {
		t.Fatalf("user after onboarding: %+v", after.User)
	}
}

func TestContactsEndpoints(t *testing.T) {
	h := newRESTHarness(t)

	resp := h.do(t, http.MethodPost, "/contacts", "u1", map[string]any{
		"contactIdentity": "u2",
		"nickname":        "Buddy",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add status: %d", resp.StatusCode)
	}

	// Duplicate add is rejected.
	resp = h.do(t, http.MethodPost, "/contacts", "u1", map[string]any{"contactIdentity": "u2"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate add status: %d", resp.StatusCode)
	}

	resp = h.do(t, http.MethodGet, "/contacts", "u1", nil)
	var listing struct {
		Contacts []app.ContactView `json:"contacts"`
	}
	decodeBody(t, resp, &listing)
	if len(listing.Contacts) != 1 || listing.Contacts[0].ContactIdentity != "u2" || listing.Contacts[0].Nickname != "Buddy" {
		t.Fatalf("contacts: %+v", listing.Contacts)
	}
}

func TestContactReadResetsUnread(t *testing.T) {
	h := newRESTHarness(t)
	sendThrough(t, h.core, "u1", "u2", "one")
	sendThrough(t, h.core, "u1", "u2", "two")

	resp := h.do(t, http.MethodPost, "/contacts/u1/read", "u2", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read status: %d", resp.StatusCode)
	}
	contacts, _ := h.st.ListContacts("u2")
	if contacts[0].UnreadCount != 0 {
		t.Fatalf("unread: %d", contacts[0].UnreadCount)
	}
}

func TestConversationListingAndMessages(t *testing.T) {
	h := newRESTHarness(t)
	for i := 0; i < 60; i++ {
		sendThrough(t, h.core, "u1", "u2", fmt.Sprintf("m%d", i))
	}

	resp := h.do(t, http.MethodGet, "/conversations", "u2", nil)
	var convs struct {
		Conversations []app.ConversationSummary `json:"conversations"`
	}
	decodeBody(t, resp, &convs)
	if len(convs.Conversations) != 1 || convs.Conversations[0].OtherIdentity != "u1" {
		t.Fatalf("conversations: %+v", convs.Conversations)
	}
	convID := convs.Conversations[0].ID

	var page1, page2 struct {
		ConversationID int64               `json:"conversationId"`
		Messages       []app.ThreadMessage `json:"messages"`
	}
	resp = h.do(t, http.MethodGet, fmt.Sprintf("/conversations/%d/messages?limit=50&offset=0", convID), "u2", nil)
	decodeBody(t, resp, &page1)
	resp = h.do(t, http.MethodGet, fmt.Sprintf("/conversations/%d/messages?limit=50&offset=50", convID), "u2", nil)
	decodeBody(t, resp, &page2)

	all := append(append([]app.ThreadMessage(nil), page2.Messages...), page1.Messages...)
	if len(all) != 60 {
		t.Fatalf("total messages: %d", len(all))
	}
	for i, msg := range all {
		if msg.Body != fmt.Sprintf("m%d", i) {
			t.Fatalf("position %d: %q", i, msg.Body)
		}
		if msg.IsMine {
			t.Fatalf("u2 did not send %q", msg.Body)
		}
	}

	// A non-participant cannot read the thread.
	resp = h.do(t, http.MethodGet, fmt.Sprintf("/conversations/%d/messages", convID), "intruder", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("intruder status: %d", resp.StatusCode)
	}
}

func TestMessagesWithContactCreatesConversation(t *testing.T) {
	h := newRESTHarness(t)
	resp := h.do(t, http.MethodGet, "/conversations/with/u2/messages", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	var body struct {
		ConversationID int64               `json:"conversationId"`
		Messages       []app.ThreadMessage `json:"messages"`
	}
	decodeBody(t, resp, &body)
	if body.ConversationID == 0 || len(body.Messages) != 0 {
		t.Fatalf("body: %+v", body)
	}
	if _, found, _ := h.st.GetConversationByPair("u1", "u2"); !found {
		t.Fatalf("conversation not created")
	}
}

// sendThrough drives the router pipeline directly, standing in for a
// live socket sender.
func sendThrough(t *testing.T, core *app.App, from, to, text string) {
	t.Helper()
	core.HandleSendMessage(nil, from, to, text)
}
