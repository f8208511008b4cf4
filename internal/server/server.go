package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"biosync/internal/app"
	"biosync/internal/identity"
	"biosync/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// Verifier is optional; without it the X-Identity header is
	// trusted as-is (development mode).
	Verifier *identity.Verifier
}

// Server exposes the REST surface and the websocket event gateway.
type Server struct {
	app      *app.App
	verifier *identity.Verifier
	mux      *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:      cfg.App,
		verifier: cfg.Verifier,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestLog(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/ws", s.socketHandler())

	s.mux.Handle("GET /users/me", s.withIdentity(s.handleCurrentUser))
	s.mux.Handle("POST /users", s.withIdentity(s.handleOnboard))
	s.mux.Handle("GET /contacts", s.withIdentity(s.handleListContacts))
	s.mux.Handle("POST /contacts", s.withIdentity(s.handleAddContact))
	s.mux.Handle("POST /contacts/{contactID}/read", s.withIdentity(s.handleContactRead))
	s.mux.Handle("GET /conversations", s.withIdentity(s.handleListConversations))
	s.mux.Handle("GET /conversations/{conversationID}/messages", s.withIdentity(s.handleMessages))
	s.mux.Handle("GET /conversations/with/{contactID}/messages", s.withIdentity(s.handleMessagesWithContact))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type identityHandler func(http.ResponseWriter, *http.Request, string)

// withIdentity resolves the caller's identity: verified bearer token
// subject when a verifier is configured, raw X-Identity header
// otherwise.
func (s *Server) withIdentity(next identityHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.callerIdentity(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		next(w, r, id)
	})
}

func (s *Server) callerIdentity(r *http.Request) (string, bool) {
	if s.verifier != nil {
		token, ok := bearerToken(r)
		if !ok {
			return "", false
		}
		subject, err := s.verifier.VerifySubject(token)
		if err != nil {
			return "", false
		}
		return subject, true
	}
	id := strings.TrimSpace(r.Header.Get("X-Identity"))
	return id, id != ""
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request, caller string) {
	user, found, err := s.app.CurrentUser(caller)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if !found {
		// First-time caller, signals the client to run onboarding.
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleOnboard(w http.ResponseWriter, r *http.Request, caller string) {
	var req struct {
		IsParalyzed bool `json:"isParalyzed"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.app.Onboard(caller, req.IsParalyzed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request, caller string) {
	contacts, err := s.app.ListContacts(r.Context(), caller)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list contacts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contacts": contacts})
}

func (s *Server) handleAddContact(w http.ResponseWriter, r *http.Request, caller string) {
	var req struct {
		ContactIdentity string `json:"contactIdentity"`
		Nickname        string `json:"nickname"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	contact, err := s.app.AddContact(r.Context(), caller, req.ContactIdentity, req.Nickname)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrContactExists):
			writeError(w, http.StatusBadRequest, "contact already exists")
		case errors.Is(err, app.ErrSelfContact):
			writeError(w, http.StatusBadRequest, "cannot add yourself")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "contact": contact})
}

func (s *Server) handleContactRead(w http.ResponseWriter, r *http.Request, caller string) {
	contactID := r.PathValue("contactID")
	if contactID == "" {
		writeError(w, http.StatusBadRequest, "missing contact id")
		return
	}
	if err := s.app.MarkContactRead(caller, contactID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset unread count")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request, caller string) {
	conversations, err := s.app.ListConversations(caller)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, caller string) {
	conversationID, err := strconv.ParseInt(r.PathValue("conversationID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation ID")
		return
	}
	limit, offset := pageParams(r)
	messages, err := s.app.ConversationMessages(caller, conversationID, limit, offset)
	if err != nil {
		if errors.Is(err, app.ErrConversationNotFound) || errors.Is(err, app.ErrConversationForbidden) {
			writeError(w, http.StatusNotFound, "conversation not found or access denied")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversationId": conversationID,
		"messages":       messages,
	})
}

func (s *Server) handleMessagesWithContact(w http.ResponseWriter, r *http.Request, caller string) {
	contactID := r.PathValue("contactID")
	if contactID == "" {
		writeError(w, http.StatusBadRequest, "missing contact id")
		return
	}
	limit, offset := pageParams(r)
	conversationID, messages, err := s.app.MessagesWithContact(caller, contactID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversationId": conversationID,
		"messages":       messages,
	})
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
