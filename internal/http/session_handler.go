package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/app"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/ikramzafar0343/style-sathi/internal/notify"
)

// Sessions hands out the controller owning a browsing session.
type Sessions interface {
	Get(sessionID string) (*app.Controller, error)
}

// Notifications holds the events not yet shown to a session.
type Notifications interface {
	Drain(sessionID string) []notify.Event
}

// controller resolves the controller of the request's session, answering the
// request itself when that fails.
func controller(w http.ResponseWriter, r *http.Request, sessions Sessions) (*app.Controller, bool) {
	sessionID := sessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "no session cookie")
		return nil, false
	}
	c, err := sessions.Get(sessionID)
	if err != nil {
		handleError(w, err)
		return nil, false
	}
	return c, true
}

type SessionHandler struct {
	sessions      Sessions
	notifications Notifications
	timeout       time.Duration
}

func NewSessionHandler(sessions Sessions, notifications Notifications, timeout time.Duration) *SessionHandler {
	return &SessionHandler{
		sessions:      sessions,
		notifications: notifications,
		timeout:       timeout,
	}
}

// GET /api/v1/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, convertSession(c.Engine.SessionID(), c.Engine.Snapshot()))
}

// POST /api/v1/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}

	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.User.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_user", "user.id is required")
		return
	}

	var tokens *domain.AuthTokens
	if req.Tokens != nil {
		tokens = &domain.AuthTokens{Access: req.Tokens.Access, Refresh: req.Tokens.Refresh}
	}

	logFromContext(r.Context()).WithField("user_id", req.User.ID).Info("login")
	c.Engine.Login(ctx, req.User.toDomain(), tokens)

	respondJSON(w, http.StatusOK, convertSession(c.Engine.SessionID(), c.Engine.Snapshot()))
}

// POST /api/v1/session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}

	logFromContext(r.Context()).Info("logout")
	c.Engine.Logout(r.Context())

	respondJSON(w, http.StatusOK, convertSession(c.Engine.SessionID(), c.Engine.Snapshot()))
}

// PUT /api/v1/profile
func (h *SessionHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}

	var req UserDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	user := req.toDomain()
	if cur := c.Engine.Snapshot().CurrentUser; cur != nil && user.ID == "" {
		user.ID = cur.ID
	}

	if err := c.Engine.UpdateProfile(user); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertUser(c.Engine.Snapshot().CurrentUser))
}

// POST /api/v1/profile/phone-verified
func (h *SessionHandler) MarkPhoneVerified(w http.ResponseWriter, r *http.Request) {
	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}

	if err := c.Engine.MarkPhoneVerified(); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertUser(c.Engine.Snapshot().CurrentUser))
}

// GET /api/v1/notifications
func (h *SessionHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "no session cookie")
		return
	}
	respondJSON(w, http.StatusOK, h.notifications.Drain(sessionID))
}
