package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/smokefree/internal/middleware"
	"github.com/charlesng35/smokefree/internal/session"
	"github.com/charlesng35/smokefree/pkg/errors"
	"github.com/charlesng35/smokefree/pkg/response"
)

// SessionHandler starts and ends notification sessions.
type SessionHandler struct {
	sessions *session.Manager
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type sessionView struct {
	UserID      string    `json:"user_id"`
	StartedAt   time.Time `json:"started_at"`
	Total       int       `json:"total"`
	Unread      int       `json:"unread"`
	Permission  string    `json:"permission"`
	PushEnabled bool      `json:"push_enabled"`
}

func viewSession(s *session.Session) sessionView {
	return sessionView{
		UserID:      s.UserID(),
		StartedAt:   s.StartedAt(),
		Total:       len(s.Store().List()),
		Unread:      s.Store().UnreadCount(),
		Permission:  string(s.Gate().CurrentState()),
		PushEnabled: s.Listening(),
	}
}

// SignIn loads the caller's persisted notifications into a fresh session.
func (h *SessionHandler) SignIn(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	s, err := h.sessions.SignIn(requestContext(c), userID)
	if err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return
	}
	response.Success(c, http.StatusCreated, viewSession(s))
}

// Current describes the caller's active session.
func (h *SessionHandler) Current(c *gin.Context) {
	s, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, viewSession(s))
}

// SignOut abandons the caller's session. Persisted notifications are untouched.
func (h *SessionHandler) SignOut(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	ended := h.sessions.SignOut(userID)
	response.Success(c, http.StatusOK, gin.H{"signed_out": ended})
}

// sessionFor resolves the caller's active session, writing the error response when absent.
func sessionFor(c *gin.Context, sessions *session.Manager) (*session.Session, bool) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return nil, false
	}
	s, ok := sessions.Get(userID)
	if !ok {
		response.Error(c, errors.ErrSessionNotStarted)
		return nil, false
	}
	return s, true
}
