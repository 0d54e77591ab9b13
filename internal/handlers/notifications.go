package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/smokefree/internal/middleware"
	"github.com/charlesng35/smokefree/internal/notifications"
	"github.com/charlesng35/smokefree/internal/realtime"
	"github.com/charlesng35/smokefree/internal/session"
	"github.com/charlesng35/smokefree/pkg/errors"
	"github.com/charlesng35/smokefree/pkg/response"
)

// NotificationHandler exposes the caller's notification store over HTTP.
type NotificationHandler struct {
	sessions *session.Manager
	hub      *realtime.Hub
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(sessions *session.Manager, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{sessions: sessions, hub: hub}
}

type createNotificationRequest struct {
	Title   string             `json:"title" validate:"required,max=256"`
	Message string             `json:"message" validate:"max=4096"`
	Type    notifications.Type `json:"type" validate:"required,oneof=achievement milestone reminder goal health system push"`
	Data    map[string]any     `json:"data"`
}

type mutationResult struct {
	ID      string `json:"id,omitempty"`
	Changed bool   `json:"changed"`
}

func storeMeta(store *notifications.Store) *response.Meta {
	return &response.Meta{Total: len(store.List()), Unread: store.UnreadCount()}
}

// List returns the collection newest first. limit and offset page through it; the
// meta counters always describe the whole collection.
func (h *NotificationHandler) List(c *gin.Context) {
	s, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}

	items := s.Store().List()
	meta := &response.Meta{Total: len(items), Unread: s.Store().UnreadCount()}

	offset := max(parseIntQuery(c, "offset", 0), 0)
	limit := parseIntQuery(c, "limit", 0)
	if offset > len(items) {
		offset = len(items)
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	response.SuccessWithMeta(c, http.StatusOK, items, meta)
}

// Create adds a record to the caller's collection.
func (h *NotificationHandler) Create(c *gin.Context) {
	s, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}

	var req createNotificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	record, added := s.Store().Add(requestContext(c), notifications.Input{
		Title:   strings.TrimSpace(req.Title),
		Message: req.Message,
		Type:    req.Type,
		Data:    req.Data,
	})
	if !added {
		// The session may have been replaced between lookup and insert.
		response.Error(c, errors.ErrSessionNotStarted)
		return
	}
	response.SuccessWithMeta(c, http.StatusCreated, record, storeMeta(s.Store()))
}

// MarkRead flags one record as read. Unknown ids are a no-op.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	s, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	changed := s.Store().MarkRead(requestContext(c), id)
	response.SuccessWithMeta(c, http.StatusOK, mutationResult{ID: id, Changed: changed}, storeMeta(s.Store()))
}

// MarkAllRead flags every record as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	s, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}

	hadUnread := s.Store().UnreadCount() > 0
	s.Store().MarkAllRead(requestContext(c))
	response.SuccessWithMeta(c, http.StatusOK, mutationResult{Changed: hadUnread}, storeMeta(s.Store()))
}

// Remove deletes one record. Unknown ids are a no-op.
func (h *NotificationHandler) Remove(c *gin.Context) {
	s, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	changed := s.Store().Remove(requestContext(c), id)
	response.SuccessWithMeta(c, http.StatusOK, mutationResult{ID: id, Changed: changed}, storeMeta(s.Store()))
}

// Clear empties the collection and deletes its persisted entry.
func (h *NotificationHandler) Clear(c *gin.Context) {
	s, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}

	hadRecords := len(s.Store().List()) > 0
	s.Store().Clear(requestContext(c))
	response.SuccessWithMeta(c, http.StatusOK, mutationResult{Changed: hadRecords}, storeMeta(s.Store()))
}

// Stream upgrades the connection and relays store events for the caller.
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	if h.hub == nil {
		response.Error(c, errors.New("REALTIME_UNAVAILABLE", "Realtime stream is not available", http.StatusServiceUnavailable))
		return
	}
	h.hub.Serve(userID, c.Writer, c.Request)
}
