package handlers

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/smokefree/internal/middleware"
	"github.com/charlesng35/smokefree/internal/permissions"
	"github.com/charlesng35/smokefree/internal/push"
	"github.com/charlesng35/smokefree/internal/session"
	"github.com/charlesng35/smokefree/pkg/errors"
	"github.com/charlesng35/smokefree/pkg/logger"
	"github.com/charlesng35/smokefree/pkg/response"
)

const maxPushPayloadBytes = 64 << 10

// Deliverer hands a raw push payload to a user's devices.
type Deliverer interface {
	DeliverRaw(ctx context.Context, userID string, raw []byte) (push.Path, error)
}

// Clicker resolves a click on a background system notification.
type Clicker interface {
	Click(target string, windows []push.Window) push.ClickAction
}

// TokenStore keeps the device tokens registered for each user.
type TokenStore interface {
	push.TokenRegistrar
	Revoke(ctx context.Context, userID, token string) error
}

// PushConfig carries the push settings the handler needs.
type PushConfig struct {
	Enabled  bool
	VAPIDKey string
}

// PushHandler exposes permission, device registration and delivery endpoints.
type PushHandler struct {
	sessions  *session.Manager
	tokens    TokenStore
	deliverer Deliverer
	clicker   Clicker
	cfg       PushConfig
}

// NewPushHandler constructs a PushHandler.
func NewPushHandler(sessions *session.Manager, tokens TokenStore, deliverer Deliverer, clicker Clicker, cfg PushConfig) *PushHandler {
	return &PushHandler{
		sessions:  sessions,
		tokens:    tokens,
		deliverer: deliverer,
		clicker:   clicker,
		cfg:       cfg,
	}
}

type permissionView struct {
	Supported bool    `json:"supported"`
	State     *string `json:"state"`
}

func viewPermission(s *session.Session) permissionView {
	view := permissionView{Supported: s.Device().Supported()}
	if state := s.Gate().CurrentState(); state != permissions.StateUnknown {
		value := string(state)
		view.State = &value
	}
	return view
}

type reportPermissionRequest struct {
	Supported bool   `json:"supported"`
	State     string `json:"state" validate:"omitempty,oneof=granted denied default"`
}

type requestPermissionRequest struct {
	Answer string `json:"answer" validate:"omitempty,oneof=granted denied default"`
}

type enableDeviceRequest struct {
	VAPIDKey string `json:"vapid_key"`
}

type registerTokenRequest struct {
	UserID string `json:"userId" validate:"required"`
	Token  string `json:"token" validate:"required"`
}

type clickRequest struct {
	ActionURL string        `json:"actionUrl"`
	Windows   []push.Window `json:"windows" validate:"dive"`
}

// GetPermission returns the caller's last known permission state.
func (h *PushHandler) GetPermission(c *gin.Context) {
	s, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, viewPermission(s))
}

// ReportPermission records the device's capability and current state.
func (h *PushHandler) ReportPermission(c *gin.Context) {
	s, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}

	var req reportPermissionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	state, err := permissions.ParseState(req.State)
	if err == nil {
		err = s.Device().Report(req.Supported, state)
	}
	switch {
	case stderrors.Is(err, permissions.ErrDeniedTerminal):
		response.Error(c, errors.ErrPermissionDenied)
		return
	case err != nil:
		response.Error(c, errors.NewBadRequest(err.Error()))
		return
	}
	response.Success(c, http.StatusOK, viewPermission(s))
}

// RequestPermission runs the gate's request flow. The optional answer is the outcome of
// the device's native dialog and is consumed by the prompt.
func (h *PushHandler) RequestPermission(c *gin.Context) {
	s, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}

	var req requestPermissionRequest
	if !bindOptional(c, &req) {
		return
	}
	if req.Answer != "" {
		if err := s.Device().Answer(permissions.State(req.Answer)); err != nil {
			response.Error(c, errors.NewBadRequest(err.Error()))
			return
		}
	}

	s.Gate().Request(requestContext(c))
	response.Success(c, http.StatusOK, viewPermission(s))
}

// EnableDevice registers the caller's device for push and starts the foreground listener.
// A null token means push is unavailable; it is not an error.
func (h *PushHandler) EnableDevice(c *gin.Context) {
	s, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}
	if !h.cfg.Enabled {
		response.Error(c, errors.ErrPushUnavailable)
		return
	}

	var req enableDeviceRequest
	if !bindOptional(c, &req) {
		return
	}
	vapidKey := strings.TrimSpace(req.VAPIDKey)
	if vapidKey == "" {
		vapidKey = h.cfg.VAPIDKey
	}

	var token *string
	if value := s.EnablePush(requestContext(c), vapidKey); value != "" {
		token = &value
	}
	response.Success(c, http.StatusOK, gin.H{
		"token":     token,
		"listening": s.Listening(),
	})
}

// RegisterToken stores a device token for the caller.
func (h *PushHandler) RegisterToken(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Token) == "" {
		response.Error(c, errors.NewBadRequest("userId and token are required"))
		return
	}
	if strings.TrimSpace(req.UserID) != userID {
		response.Error(c, errors.ErrForbidden)
		return
	}

	if err := h.tokens.Register(requestContext(c), userID, strings.TrimSpace(req.Token)); err != nil {
		logger.WithUser("push", userID).Error("token registration failed", zap.Error(err))
		response.Error(c, errors.Wrap(err, "Failed to register token"))
		return
	}
	response.OK(c)
}

// RevokeToken removes one of the caller's device tokens.
func (h *PushHandler) RevokeToken(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	err := h.tokens.Revoke(requestContext(c), userID, c.Param("token"))
	switch {
	case err == nil:
		response.OK(c)
	case stderrors.Is(err, errors.ErrNotFound), stderrors.Is(err, errors.ErrBadRequest):
		response.Error(c, err)
	default:
		logger.WithUser("push", userID).Error("token revocation failed", zap.Error(err))
		response.Error(c, errors.Wrap(err, "Failed to revoke token"))
	}
}

// Deliver hands the raw body to the caller's devices as a push payload. Payloads that
// do not match the message schema are dropped and reported as 400.
func (h *PushHandler) Deliver(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	if !h.cfg.Enabled || h.deliverer == nil {
		response.Error(c, errors.ErrPushUnavailable)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPushPayloadBytes+1))
	if err != nil {
		response.Error(c, errors.NewBadRequest("unable to read payload"))
		return
	}
	if len(raw) > maxPushPayloadBytes {
		response.Error(c, errors.NewBadRequest("payload too large"))
		return
	}

	path, err := h.deliverer.DeliverRaw(requestContext(c), userID, raw)
	switch {
	case err != nil && path == push.PathDropped:
		response.Error(c, errors.NewBadRequest(err.Error()))
		return
	case err != nil:
		logger.WithUser("push", userID).Error("background delivery failed", zap.Error(err))
		response.Error(c, errors.Wrap(err, "Failed to deliver push message"))
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"path": path})
}

// Click resolves which window a background notification click should focus or open.
func (h *PushHandler) Click(c *gin.Context) {
	if h.clicker == nil {
		response.Error(c, errors.ErrPushUnavailable)
		return
	}

	var req clickRequest
	if !bindAndValidate(c, &req) {
		return
	}
	response.Success(c, http.StatusOK, h.clicker.Click(req.ActionURL, req.Windows))
}
