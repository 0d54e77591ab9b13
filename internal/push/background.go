package push

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/smokefree/pkg/logger"
)

// DefaultClickURL is opened when a message carries no actionUrl.
const DefaultClickURL = "/notifications"

// SystemNotification is what the platform displays for a background delivery.
type SystemNotification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Icon     string            `json:"icon,omitempty"`
	Image    string            `json:"image,omitempty"`
	Tag      string            `json:"tag,omitempty"`
	ClickURL string            `json:"clickUrl"`
	Data     map[string]string `json:"data,omitempty"`
}

// Renderer displays a system notification.
type Renderer interface {
	Render(ctx context.Context, userID string, n SystemNotification) error
}

// LogRenderer writes system notifications to the log.
type LogRenderer struct {
	log *zap.Logger
}

// NewLogRenderer returns a Renderer backed by the push module logger.
func NewLogRenderer() *LogRenderer {
	return &LogRenderer{log: logger.WithModule("push.background")}
}

func (r *LogRenderer) Render(_ context.Context, userID string, n SystemNotification) error {
	r.log.Info("system notification",
		zap.String("user_id", userID),
		zap.String("title", n.Title),
		zap.String("click_url", n.ClickURL),
	)
	return nil
}

// Window is an open client window.
type Window struct {
	ID  string `json:"id" validate:"required"`
	URL string `json:"url" validate:"required"`
}

// ClickKind names the outcome of a notification click.
type ClickKind string

const (
	ClickFocus ClickKind = "focus"
	ClickOpen  ClickKind = "open"
)

// ClickAction tells the client what to do after a click.
type ClickAction struct {
	Kind     ClickKind `json:"action"`
	WindowID string    `json:"windowId,omitempty"`
	URL      string    `json:"url"`
}

// BackgroundHandler renders messages that arrived while no foreground listener was active.
// It never touches the notification store.
type BackgroundHandler struct {
	renderer   Renderer
	icon       string
	defaultURL string
	log        *zap.Logger
}

// NewBackgroundHandler constructs a handler. Empty defaultURL falls back to DefaultClickURL.
func NewBackgroundHandler(renderer Renderer, icon, defaultURL string) *BackgroundHandler {
	if renderer == nil {
		renderer = NewLogRenderer()
	}
	if strings.TrimSpace(defaultURL) == "" {
		defaultURL = DefaultClickURL
	}
	return &BackgroundHandler{
		renderer:   renderer,
		icon:       icon,
		defaultURL: defaultURL,
		log:        logger.WithModule("push.background"),
	}
}

// Build converts msg into the notification the platform shows.
func (h *BackgroundHandler) Build(msg Message) SystemNotification {
	n := SystemNotification{
		Title:    "Smoke Free",
		Icon:     h.icon,
		Tag:      msg.MessageID,
		ClickURL: h.ClickURL(msg),
		Data:     msg.Data,
	}
	if msg.Notification != nil {
		if msg.Notification.Title != "" {
			n.Title = msg.Notification.Title
		}
		n.Body = msg.Notification.Body
		n.Image = msg.Notification.Image
	}
	return n
}

// ClickURL returns the target of a click on msg.
func (h *BackgroundHandler) ClickURL(msg Message) string {
	if target := msg.ActionURL(); target != "" {
		return target
	}
	return h.defaultURL
}

// Handle renders msg for userID.
func (h *BackgroundHandler) Handle(ctx context.Context, userID string, msg Message) error {
	if err := h.renderer.Render(ctx, userID, h.Build(msg)); err != nil {
		h.log.Warn("failed to render system notification", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// Click focuses the first window already showing target, or opens a new one.
// An empty target falls back to the default notifications URL.
func (h *BackgroundHandler) Click(target string, windows []Window) ClickAction {
	target = strings.TrimSpace(target)
	if target == "" {
		target = h.defaultURL
	}

	for _, w := range windows {
		if sameLocation(w.URL, target) {
			return ClickAction{Kind: ClickFocus, WindowID: w.ID, URL: target}
		}
	}
	return ClickAction{Kind: ClickOpen, URL: target}
}

// sameLocation compares path and query so absolute window URLs match relative targets.
func sameLocation(a, b string) bool {
	if a == b {
		return true
	}
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	if ua.Host != "" && ub.Host != "" && ua.Host != ub.Host {
		return false
	}
	return strings.TrimSuffix(ua.Path, "/") == strings.TrimSuffix(ub.Path, "/") && ua.RawQuery == ub.RawQuery
}
