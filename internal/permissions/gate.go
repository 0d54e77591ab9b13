package permissions

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/charlesng35/smokefree/pkg/logger"
	"github.com/charlesng35/smokefree/pkg/metrics"
)

// Platform is the notification capability of the user's device.
// A successful Prompt must leave Current reporting the returned state.
type Platform interface {
	Supported() bool
	Current() State
	Prompt(ctx context.Context) (State, error)
}

// Gate mediates permission requests. Denied is terminal: it is never re-prompted.
type Gate struct {
	mu       sync.Mutex
	platform Platform
	log      *zap.Logger
}

// NewGate wraps platform.
func NewGate(platform Platform) *Gate {
	return &Gate{
		platform: platform,
		log:      logger.WithModule("permissions"),
	}
}

// CurrentState returns the platform value, or StateUnknown when the capability is absent.
func (g *Gate) CurrentState() State {
	if g.platform == nil || !g.platform.Supported() {
		return StateUnknown
	}
	return g.platform.Current()
}

// Granted reports whether notifications may be shown.
func (g *Gate) Granted() bool {
	return g.CurrentState() == StateGranted
}

// Request asks for permission when the outcome is still open and returns the resulting state.
// Prompt failures are logged and leave the state unchanged.
func (g *Gate) Request(ctx context.Context) State {
	g.mu.Lock()
	defer g.mu.Unlock()

	current := g.CurrentState()
	if g.platform == nil || !g.platform.Supported() {
		metrics.PermissionRequests.WithLabelValues("unsupported").Inc()
		return current
	}

	switch current {
	case StateGranted, StateDenied:
		metrics.PermissionRequests.WithLabelValues(string(current)).Inc()
		return current
	}

	answer, err := g.platform.Prompt(ctx)
	if err != nil {
		metrics.PermissionRequests.WithLabelValues("error").Inc()
		g.log.Warn("notification permission prompt failed", zap.Error(err))
		return current
	}

	metrics.PermissionRequests.WithLabelValues(string(answer)).Inc()
	return g.CurrentState()
}
