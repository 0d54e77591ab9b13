package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/smokefree/pkg/logger"
	"github.com/charlesng35/smokefree/pkg/metrics"
)

// ErrUserRequired is returned by SignIn without a user id.
var ErrUserRequired = errors.New("session: user id is required")

// Factory creates a session for a user.
type Factory func(ctx context.Context, userID string) *Session

// Manager tracks the active session of each signed-in user.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
	log      *zap.Logger
}

// NewManager constructs a Manager.
func NewManager(factory Factory) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
		log:      logger.WithModule("session"),
	}
}

// SignIn starts a session for userID, replacing any existing one.
func (m *Manager) SignIn(ctx context.Context, userID string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserRequired
	}

	next := m.factory(ctx, userID)

	m.mu.Lock()
	prev := m.sessions[userID]
	m.sessions[userID] = next
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	m.log.Info("session started", zap.String("user_id", userID), zap.Bool("replaced", prev != nil))
	return next, nil
}

// Get returns the active session of userID.
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// SignOut ends the session of userID. It reports whether one was active.
func (m *Manager) SignOut(userID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if !ok {
		return false
	}
	_ = s.Close()
	m.log.Info("session ended", zap.String("user_id", userID))
	return true
}

// Active returns the active sessions ordered by user id.
func (m *Manager) Active() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].userID < out[j].userID })
	return out
}

// Close ends every session.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	metrics.ActiveSessions.Set(0)
	m.mu.Unlock()

	var err error
	for _, s := range sessions {
		err = multierr.Append(err, s.Close())
	}
	return err
}
