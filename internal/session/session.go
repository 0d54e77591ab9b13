package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/smokefree/internal/cache"
	"github.com/charlesng35/smokefree/internal/milestones"
	"github.com/charlesng35/smokefree/internal/notifications"
	"github.com/charlesng35/smokefree/internal/permissions"
	"github.com/charlesng35/smokefree/internal/push"
	"github.com/charlesng35/smokefree/pkg/logger"
)

// ErrClosed is returned when closing a session twice.
var ErrClosed = errors.New("session: already closed")

// Session owns the notification subsystem of one signed-in user. It is created at sign-in
// and torn down at sign-out.
type Session struct {
	userID    string
	startedAt time.Time

	store      *notifications.Store
	device     *permissions.DevicePlatform
	gate       *permissions.Gate
	milestones *milestones.Notifier
	bridge     *push.Bridge

	mu     sync.Mutex
	sub    *push.Subscription
	closed bool
	log    *zap.Logger
}

// Builder assembles sessions from shared dependencies.
type Builder struct {
	Storage      cache.Store
	Bridge       *push.Bridge
	StoreOptions []notifications.Option
	Clock        func() time.Time
}

// Build creates a session for userID and loads its persisted notifications.
func (b Builder) Build(ctx context.Context, userID string) *Session {
	now := time.Now
	if b.Clock != nil {
		now = b.Clock
	}

	store := notifications.NewStore(b.Storage, b.StoreOptions...)
	store.Load(ctx, userID)

	device := permissions.NewDevicePlatform()
	return &Session{
		userID:     userID,
		startedAt:  now(),
		store:      store,
		device:     device,
		gate:       permissions.NewGate(device),
		milestones: milestones.NewNotifier(store),
		bridge:     b.Bridge,
		log:        logger.WithUser("session", userID),
	}
}

func (s *Session) UserID() string { return s.userID }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) Store() *notifications.Store { return s.store }
func (s *Session) Device() *permissions.DevicePlatform { return s.device }
func (s *Session) Gate() *permissions.Gate { return s.gate }
func (s *Session) Milestones() *milestones.Notifier { return s.milestones }

// EnablePush registers the device and starts the foreground listener once. It returns the
// delivery token, or "" when push is unavailable for this session.
func (s *Session) EnablePush(ctx context.Context, vapidKey string) string {
	if s.bridge == nil {
		return ""
	}

	token := s.bridge.RegisterDevice(ctx, s.gate, s.userID, vapidKey)
	if token == "" {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.sub != nil {
		return token
	}
	s.sub = s.bridge.Listen(s.userID, func(msg push.Message) {
		if _, ok := s.store.AddFromPush(context.Background(), msg); !ok {
			s.log.Debug("push message arrived after sign-out", zap.String("message_id", msg.MessageID))
		}
	})
	return token
}

// Listening reports whether a foreground listener is active.
func (s *Session) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub != nil
}

// Close cancels the listener and abandons the in-memory collection.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	sub.Cancel()
	s.store.SignOut()
	return nil
}
