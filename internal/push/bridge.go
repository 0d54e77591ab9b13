package push

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/charlesng35/smokefree/pkg/logger"
	"github.com/charlesng35/smokefree/pkg/metrics"
)

// Bridge connects a user's permission state and notification store to the messaging service.
// Failures never reach the caller; they degrade to "no token" or "no subscription".
type Bridge struct {
	messaging Messaging
	registrar TokenRegistrar
	log       *zap.Logger
}

// NewBridge constructs a Bridge. registrar may be nil.
func NewBridge(messaging Messaging, registrar TokenRegistrar) *Bridge {
	return &Bridge{
		messaging: messaging,
		registrar: registrar,
		log:       logger.WithModule("push"),
	}
}

// RegisterDevice obtains a delivery token once permission is granted. It returns "" when
// permission is missing, messaging is unavailable, or the service fails.
func (b *Bridge) RegisterDevice(ctx context.Context, permission PermissionChecker, userID, vapidKey string) string {
	log := b.log.With(zap.String("user_id", userID))

	if permission == nil || !permission.Granted() {
		metrics.DeviceRegistrations.WithLabelValues("skipped").Inc()
		log.Debug("skipping device registration without permission")
		return ""
	}
	if b.messaging == nil || !b.messaging.Supported() {
		metrics.DeviceRegistrations.WithLabelValues("skipped").Inc()
		log.Info("push messaging unsupported")
		return ""
	}

	token, err := b.messaging.Token(ctx, userID, strings.TrimSpace(vapidKey))
	if err != nil || token == "" {
		metrics.DeviceRegistrations.WithLabelValues("failure").Inc()
		log.Warn("failed to obtain push token", zap.Error(err))
		return ""
	}

	if b.registrar != nil {
		if err := b.registrar.Register(ctx, userID, token); err != nil {
			log.Warn("failed to store push token", zap.Error(err))
		}
	}

	metrics.DeviceRegistrations.WithLabelValues("success").Inc()
	return token
}

// Listen subscribes to foreground deliveries and hands each message to onMessage, in arrival
// order, on a dedicated goroutine. It returns nil when messaging is unavailable.
func (b *Bridge) Listen(userID string, onMessage func(Message)) *Subscription {
	if b.messaging == nil || !b.messaging.Supported() || onMessage == nil {
		return nil
	}

	ch, unsubscribe, err := b.messaging.Subscribe(userID)
	if err != nil {
		b.log.Warn("failed to subscribe to push messages", zap.String("user_id", userID), zap.Error(err))
		return nil
	}

	sub := &Subscription{
		unsubscribe: unsubscribe,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go sub.run(ch, onMessage)
	return sub
}

// Subscription is a live foreground listener.
type Subscription struct {
	once        sync.Once
	unsubscribe func()
	stop        chan struct{}
	done        chan struct{}
}

func (s *Subscription) run(ch <-chan Message, onMessage func(Message)) {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			metrics.PushMessages.WithLabelValues("foreground").Inc()
			onMessage(msg)
		}
	}
}

// Cancel stops the listener. It is safe to call repeatedly, on a nil Subscription, and after
// the messaging channel closed.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		close(s.stop)
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})
}

// Done is closed once the listener goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
