package push

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/smokefree/pkg/logger"
	"github.com/charlesng35/smokefree/pkg/metrics"
)

const defaultSubscriberBuffer = 32

// Path describes how a delivery was handled.
type Path string

const (
	PathForeground Path = "foreground"
	PathBackground Path = "background"
	PathDropped    Path = "dropped"
)

// BackgroundDelivery handles messages for users without a foreground listener.
type BackgroundDelivery interface {
	Handle(ctx context.Context, userID string, msg Message) error
}

type subscriber struct {
	ch     chan Message
	closed bool
}

// Broker is an in-process Messaging implementation. Each message reaches at most one
// foreground subscriber, the most recent one for the user; otherwise it goes to the background handler.
type Broker struct {
	mu          sync.Mutex
	subscribers map[string][]*subscriber

	background BackgroundDelivery
	buffer     int
	log        *zap.Logger
}

// NewBroker constructs a Broker. background may be nil, in which case unclaimed messages are dropped.
func NewBroker(background BackgroundDelivery) *Broker {
	return &Broker{
		subscribers: make(map[string][]*subscriber),
		background:  background,
		buffer:      defaultSubscriberBuffer,
		log:         logger.WithModule("push.broker"),
	}
}

func (b *Broker) Supported() bool { return true }

// Token issues a new delivery token for userID.
func (b *Broker) Token(ctx context.Context, userID, vapidKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(vapidKey) == "" {
		return "", ErrVAPIDKeyRequired
	}

	return uuid.NewString(), nil
}

// Subscribe registers a foreground listener for userID.
func (b *Broker) Subscribe(userID string) (<-chan Message, func(), error) {
	sub := &subscriber{ch: make(chan Message, b.buffer)}

	b.mu.Lock()
	b.subscribers[userID] = append(b.subscribers[userID], sub)
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() { b.unsubscribe(userID, sub) })
	}
	return sub.ch, cancel, nil
}

// unsubscribe detaches target and re-routes messages still buffered for it, so a listener
// that stops early never swallows a delivery.
func (b *Broker) unsubscribe(userID string, target *subscriber) {
	leftovers := b.detach(userID, target)
	for _, msg := range leftovers {
		if _, err := b.Deliver(context.Background(), userID, msg); err != nil {
			b.log.Warn("failed to re-route buffered push message",
				zap.String("user_id", userID), zap.String("message_id", msg.MessageID), zap.Error(err))
		}
	}
}

func (b *Broker) detach(userID string, target *subscriber) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[userID]
	for i, sub := range subs {
		if sub == target {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.subscribers, userID)
	} else {
		b.subscribers[userID] = subs
	}

	if target.closed {
		return nil
	}
	var leftovers []Message
	for drained := false; !drained; {
		select {
		case msg := <-target.ch:
			leftovers = append(leftovers, msg)
		default:
			drained = true
		}
	}
	target.closed = true
	close(target.ch)
	return leftovers
}

// Deliver routes msg to the newest foreground subscriber of userID, or to the background handler.
func (b *Broker) Deliver(ctx context.Context, userID string, msg Message) (Path, error) {
	if b.sendForeground(userID, msg) {
		return PathForeground, nil
	}

	if b.background == nil {
		metrics.PushMessages.WithLabelValues(string(PathDropped)).Inc()
		b.log.Debug("no receiver for push message", zap.String("user_id", userID), zap.String("message_id", msg.MessageID))
		return PathDropped, nil
	}

	metrics.PushMessages.WithLabelValues(string(PathBackground)).Inc()
	if err := b.background.Handle(ctx, userID, msg); err != nil {
		return PathBackground, err
	}
	return PathBackground, nil
}

// DeliverRaw parses raw and delivers it. Malformed payloads are dropped and logged.
func (b *Broker) DeliverRaw(ctx context.Context, userID string, raw []byte) (Path, error) {
	msg, err := ParseMessage(raw)
	if err != nil {
		metrics.PushMessages.WithLabelValues(string(PathDropped)).Inc()
		b.log.Warn("dropping malformed push payload", zap.String("user_id", userID), zap.Error(err))
		return PathDropped, err
	}
	return b.Deliver(ctx, userID, msg)
}

func (b *Broker) sendForeground(userID string, msg Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[userID]
	if len(subs) == 0 {
		return false
	}

	newest := subs[len(subs)-1]
	select {
	case newest.ch <- msg:
		return true
	default:
		b.log.Warn("foreground subscriber is saturated", zap.String("user_id", userID))
		return false
	}
}

// Close ends every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for userID, subs := range b.subscribers {
		for _, sub := range subs {
			if !sub.closed {
				sub.closed = true
				close(sub.ch)
			}
		}
		delete(b.subscribers, userID)
	}
}
