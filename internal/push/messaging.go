package push

import (
	"context"
	"errors"
)

var (
	// ErrVAPIDKeyRequired is returned when a web token is requested without an application server key.
	ErrVAPIDKeyRequired = errors.New("push: vapid public key is required")
)

// Messaging is the external push delivery service.
type Messaging interface {
	Supported() bool
	// Token returns a delivery token for the user's device.
	Token(ctx context.Context, userID, vapidKey string) (string, error)
	// Subscribe streams foreground deliveries for userID until the returned cancel func is called.
	Subscribe(userID string) (<-chan Message, func(), error)
}

// PermissionChecker reports whether the user allowed notifications.
type PermissionChecker interface {
	Granted() bool
}

// TokenRegistrar stores device tokens for later targeting.
type TokenRegistrar interface {
	Register(ctx context.Context, userID, token string) error
}
