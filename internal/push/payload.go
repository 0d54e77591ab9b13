package push

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charlesng35/smokefree/pkg/validator"
)

// Data keys with meaning to the push pipeline.
const (
	DataKeyType           = "type"
	DataKeyActionURL      = "actionUrl"
	DataKeyNotificationID = "notificationId"
	DataKeyMessageID      = "messageId"
	DataKeyImageURL       = "imageUrl"
)

// ErrInvalidMessage wraps every schema mismatch reported by ParseMessage.
var ErrInvalidMessage = errors.New("push: invalid message")

// Notification is the display part of a push message.
type Notification struct {
	Title string `json:"title,omitempty" validate:"max=256"`
	Body  string `json:"body,omitempty" validate:"max=4096"`
	Image string `json:"image,omitempty" validate:"omitempty,url"`
}

// Message is an inbound push delivery.
type Message struct {
	MessageID    string            `json:"messageId" validate:"required,max=256"`
	Notification *Notification     `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

// ActionURL returns the data actionUrl, if any.
func (m Message) ActionURL() string {
	return strings.TrimSpace(m.Data[DataKeyActionURL])
}

// ParseMessage decodes a raw payload into a Message. Unknown fields, non-string data values
// and a missing messageId are rejected.
func ParseMessage(raw []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var msg Message
	if err := dec.Decode(&msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Message{}, fmt.Errorf("%w: trailing data", ErrInvalidMessage)
	}

	msg.MessageID = strings.TrimSpace(msg.MessageID)
	if err := validator.ValidateStruct(msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return msg, nil
}
