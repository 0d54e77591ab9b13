package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage([]byte(`{
		"messageId": "m-1",
		"notification": {"title": "Hi", "body": "There", "image": "https://cdn.example.com/x.png"},
		"data": {"type": "reminder", "actionUrl": "/progress"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "m-1", msg.MessageID)
	require.NotNil(t, msg.Notification)
	assert.Equal(t, "Hi", msg.Notification.Title)
	assert.Equal(t, "/progress", msg.ActionURL())
}

func TestParseMessageMinimal(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"messageId":"m-2"}`))
	require.NoError(t, err)
	assert.Nil(t, msg.Notification)
	assert.Empty(t, msg.ActionURL())
}

func TestParseMessageRejectsMismatches(t *testing.T) {
	cases := map[string]string{
		"unknown top-level field":    `{"messageId":"m","priority":"high"}`,
		"unknown notification field": `{"messageId":"m","notification":{"title":"t","sound":"ding"}}`,
		"missing message id":         `{"notification":{"title":"t"}}`,
		"blank message id":           `{"messageId":"   "}`,
		"non-string data value":      `{"messageId":"m","data":{"count":3}}`,
		"invalid image url":          `{"messageId":"m","notification":{"image":"not a url"}}`,
		"trailing payload":           `{"messageId":"m"}{"messageId":"n"}`,
		"not json":                   `hello`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseMessage([]byte(raw))
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}
