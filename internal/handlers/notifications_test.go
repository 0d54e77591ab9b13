package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/smokefree/internal/notifications"
)

func TestNotificationEndpointsRequireSession(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(http.MethodGet, "/api/notifications", "U1", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "SESSION_NOT_STARTED", body.Error.Code)

	rec, body = env.do(http.MethodGet, "/api/notifications", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
}

func TestNotificationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.signIn("U1")

	rec, body := env.do(http.MethodPost, "/api/notifications", "U1", map[string]any{
		"title":   "First",
		"message": "hello",
		"type":    "reminder",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeData[notifications.Record](t, body)
	assert.Equal(t, "First", first.Title)
	assert.Equal(t, notifications.SourceApp, first.Source)
	assert.Equal(t, "U1", first.UserID)
	assert.False(t, first.IsRead)

	rec, _ = env.do(http.MethodPost, "/api/notifications", "U1", map[string]any{"title": "Second", "type": "goal"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body = env.do(http.MethodGet, "/api/notifications", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[[]notifications.Record](t, body)
	require.Len(t, list, 2)
	assert.Equal(t, "Second", list[0].Title)
	require.NotNil(t, body.Meta)
	assert.Equal(t, 2, body.Meta.Total)
	assert.Equal(t, 2, body.Meta.Unread)

	rec, body = env.do(http.MethodPost, "/api/notifications/"+first.ID+"/read", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeData[mutationResult](t, body)
	assert.True(t, result.Changed)
	assert.Equal(t, 1, body.Meta.Unread)

	rec, body = env.do(http.MethodPost, "/api/notifications/missing/read", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeData[mutationResult](t, body).Changed)

	rec, body = env.do(http.MethodPost, "/api/notifications/read-all", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, body.Meta.Unread)

	rec, body = env.do(http.MethodDelete, "/api/notifications/"+first.ID, "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, body.Meta.Total)

	rec, body = env.do(http.MethodDelete, "/api/notifications", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeData[mutationResult](t, body).Changed)
	assert.Equal(t, 0, body.Meta.Total)
	_, ok, err := env.storage.Get(context.Background(), "notifications_U1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateNotificationValidatesPayload(t *testing.T) {
	env := newTestEnv(t)
	env.signIn("U1")

	rec, body := env.do(http.MethodPost, "/api/notifications", "U1", map[string]any{"title": "x", "type": "bogus"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Error.Message, "type must be one of")

	rec, body = env.do(http.MethodPost, "/api/notifications", "U1", map[string]any{"type": "system"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Error.Message, "title is required")

	rec, _ = env.do(http.MethodPost, "/api/notifications", "U1", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPagesButCountsWholeCollection(t *testing.T) {
	env := newTestEnv(t)
	env.signIn("U1")
	for _, title := range []string{"a", "b", "c"} {
		rec, _ := env.do(http.MethodPost, "/api/notifications", "U1", map[string]any{"title": title, "type": "system"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, body := env.do(http.MethodGet, "/api/notifications?limit=1&offset=1", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[[]notifications.Record](t, body)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].Title)
	assert.Equal(t, 3, body.Meta.Total)

	_, body = env.do(http.MethodGet, "/api/notifications?offset=10", "U1", nil)
	assert.Empty(t, decodeData[[]notifications.Record](t, body))
}

func TestSignOutKeepsPersistedCollection(t *testing.T) {
	env := newTestEnv(t)
	env.signIn("U1")
	rec, _ := env.do(http.MethodPost, "/api/notifications", "U1", map[string]any{"title": "kept", "type": "system"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := env.do(http.MethodDelete, "/api/session", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"signed_out":true}`, string(body.Data))

	rec, _ = env.do(http.MethodGet, "/api/notifications", "U1", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	env.signIn("U1")
	rec, body = env.do(http.MethodGet, "/api/session", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeData[sessionView](t, body)
	assert.Equal(t, 1, view.Total)
	assert.Equal(t, 1, view.Unread)
	assert.False(t, view.PushEnabled)
}

func TestStreamWithoutHubIsUnavailable(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(http.MethodGet, "/api/notifications/stream", "U1", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "REALTIME_UNAVAILABLE", body.Error.Code)
}
