package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/smokefree/internal/notifications"
	"github.com/charlesng35/smokefree/internal/progress"
)

func daysAgo(n int) time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -n)
}

func TestProfileRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(http.MethodGet, "/api/profile", "U1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PROFILE_NOT_FOUND", body.Error.Code)

	rec, _ = env.do(http.MethodPut, "/api/profile", "U1", map[string]any{
		"quit_date":          daysAgo(10).Format(time.RFC3339),
		"cigarettes_per_day": 20,
		"pack_price":         10.0,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body = env.do(http.MethodGet, "/api/progress", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeData[progress.Stats](t, body)
	assert.Equal(t, 10, stats.DaysSinceQuit)
	assert.Equal(t, 200, stats.CigarettesAvoided)
	assert.InDelta(t, 100.0, stats.MoneySaved, 0.001)
	require.NotNil(t, stats.NextMilestone)
	assert.Equal(t, 14, stats.NextMilestone.Days)
	assert.Equal(t, 4, stats.DaysToNextMilestone)
}

func TestProfileRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(http.MethodPut, "/api/profile", "U1", map[string]any{"cigarettes_per_day": 5})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Error.Message, "quit date is required")

	rec, _ = env.do(http.MethodPut, "/api/profile", "U1", map[string]any{
		"quit_date": time.Now().Add(72 * time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckMilestonesFromProfileOncePerSession(t *testing.T) {
	env := newTestEnv(t)
	env.signIn("U1")

	rec, _ := env.do(http.MethodPut, "/api/profile", "U1", map[string]any{
		"quit_date":          daysAgo(7).Format(time.RFC3339),
		"cigarettes_per_day": 10,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body := env.do(http.MethodPost, "/api/milestones/check", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeData[milestoneCheckResult](t, body)
	assert.Equal(t, 7, result.DaysSinceQuit)
	assert.True(t, result.Emitted)
	require.NotNil(t, result.Milestone)
	assert.Equal(t, "One Week Smoke-Free!", result.Milestone.Title)

	rec, body = env.do(http.MethodPost, "/api/milestones/check", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeData[milestoneCheckResult](t, body).Emitted)

	_, body = env.do(http.MethodGet, "/api/notifications", "U1", nil)
	records := decodeData[[]notifications.Record](t, body)
	require.Len(t, records, 1)
	assert.Equal(t, notifications.TypeMilestone, records[0].Type)
}

func TestCheckMilestonesWithExplicitDays(t *testing.T) {
	env := newTestEnv(t)
	env.signIn("U1")

	rec, body := env.do(http.MethodPost, "/api/milestones/check", "U1", map[string]any{"days_since_quit": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeData[milestoneCheckResult](t, body)
	assert.False(t, result.Emitted)
	assert.Nil(t, result.Milestone)

	rec, body = env.do(http.MethodPost, "/api/milestones/check", "U1", map[string]any{"days_since_quit": 30})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeData[milestoneCheckResult](t, body).Emitted)

	rec, _ = env.do(http.MethodPost, "/api/milestones/check", "U1", map[string]any{"days_since_quit": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckMilestonesRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(http.MethodPost, "/api/milestones/check", "U1", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SESSION_NOT_STARTED", body.Error.Code)
}
