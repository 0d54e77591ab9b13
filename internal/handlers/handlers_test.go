package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/smokefree/internal/cache"
	"github.com/charlesng35/smokefree/internal/database/testutil"
	"github.com/charlesng35/smokefree/internal/middleware"
	"github.com/charlesng35/smokefree/internal/monitoring"
	"github.com/charlesng35/smokefree/internal/monitoring/checks"
	"github.com/charlesng35/smokefree/internal/push"
	"github.com/charlesng35/smokefree/internal/services"
	"github.com/charlesng35/smokefree/internal/session"
	apperrors "github.com/charlesng35/smokefree/pkg/errors"
)

const testUserHeader = "X-Test-User"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total  int `json:"total"`
		Unread int `json:"unread"`
	} `json:"meta"`
}

type fakeRegistrar struct {
	mu     sync.Mutex
	err    error
	tokens map[string][]string
}

func (f *fakeRegistrar) Register(_ context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.tokens == nil {
		f.tokens = make(map[string][]string)
	}
	f.tokens[userID] = append(f.tokens[userID], token)
	return nil
}

func (f *fakeRegistrar) Revoke(_ context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i, existing := range f.tokens[userID] {
		if existing == token {
			f.tokens[userID] = append(f.tokens[userID][:i], f.tokens[userID][i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

type testEnv struct {
	t          *testing.T
	router     *gin.Engine
	storage    *cache.MemoryStore
	broker     *push.Broker
	renderer   *recordingRenderer
	registrar  *fakeRegistrar
	sessions   *session.Manager
	profileSvc *services.ProfileService
}

type recordingRenderer struct {
	mu    sync.Mutex
	shown []push.SystemNotification
}

func (r *recordingRenderer) Render(_ context.Context, _ string, n push.SystemNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, n)
	return nil
}

func (r *recordingRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shown)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		t:         t,
		storage:   cache.NewMemoryStore(),
		renderer:  &recordingRenderer{},
		registrar: &fakeRegistrar{},
	}
	background := push.NewBackgroundHandler(env.renderer, "/icon.png", "/notifications")
	env.broker = push.NewBroker(background)
	bridge := push.NewBridge(env.broker, env.registrar)

	builder := session.Builder{Storage: env.storage, Bridge: bridge}
	env.sessions = session.NewManager(builder.Build)
	t.Cleanup(func() {
		_ = env.sessions.Close()
		env.broker.Close()
	})

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	profileSvc, err := services.NewProfileService(db)
	require.NoError(t, err)
	env.profileSvc = profileSvc

	sessionHandler := NewSessionHandler(env.sessions)
	notificationHandler := NewNotificationHandler(env.sessions, nil)
	pushHandler := NewPushHandler(env.sessions, env.registrar, env.broker, background, PushConfig{Enabled: true, VAPIDKey: "BTestKey"})
	profileHandler := NewProfileHandler(profileSvc, env.sessions, time.UTC)

	health := monitoring.NewHealthManager()
	health.RegisterReadiness(checks.Database(db, time.Second))
	health.RegisterReadiness(checks.Storage(env.storage, time.Second))
	health.RegisterLiveness(checks.Sessions(env.sessions))
	healthHandler := NewHealthHandler(health)

	r := gin.New()
	r.GET("/health", healthHandler.Health)
	r.GET("/health/live", healthHandler.Live)
	r.GET("/health/ready", healthHandler.Ready)
	api := r.Group("/api", func(c *gin.Context) {
		if user := c.GetHeader(testUserHeader); user != "" {
			c.Set(middleware.CtxUserIDKey, user)
		}
		c.Next()
	})
	api.POST("/session", sessionHandler.SignIn)
	api.GET("/session", sessionHandler.Current)
	api.DELETE("/session", sessionHandler.SignOut)

	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications", notificationHandler.Create)
	api.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	api.POST("/notifications/:id/read", notificationHandler.MarkRead)
	api.DELETE("/notifications/:id", notificationHandler.Remove)
	api.DELETE("/notifications", notificationHandler.Clear)
	api.GET("/notifications/stream", notificationHandler.Stream)

	api.GET("/push/permission", pushHandler.GetPermission)
	api.PUT("/push/permission", pushHandler.ReportPermission)
	api.POST("/push/permission/request", pushHandler.RequestPermission)
	api.POST("/push/devices", pushHandler.EnableDevice)
	api.POST("/push/tokens", pushHandler.RegisterToken)
	api.DELETE("/push/tokens/:token", pushHandler.RevokeToken)
	api.POST("/push/deliver", pushHandler.Deliver)
	api.POST("/push/click", pushHandler.Click)

	api.GET("/profile", profileHandler.Get)
	api.PUT("/profile", profileHandler.Update)
	api.GET("/progress", profileHandler.Progress)
	api.POST("/milestones/check", profileHandler.CheckMilestones)

	env.router = r
	return env
}

func (e *testEnv) do(method, path, userID string, body any) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()

	var payload []byte
	switch v := body.(type) {
	case nil:
	case string:
		payload = []byte(v)
	case []byte:
		payload = v
	default:
		var err error
		payload, err = json.Marshal(v)
		require.NoError(e.t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (e *testEnv) signIn(userID string) {
	e.t.Helper()
	rec, _ := e.do(http.MethodPost, "/api/session", userID, nil)
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}
