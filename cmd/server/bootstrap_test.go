package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/smokefree/internal/app"
	iauth "github.com/charlesng35/smokefree/internal/auth"
	"github.com/charlesng35/smokefree/internal/cache"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Path = ":memory:"
	cfg.Auth.JWT.Secret = "bootstrap-secret"
	return cfg
}

func TestBootstrapRuntimeServesHealth(t *testing.T) {
	cfg := testConfig(t)
	log := zap.NewNop()

	stack, err := bootstrapRuntime(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), log) })

	_, ok := stack.Storage.(*cache.DatabaseStore)
	assert.True(t, ok)

	rec := httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"component":"storage"`)

	rec = httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"component":"realtime"`)

	rec = httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBootstrapRuntimeWithMemoryStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "memory"
	log := zap.NewNop()

	stack, err := bootstrapRuntime(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), log) })

	_, ok := stack.Storage.(*cache.MemoryStore)
	assert.True(t, ok)
}

func TestBootstrapRuntimeRejectsUnknownStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "redis"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestShutdownIsSafeOnNilStack(t *testing.T) {
	var stack *runtimeStack
	stack.Shutdown(context.Background(), zap.NewNop())
}

func TestLoadApplicationConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o600))

	cfg, err := loadApplicationConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)

	cfg, err = loadApplicationConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)

	_, err = loadApplicationConfig(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, loadEnvFile(""))
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "absent.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SMOKEFREE_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("SMOKEFREE_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("SMOKEFREE_TEST_DOTENV"))

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("SMOKEFREE_TEST_DOTENV"))
}

func TestIssueTokenIsAcceptedByTheServer(t *testing.T) {
	cfg := testConfig(t)

	var out bytes.Buffer
	require.NoError(t, issueToken(cfg, " U7 ", &out))

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)
	claims, err := jwtSvc.Validate(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "U7", claims.UserID)

	require.Error(t, issueToken(cfg, "", &out))
}

func TestRunRefusesToIssueWithGeneratedSecret(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SMOKEFREE_AUTH_JWT_SECRET", "")
	err := run(context.Background(), []string{"-config", dir, "-env-file", "", "-issue-token", "U1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt.secret")
}
