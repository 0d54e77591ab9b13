package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	require.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	require.Equal(t, ErrInternalServer.Code, appErr.Code)
	require.EqualError(t, appErr, "Internal server error: boom")
}

func TestFromErrorKeepsWrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", ErrSessionNotStarted)
	appErr := FromError(wrapped)
	require.Equal(t, http.StatusConflict, appErr.StatusCode)
	require.Equal(t, "SESSION_NOT_STARTED", appErr.Code)
}

func TestWithInternalMatchesSentinel(t *testing.T) {
	cause := errors.New("db down")
	err := ErrNotFound.WithInternal(cause)

	require.True(t, errors.Is(err, ErrNotFound))
	require.True(t, errors.Is(err, cause))
	require.False(t, errors.Is(err, ErrForbidden))
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("token is required")
	require.Equal(t, http.StatusBadRequest, err.StatusCode)
	require.Equal(t, "token is required", err.Error())
}
