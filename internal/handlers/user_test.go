// internal/handlers/user_test.go
package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pietjesbak/puppies/internal/auth"
)

// Tests in this file run without a Postgres pool, the same shape the server
// takes when ConnectDB fails at startup.

func TestEnsureEphemeralUserWithoutDatabase(t *testing.T) {
	require.NoError(t, auth.Init())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/game/ws/x", nil)

	id, name, err := EnsureEphemeralUser(rec, req)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, "Guest", name)

	var token string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth_token" {
			token = c.Value
		}
	}
	require.NotEmpty(t, token, "guest must receive an auth cookie")

	// The token alone carries the identity across reconnects.
	gotID, gotName, err := resolveToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, "Guest", gotName)
}

func TestAccountEndpointsNeedDatabase(t *testing.T) {
	require.NoError(t, auth.Init())

	endpoints := map[string]http.HandlerFunc{
		"/user/create": CreateUserHandler,
		"/user/login":  LoginHandler,
		"/user/claim":  ClaimEphemeralHandler,
	}
	for path, handler := range endpoints {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		handler(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}
