package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/doccollab/internal/devserver/userctx"
	"github.com/nkiryanov/doccollab/internal/models"
)

// Allow to use a function as authenticator
type authFunc func(token string) (models.User, error)

func (f authFunc) Authenticate(token string) (models.User, error) {
	return f(token)
}

func TestAuthMiddleware_Auth(t *testing.T) {
	// Simple handler that try to get user from context
	// If ok write it username to response
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must always be true cause middleware has to set user to response or write error to response
		user, ok := userctx.FromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(user.Username))
		require.NoError(t, err, "should write username to response")
	})

	get := func(t *testing.T, url string, authorization string) (int, string) {
		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
		require.NoError(t, err)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		return resp.StatusCode, string(body)
	}

	t.Run("auth ok", func(t *testing.T) {
		var got string
		middleware := NewAuth(authFunc(func(token string) (models.User, error) {
			got = token
			return models.User{Username: "test-user"}, nil
		}))

		srv := httptest.NewServer(middleware.Auth(handler))
		defer srv.Close()

		status, body := get(t, srv.URL+"/test", "Bearer ACC1")

		require.Equalf(t, http.StatusOK, status, "should return status OK. Resp: %s", body)
		require.Equal(t, "test-user", body, "should return username in response")
		require.Equal(t, "ACC1", got, "token passed without prefix")
	})

	t.Run("auth fail", func(t *testing.T) {
		// Middleware that always fails
		middleware := NewAuth(authFunc(func(token string) (models.User, error) {
			return models.User{}, errors.New("token revoked")
		}))

		srv := httptest.NewServer(middleware.Auth(handler))
		defer srv.Close()

		status, body := get(t, srv.URL+"/test", "Bearer ACC1")

		require.Equalf(t, http.StatusUnauthorized, status, "should return status Unauthorized. Resp: %s", body)
		require.JSONEq(t,
			`{
				"error": "service_error",
				"message": "Unauthorized"
			}`,
			body,
		)
	})

	t.Run("no bearer header", func(t *testing.T) {
		called := false
		middleware := NewAuth(authFunc(func(token string) (models.User, error) {
			called = true
			return models.User{}, nil
		}))

		srv := httptest.NewServer(middleware.Auth(handler))
		defer srv.Close()

		for _, header := range []string{"", "Basic dXNlcjpwd2Q=", "Bearer "} {
			status, _ := get(t, srv.URL+"/test", header)
			require.Equal(t, http.StatusUnauthorized, status, "header %q", header)
		}
		require.False(t, called, "authenticator must not be called without token")
	})
}
