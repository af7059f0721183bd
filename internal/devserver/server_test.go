package devserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/doccollab/internal/models"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	s, err := New(Config{SecretKey: "test-secret", BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func call(t *testing.T, method string, url string, bearer string, body string) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, url, reader)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func login(t *testing.T, url string) models.TokenPair {
	t.Helper()

	status, body := call(t, http.MethodPost, url+"/api/auth/login", "", `{"email":"a@b.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, status, body)

	var tokens []models.Token
	require.NoError(t, json.Unmarshal([]byte(body), &tokens))
	pair, ok := models.PairFromSlice(tokens)
	require.True(t, ok)
	return pair
}

func TestServer(t *testing.T) {
	s, srv := newTestServer(t)
	user, err := s.AddUser(models.Registration{
		User:     models.User{Username: "ab", Email: "a@b.com", FirstName: "A", LastName: "B"},
		Password: "secret",
	})
	require.NoError(t, err)

	t.Run("login", func(t *testing.T) {
		pair := login(t, srv.URL)

		require.NotEmpty(t, pair.Access.Token)
		require.NotEmpty(t, pair.Refresh.Token)
	})

	t.Run("login wrong password", func(t *testing.T) {
		status, _ := call(t, http.MethodPost, srv.URL+"/api/auth/login", "", `{"email":"a@b.com","password":"nope"}`)

		require.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("register", func(t *testing.T) {
		tests := []struct {
			name   string
			body   string
			status int
		}{
			{"new user", `{"username":"newbie","email":"new@b.com","firstName":"N","lastName":"B","password":"secret"}`, http.StatusOK},
			{"email taken", `{"username":"other","email":"A@B.com","firstName":"N","lastName":"B","password":"secret"}`, http.StatusConflict},
			{"invalid email", `{"username":"third","email":"nope","firstName":"N","lastName":"B","password":"secret"}`, http.StatusBadRequest},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				status, body := call(t, http.MethodPost, srv.URL+"/api/auth/register", "", tc.body)
				require.Equal(t, tc.status, status, body)
			})
		}
	})

	t.Run("current user", func(t *testing.T) {
		pair := login(t, srv.URL)

		status, body := call(t, http.MethodGet, srv.URL+"/api/auth/get", pair.Access.Token, "")

		require.Equal(t, http.StatusOK, status)
		require.JSONEq(t, `{"uId":1,"username":"ab","email":"a@b.com","firstName":"A","lastName":"B"}`, body)
	})

	t.Run("revoked access token rejected until renewed", func(t *testing.T) {
		pair := login(t, srv.URL)
		s.RevokeAccessTokens()

		status, _ := call(t, http.MethodGet, srv.URL+"/api/documents", pair.Access.Token, "")
		require.Equal(t, http.StatusUnauthorized, status)

		calls := s.RenewCalls()
		status, body := call(t, http.MethodPost, srv.URL+"/api/auth/renewToken", "", `{"token":"`+pair.Refresh.Token+`"}`)
		require.Equal(t, http.StatusOK, status, body)
		require.Equal(t, calls+1, s.RenewCalls())

		var access models.Token
		require.NoError(t, json.Unmarshal([]byte(body), &access))

		status, _ = call(t, http.MethodGet, srv.URL+"/api/documents", access.Token, "")
		require.Equal(t, http.StatusOK, status)
	})

	t.Run("revoked refresh token rejected", func(t *testing.T) {
		pair := login(t, srv.URL)
		s.RevokeRefreshTokens()

		status, _ := call(t, http.MethodPost, srv.URL+"/api/auth/renewToken", "", `{"token":"`+pair.Refresh.Token+`"}`)

		require.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("validate token", func(t *testing.T) {
		pair := login(t, srv.URL)

		_, body := call(t, http.MethodPost, srv.URL+"/api/auth/validateToken", "", `{"token":"`+pair.Access.Token+`"}`)
		require.JSONEq(t, "true", body)

		_, body = call(t, http.MethodPost, srv.URL+"/api/auth/validateToken", "", `{"token":"garbage"}`)
		require.JSONEq(t, "false", body)
	})

	t.Run("notifications", func(t *testing.T) {
		pair := login(t, srv.URL)
		now := time.Now()
		older := s.Store().AddNotification(user.ID, "older", now.Add(-time.Hour), models.Document{})
		newer := s.Store().AddNotification(user.ID, "newer", now, models.Document{})

		_, body := call(t, http.MethodGet, srv.URL+"/api/notifications", pair.Access.Token, "")
		var list []models.Notification
		require.NoError(t, json.Unmarshal([]byte(body), &list))
		require.Len(t, list, 2)
		require.Equal(t, newer.ID, list[0].ID, "newest first")

		status, _ := call(t, http.MethodPut, srv.URL+"/api/notifications/read", pair.Access.Token, `{"nId":`+strconv.FormatInt(older.ID, 10)+`}`)
		require.Equal(t, http.StatusNoContent, status)

		status, _ = call(t, http.MethodPut, srv.URL+"/api/notifications/read", pair.Access.Token, `{"nId":999}`)
		require.Equal(t, http.StatusNotFound, status)

		status, _ = call(t, http.MethodDelete, srv.URL+"/api/notifications/-1", pair.Access.Token, "")
		require.Equal(t, http.StatusNoContent, status)
		require.Empty(t, s.Store().Notifications(user.ID))
	})

	t.Run("documents", func(t *testing.T) {
		pair := login(t, srv.URL)
		doc := s.Store().AddDocument(user.ID, models.Document{Name: "Plan", Content: "&lt;b&gt;"})

		status, body := call(t, http.MethodPut, srv.URL+"/api/documents/"+strconv.FormatInt(doc.ID, 10), pair.Access.Token, `{"name":"Plan v2","content":"x"}`)
		require.Equal(t, http.StatusOK, status, body)

		got, err := s.Store().Document(user.ID, doc.ID)
		require.NoError(t, err)
		require.Equal(t, "Plan v2", got.Name)

		status, _ = call(t, http.MethodGet, srv.URL+"/api/documents/12345", pair.Access.Token, "")
		require.Equal(t, http.StatusNotFound, status)
	})

	t.Run("held renewal waits for release", func(t *testing.T) {
		pair := login(t, srv.URL)
		release := s.HoldRenewals()

		done := make(chan int, 1)
		go func() {
			req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/auth/renewToken", strings.NewReader(`{"token":"`+pair.Refresh.Token+`"}`))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				done <- 0
				return
			}
			resp.Body.Close() // nolint:errcheck
			done <- resp.StatusCode
		}()

		select {
		case <-done:
			t.Fatal("renewal must wait for release")
		case <-time.After(50 * time.Millisecond):
		}

		release()
		require.Equal(t, http.StatusOK, <-done)
	})
}
