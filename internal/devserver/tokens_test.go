package devserver

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/doccollab/internal/models"
)

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	testUser := models.User{ID: 42, Username: "testuser", Email: "test@example.com"}

	newManager := func(t *testing.T, accessTTL time.Duration, refreshTTL time.Duration) *TokenManager {
		m, err := NewTokenManager(TokenConfig{
			SecretKey:  "test-secret-key",
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		})
		require.NoError(t, err, "token manager should be created without errors")
		return m
	}

	t.Run("new defaults", func(t *testing.T) {
		m, err := NewTokenManager(TokenConfig{SecretKey: "secret"})
		require.NoError(t, err, "token manager should be created without errors")

		require.Equal(t, "secret", m.key, "secret key should be set")
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, m.refreshTTL, "default refresh token TTL")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
	})

	t.Run("new fails", func(t *testing.T) {
		_, err := NewTokenManager(TokenConfig{})
		require.Error(t, err, "secret key is required")

		_, err = NewTokenManager(TokenConfig{SecretKey: "secret", Alg: "NOPE"})
		require.Error(t, err, "unknown algorithm")
	})

	t.Run("GeneratePair", func(t *testing.T) {
		t.Run("access claims", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)

			pair, err := m.GeneratePair(testUser)
			require.NoError(t, err)

			// Parse and verify the access token
			token, err := jwt.ParseWithClaims(pair.Access.Token, &AccessTokenClaims{}, func(token *jwt.Token) (any, error) {
				return []byte("test-secret-key"), nil
			})
			require.NoError(t, err)
			require.True(t, token.Valid, "access token should be valid")

			claims, ok := token.Claims.(*AccessTokenClaims)
			require.True(t, ok, "claims should be of type AccessTokenClaims")
			assert.Equal(t, testUser.ID, claims.UserID, "user ID in token should match")
			assert.Zero(t, claims.Generation)
			assert.NotEmpty(t, claims.ID, "token has to has jti")
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second, "issued at should be close to now")
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Second, "expires at should be 15 minutes from now")
		})

		t.Run("generate different tokens", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)

			pair1, err := m.GeneratePair(testUser)
			require.NoError(t, err)

			pair2, err := m.GeneratePair(testUser)
			require.NoError(t, err)

			assert.NotEqual(t, pair1.Refresh.Token, pair2.Refresh.Token, "refresh tokens should be different")
			assert.NotEqual(t, pair1.Access.Token, pair2.Access.Token, "access tokens should be different")
		})
	})

	t.Run("UseRefresh", func(t *testing.T) {
		t.Run("use token many times", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)
			pair, err := m.GeneratePair(testUser)
			require.NoError(t, err)

			for range 2 {
				userID, err := m.UseRefresh(pair.Refresh.Token)
				require.NoError(t, err, "refresh token is not rotated")
				require.Equal(t, testUser.ID, userID)
			}
		})

		t.Run("unknown token", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)

			_, err := m.UseRefresh("unknown")

			require.ErrorIs(t, err, errRefreshNotFound)
		})

		t.Run("use expired token", func(t *testing.T) {
			m := newManager(t, time.Second, time.Millisecond)
			pair, err := m.GeneratePair(testUser)
			require.NoError(t, err)

			time.Sleep(5 * time.Millisecond)

			_, err = m.UseRefresh(pair.Refresh.Token)
			require.ErrorIs(t, err, errRefreshExpired)
		})

		t.Run("revoked token", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)
			pair, err := m.GeneratePair(testUser)
			require.NoError(t, err)

			m.RevokeRefresh()

			_, err = m.UseRefresh(pair.Refresh.Token)
			require.ErrorIs(t, err, errRefreshNotFound)
		})
	})

	t.Run("ParseAccess", func(t *testing.T) {
		t.Run("valid token", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)
			pair, err := m.GeneratePair(testUser)
			require.NoError(t, err, "token pair should be generated without errors")

			userID, err := m.ParseAccess(pair.Access.Token)
			require.NoError(t, err, "valid token should be parsed without errors")
			require.Equal(t, testUser.ID, userID)
		})

		t.Run("not a token", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)

			_, err := m.ParseAccess("invalid token")
			require.Error(t, err, "parsing even not a token should return an error")
		})

		t.Run("expired token", func(t *testing.T) {
			m := newManager(t, time.Second, time.Hour)
			pair, err := m.GeneratePair(testUser)
			require.NoError(t, err)

			// Issued at is truncated to seconds, wait enough to pass expiration
			time.Sleep(2 * time.Second)

			_, err = m.ParseAccess(pair.Access.Token)
			require.ErrorIs(t, err, jwt.ErrTokenExpired)
		})

		t.Run("revoked token", func(t *testing.T) {
			m := newManager(t, 15*time.Minute, 24*time.Hour)
			old, err := m.GenerateAccess(testUser.ID)
			require.NoError(t, err)

			m.RevokeAccess()

			_, err = m.ParseAccess(old.Token)
			require.ErrorIs(t, err, errAccessRevoked)

			fresh, err := m.GenerateAccess(testUser.ID)
			require.NoError(t, err)
			_, err = m.ParseAccess(fresh.Token)
			require.NoError(t, err, "token issued after revocation is valid")
		})
	})
}
