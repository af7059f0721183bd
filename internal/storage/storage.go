package storage

import (
	"context"
)

// Durable keys: survive process restarts
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// Session keys: live as long as the session does
const (
	KeyUser   = "user"
	KeyLogout = "logout"
)

// Key-value backend for credentials
type Store interface {
	// Return value stored by key
	// If key is absent has to return apperrors.ErrCredentialNotFound
	Get(ctx context.Context, key string) (string, error)

	// Store value by key, overwrites existing one
	Set(ctx context.Context, key string, value string) error

	// Remove every key
	// Must be idempotent: clearing empty store is not an error
	Clear(ctx context.Context) error
}

func isSessionKey(key string) bool {
	return key == KeyUser || key == KeyLogout
}
