package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nkiryanov/doccollab/internal/apperrors"
	"github.com/nkiryanov/doccollab/internal/models"
)

// Credentials routes keys to durable or session scoped store
// Tokens are kept in durable store, cached user and logout marker in session one
type Credentials struct {
	durable Store
	session Store
}

func NewCredentials(durable Store, session Store) *Credentials {
	return &Credentials{durable: durable, session: session}
}

func (c *Credentials) storeFor(key string) Store {
	if isSessionKey(key) {
		return c.session
	}
	return c.durable
}

// Get value by key. Absent key is not an error: empty string returned
func (c *Credentials) Get(ctx context.Context, key string) (string, error) {
	value, err := c.storeFor(key).Get(ctx, key)

	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, apperrors.ErrCredentialNotFound):
		return "", nil
	default:
		return "", fmt.Errorf("error while reading %s. Err: %w", key, err)
	}
}

func (c *Credentials) Set(ctx context.Context, key string, value string) error {
	err := c.storeFor(key).Set(ctx, key, value)
	if err != nil {
		return fmt.Errorf("error while writing %s. Err: %w", key, err)
	}
	return nil
}

// Clear wipes token pair and session data (cached user, logout marker)
func (c *Credentials) Clear(ctx context.Context) error {
	if err := c.durable.Clear(ctx); err != nil {
		return fmt.Errorf("error while clearing durable store. Err: %w", err)
	}
	if err := c.session.Clear(ctx); err != nil {
		return fmt.Errorf("error while clearing session store. Err: %w", err)
	}
	return nil
}

// Tokens returns access and refresh tokens, empty when not stored
func (c *Credentials) Tokens(ctx context.Context) (access string, refresh string, err error) {
	access, err = c.Get(ctx, KeyAccessToken)
	if err != nil {
		return "", "", err
	}
	refresh, err = c.Get(ctx, KeyRefreshToken)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// SetTokens stores both tokens of the pair
func (c *Credentials) SetTokens(ctx context.Context, pair models.TokenPair) error {
	if err := c.Set(ctx, KeyAccessToken, pair.Access.Token); err != nil {
		return err
	}
	return c.Set(ctx, KeyRefreshToken, pair.Refresh.Token)
}

// AccessToken is shortcut used by request interceptor
func (c *Credentials) AccessToken(ctx context.Context) (string, error) {
	return c.Get(ctx, KeyAccessToken)
}

// User returns cached user, ok is false if nothing cached
func (c *Credentials) User(ctx context.Context) (user models.User, ok bool, err error) {
	raw, err := c.Get(ctx, KeyUser)
	if err != nil || raw == "" {
		return user, false, err
	}

	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return user, false, fmt.Errorf("error while decoding cached user. Err: %w", err)
	}
	return user, true, nil
}

func (c *Credentials) SetUser(ctx context.Context, user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("error while encoding user. Err: %w", err)
	}
	return c.Set(ctx, KeyUser, string(raw))
}

// LoggedOut reports whether user explicitly logged out in this session
func (c *Credentials) LoggedOut(ctx context.Context) (bool, error) {
	raw, err := c.Get(ctx, KeyLogout)
	return raw == "true", err
}

func (c *Credentials) SetLoggedOut(ctx context.Context, loggedOut bool) error {
	value := "false"
	if loggedOut {
		value = "true"
	}
	return c.Set(ctx, KeyLogout, value)
}
