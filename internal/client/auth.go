package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nkiryanov/doccollab/internal/apperrors"
	"github.com/nkiryanov/doccollab/internal/models"
)

const (
	PathLogin         = "/auth/login"
	PathRegister      = "/auth/register"
	PathRenewToken    = "/auth/renewToken"
	PathValidateToken = "/auth/validateToken"
	PathCurrentUser   = "/auth/get"
)

// Login exchanges credentials for token pair
func (c *Client) Login(ctx context.Context, creds models.Credentials) (models.TokenPair, error) {
	return c.tokenPair(ctx, PathLogin, creds)
}

// Register creates user and returns token pair for it
func (c *Client) Register(ctx context.Context, reg models.Registration) (models.TokenPair, error) {
	return c.tokenPair(ctx, PathRegister, reg)
}

func (c *Client) tokenPair(ctx context.Context, path string, in any) (models.TokenPair, error) {
	var tokens []models.Token
	if err := c.do(ctx, http.MethodPost, path, in, &tokens); err != nil {
		return models.TokenPair{}, err
	}

	pair, ok := models.PairFromSlice(tokens)
	if !ok {
		return models.TokenPair{}, &Error{
			Kind:   apperrors.ErrUnknown,
			Status: http.StatusOK,
			Method: http.MethodPost,
			Path:   path,
			Err:    fmt.Errorf("expected [access, refresh] token pair, got %d tokens", len(tokens)),
		}
	}
	return pair, nil
}

// RenewToken exchanges refresh token for new access token
func (c *Client) RenewToken(ctx context.Context, refresh string) (models.Token, error) {
	var token models.Token
	err := c.do(ctx, http.MethodPost, PathRenewToken, models.Token{Token: refresh}, &token)
	return token, err
}

func (c *Client) ValidateToken(ctx context.Context, token string) (bool, error) {
	var valid bool
	err := c.do(ctx, http.MethodPost, PathValidateToken, models.Token{Token: token}, &valid)
	return valid, err
}

// CurrentUser returns user the access token belongs to
func (c *Client) CurrentUser(ctx context.Context) (models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodGet, PathCurrentUser, nil, &user)
	return user, err
}
