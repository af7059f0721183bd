package devserver

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/doccollab/internal/models"
)

const (
	// Client renews 9 minutes after login, one minute before access token expires
	defaultAccessTokenTTL  = 10 * time.Minute
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 24 * time.Hour
)

var (
	errRefreshNotFound = errors.New("refresh token not found")
	errRefreshExpired  = errors.New("refresh token expired")
	errAccessRevoked   = errors.New("access token revoked")
)

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`

	// Tokens signed before revocation carry older generation and are rejected
	Generation int64 `json:"gen"`
}

// Token manager with sensible default
type TokenConfig struct {
	// Secret key to sign access token
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type refreshToken struct {
	userID    int64
	expiresAt time.Time
}

type TokenManager struct {
	// Secret key to sign access token
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Access and refresh token lifetimes
	accessTTL  time.Duration
	refreshTTL time.Duration

	mu         sync.Mutex
	generation int64
	refresh    map[string]refreshToken
}

func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if alg == nil {
		return nil, fmt.Errorf("unknown signing method %q", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		key:        cfg.SecretKey,
		alg:        alg,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		refresh:    make(map[string]refreshToken),
	}, nil
}

// GeneratePair issues access token and stores new refresh token for user
func (m *TokenManager) GeneratePair(user models.User) (models.TokenPair, error) {
	access, err := m.GenerateAccess(user.ID)
	if err != nil {
		return models.TokenPair{}, err
	}

	// Generate random refresh token 16 bytes length
	b := make([]byte, 16)
	_, err = rand.Read(b)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("error while generate refresh token. Err: %w", err)
	}
	refresh := hex.EncodeToString(b)

	m.mu.Lock()
	m.refresh[refresh] = refreshToken{userID: user.ID, expiresAt: time.Now().Add(m.refreshTTL)}
	m.mu.Unlock()

	return models.TokenPair{Access: access, Refresh: models.Token{Token: refresh}}, nil
}

func (m *TokenManager) GenerateAccess(userID int64) (models.Token, error) {
	now := time.Now().Truncate(time.Second)

	m.mu.Lock()
	generation := m.generation
	m.mu.Unlock()

	// Generate JWT access token decoded as string
	accessToken := jwt.NewWithClaims(
		m.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			},
			UserID:     userID,
			Generation: generation,
		},
	)
	access, err := accessToken.SignedString([]byte(m.key))
	if err != nil {
		return models.Token{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return models.Token{Token: access}, nil
}

// UseRefresh returns owner of the refresh token if it valid
// Refresh token stays valid until it expires or revoked
func (m *TokenManager) UseRefresh(refresh string) (userID int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.refresh[refresh]
	if !ok {
		return 0, errRefreshNotFound
	}
	if token.expiresAt.Before(time.Now()) {
		delete(m.refresh, refresh)
		return 0, errRefreshExpired
	}

	return token.userID, nil
}

// Parse and validate access token
func (m *TokenManager) ParseAccess(access string) (userID int64, err error) {
	claims := &AccessTokenClaims{}

	_, err = jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) {
			return []byte(m.key), nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)
	if err != nil {
		return 0, fmt.Errorf("error while parsing or validating token. Err: %w", err)
	}

	m.mu.Lock()
	generation := m.generation
	m.mu.Unlock()

	if claims.Generation != generation {
		return 0, errAccessRevoked
	}

	return claims.UserID, nil
}

// RevokeAccess invalidates every access token issued so far
func (m *TokenManager) RevokeAccess() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
}

// RevokeRefresh invalidates every refresh token issued so far
func (m *TokenManager) RevokeRefresh() {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.refresh)
}
