package devserver

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nkiryanov/doccollab/internal/devserver/middleware"
	"github.com/nkiryanov/doccollab/internal/logger"
	"github.com/nkiryanov/doccollab/internal/models"
)

// Development API server: the same endpoints the client talks to, kept in memory
type Config struct {
	// Secret key to sign access tokens
	// Required to be set
	SecretKey string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// If not set than bcrypt.DefaultCost is used
	BcryptCost int

	// If not set than no-op logger is used
	Logger logger.Logger
}

type Server struct {
	tokens *TokenManager
	store  *Store
	hasher BcryptHasher
	logger logger.Logger

	renewCalls atomic.Int64

	mu        sync.Mutex
	renewGate chan struct{}
}

func New(cfg Config) (*Server, error) {
	tokens, err := NewTokenManager(TokenConfig{
		SecretKey:  cfg.SecretKey,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Server{
		tokens: tokens,
		store:  NewStore(),
		hasher: BcryptHasher{Cost: cfg.BcryptCost},
		logger: cfg.Logger,
	}, nil
}

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// Handler serves API under '/api' prefix
func (s *Server) Handler() http.Handler {
	withAuth := middleware.NewAuth(s).Auth

	api := http.NewServeMux()

	api.HandleFunc("POST /auth/login", s.handleLogin)
	api.HandleFunc("POST /auth/register", s.handleRegister)
	api.HandleFunc("POST /auth/renewToken", s.handleRenewToken)
	api.HandleFunc("POST /auth/validateToken", s.handleValidateToken)
	api.Handle("GET /auth/get", withAuth(http.HandlerFunc(s.handleCurrentUser)))

	api.Handle("GET /notifications", withAuth(http.HandlerFunc(s.handleListNotifications)))
	api.Handle("PUT /notifications/read", withAuth(http.HandlerFunc(s.handleReadNotification)))
	api.Handle("PUT /notifications/readAll", withAuth(http.HandlerFunc(s.handleReadAllNotifications)))
	api.Handle("DELETE /notifications/{id}", withAuth(http.HandlerFunc(s.handleDeleteNotification)))

	api.Handle("GET /documents", withAuth(http.HandlerFunc(s.handleListDocuments)))
	api.Handle("GET /documents/{id}", withAuth(http.HandlerFunc(s.handleGetDocument)))
	api.Handle("PUT /documents/{id}", withAuth(http.HandlerFunc(s.handleUpdateDocument)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	return chain(root,
		middleware.LoggerMiddleware(s.logger),
	)
}

// Authenticate returns owner of valid access token
func (s *Server) Authenticate(token string) (models.User, error) {
	userID, err := s.tokens.ParseAccess(token)
	if err != nil {
		return models.User{}, err
	}
	return s.store.User(userID)
}

// Store gives access to server state, used to seed data
func (s *Server) Store() *Store {
	return s.store
}

// AddUser registers user as '/auth/register' does but without issuing tokens
func (s *Server) AddUser(reg models.Registration) (models.User, error) {
	if reg.Password == "" {
		return models.User{}, errors.New("password must not be empty")
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return models.User{}, err
	}
	return s.store.CreateUser(reg.User, hash)
}

// RevokeAccessTokens makes every issued access token answer 401
func (s *Server) RevokeAccessTokens() {
	s.tokens.RevokeAccess()
}

// RevokeRefreshTokens makes renewal with any issued refresh token answer 401
func (s *Server) RevokeRefreshTokens() {
	s.tokens.RevokeRefresh()
}

// RenewCalls returns how many times '/auth/renewToken' was called
func (s *Server) RenewCalls() int64 {
	return s.renewCalls.Load()
}

// HoldRenewals makes '/auth/renewToken' wait until release called
func (s *Server) HoldRenewals() (release func()) {
	gate := make(chan struct{})

	s.mu.Lock()
	s.renewGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.renewGate == gate {
				s.renewGate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

func (s *Server) waitRenewGate(r *http.Request) error {
	s.mu.Lock()
	gate := s.renewGate
	s.mu.Unlock()

	if gate == nil {
		return nil
	}

	select {
	case <-gate:
		return nil
	case <-r.Context().Done():
		return r.Context().Err()
	}
}
