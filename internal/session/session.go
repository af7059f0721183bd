package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nkiryanov/doccollab/internal/apperrors"
	"github.com/nkiryanov/doccollab/internal/logger"
	"github.com/nkiryanov/doccollab/internal/models"
	"github.com/nkiryanov/doccollab/internal/navigation"
	"github.com/nkiryanov/doccollab/internal/session/renewal"
	"github.com/nkiryanov/doccollab/internal/session/scheduler"
	"github.com/nkiryanov/doccollab/internal/storage"
)

// Auth endpoints of the API
// Have to be called without renewal interceptor: their 401 means bad credentials
type authAPI interface {
	Login(ctx context.Context, creds models.Credentials) (models.TokenPair, error)
	Register(ctx context.Context, reg models.Registration) (models.TokenPair, error)
	RenewToken(ctx context.Context, refresh string) (models.Token, error)
	ValidateToken(ctx context.Context, token string) (bool, error)
}

type Config struct {
	// Delay between obtaining access token and proactive renewal
	// If not set than scheduler default is used
	LeadTime time.Duration

	// Upper bound for renewal HTTP call
	// If not set than default is used
	RenewTimeout time.Duration

	// If not set than real clock is used
	Clock scheduler.Clock

	// If not set than no-op logger is used
	Logger logger.Logger
}

// Manager owns session lifecycle: login, registration, logout and token renewal
type Manager struct {
	creds  *storage.Credentials
	auth   authAPI
	nav    navigation.Navigator
	logger logger.Logger

	scheduler   *scheduler.Scheduler
	coordinator *renewal.Coordinator
}

func New(cfg Config, creds *storage.Credentials, auth authAPI, nav navigation.Navigator) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	m := &Manager{
		creds:  creds,
		auth:   auth,
		nav:    nav,
		logger: cfg.Logger,
	}

	m.scheduler = scheduler.New(scheduler.Config{
		LeadTime:     cfg.LeadTime,
		RenewTimeout: cfg.RenewTimeout,
		Clock:        cfg.Clock,
		Logger:       cfg.Logger.With("component", "scheduler"),
	}, m.renewOnTimer, m.onRenewFailure)

	m.coordinator = renewal.New(renewal.Config{
		Timeout: cfg.RenewTimeout,
		Logger:  cfg.Logger.With("component", "renewal"),
	}, auth, creds, m.scheduler, m.forceLogout)

	return m
}

// Coordinator is used by request interceptor to replay requests failed with 401
func (m *Manager) Coordinator() *renewal.Coordinator {
	return m.coordinator
}

func (m *Manager) Scheduler() *scheduler.Scheduler {
	return m.scheduler
}

func (m *Manager) Credentials() *storage.Credentials {
	return m.creds
}

// Armed reports whether proactive renewal is scheduled
func (m *Manager) Armed() bool {
	return m.scheduler.Armed()
}

// RenewToken renews access token now or joins renewal in flight
func (m *Manager) RenewToken(ctx context.Context) (models.Token, error) {
	return m.coordinator.RenewToken(ctx)
}

// Login exchanges credentials for tokens, arms renewal and navigates home
func (m *Manager) Login(ctx context.Context, form LoginForm) error {
	if err := validateForm(form); err != nil {
		return err
	}

	pair, err := m.auth.Login(ctx, form.Credentials())
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUnauthorized):
		return formError("Login failed", fmt.Errorf("%w: %w", apperrors.ErrInvalidCredentials, err))
	default:
		m.logger.Error("Login failed", "error", err)
		return fmt.Errorf("error while logging in. Err: %w", err)
	}

	return m.start(ctx, pair)
}

// Register creates account and starts session the same way login does
func (m *Manager) Register(ctx context.Context, form RegisterForm) error {
	if err := validateForm(form); err != nil {
		return err
	}

	pair, err := m.auth.Register(ctx, form.Registration())
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		return &ValidationError{
			Fields: map[string]string{"email": "Username or email already taken", "username": "Username or email already taken"},
			Err:    err,
		}
	case errors.Is(err, apperrors.ErrValidationFailure):
		return formError("Registration failed, check the form", err)
	default:
		m.logger.Error("Registration failed", "error", err)
		return fmt.Errorf("error while registering. Err: %w", err)
	}

	return m.start(ctx, pair)
}

func (m *Manager) start(ctx context.Context, pair models.TokenPair) error {
	// Renewal of the previous session must not overwrite new tokens
	m.coordinator.Invalidate()

	// Previous user may still be cached
	if err := m.creds.Clear(ctx); err != nil {
		return err
	}
	if err := m.creds.SetTokens(ctx, pair); err != nil {
		return err
	}

	m.scheduler.Arm()
	m.logger.Info("Session started")
	m.nav.Push(navigation.RouteHome)
	return nil
}

// Logout forgets tokens and cached user, cancels renewal and navigates to login
// Logout marker is left so the guard does not log out again
func (m *Manager) Logout(ctx context.Context) error {
	// Renewal in flight must not bring tokens or timer back
	m.coordinator.Invalidate()
	m.scheduler.Disarm()

	if err := m.creds.Clear(ctx); err != nil {
		return err
	}
	if err := m.creds.SetLoggedOut(ctx, true); err != nil {
		return err
	}

	m.logger.Info("Logged out")
	m.nav.Push(navigation.RouteLogin)
	return nil
}

// ValidateToken asks API whether stored access token is valid
// Navigates to login when token is missing or the check failed
func (m *Manager) ValidateToken(ctx context.Context) (bool, error) {
	access, err := m.creds.AccessToken(ctx)
	if err != nil {
		return false, err
	}
	if access == "" {
		m.nav.Push(navigation.RouteLogin)
		return false, nil
	}

	valid, err := m.auth.ValidateToken(ctx, access)
	if err != nil {
		m.logger.Warn("Token validation failed", "error", err)
		m.nav.Push(navigation.RouteLogin)
		return false, err
	}
	return valid, nil
}

// User returns cached user profile
func (m *Manager) User(ctx context.Context) (models.User, bool, error) {
	return m.creds.User(ctx)
}

func (m *Manager) renewOnTimer(ctx context.Context) error {
	_, err := m.RenewToken(ctx)
	return err
}

func (m *Manager) onRenewFailure(ctx context.Context, err error) {
	// Rejected renewal already forced logout
	if errors.Is(err, apperrors.ErrRenewalRejected) {
		return
	}

	m.logger.Error("Error renewing access token, logging out", "error", err)
	m.forceLogout(ctx)
}

func (m *Manager) forceLogout(ctx context.Context) {
	if err := m.Logout(ctx); err != nil {
		m.logger.Error("Error while logging out", "error", err)
	}
}
