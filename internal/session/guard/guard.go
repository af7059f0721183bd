package guard

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"

	"github.com/nkiryanov/doccollab/internal/apperrors"
	"github.com/nkiryanov/doccollab/internal/logger"
	"github.com/nkiryanov/doccollab/internal/models"
	"github.com/nkiryanov/doccollab/internal/navigation"
	"github.com/nkiryanov/doccollab/internal/storage"
)

type State int32

const (
	Unauthenticated State = iota
	Authenticated
	PendingRenewal
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case PendingRenewal:
		return "pending-renewal"
	default:
		return "unknown"
	}
}

// Routes reachable without session
var DefaultPublicRoutes = []string{navigation.RouteLogin, navigation.RouteRegister, navigation.RouteTerms}

type sessionControl interface {
	Logout(ctx context.Context) error

	// Whether proactive renewal is scheduled. It is not right after process start
	Armed() bool

	RenewToken(ctx context.Context) (models.Token, error)
}

type userAPI interface {
	CurrentUser(ctx context.Context) (models.User, error)
}

type Config struct {
	// If not set than DefaultPublicRoutes are used
	PublicRoutes []string

	// If not set than no-op logger is used
	Logger logger.Logger
}

// Guard decides whether route may be shown and keeps session consistent before it is
type Guard struct {
	creds   *storage.Credentials
	session sessionControl
	users   userAPI
	nav     navigation.Navigator

	public []string
	logger logger.Logger

	state atomic.Int32
}

func New(cfg Config, creds *storage.Credentials, session sessionControl, users userAPI, nav navigation.Navigator) *Guard {
	if cfg.PublicRoutes == nil {
		cfg.PublicRoutes = DefaultPublicRoutes
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Guard{
		creds:   creds,
		session: session,
		users:   users,
		nav:     nav,
		public:  cfg.PublicRoutes,
		logger:  cfg.Logger,
	}
}

// State returns state reached by the last check
func (g *Guard) State() State {
	return State(g.state.Load())
}

func (g *Guard) setState(s State) State {
	g.state.Store(int32(s))
	return s
}

func (g *Guard) IsPublic(route string) bool {
	return slices.Contains(g.public, route)
}

// Check runs before route is shown
func (g *Guard) Check(ctx context.Context, route string) (State, error) {
	access, refresh, err := g.creds.Tokens(ctx)
	if err != nil {
		return g.setState(Unauthenticated), err
	}

	// Half of the pair is as good as nothing
	if access == "" || refresh == "" {
		return g.setState(Unauthenticated), g.noSession(ctx, route)
	}

	if !g.session.Armed() {
		g.setState(PendingRenewal)
		g.logger.Info("Token renewal timer not set, renewing access token")

		if _, err := g.session.RenewToken(ctx); err != nil {
			g.setState(Unauthenticated)
			// Rejected renewal has already logged out
			if errors.Is(err, apperrors.ErrRenewalRejected) {
				return Unauthenticated, nil
			}
			return Unauthenticated, err
		}
	}

	g.cacheUser(ctx)
	return g.setState(Authenticated), nil
}

func (g *Guard) noSession(ctx context.Context, route string) error {
	if g.IsPublic(route) {
		return nil
	}

	loggedOut, err := g.creds.LoggedOut(ctx)
	if err != nil {
		return err
	}
	if loggedOut {
		g.nav.Push(navigation.RouteLogin)
		return nil
	}

	g.logger.Info("No session, logging out", "route", route)
	return g.session.Logout(ctx)
}

// Fetch user once per session. Failure is not fatal: profile is display only
func (g *Guard) cacheUser(ctx context.Context) {
	_, ok, err := g.creds.User(ctx)
	if err != nil {
		g.logger.Warn("Error while reading cached user", "error", err)
	}
	if ok {
		return
	}

	user, err := g.users.CurrentUser(ctx)
	if err != nil {
		g.logger.Warn("Error while fetching current user", "error", err)
		return
	}
	if err := g.creds.SetUser(ctx, user); err != nil {
		g.logger.Warn("Error while caching current user", "error", err)
	}
}
