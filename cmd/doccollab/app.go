package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/doccollab/internal/client"
	"github.com/nkiryanov/doccollab/internal/db"
	"github.com/nkiryanov/doccollab/internal/document"
	"github.com/nkiryanov/doccollab/internal/logger"
	"github.com/nkiryanov/doccollab/internal/navigation"
	"github.com/nkiryanov/doccollab/internal/notification"
	"github.com/nkiryanov/doccollab/internal/session"
	"github.com/nkiryanov/doccollab/internal/session/guard"
	"github.com/nkiryanov/doccollab/internal/storage"
	"github.com/nkiryanov/doccollab/internal/storage/file"
	"github.com/nkiryanov/doccollab/internal/storage/memory"
	"github.com/nkiryanov/doccollab/internal/storage/postgres"
)

type App struct {
	config *Config
	logger logger.Logger
	out    io.Writer
	now    func() time.Time

	creds   *storage.Credentials
	history *navigation.History
	nav     *navigation.Deferred
	session *session.Manager
	api     *client.Client
	guard   *guard.Guard
	inbox   *notification.Inbox
	editor  *document.Editor

	closers []func()
}

func NewApp(ctx context.Context, c *Config, out io.Writer) (*App, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	a := &App{
		config: c,
		logger: logger,
		out:    out,
		now:    time.Now,
	}

	// Tokens survive the process, cached user and logout marker do not
	durable, err := a.durableStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.creds = storage.NewCredentials(durable, memory.New())

	a.history = navigation.NewHistory(navigation.RouteHome)
	a.nav = navigation.NewDeferred(a.history)

	// Renewal calls must not go through renewal middleware
	authClient := client.New(client.Config{
		BaseURL: c.APIURL,
		Logger:  logger,
	}, client.WithRequestID(), client.WithLogging(logger.With("client", "auth")))

	a.session = session.New(session.Config{
		LeadTime: c.LeadTime,
		Logger:   logger,
	}, a.creds, authClient, a.nav)
	a.closers = append(a.closers, a.session.Scheduler().Disarm)

	a.api = client.New(client.Config{
		BaseURL: c.APIURL,
		Logger:  logger,
	},
		client.WithRequestID(),
		client.WithLogging(logger.With("client", "api")),
		client.WithRenewal(a.session.Coordinator(), client.PathRenewToken),
		client.WithBearer(a.creds),
	)

	a.guard = guard.New(guard.Config{Logger: logger}, a.creds, a.session, a.api, a.nav)
	a.inbox = notification.NewInbox(a.api, logger)
	a.editor = document.NewEditor(a.api, logger)

	return a, nil
}

func (a *App) durableStore(ctx context.Context) (storage.Store, error) {
	switch a.config.CredentialsBackend {
	case BackendMemory:
		return memory.New(), nil

	case BackendFile:
		path := a.config.CredentialsFile
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("error while resolving credentials file. Err: %w", err)
			}
			path = filepath.Join(dir, "doccollab", "credentials.json")
		}
		a.logger.Debug("Using credentials file", "path", path)
		return file.New(path)

	case BackendPostgres:
		deviceID, err := a.deviceID()
		if err != nil {
			return nil, err
		}

		// Connect to the database and run migrations
		pool, err := db.ConnectAndMigrate(ctx, a.config.DatabaseDSN, a.logger)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		a.logger.Debug("Using credentials database", "device_id", deviceID.String())
		return postgres.New(pool, deviceID)

	default:
		return nil, fmt.Errorf("unknown credentials backend %q", a.config.CredentialsBackend)
	}
}

// Device id is configured or derived from host name so it is stable between runs
func (a *App) deviceID() (uuid.UUID, error) {
	if a.config.DeviceID != "" {
		id, err := uuid.Parse(a.config.DeviceID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("error while parsing device id. Err: %w", err)
		}
		return id, nil
	}

	host, err := os.Hostname()
	if err != nil {
		return uuid.Nil, fmt.Errorf("error while resolving device id. Err: %w", err)
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(host)), nil
}

// Close releases resources in reverse order
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
