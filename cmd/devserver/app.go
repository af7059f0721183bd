package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nkiryanov/doccollab/internal/devserver"
	"github.com/nkiryanov/doccollab/internal/logger"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
}

func NewServerApp(c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	secretKey := c.SecretKey
	if secretKey == "" {
		secretKey, err = generateSecretKey()
		if err != nil {
			return nil, err
		}
		logger.Warn("Secret key not set, generated random one. Issued tokens will not survive restart")
	}

	srv, err := devserver.New(devserver.Config{
		SecretKey:  secretKey,
		AccessTTL:  c.AccessTTL,
		RefreshTTL: c.RefreshTTL,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating dev server. Err: %w", err)
	}

	if c.Seed {
		user, err := seed(srv, time.Now())
		if err != nil {
			return nil, err
		}
		logger.Info("Demo data created", "email", user.Email, "password", demoUser.Password)
	}

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    srv.Handler(),
		logger:     logger,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
