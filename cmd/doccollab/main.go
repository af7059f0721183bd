package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nkiryanov/doccollab/internal/apperrors"
)

var errUnexpected = errors.New("something went wrong, please check the log")

func main() {
	// Initialize context that cancelled on SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		cancel()
	}()

	if err := run(ctx, os.Getenv, os.Getwd, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, getenv func(string) string, getwd func() (string, error), args []string, stdout io.Writer) error {
	c := NewConfig()
	if err := c.LoadDotEnv(getwd); err != nil {
		return err
	}
	if err := c.LoadEnv(getenv); err != nil {
		return err
	}
	command, err := c.ParseFlags(args)
	if err != nil {
		return err
	}

	app, err := NewApp(ctx, c, stdout)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Run(ctx, command)
}

// Message shown to the user, details of unexpected errors are left in the log
func describe(err error) string {
	switch {
	case errors.Is(err, errUnexpected):
		return errUnexpected.Error()
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, apperrors.ErrRenewalRejected):
		return "Session expired, please log in again"
	case errors.Is(err, apperrors.ErrNetworkFailure):
		return "Can't reach the server, check your connection"
	default:
		return err.Error()
	}
}
