package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/nkiryanov/doccollab/internal/apperrors"
	"github.com/nkiryanov/doccollab/internal/models"
	"github.com/nkiryanov/doccollab/internal/navigation"
	"github.com/nkiryanov/doccollab/internal/notification"
	"github.com/nkiryanov/doccollab/internal/session"
	"github.com/nkiryanov/doccollab/internal/session/guard"
)

var (
	errUsage       = errors.New("usage")
	errNotLoggedIn = errors.New("not logged in, run 'doccollab login <email> <password>'")
)

type command struct {
	// Route the command shows, session guard checks it first
	route string
	usage string
	run   func(ctx context.Context, args []string) error
}

func (a *App) commands() map[string]command {
	return map[string]command{
		"login": {
			route: navigation.RouteLogin,
			usage: "login <email> <password>",
			run:   a.login,
		},
		"register": {
			route: navigation.RouteRegister,
			usage: "register --accept-terms <username> <email> <first name> <last name> <password> <confirm password>",
			run:   a.register,
		},
		"logout": {
			route: navigation.RouteHome,
			usage: "logout",
			run:   a.logout,
		},
		"whoami": {
			route: navigation.RouteHome,
			usage: "whoami",
			run:   a.whoami,
		},
		"validate": {
			route: navigation.RouteHome,
			usage: "validate",
			run:   a.validate,
		},
		"notifications": {
			route: navigation.RouteNotifications,
			usage: "notifications [list | read <id> | read-all | delete <id> | delete-all]",
			run:   a.notifications,
		},
		"documents": {
			route: navigation.RouteDocuments,
			usage: "documents [list | show <id> | rename <id> <title> | write <id> <content>]",
			run:   a.documents,
		},
		"watch": {
			route: navigation.RouteHome,
			usage: "watch",
			run:   a.watch,
		},
	}
}

func (a *App) usage() string {
	commands := a.commands()
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString("Usage: doccollab [options] <command>\n\nCommands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s\n", commands[name].usage)
	}
	return b.String()
}

// Run guards command route and runs the command
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w\n%s", errUsage, a.usage())
	}

	cmd, ok := a.commands()[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q\n%s", errUsage, args[0], a.usage())
	}

	state, err := a.guard.Check(ctx, cmd.route)
	a.nav.Flush()
	if err != nil {
		return a.unexpected(err)
	}
	a.logger.Debug("Session checked", "route", cmd.route, "state", state.String())

	if !a.guard.IsPublic(cmd.route) && state != guard.Authenticated {
		return errNotLoggedIn
	}

	err = cmd.run(ctx, args[1:])
	a.nav.Flush()

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errUsage):
		return fmt.Errorf("%w: %s", err, cmd.usage)
	default:
		return a.unexpected(err)
	}
}

// Errors the user can act on pass through, the rest is logged
func (a *App) unexpected(err error) error {
	var validationErr *session.ValidationError

	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, errNotLoggedIn),
		errors.Is(err, apperrors.ErrRenewalRejected),
		errors.Is(err, apperrors.ErrNetworkFailure),
		errors.Is(err, apperrors.ErrNotificationNotFound),
		errors.Is(err, apperrors.ErrDocumentNotFound):
		return err
	default:
		a.logger.Error("Command failed", "error", err)
		return fmt.Errorf("%w: %w", errUnexpected, err)
	}
}

func (a *App) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}

	err := a.session.Login(ctx, session.LoginForm{Email: args[0], Password: args[1]})
	if err != nil {
		return err
	}
	return a.greet(ctx)
}

func (a *App) register(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
	fs.SetOutput(a.out)
	acceptTerms := fs.Bool("accept-terms", false, "Accept terms of use")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	args = fs.Args()
	if len(args) != 6 {
		return errUsage
	}

	err := a.session.Register(ctx, session.RegisterForm{
		Username:        args[0],
		Email:           args[1],
		FirstName:       args[2],
		LastName:        args[3],
		Password:        args[4],
		ConfirmPassword: args[5],
		AcceptTerms:     *acceptTerms,
	})
	if err != nil {
		return err
	}
	return a.greet(ctx)
}

// Show the user who just started session
func (a *App) greet(ctx context.Context) error {
	a.nav.Flush()
	if _, err := a.guard.Check(ctx, a.history.Current()); err != nil {
		return err
	}

	user, ok, err := a.session.User(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Logged in")
		return nil
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", user.Username)
	return nil
}

func (a *App) logout(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) whoami(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	user, ok, err := a.session.User(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Logged in, profile is not available")
		return nil
	}

	fmt.Fprintf(a.out, "%s <%s> %s %s\n", user.Username, user.Email, user.FirstName, user.LastName)
	return nil
}

func (a *App) validate(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	valid, err := a.session.ValidateToken(ctx)
	if err != nil {
		return err
	}

	if valid {
		fmt.Fprintln(a.out, "Access token is valid")
	} else {
		fmt.Fprintln(a.out, "Access token is not valid")
	}
	return nil
}

func (a *App) notifications(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	if err := a.inbox.Refresh(ctx); err != nil {
		return err
	}

	switch sub {
	case "list":
		if len(args) != 0 {
			return errUsage
		}
		return a.printNotifications()

	case "read":
		n, err := a.findNotification(args)
		if err != nil {
			return err
		}
		if err := a.inbox.Read(ctx, n); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Notification %d marked as read\n", n.ID)
		return nil

	case "read-all":
		if len(args) != 0 {
			return errUsage
		}
		if err := a.inbox.ReadAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "All notifications marked as read")
		return nil

	case "delete":
		n, err := a.findNotification(args)
		if err != nil {
			return err
		}
		if err := a.inbox.Delete(ctx, &n); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Notification %d deleted\n", n.ID)
		return nil

	case "delete-all":
		if len(args) != 0 {
			return errUsage
		}
		if err := a.inbox.Delete(ctx, nil); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "All notifications deleted")
		return nil

	default:
		return errUsage
	}
}

func (a *App) findNotification(args []string) (models.Notification, error) {
	id, err := parseID(args)
	if err != nil {
		return models.Notification{}, err
	}

	n, ok := a.inbox.Find(id)
	if !ok {
		return models.Notification{}, fmt.Errorf("%w: %d", apperrors.ErrNotificationNotFound, id)
	}
	return n, nil
}

func (a *App) printNotifications() error {
	list := a.inbox.Notifications()
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No notifications")
		return nil
	}

	now := a.now()
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, n := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", n.ID, readMark(n), notification.Phrase(n.Timestamp, now), n.Message, n.Document.Name)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%d unread\n", a.inbox.Unread())
	return nil
}

func readMark(n models.Notification) string {
	if n.Read {
		return "read"
	}
	return "new"
}

func (a *App) documents(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list":
		if len(args) != 0 {
			return errUsage
		}
		docs, err := a.editor.List(ctx)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Fprintln(a.out, "No documents")
			return nil
		}

		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		for _, doc := range docs {
			fmt.Fprintf(w, "%d\t%s\t%s\n", doc.ID, doc.Name, doc.DocDate)
		}
		return w.Flush()

	case "show":
		doc, err := a.openDocument(ctx, args, 1)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s (%s)\n\n%s\n", doc.Name, doc.DocDate, doc.Content)
		return nil

	case "rename":
		doc, err := a.openDocument(ctx, args, 2)
		if err != nil {
			return err
		}
		doc, err = a.editor.SaveTitle(ctx, doc, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Document %d renamed to %q\n", doc.ID, doc.Name)
		return nil

	case "write":
		doc, err := a.openDocument(ctx, args, 2)
		if err != nil {
			return err
		}
		doc, err = a.editor.SaveContent(ctx, doc, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Document %d saved\n", doc.ID)
		return nil

	default:
		return errUsage
	}
}

func (a *App) openDocument(ctx context.Context, args []string, want int) (models.Document, error) {
	if len(args) != want {
		return models.Document{}, errUsage
	}
	id, err := parseID(args[:1])
	if err != nil {
		return models.Document{}, err
	}
	return a.editor.Open(ctx, id)
}

// Keep the session alive and print notifications as they come until interrupted or logged out
func (a *App) watch(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watcher := notification.NewWatcher(notification.WatcherConfig{
		Interval: a.config.PollInterval,
		Logger:   a.logger,
	}, a.inbox, func(_ context.Context, n models.Notification) {
		fmt.Fprintf(a.out, "%s\t%s\t%s\n", notification.Phrase(n.Timestamp, a.now()), n.Message, n.Document.Name)
	})

	fmt.Fprintln(a.out, "Watching notifications, press Ctrl+C to stop")
	stopped := watcher.Watch(ctx)

	interval := a.config.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopped:
			return nil
		case <-ticker.C:
			access, err := a.creds.AccessToken(ctx)
			if err != nil {
				a.logger.Warn("Error while reading access token", "error", err)
				continue
			}
			if access == "" {
				cancel()
				<-stopped
				a.nav.Flush()
				return errNotLoggedIn
			}
		}
	}
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad id %q", errUsage, args[0])
	}
	return id, nil
}
