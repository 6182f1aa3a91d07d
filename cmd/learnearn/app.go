package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"learn-and-earn/internal/apiclient"
	"learn-and-earn/internal/config"
	"learn-and-earn/internal/gamesession"
	"learn-and-earn/internal/models"
	"learn-and-earn/internal/roles"
	"learn-and-earn/internal/session"
)

var errSignedOut = errors.New("not signed in")

// terminalNavigator stands in for the browser router. Each command runs at
// its own path; a redirect to login becomes a hint on stderr.
type terminalNavigator struct {
	path string
	out  io.Writer
}

func (n *terminalNavigator) CurrentPath() string {
	return n.path
}

func (n *terminalNavigator) Redirect(path, from string) {
	n.path = path
	if path == session.LoginPath {
		fmt.Fprintf(n.out, "Your session has ended. Run `learnearn login` and retry %s.\n", from)
		return
	}
	fmt.Fprintf(n.out, "Continue at %s\n", path)
}

type app struct {
	cfg    *config.ClientConfig
	logger *slog.Logger
	out    io.Writer
	nav    *terminalNavigator
	gate   *session.Gate
	api    *apiclient.Client
	roles  *roles.Resolver
}

func newApp(path string) (*app, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	nav := &terminalNavigator{path: path, out: os.Stderr}
	gate, err := session.NewGate(session.NewFileStore(cfg.CredentialsPath), nav, session.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	api := apiclient.New(cfg, gate, logger)
	return &app{
		cfg:    cfg,
		logger: logger,
		out:    os.Stdout,
		nav:    nav,
		gate:   gate,
		api:    api,
		roles:  roles.NewResolver(api, logger),
	}, nil
}

// action builds the client for one command. Commands at the login path skip
// the session gate.
func action(path string, fn func(*cli.Context, *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := newApp(path)
		if err != nil {
			return err
		}
		if path != session.LoginPath {
			if err := a.requireSession(path); err != nil {
				return err
			}
		}
		return fn(c, a)
	}
}

func (a *app) requireSession(destination string) error {
	d, err := a.gate.Enforce(destination)
	if err != nil {
		return err
	}
	if d.Outcome != session.OutcomeAllow {
		return errSignedOut
	}
	return nil
}

func (a *app) identity() models.Identity {
	if id := a.gate.Identity(); id != nil {
		return *id
	}
	return models.Identity{}
}

func (a *app) games() *gamesession.Factory {
	return &gamesession.Factory{
		API:        a.api,
		Email:      a.identity().Email,
		UnlockCost: a.cfg.UnlockCost,
		MinReveal:  a.cfg.MinSpin,
		Logger:     a.logger,
	}
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}
