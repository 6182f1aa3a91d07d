package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"learn-and-earn/internal/models"
)

const LoginPath = "/auth/login"

type IdentityState int

const (
	IdentityPending IdentityState = iota
	IdentityAbsent
	IdentityPresent
)

func (s IdentityState) String() string {
	switch s {
	case IdentityPending:
		return "pending"
	case IdentityAbsent:
		return "absent"
	case IdentityPresent:
		return "present"
	default:
		return fmt.Sprintf("IdentityState(%d)", int(s))
	}
}

type Outcome int

const (
	OutcomeLoading Outcome = iota
	OutcomeRedirectLogin
	OutcomeForceLogout
	OutcomeAllow
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoading:
		return "loading"
	case OutcomeRedirectLogin:
		return "redirect-login"
	case OutcomeForceLogout:
		return "force-logout"
	case OutcomeAllow:
		return "allow"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Decision is the result of guarding one destination. From is the path the
// user should return to after signing in.
type Decision struct {
	Outcome Outcome
	From    string
}

// Navigator moves the user between screens.
type Navigator interface {
	CurrentPath() string
	Redirect(path, from string)
}

type Option func(*Gate)

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

// Gate guards protected destinations and owns the bearer token.
type Gate struct {
	store  Store
	nav    Navigator
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	creds    Credentials
	pending  bool
	rejected bool
}

// NewGate loads any saved credentials from store.
func NewGate(store Store, nav Navigator, opts ...Option) (*Gate, error) {
	g := &Gate{
		store:  store,
		nav:    nav,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	creds, err := store.Load()
	if err != nil {
		return nil, err
	}
	g.creds = creds
	return g, nil
}

// SetPending marks identity resolution as in progress.
func (g *Gate) SetPending(pending bool) {
	g.mu.Lock()
	g.pending = pending
	g.mu.Unlock()
}

func (g *Gate) IdentityState() IdentityState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.identityStateLocked()
}

func (g *Gate) identityStateLocked() IdentityState {
	switch {
	case g.pending:
		return IdentityPending
	case g.creds.Identity == nil:
		return IdentityAbsent
	default:
		return IdentityPresent
	}
}

func (g *Gate) Identity() *models.Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.creds.Identity == nil {
		return nil
	}
	id := *g.creds.Identity
	return &id
}

// Login stores a fresh token and identity and starts a new session episode.
func (g *Gate) Login(token string, identity models.Identity) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	creds := Credentials{AccessToken: token, Identity: &identity}
	if err := g.store.Save(creds); err != nil {
		return err
	}
	g.creds = creds
	g.pending = false
	g.rejected = false
	return nil
}

// Logout forgets both the token and the identity.
func (g *Gate) Logout() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.logoutLocked()
}

func (g *Gate) logoutLocked() error {
	g.creds = Credentials{}
	return g.store.Clear()
}

// Decide maps the identity state and the stored token to an outcome without
// side effects.
func (g *Gate) Decide(state IdentityState, destination string) Decision {
	g.mu.Lock()
	token := g.creds.AccessToken
	g.mu.Unlock()

	switch state {
	case IdentityPending:
		return Decision{Outcome: OutcomeLoading}
	case IdentityAbsent:
		return Decision{Outcome: OutcomeRedirectLogin, From: destination}
	}

	if g.expired(token) {
		return Decision{Outcome: OutcomeForceLogout, From: destination}
	}
	return Decision{Outcome: OutcomeAllow}
}

func (g *Gate) expired(token string) bool {
	exp, err := ExpiresAt(token)
	if err != nil {
		g.logger.Debug("Treating token as expired", slog.Any("error", err))
		return true
	}
	return exp.Before(g.now())
}

// Enforce decides for destination and performs the redirect or logout the
// decision calls for.
func (g *Gate) Enforce(destination string) (Decision, error) {
	d := g.Decide(g.IdentityState(), destination)

	switch d.Outcome {
	case OutcomeForceLogout:
		if err := g.Logout(); err != nil {
			return d, err
		}
		g.nav.Redirect(LoginPath, d.From)
	case OutcomeRedirectLogin:
		g.nav.Redirect(LoginPath, d.From)
	}
	return d, nil
}

// BearerToken returns the stored access token, or "" when there is none.
func (g *Gate) BearerToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.creds.AccessToken
}

// Reject is called when the backend answers 401 or 403. The token is dropped
// and the user is sent to login once per episode. The Navigator is only
// called with g.mu released.
func (g *Gate) Reject(status int) {
	g.logger.Debug("Backend rejected session", slog.Int("status", status))
	from := g.nav.CurrentPath()
	onLogin := strings.Contains(from, LoginPath)

	g.mu.Lock()
	if g.creds.AccessToken != "" {
		g.creds.AccessToken = ""
		if err := g.store.Save(g.creds); err != nil {
			g.logger.Warn("Failed to persist cleared token", slog.Any("error", err))
		}
	}
	redirect := !g.rejected && !onLogin
	if redirect {
		g.rejected = true
	}
	g.mu.Unlock()

	if redirect {
		g.nav.Redirect(LoginPath, from)
	}
}
