package roles

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"learn-and-earn/internal/models"
)

type IdentifierKind string

const (
	ByReferralCode IdentifierKind = "referralCode"
	ByEmail        IdentifierKind = "email"
)

// Identifier is the key a role is looked up and cached under.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

// NewIdentifier prefers the referral code over the email. ok is false when
// neither is usable.
func NewIdentifier(email, referralCode string) (id Identifier, ok bool) {
	if code := models.NormalizeReferralCode(referralCode); code != "" {
		return Identifier{Kind: ByReferralCode, Value: code}, true
	}
	if e := models.NormalizeEmail(email); e != "" {
		return Identifier{Kind: ByEmail, Value: e}, true
	}
	return Identifier{}, false
}

func (id Identifier) key() string {
	return string(id.Kind) + ":" + id.Value
}

// Lookup asks the backend for a role. Exactly one of email and referralCode
// is set.
type Lookup interface {
	Role(ctx context.Context, email, referralCode string) (models.Role, error)
}

type State struct {
	Role    models.Role
	Loading bool
}

type result struct {
	role models.Role
	err  error
}

// Resolver memoizes one role per identifier for the lifetime of a session.
type Resolver struct {
	lookup Lookup
	logger *slog.Logger
	group  singleflight.Group

	mu    sync.Mutex
	cache map[string]result
}

func NewResolver(lookup Lookup, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		lookup: lookup,
		logger: logger,
		cache:  make(map[string]result),
	}
}

const maxAttempts = 2

// Resolve returns the role for id. A failed lookup is retried once and then
// settles on RoleUser; the last lookup error is returned alongside it.
// Concurrent callers for the same identifier share one request.
func (r *Resolver) Resolve(ctx context.Context, id Identifier) (models.Role, error) {
	if res, ok := r.cached(id); ok {
		return res.role, res.err
	}

	v, err, _ := r.group.Do(id.key(), func() (interface{}, error) {
		if res, ok := r.cached(id); ok {
			return res, nil
		}

		res := r.fetch(ctx, id)
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		r.mu.Lock()
		r.cache[id.key()] = res
		r.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return models.RoleUser, err
	}

	res := v.(result)
	return res.role, res.err
}

func (r *Resolver) fetch(ctx context.Context, id Identifier) result {
	var email, code string
	if id.Kind == ByReferralCode {
		code = id.Value
	} else {
		email = id.Value
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		role, err := r.lookup.Role(ctx, email, code)
		if err == nil {
			return result{role: models.ParseRole(string(role))}
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		r.logger.Debug("Role lookup failed",
			slog.String("by", string(id.Kind)),
			slog.Int("attempt", attempt),
			slog.Any("error", err))
	}
	return result{role: models.RoleUser, err: lastErr}
}

func (r *Resolver) cached(id Identifier) (result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.cache[id.key()]
	return res, ok
}

// State reports the role as a screen would see it without blocking. When the
// role is not known yet a lookup is started in the background and Loading is
// true until it settles. A done ctx settles on RoleUser straight away.
func (r *Resolver) State(ctx context.Context, authPending bool, id Identifier, ok bool) State {
	if authPending {
		return State{Role: models.RoleUser, Loading: true}
	}
	if !ok {
		return State{Role: models.RoleUser}
	}
	if res, hit := r.cached(id); hit {
		return State{Role: res.role}
	}
	if ctx.Err() != nil {
		return State{Role: models.RoleUser}
	}

	go func() {
		if _, err := r.Resolve(ctx, id); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Debug("Background role lookup settled on user", slog.Any("error", err))
		}
	}()
	return State{Role: models.RoleUser, Loading: true}
}

// Invalidate drops the cached role for id.
func (r *Resolver) Invalidate(id Identifier) {
	r.mu.Lock()
	delete(r.cache, id.key())
	r.mu.Unlock()
	r.group.Forget(id.key())
}

// Reset forgets every cached role, for example on logout.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.cache = make(map[string]result)
	r.mu.Unlock()
}

// Refetch drops the cached role for id and looks it up again.
func (r *Resolver) Refetch(ctx context.Context, id Identifier) (models.Role, error) {
	r.Invalidate(id)
	return r.Resolve(ctx, id)
}
