package gamesession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"learn-and-earn/internal/apiclient"
	"learn-and-earn/internal/models"
)

var (
	ErrBusy               = errors.New("a play is already in progress")
	ErrLocked             = errors.New("games are locked")
	ErrNoPlaysLeft        = errors.New("no plays left today")
	ErrInsufficientTokens = errors.New("not enough tokens to unlock")
	ErrRejected           = errors.New("play rejected")
)

const (
	playFailedMessage   = "Something went wrong. Please try again."
	unlockFailedMessage = "Unlock failed. Please try again."
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRequesting
	PhaseAnimating
	PhaseResolved
	PhaseUnlocking
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRequesting:
		return "requesting"
	case PhaseAnimating:
		return "animating"
	case PhaseResolved:
		return "resolved"
	case PhaseUnlocking:
		return "unlocking"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// API is the slice of the backend a controller talks to.
type API interface {
	Profile(ctx context.Context) (*models.Profile, error)
	PlayLottery(ctx context.Context, email string) (*models.PlayFreeResponse, error)
	PlayDino(ctx context.Context, email string, score int) (*models.DinoPlayResponse, error)
	Unlock(ctx context.Context, email string) (*models.UnlockResponse, error)
}

// Result is the server's verdict on one play.
type Result struct {
	Win     bool
	Reward  int64
	Slots   []string
	Message string
}

// Snapshot is everything a screen renders for one game.
type Snapshot struct {
	Game          models.GameID
	Phase         Phase
	Slots         []string
	Remaining     int
	NextResetAt   time.Time
	UnlockedUntil time.Time
	Tokens        int64
	Balance       int64
	Message       string
	Last          *Result
	Loaded        bool
}

func (s Snapshot) Unlocked(now time.Time) bool {
	return s.UnlockedUntil.After(now)
}

// Spec describes how a game plays.
type Spec struct {
	Game models.GameID
	// Reels is the number of slots animated while a play is in flight.
	Reels int
	// MinReveal is the shortest time between starting a play and showing its
	// result.
	MinReveal time.Duration
	Frame     time.Duration
}

// Controller drives one game for one signed-in user.
type Controller struct {
	spec       Spec
	api        API
	email      string
	unlockCost int64
	clock      clock.Clock
	randIntN   func(int) int
	onChange   func(Snapshot)
	logger     *slog.Logger

	mu    sync.Mutex
	state Snapshot
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

func (c *Controller) copyLocked() Snapshot {
	s := c.state
	s.Slots = append([]string(nil), c.state.Slots...)
	return s
}

// publishLocked must be called with mu held. onChange runs synchronously so
// observers see every transition in order.
func (c *Controller) publishLocked() {
	if c.onChange != nil {
		c.onChange(c.copyLocked())
	}
}

func (c *Controller) hiddenSlots() []string {
	slots := make([]string, c.spec.Reels)
	for i := range slots {
		slots[i] = models.HiddenSlot
	}
	return slots
}

// Refresh replaces counters with the server's view of the profile.
func (c *Controller) Refresh(ctx context.Context) error {
	p, err := c.api.Profile(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyProfileLocked(p)
	c.publishLocked()
	return nil
}

func (c *Controller) applyProfileLocked(p *models.Profile) {
	c.state.Tokens = p.Tokens
	c.state.Balance = p.Balance
	c.state.UnlockedUntil = time.Time{}
	if p.UnlockDate != nil {
		c.state.UnlockedUntil = *p.UnlockDate
	}
	if a, ok := p.AllowanceFor(c.spec.Game); ok {
		c.state.Remaining = a.RemainingToday
		c.state.NextResetAt = a.NextResetAt
	}
	c.state.Loaded = true
}

// Play starts one round and blocks until it resolves. score is only sent by
// games without reels.
func (c *Controller) Play(ctx context.Context, score int) (*Result, error) {
	c.mu.Lock()
	if err := c.canPlayLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	prev := c.copyLocked()
	c.state.Phase = PhaseRequesting
	c.state.Message = ""
	c.publishLocked()
	c.mu.Unlock()

	// The reveal floor counts from here, not from when the response arrives.
	var floor *clock.Timer
	if c.spec.MinReveal > 0 {
		floor = c.clock.Timer(c.spec.MinReveal)
		defer floor.Stop()
	}

	stopAnimation := c.animate()
	out, err := c.call(ctx, score)
	if err == nil && floor != nil {
		select {
		case <-floor.C:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	stopAnimation()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.restoreLocked(prev)
		switch {
		case ctx.Err() != nil:
			err = ctx.Err()
			c.state.Message = ""
		case errors.Is(err, ErrRejected) && out.result.Message != "":
			c.state.Message = out.result.Message
		default:
			c.state.Message = apiclient.MessageOr(err, playFailedMessage)
		}
		c.state.Phase = PhaseIdle
		c.publishLocked()
		return nil, err
	}

	res := out.result
	if len(res.Slots) > 0 {
		c.state.Slots = append([]string(nil), res.Slots...)
	}
	if out.remaining != nil {
		c.state.Remaining = *out.remaining
	}
	if out.balance != nil {
		c.state.Balance = *out.balance
	}
	if out.nextReset != nil {
		c.state.NextResetAt = *out.nextReset
	}
	c.state.Message = res.Message
	c.state.Last = res
	c.state.Phase = PhaseResolved
	c.publishLocked()

	c.state.Phase = PhaseIdle
	c.publishLocked()
	return res, nil
}

func (c *Controller) canPlayLocked() error {
	switch {
	case c.state.Phase != PhaseIdle:
		return ErrBusy
	case !c.state.Unlocked(c.clock.Now()):
		return ErrLocked
	case c.state.Remaining <= 0:
		return ErrNoPlaysLeft
	default:
		return nil
	}
}

func (c *Controller) restoreLocked(prev Snapshot) {
	c.state.Slots = prev.Slots
	c.state.Remaining = prev.Remaining
	c.state.Tokens = prev.Tokens
	c.state.Balance = prev.Balance
}

type outcome struct {
	result    *Result
	remaining *int
	balance   *int64
	nextReset *time.Time
}

// call performs the network request. Nothing in state changes here; the
// caller applies the outcome once the reveal floor has passed.
func (c *Controller) call(ctx context.Context, score int) (outcome, error) {
	if c.spec.Game == models.GameDino {
		resp, err := c.api.PlayDino(ctx, c.email, score)
		if err != nil {
			return outcome{}, err
		}
		out := outcome{
			result:    &Result{Win: resp.Reward > 0, Reward: resp.Reward, Message: resp.Message},
			remaining: resp.RemainingPlays,
			balance:   resp.NewBalance,
			nextReset: resp.NextResetAt,
		}
		if !resp.Success {
			return out, ErrRejected
		}
		return out, nil
	}

	resp, err := c.api.PlayLottery(ctx, c.email)
	if err != nil {
		return outcome{}, err
	}
	out := outcome{
		result:    &Result{Win: resp.Win, Reward: resp.Reward, Slots: resp.Slots, Message: resp.Message},
		balance:   resp.NewBalance,
		nextReset: resp.NextResetAt,
	}
	if n, ok := resp.Remaining(); ok {
		out.remaining = &n
	}
	if !resp.Success {
		return out, ErrRejected
	}
	return out, nil
}

// animate shuffles the displayed slots every frame until the returned stop
// function is called. Games without reels skip straight past Animating.
func (c *Controller) animate() (stop func()) {
	if c.spec.Reels == 0 {
		return func() {}
	}

	c.mu.Lock()
	c.state.Phase = PhaseAnimating
	c.state.Slots = c.randomSlots()
	c.publishLocked()
	c.mu.Unlock()

	ticker := c.clock.Ticker(c.spec.Frame)
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				if c.state.Phase == PhaseAnimating {
					c.state.Slots = c.randomSlots()
					c.publishLocked()
				}
				c.mu.Unlock()
			case <-done:
				return
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
		<-finished
	}
}

func (c *Controller) randomSlots() []string {
	slots := make([]string, c.spec.Reels)
	for i := range slots {
		slots[i] = models.SlotSymbols[c.randIntN(len(models.SlotSymbols))]
	}
	return slots
}

// Unlock spends tokens to open every game for the unlock window, then reloads
// the profile so counters come from the server.
func (c *Controller) Unlock(ctx context.Context) (*models.UnlockResponse, error) {
	c.mu.Lock()
	if c.state.Phase != PhaseIdle {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if c.state.Tokens < c.unlockCost {
		c.state.Message = fmt.Sprintf("You need at least %d tokens to unlock games.", c.unlockCost)
		c.publishLocked()
		c.mu.Unlock()
		return nil, ErrInsufficientTokens
	}
	c.state.Phase = PhaseUnlocking
	c.state.Message = ""
	c.publishLocked()
	c.mu.Unlock()

	resp, err := c.api.Unlock(ctx, c.email)
	if err != nil {
		c.mu.Lock()
		c.state.Phase = PhaseIdle
		if ctx.Err() == nil {
			c.state.Message = apiclient.MessageOr(err, unlockFailedMessage)
		}
		c.publishLocked()
		c.mu.Unlock()
		return nil, err
	}

	profile, perr := c.api.Profile(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if perr == nil {
		c.applyProfileLocked(profile)
	} else {
		c.logger.Warn("Profile refresh after unlock failed", slog.Any("error", perr))
		if resp.Tokens != nil {
			c.state.Tokens = *resp.Tokens
		}
		if resp.UnlockDate != nil {
			c.state.UnlockedUntil = *resp.UnlockDate
		}
	}
	c.state.Message = resp.Message
	c.state.Phase = PhaseIdle
	c.publishLocked()
	return resp, nil
}

// ApplyBalance folds a pushed wallet update into the snapshot.
func (c *Controller) ApplyBalance(update models.BalanceUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != PhaseIdle {
		return
	}
	c.state.Balance = update.Balance
	c.state.Tokens = update.Tokens
	c.publishLocked()
}
