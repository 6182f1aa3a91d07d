package gamesession

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"

	"learn-and-earn/internal/models"
)

const (
	DefaultFrame     = 120 * time.Millisecond
	DefaultMinReveal = 2 * time.Second
	DefaultUnlock    = 4
)

// Factory builds one controller per game for a signed-in user.
type Factory struct {
	API        API
	Email      string
	UnlockCost int64
	MinReveal  time.Duration
	Clock      clock.Clock
	// RandIntN picks slot faces for the in-flight animation.
	RandIntN func(int) int
	// OnChange sees every state transition. It runs with the controller
	// locked and must not call back into it.
	OnChange func(Snapshot)
	Logger   *slog.Logger
}

func (f *Factory) specFor(game models.GameID) (Spec, error) {
	switch game {
	case models.GameLottery:
		minReveal := f.MinReveal
		if minReveal <= 0 {
			minReveal = DefaultMinReveal
		}
		return Spec{Game: game, Reels: models.ReelCount, MinReveal: minReveal, Frame: DefaultFrame}, nil
	case models.GameDino:
		return Spec{Game: game}, nil
	default:
		return Spec{}, fmt.Errorf("unknown game %q", game)
	}
}

func (f *Factory) New(game models.GameID) (*Controller, error) {
	spec, err := f.specFor(game)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		spec:       spec,
		api:        f.API,
		email:      models.NormalizeEmail(f.Email),
		unlockCost: f.UnlockCost,
		clock:      f.Clock,
		randIntN:   f.RandIntN,
		onChange:   f.OnChange,
		logger:     f.Logger,
	}
	if c.unlockCost <= 0 {
		c.unlockCost = DefaultUnlock
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.randIntN == nil {
		c.randIntN = rand.Intn
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.state = Snapshot{Game: game, Phase: PhaseIdle, Slots: c.hiddenSlots()}
	return c, nil
}

// FormatCountdown renders the time left until next as HH:MM:SS.
func FormatCountdown(now, next time.Time) string {
	d := next.Sub(now)
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
