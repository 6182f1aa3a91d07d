package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"learn-and-earn/internal/gamesession"
	"learn-and-earn/internal/models"
)

// reelPrinter redraws the slot line while a spin is in flight.
type reelPrinter struct {
	mu   sync.Mutex
	a    *app
	last string
}

func (p *reelPrinter) onChange(s gamesession.Snapshot) {
	if s.Phase != gamesession.PhaseAnimating || len(s.Slots) == 0 {
		return
	}
	line := strings.Join(s.Slots, " ")

	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.last {
		return
	}
	p.last = line
	p.a.printf("\r%s", line)
}

func (a *app) controller(c *cli.Context, game models.GameID, onChange func(gamesession.Snapshot)) (*gamesession.Controller, error) {
	f := a.games()
	f.OnChange = onChange
	ctrl, err := f.New(game)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Refresh(c.Context); err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return ctrl, nil
}

// explainBlocked turns a refused play into the hint a screen would show.
func (a *app) explainBlocked(err error, snap gamesession.Snapshot) error {
	switch {
	case errors.Is(err, gamesession.ErrLocked):
		return fmt.Errorf("games are locked, run `learnearn unlock` (needs %d tokens, you have %d)", a.cfg.UnlockCost, snap.Tokens)
	case errors.Is(err, gamesession.ErrNoPlaysLeft):
		return fmt.Errorf("no plays left today, next reset in %s", gamesession.FormatCountdown(time.Now(), snap.NextResetAt))
	case snap.Message != "":
		return errors.New(snap.Message)
	default:
		return err
	}
}

func (a *app) printOutcome(res *gamesession.Result, snap gamesession.Snapshot) {
	if len(res.Slots) > 0 {
		a.printf("\r%s\n", strings.Join(res.Slots, " "))
	}
	a.printf("%s\n", res.Message)
	a.printf("Balance %s, %d plays left today (resets in %s)\n",
		models.FormatTaka(snap.Balance), snap.Remaining, gamesession.FormatCountdown(time.Now(), snap.NextResetAt))
}

func lotteryCommand() *cli.Command {
	return &cli.Command{
		Name:  "lottery",
		Usage: "spin the free lottery",
		Action: action("/dashboard/lottery", func(c *cli.Context, a *app) error {
			printer := &reelPrinter{a: a}
			ctrl, err := a.controller(c, models.GameLottery, printer.onChange)
			if err != nil {
				return err
			}

			res, err := ctrl.Play(c.Context, 0)
			if err != nil {
				a.printf("\r")
				return a.explainBlocked(err, ctrl.Snapshot())
			}
			a.printOutcome(res, ctrl.Snapshot())
			return nil
		}),
	}
}

func dinoCommand() *cli.Command {
	return &cli.Command{
		Name:  "dino",
		Usage: "submit a dino run score",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "score", Required: true},
		},
		Action: action("/dashboard/dinogame", func(c *cli.Context, a *app) error {
			score := c.Int("score")
			if score < 0 {
				return fmt.Errorf("score must not be negative")
			}

			ctrl, err := a.controller(c, models.GameDino, nil)
			if err != nil {
				return err
			}
			res, err := ctrl.Play(c.Context, score)
			if err != nil {
				return a.explainBlocked(err, ctrl.Snapshot())
			}
			a.printOutcome(res, ctrl.Snapshot())
			return nil
		}),
	}
}

func unlockCommand() *cli.Command {
	return &cli.Command{
		Name:  "unlock",
		Usage: "spend tokens to unlock the games for a day",
		Action: action("/dashboard", func(c *cli.Context, a *app) error {
			ctrl, err := a.controller(c, models.GameLottery, nil)
			if err != nil {
				return err
			}
			if snap := ctrl.Snapshot(); snap.Unlocked(time.Now()) {
				a.printf("Games are already unlocked until %s\n", snap.UnlockedUntil.Local().Format(time.DateTime))
				return nil
			}

			if _, err := ctrl.Unlock(c.Context); err != nil {
				return a.explainBlocked(err, ctrl.Snapshot())
			}
			snap := ctrl.Snapshot()
			a.printf("%s\nTokens left: %d\n", snap.Message, snap.Tokens)
			return nil
		}),
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "show the provably fair seed hash and nonce",
		Action: action("/dashboard/lottery", func(c *cli.Context, a *app) error {
			v, err := a.api.Verification(c.Context)
			if err != nil {
				return err
			}
			a.printf("client seed  %s\nserver hash  %s\nnonce        %d\n", v.ClientSeed, v.ServerHash, v.CurrentNonce)
			return nil
		}),
	}
}
