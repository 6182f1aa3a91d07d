package main

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"learn-and-earn/internal/apiclient"
	"learn-and-earn/internal/gamesession"
	"learn-and-earn/internal/models"
	"learn-and-earn/internal/roles"
	"learn-and-earn/internal/session"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in with an existing account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
		},
		Action: action(session.LoginPath, func(c *cli.Context, a *app) error {
			email := models.NormalizeEmail(c.String("email"))
			token, err := a.api.IssueToken(c.Context, email)
			if err != nil {
				return fmt.Errorf("login: %s", apiclient.MessageOr(err, err.Error()))
			}
			if err := a.gate.Login(token, models.Identity{Email: email}); err != nil {
				return err
			}

			profile, err := a.api.Profile(c.Context)
			if err != nil {
				return fmt.Errorf("load profile: %w", err)
			}
			if err := a.gate.Login(token, profile.Identity()); err != nil {
				return err
			}
			a.printf("Signed in as %s (%s)\n", profile.Name, profile.Email)
			return nil
		}),
	}
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "phone"},
			&cli.StringFlag{Name: "photo", Usage: "photo URL"},
			&cli.StringFlag{Name: "ref", Usage: "referral code of the person who invited you"},
		},
		Action: action(session.LoginPath, func(c *cli.Context, a *app) error {
			resp, err := a.api.Register(c.Context, models.RegisterRequest{
				Email:      c.String("email"),
				Name:       c.String("name"),
				Phone:      c.String("phone"),
				PhotoURL:   c.String("photo"),
				ReferredBy: c.String("ref"),
			})
			if err != nil {
				return fmt.Errorf("register: %s", apiclient.MessageOr(err, err.Error()))
			}

			u := resp.User
			identity := models.Identity{ID: u.ReferralCode, Email: u.Email, DisplayName: u.Name, PhotoURL: u.PhotoURL}
			if err := a.gate.Login(resp.Token, identity); err != nil {
				return err
			}
			a.printf("Welcome %s! Your referral code is %s\n", u.Name, u.ReferralCode)
			return nil
		}),
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "forget the saved session",
		Action: action(session.LoginPath, func(c *cli.Context, a *app) error {
			a.roles.Reset()
			if err := a.gate.Logout(); err != nil {
				return err
			}
			a.printf("Signed out\n")
			return nil
		}),
	}
}

func deleteAccountCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete-account",
		Usage: "permanently delete your account",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Usage: "confirm deletion"},
		},
		Action: action("/dashboard/profile", func(c *cli.Context, a *app) error {
			if !c.Bool("yes") {
				return fmt.Errorf("pass --yes to delete %s", a.identity().Email)
			}
			if err := a.api.DeleteUser(c.Context, a.identity().Email); err != nil {
				return err
			}
			a.printf("Account deleted\n")
			return a.gate.Logout()
		}),
	}
}

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "show balance, tokens and today's plays",
		Action: action("/dashboard/profile", func(c *cli.Context, a *app) error {
			p, err := a.api.Profile(c.Context)
			if err != nil {
				return err
			}

			now := time.Now()
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Name\t%s\n", p.Name)
			fmt.Fprintf(w, "Email\t%s\n", p.Email)
			fmt.Fprintf(w, "Role\t%s (%s)\n", p.Role, p.Status)
			fmt.Fprintf(w, "Referral code\t%s\n", p.ReferralCode)
			if p.Referrer != nil {
				fmt.Fprintf(w, "Referred by\t%s (%s)\n", p.Referrer.Name, p.Referrer.ReferralCode)
			}
			fmt.Fprintf(w, "Balance\t%s (locked %s)\n", models.FormatTaka(p.Balance), models.FormatTaka(p.LockedBalance))
			fmt.Fprintf(w, "Tokens\t%d\n", p.Tokens)
			if p.Unlocked(now) {
				fmt.Fprintf(w, "Games\tunlocked until %s\n", p.UnlockDate.Local().Format(time.DateTime))
			} else {
				fmt.Fprintf(w, "Games\tlocked\n")
			}
			for _, game := range []models.GameID{models.GameLottery, models.GameDino} {
				if al, ok := p.AllowanceFor(game); ok {
					fmt.Fprintf(w, "%s\t%d plays left, resets in %s\n",
						game, al.RemainingToday, gamesession.FormatCountdown(now, al.NextResetAt))
				}
			}
			return w.Flush()
		}),
	}
}

func roleCommand() *cli.Command {
	return &cli.Command{
		Name:  "role",
		Usage: "look up a role by referral code or email",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "defaults to your own"},
			&cli.StringFlag{Name: "ref", Usage: "referral code, takes priority over email"},
		},
		Action: action("/dashboard", func(c *cli.Context, a *app) error {
			email := c.String("email")
			if email == "" && c.String("ref") == "" {
				email = a.identity().Email
			}
			id, ok := roles.NewIdentifier(email, c.String("ref"))
			if !ok {
				return fmt.Errorf("nothing to look up")
			}

			role, err := a.roles.Resolve(c.Context, id)
			if err != nil {
				a.logger.Debug("Role lookup fell back to user", slog.Any("error", err))
			}
			a.printf("%s\n", role)
			return nil
		}),
	}
}

func teamCommand() *cli.Command {
	return &cli.Command{
		Name:  "team",
		Usage: "list the people you referred",
		Action: action("/dashboard/team", func(c *cli.Context, a *app) error {
			team, err := a.api.Team(c.Context)
			if err != nil {
				return err
			}
			if len(team) == 0 {
				a.printf("Nobody has joined with your code yet\n")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tEMAIL\tROLE\tSTATUS\tJOINED")
			for _, m := range team {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.Name, m.Email, m.Role, m.Status, m.JoinedAt.Local().Format(time.DateOnly))
			}
			return w.Flush()
		}),
	}
}

func photoCommand() *cli.Command {
	return &cli.Command{
		Name:      "photo",
		Usage:     "change your profile photo",
		ArgsUsage: "<url>",
		Action: action("/dashboard/profile", func(c *cli.Context, a *app) error {
			url := strings.TrimSpace(c.Args().First())
			if url == "" {
				return fmt.Errorf("photo URL is required")
			}
			if err := a.api.UpdatePhoto(c.Context, a.identity().Email, url); err != nil {
				return fmt.Errorf("%s", apiclient.MessageOr(err, err.Error()))
			}
			a.printf("Photo updated\n")
			return nil
		}),
	}
}
