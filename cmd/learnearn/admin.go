package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"learn-and-earn/internal/admin"
	"learn-and-earn/internal/apiclient"
	"learn-and-earn/internal/models"
	"learn-and-earn/internal/roles"
)

var errForbidden = errors.New("this command needs an admin account")

// adminAction runs fn only once the signed-in user's role resolves to admin.
func adminAction(path string, fn func(*cli.Context, *app, *admin.Service) error) cli.ActionFunc {
	return action(path, func(c *cli.Context, a *app) error {
		me := a.identity()
		id, ok := roles.NewIdentifier(me.Email, me.ID)
		if !ok {
			return errSignedOut
		}

		role, err := a.roles.Resolve(c.Context, id)
		if err != nil {
			a.logger.Debug("Role lookup failed", slog.Any("error", err))
		}
		if roles.AdminAccess(false, roles.State{Role: role}) != roles.AccessAllowed {
			return errForbidden
		}
		return fn(c, a, admin.NewService(a.api))
	})
}

func adminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "manage courses, payments, members and withdrawals",
		Subcommands: []*cli.Command{
			adminCoursesCommand(),
			adminVideosCommand(),
			adminPaymentsCommand(),
			adminPendingCommand(),
			adminWithdrawalsCommand(),
			adminMembersCommand(),
		},
	}
}

func failure(err error, fallback string) error {
	return errors.New(apiclient.MessageOr(err, fallback+": "+err.Error()))
}

func adminCoursesCommand() *cli.Command {
	return &cli.Command{
		Name:  "courses",
		Usage: "course catalogue",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				ArgsUsage: "<key> <name>",
				Action: adminAction("/admin/courses", func(c *cli.Context, a *app, svc *admin.Service) error {
					courses, err := svc.CreateCourse(c.Context, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return failure(err, "create course")
					}
					printCourses(a, courses)
					return nil
				}),
			},
			{
				Name:      "rename",
				ArgsUsage: "<id> <name>",
				Action: adminAction("/admin/courses", func(c *cli.Context, a *app, svc *admin.Service) error {
					courses, err := svc.RenameCourse(c.Context, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return failure(err, "rename course")
					}
					printCourses(a, courses)
					return nil
				}),
			},
			{
				Name:      "delete",
				ArgsUsage: "<id>",
				Action: adminAction("/admin/courses", func(c *cli.Context, a *app, svc *admin.Service) error {
					courses, err := svc.DeleteCourse(c.Context, c.Args().First())
					if err != nil {
						return failure(err, "delete course")
					}
					printCourses(a, courses)
					return nil
				}),
			},
		},
	}
}

func adminVideosCommand() *cli.Command {
	courseFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "course", Required: true, Usage: "course key"}
	}
	return &cli.Command{
		Name:  "videos",
		Usage: "videos of a course",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Flags: []cli.Flag{courseFlag(), &cli.StringFlag{Name: "title", Required: true}, &cli.StringFlag{Name: "yt", Required: true}, &cli.IntFlag{Name: "order"}},
				Action: adminAction("/admin/videos", func(c *cli.Context, a *app, svc *admin.Service) error {
					req := models.CreateVideoRequest{CourseKey: c.String("course"), Title: c.String("title"), YouTubeID: c.String("yt")}
					if c.IsSet("order") {
						req.Order = models.IntPtr(c.Int("order"))
					}
					videos, err := svc.CreateVideo(c.Context, req)
					if err != nil {
						return failure(err, "add video")
					}
					printVideos(a, videos)
					return nil
				}),
			},
			{
				Name:      "update",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{courseFlag(), &cli.StringFlag{Name: "title"}, &cli.StringFlag{Name: "yt"}, &cli.IntFlag{Name: "order"}},
				Action: adminAction("/admin/videos", func(c *cli.Context, a *app, svc *admin.Service) error {
					var patch models.VideoPatch
					if c.IsSet("title") {
						title := c.String("title")
						patch.Title = &title
					}
					if c.IsSet("yt") {
						yt := c.String("yt")
						patch.YouTubeID = &yt
					}
					if c.IsSet("order") {
						patch.Order = models.IntPtr(c.Int("order"))
					}
					videos, err := svc.UpdateVideo(c.Context, c.String("course"), c.Args().First(), patch)
					if err != nil {
						return failure(err, "update video")
					}
					printVideos(a, videos)
					return nil
				}),
			},
			{
				Name:      "delete",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{courseFlag()},
				Action: adminAction("/admin/videos", func(c *cli.Context, a *app, svc *admin.Service) error {
					videos, err := svc.DeleteVideo(c.Context, c.String("course"), c.Args().First())
					if err != nil {
						return failure(err, "delete video")
					}
					printVideos(a, videos)
					return nil
				}),
			},
		},
	}
}

func statusFlag() cli.Flag {
	return &cli.StringFlag{Name: "status", Value: admin.StatusAll, Usage: "pending, approved, rejected or all"}
}

func printCounts(a *app, counts map[string]int) {
	a.printf("all %d · pending %d · approved %d · rejected %d\n",
		counts[admin.StatusAll], counts["pending"], counts["approved"], counts["rejected"])
}

func printPayments(a *app, payments []*models.Payment, status string) {
	printCounts(a, admin.CountByStatus(payments, admin.PaymentStatus))
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tSTATUS\tDATE")
	for _, p := range admin.FilterPayments(payments, status) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s [%s]\t%s\n", p.ID, p.Name, p.Email, p.Phone,
			p.Status, admin.StatusBadge(string(p.Status)), time.UnixMilli(p.Date).Local().Format(time.DateOnly))
	}
	_ = w.Flush()
}

func adminPaymentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "payments",
		Usage: "membership payments",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Flags: []cli.Flag{statusFlag()},
				Action: adminAction("/admin/payments", func(c *cli.Context, a *app, svc *admin.Service) error {
					payments, err := svc.Payments(c.Context)
					if err != nil {
						return err
					}
					printPayments(a, payments, c.String("status"))
					return nil
				}),
			},
			{
				Name:      "set",
				ArgsUsage: "<id> <pending|approved|rejected>",
				Action: adminAction("/admin/payments", func(c *cli.Context, a *app, svc *admin.Service) error {
					payments, err := svc.SetPaymentStatus(c.Context, c.Args().Get(0), models.PaymentStatus(c.Args().Get(1)))
					if err != nil {
						return failure(err, "update payment")
					}
					printPayments(a, payments, admin.StatusAll)
					return nil
				}),
			},
		},
	}
}

func printUsers(a *app, users []*models.User) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEMAIL\tROLE\tSTATUS\tBALANCE")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.Name, u.Email, u.Role, u.Status, models.FormatTaka(u.Balance))
	}
	_ = w.Flush()
}

// printBatch reports every item and fails the command when any item failed.
func printBatch(a *app, res admin.BatchResult) error {
	for _, id := range res.Succeeded {
		a.printf("ok      %s\n", id)
	}
	for id, err := range res.Failed {
		a.printf("failed  %s: %s\n", id, apiclient.MessageOr(err, err.Error()))
	}
	return res.Err()
}

func adminPendingCommand() *cli.Command {
	return &cli.Command{
		Name:  "pending",
		Usage: "users waiting for membership approval",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Flags: []cli.Flag{&cli.StringFlag{Name: "q", Usage: "filter by name or email"}},
				Action: adminAction("/admin/pending-users", func(c *cli.Context, a *app, svc *admin.Service) error {
					users, err := svc.PendingUsers(c.Context)
					if err != nil {
						return err
					}
					printUsers(a, admin.FilterUsers(users, c.String("q")))
					return nil
				}),
			},
			{
				Name:      "approve",
				ArgsUsage: "<email>...",
				Action: adminAction("/admin/pending-users", func(c *cli.Context, a *app, svc *admin.Service) error {
					res := admin.BatchApply(c.Context, c.Args().Slice(), func(ctx context.Context, email string) error {
						_, err := svc.ApprovePendingUser(ctx, email)
						return err
					})
					return printBatch(a, res)
				}),
			},
		},
	}
}

func printWithdrawals(a *app, ws []*models.Withdrawal, status string) {
	printCounts(a, admin.CountByStatus(ws, admin.WithdrawalStatus))
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tAMOUNT\tSTATUS\tREQUESTED")
	for _, wd := range admin.FilterWithdrawals(ws, status) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s [%s]\t%s\n", wd.ID, wd.Email, models.FormatTaka(wd.Amount),
			wd.Status, admin.StatusBadge(string(wd.Status)), time.UnixMilli(wd.RequestedAt).Local().Format(time.DateTime))
	}
	_ = w.Flush()
}

func settleCommand(name string, approve bool) *cli.Command {
	return &cli.Command{
		Name:      name,
		ArgsUsage: "<id>...",
		Action: adminAction("/admin/withdrawals", func(c *cli.Context, a *app, svc *admin.Service) error {
			res := admin.BatchApply(c.Context, c.Args().Slice(), func(ctx context.Context, id string) error {
				_, err := svc.SettleWithdrawal(ctx, id, approve)
				return err
			})
			return printBatch(a, res)
		}),
	}
}

func adminWithdrawalsCommand() *cli.Command {
	return &cli.Command{
		Name:  "withdrawals",
		Usage: "payout requests",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Flags: []cli.Flag{statusFlag()},
				Action: adminAction("/admin/withdrawals", func(c *cli.Context, a *app, svc *admin.Service) error {
					ws, err := svc.Withdrawals(c.Context)
					if err != nil {
						return err
					}
					printWithdrawals(a, ws, c.String("status"))
					return nil
				}),
			},
			settleCommand("approve", true),
			settleCommand("reject", false),
		},
	}
}

func adminMembersCommand() *cli.Command {
	return &cli.Command{
		Name:  "members",
		Usage: "active members",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Flags: []cli.Flag{&cli.StringFlag{Name: "q", Usage: "filter by name or email"}},
				Action: adminAction("/admin/members", func(c *cli.Context, a *app, svc *admin.Service) error {
					members, err := svc.Members(c.Context)
					if err != nil {
						return err
					}
					members = admin.FilterUsers(members, c.String("q"))
					printUsers(a, members)
					a.printf("%d members\n", len(members))
					return nil
				}),
			},
			{
				Name:      "show",
				ArgsUsage: "<email>",
				Action: adminAction("/admin/members", func(c *cli.Context, a *app, svc *admin.Service) error {
					p, err := svc.MemberProfile(c.Context, c.Args().First())
					if err != nil {
						return failure(err, "load member")
					}
					a.printf("%s <%s>\nrole %s, status %s\nbalance %s, tokens %d, referral code %s\n",
						p.Name, p.Email, p.Role, p.Status, models.FormatTaka(p.Balance), p.Tokens, p.ReferralCode)
					return nil
				}),
			},
		},
	}
}
