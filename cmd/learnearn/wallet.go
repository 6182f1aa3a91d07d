package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"learn-and-earn/internal/admin"
	"learn-and-earn/internal/apiclient"
	"learn-and-earn/internal/models"
)

func withdrawCommand() *cli.Command {
	return &cli.Command{
		Name:  "withdraw",
		Usage: "request a payout from your balance",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "amount", Required: true},
		},
		Action: action("/dashboard/withdraw", func(c *cli.Context, a *app) error {
			resp, err := a.api.Withdraw(c.Context, c.Int64("amount"))
			if err != nil {
				return fmt.Errorf("%s", apiclient.MessageOr(err, "Withdrawal failed"))
			}
			a.printf("%s\n", resp.Message)
			if w := resp.Withdrawal; w != nil {
				a.printf("Request %s for %s is %s\n", w.ID, models.FormatTaka(w.Amount), w.Status)
			}
			return nil
		}),
	}
}

func payCommand() *cli.Command {
	return &cli.Command{
		Name:  "pay",
		Usage: "submit a membership payment for review",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "defaults to your display name"},
			&cli.StringFlag{Name: "phone", Required: true},
			&cli.StringFlag{Name: "screenshot", Required: true, Usage: "URL of the payment screenshot"},
		},
		Action: action("/dashboard/payment", func(c *cli.Context, a *app) error {
			id := a.identity()
			name := c.String("name")
			if name == "" {
				name = id.DisplayName
			}

			p, err := a.api.SubmitPayment(c.Context, models.PaymentRequest{
				Name:       name,
				Email:      id.Email,
				Phone:      c.String("phone"),
				Screenshot: c.String("screenshot"),
			})
			if err != nil {
				return fmt.Errorf("%s", apiclient.MessageOr(err, "Payment submission failed"))
			}
			a.printf("Payment %s submitted, status %s\n", p.ID, p.Status)
			return nil
		}),
	}
}

func transactionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "transactions",
		Usage: "show your ledger, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20},
		},
		Action: action("/dashboard/transactions", func(c *cli.Context, a *app) error {
			txs, err := a.api.Transactions(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tTYPE\tAMOUNT\tBALANCE\tUNIT\tDESCRIPTION")
			for _, tx := range txs {
				unit := tx.Unit
				if unit == "" {
					unit = tx.Type.Unit()
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
					tx.CreatedAt.Local().Format(time.DateTime), tx.Type, tx.Amount, tx.BalanceAfter, unit, tx.Description)
			}
			return w.Flush()
		}),
	}
}

func coursesCommand() *cli.Command {
	return &cli.Command{
		Name:  "courses",
		Usage: "list courses",
		Action: action("/dashboard/courses", func(c *cli.Context, a *app) error {
			courses, err := a.api.Courses(c.Context)
			if err != nil {
				return err
			}
			printCourses(a, courses)
			return nil
		}),
	}
}

func printCourses(a *app, courses []*models.Course) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKEY\tNAME")
	for _, course := range courses {
		fmt.Fprintf(w, "%s\t%s\t%s\n", course.ID, course.Key, course.Name)
	}
	_ = w.Flush()
}

func videosCommand() *cli.Command {
	return &cli.Command{
		Name:  "videos",
		Usage: "list the videos of a course",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "course", Required: true, Usage: "course key"},
			&cli.StringFlag{Name: "q", Usage: "filter by title"},
		},
		Action: action("/dashboard/courses", func(c *cli.Context, a *app) error {
			videos, err := a.api.Videos(c.Context, c.String("course"))
			if err != nil {
				return err
			}
			printVideos(a, admin.FilterVideos(videos, c.String("q")))
			return nil
		}),
	}
}

func printVideos(a *app, videos []*models.Video) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tTITLE\tURL")
	for _, v := range videos {
		fmt.Fprintf(w, "%d\t%s\t%s\thttps://youtu.be/%s\n", v.Order, v.ID, v.Title, v.YouTubeID)
	}
	_ = w.Flush()
}
