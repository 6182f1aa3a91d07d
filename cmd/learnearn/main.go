package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "learnearn",
		Usage: "play, learn and manage a Learn & Earn account from the terminal",
		Commands: []*cli.Command{
			loginCommand(),
			registerCommand(),
			logoutCommand(),
			deleteAccountCommand(),
			profileCommand(),
			roleCommand(),
			teamCommand(),
			photoCommand(),
			lotteryCommand(),
			dinoCommand(),
			unlockCommand(),
			verifyCommand(),
			withdrawCommand(),
			payCommand(),
			transactionsCommand(),
			coursesCommand(),
			videosCommand(),
			watchCommand(),
			adminCommand(),
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		slog.Debug("Command failed", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
