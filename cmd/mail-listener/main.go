package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"pricecase/internal/app"
	"pricecase/internal/config"
	"pricecase/internal/listener"
	"pricecase/internal/logging"
)

func main() {
	cfg, err := config.Load()
	must(err)

	fs := ff.NewFlagSet("mail-listener")
	var (
		interval = fs.IntLong("interval", cfg.ListenerIntervalSec, "seconds between runs")
		dryRun   = fs.BoolLong("dry-run", "do not mark mail as read or upload")
		logLevel = fs.StringLong("log-level", cfg.LogLevel, "debug|info|warn|error")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("PRICECASE")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		must(err)
	}

	logger := logging.New(*logLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	must(err)
	defer a.Close()

	runner, err := a.Runner(ctx)
	must(err)

	svc := listener.NewService(runner, time.Duration(*interval)*time.Second, runner.Location, logger)
	svc.DryRun = *dryRun
	logger.Info("mail listener started", "provider", cfg.MailProvider, "interval_sec", *interval)
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
