package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DeafMist/casting-pulse/internal/config"
	"github.com/DeafMist/casting-pulse/internal/csvio"
	"github.com/DeafMist/casting-pulse/internal/logger"
	"github.com/DeafMist/casting-pulse/internal/normalize"
	"github.com/DeafMist/casting-pulse/internal/publish"
	"github.com/DeafMist/casting-pulse/internal/pulse"
)

func main() {
	log := logger.New("builder")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	err := run(ctx, log, os.Args[1:])
	stop()

	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			log.Error("build pulse", slog.Any("err", err))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("builder", flag.ContinueOnError)
	input := fs.String("input", "", "raw postings CSV to read")
	output := fs.String("output", "", "pulse CSV to write")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" || *output == "" {
		return errors.New("both --input and --output are required")
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg, err := config.LoadBuilder()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	scorer, err := normalize.ScorerByName(cfg.SentimentModel)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, runID := logger.ForRun(log)
	log.Info("builder started", slog.String("input", *input), slog.String("output", *output))

	raws, err := csvio.ReadFile(*input)
	if err != nil {
		return err
	}

	rows, err := pulse.NewBuilder(log, pulse.WithScorer(scorer)).Build(raws)
	if err != nil {
		return fmt.Errorf("build pulse from %s: %w", *input, err)
	}

	pub, err := publish.Open(ctx, *output, cfg.Sinks, log)
	if err != nil {
		return fmt.Errorf("open sinks: %w", err)
	}
	defer pub.Close()

	return pub.Publish(ctx, runID, rows)
}
