package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"matchbook/internal/book"
	"matchbook/internal/config"
	"matchbook/internal/engine"
	"matchbook/internal/feed"
	"matchbook/internal/logging"
	"matchbook/internal/utils"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

func main() {
	envPath := flag.String("env", "", "Path to a .env file (default ./.env)")
	logLevel := flag.String("log-level", "", "Log level: ['trace', 'debug', 'info', 'warn', 'error']")
	logFormat := flag.String("log-format", "", "Log format: ['json', 'console']")
	workers := flag.Int("workers", 0, "Number of input files fed concurrently")
	input := flag.String("input", "-", "Comma-separated order files, '-' for stdin")
	flag.Parse()

	cfg := config.LoadFromEnv(*envPath)
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	if err := run(ctx, cfg, strings.Split(*input, ",")); err != nil {
		log.Error().Err(err).Msg("matchbook failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, inputs []string) error {
	// The engine outlives the feeds so the final book can be read back.
	engineTomb, engineCtx := tomb.WithContext(ctx)
	eng := engine.New(
		engine.WithInboxSize(cfg.InboxSize),
		engine.WithReporter(engine.NewLogReporter(log.Logger)),
	)
	eng.Start(engineTomb)
	defer func() {
		engineTomb.Kill(nil)
		if err := engineTomb.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("engine exited with error")
		}
	}()

	feedTomb, feedCtx := tomb.WithContext(engineCtx)
	pool := utils.NewWorkerPool(uint(cfg.Workers))
	pool.Setup(feedTomb, func(t *tomb.Tomb, task any) error {
		path, ok := task.(string)
		if !ok {
			return fmt.Errorf("unexpected feed task %T", task)
		}
		return feedOrders(feedCtx, eng, path)
	})
	for _, path := range inputs {
		pool.AddTask(strings.TrimSpace(path))
	}
	pool.Close()

	select {
	case <-feedTomb.Dead():
	case <-ctx.Done():
	}
	if ctx.Err() != nil {
		log.Info().Msg("interrupted")
		return nil
	}
	if err := feedTomb.Err(); err != nil {
		return err
	}

	snapshot, err := eng.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read book: %w", err)
	}
	logLevels("bid", snapshot.Bids)
	logLevels("ask", snapshot.Asks)
	return nil
}

// feedOrders submits every order read from path ("-" is stdin). Lines that do not
// hold a valid order are logged and skipped.
func feedOrders(ctx context.Context, eng *engine.Engine, path string) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open feed: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Error().Err(err).Str("feed", path).Msg("unable to close feed")
			}
		}()
		r = f
	}

	logger := log.With().Str("feed", path).Logger()
	reader := feed.NewReader(r)
	submitted := 0
	for {
		order, err := reader.Next()
		if errors.Is(err, io.EOF) {
			logger.Info().Int("orders", submitted).Msg("feed done")
			return nil
		}
		if errors.Is(err, feed.ErrInvalidOrder) {
			logger.Warn().Err(err).Msg("skipping order")
			continue
		}
		if err != nil {
			return fmt.Errorf("read feed %s: %w", path, err)
		}

		result, err := eng.Submit(ctx, order)
		if err != nil {
			return err
		}
		submitted++
		logger.Debug().
			Stringer("side", order.Side).
			Stringer("price", order.Price).
			Stringer("remaining", result.Order.Quantity).
			Int("trades", len(result.Trades)).
			Bool("rested", result.Rested).
			Msg("order processed")
	}
}

func logLevels(side string, levels []book.Level) {
	for _, level := range levels {
		log.Info().
			Str("side", side).
			Stringer("price", level.Price).
			Stringer("quantity", level.Quantity).
			Int("orders", len(level.Orders)).
			Msg("level")
	}
}
