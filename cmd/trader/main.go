package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"sentiment-trader/internal/engine"
	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/period"
	"sentiment-trader/internal/schedule"
	"sentiment-trader/internal/store"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	mode := flag.String("mode", "", "once or scheduled (overrides config)")
	refFlag := flag.String("ref", "", "reference time, RFC3339 (default now)")
	flag.Parse()

	if err := initializeSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = trace.Shutdown(shutdownCtx)
	}()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
		if err := cfg.Validate(); err != nil {
			logger.ErrorWithErr(ctx, "Invalid mode", err, "mode", *mode)
			os.Exit(1)
		}
	}

	initializeTracing(ctx, cfg)

	a, err := initializeApp(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize", err)
		os.Exit(1)
	}
	defer a.cache.Close()

	logger.Info(ctx, "Sentiment trader started",
		"mode", cfg.Mode,
		"tickers", len(cfg.Tickers),
		"provider", cfg.LLM.Provider,
		"data_dir", cfg.Storage.DataDir,
	)

	if cfg.Mode == "scheduled" {
		startMetricsServer(ctx, cfg, a.registry)
		if err := runScheduled(ctx, cfg, a); err != nil {
			logger.ErrorWithErr(ctx, "Scheduler failed", err)
			os.Exit(1)
		}
		return
	}

	ref := time.Now()
	if *refFlag != "" {
		if ref, err = time.Parse(time.RFC3339, *refFlag); err != nil {
			logger.ErrorWithErr(ctx, "Invalid -ref", err, "ref", *refFlag)
			os.Exit(1)
		}
	}
	if _, err := runOnce(ctx, a.engine, ref); err != nil {
		os.Exit(1)
	}
}

// runOnce runs one pass and prints the result as JSON on stdout.
func runOnce(ctx context.Context, eng interfaces.Engine, ref time.Time) (*types.RunResult, error) {
	res, err := eng.Run(ctx, ref)
	if errors.Is(err, period.ErrHorizonExhausted) {
		logger.Warn(ctx, "No trading session within the calendar horizon, nothing to do", "ref", ref)
		return nil, nil
	}
	if res != nil {
		b, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(b))
	}
	return res, err
}

// runScheduled blocks until ctx is done, running once per session boundary.
func runScheduled(ctx context.Context, cfg *store.Config, a *app) error {
	if cfg.Schedule.Cron != "" {
		return runCron(ctx, cfg, a)
	}

	s := schedule.New(engine.NewResolver(cfg, a.calendar), cfg.Schedule.Lead)
	logger.Info(ctx, "Scheduler started", "lead", cfg.Schedule.Lead, "exchange", cfg.Calendar.Name)

	err := s.Run(ctx, func(ctx context.Context, _ types.TradePeriod, ref time.Time) {
		res, err := runOnce(ctx, a.engine, ref)
		if err != nil || res == nil {
			return
		}
		// The run at the close is the day's last.
		if schedule.IsSessionClose(a.calendar, res.Period.BuyTime) {
			if _, err := a.eod.SummarizeDay(ctx, res.Period.BuyTime); err != nil {
				logger.ErrorWithErr(ctx, "End of day summary failed", err)
			}
		}
	})
	logger.Info(ctx, "Shutting down...")
	return err
}

// runCron fires a run on every cron tick in the exchange timezone.
// Overlapping ticks are skipped. The first tick after the close also writes
// the day's summary.
func runCron(ctx context.Context, cfg *store.Config, a *app) error {
	loc, err := time.LoadLocation(cfg.Calendar.Timezone)
	if err != nil {
		return err
	}

	cl := logger.CronLogger()
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(cfg.Schedule.Cron, func() {
		_, _ = runOnce(ctx, a.engine, time.Now())
		if ok, _ := a.eod.ShouldRunNow(time.Now()); ok {
			_, _ = a.eod.SummarizeDay(ctx, time.Now())
		}
	}); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	c.Start()
	logger.Info(ctx, "Cron scheduler started", "cron", cfg.Schedule.Cron, "timezone", loc.String())

	<-ctx.Done()
	logger.Info(ctx, "Shutting down...")
	<-c.Stop().Done()
	return nil
}
