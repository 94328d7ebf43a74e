package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/attribute"

	"sentiment-trader/internal/cache"
	"sentiment-trader/internal/calendar"
	"sentiment-trader/internal/engine"
	"sentiment-trader/internal/engine/engineobs"
	"sentiment-trader/internal/eod"
	"sentiment-trader/internal/eod/eodobs"
	"sentiment-trader/internal/history"
	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/llm/claude"
	"sentiment-trader/internal/llm/gemini"
	"sentiment-trader/internal/llm/llmobs"
	"sentiment-trader/internal/llm/noop"
	"sentiment-trader/internal/llm/openai"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/metrics"
	"sentiment-trader/internal/news"
	"sentiment-trader/internal/period"
	"sentiment-trader/internal/store"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/tradelog"
)

// initializeSystem loads .env and sets up logging.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// initializeTracing stamps the trace resource with this run's identity.
func initializeTracing(ctx context.Context, cfg *store.Config) {
	err := trace.Init(
		trace.WithConfig(cfg.Fingerprint(), cfg.Mode),
		trace.WithExchange(cfg.Calendar.Name, cfg.Calendar.Timezone),
		trace.WithAttributes(
			attribute.Int("trader.tickers", len(cfg.Tickers)),
			attribute.String("trader.llm_provider", cfg.LLM.Provider),
		),
	)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize tracer", err)
	}
}

func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

func initializeCalendar(cfg *store.Config) (*calendar.Exchange, error) {
	return calendar.New(calendar.Config{
		Name:        cfg.Calendar.Name,
		Timezone:    cfg.Calendar.Timezone,
		Open:        cfg.Calendar.Open,
		Close:       cfg.Calendar.Close,
		EarlyClose:  cfg.Calendar.EarlyClose,
		Holidays:    cfg.Calendar.Holidays,
		EarlyCloses: cfg.Calendar.EarlyCloses,
		NYSERules:   cfg.Calendar.NYSERules,
	})
}

func initializeNews(cfg *store.Config, cal *calendar.Exchange, rec *metrics.Recorder) (*news.Service, error) {
	loc, err := time.LoadLocation(cfg.News.Timezone)
	if err != nil {
		return nil, fmt.Errorf("news timezone: %w", err)
	}
	src := news.NewFinvizSource(news.FinvizConfig{
		BaseURL:   cfg.News.BaseURL,
		Location:  loc,
		Timeout:   cfg.News.Timeout,
		UserAgent: cfg.News.UserAgent,
	})

	var mapper *period.Mapper
	if cfg.News.MapSessions {
		mapper = period.NewMapper(cal, cfg.Calendar.ProbeDays)
	}
	return news.NewService(src, mapper, rec), nil
}

// initializeScorer builds the configured provider wrapped with observability.
func initializeScorer(ctx context.Context, cfg *store.Config) (interfaces.Scorer, error) {
	var scorer interfaces.Scorer

	switch cfg.LLM.Provider {
	case "openai":
		s, err := openai.NewScorer(cfg)
		if err != nil {
			return nil, err
		}
		scorer = s
	case "claude":
		s, err := claude.NewScorer(cfg)
		if err != nil {
			return nil, err
		}
		scorer = s
	case "gemini":
		s, err := gemini.NewScorer(ctx, cfg)
		if err != nil {
			return nil, err
		}
		scorer = s
	default:
		scorer = noop.NewScorer()
		logger.Warn(ctx, "No LLM provider configured - every headline will fail to score")
	}

	return llmobs.Wrap(scorer, cfg.LLM.Provider), nil
}

// initializeCache returns the record cache and a closer for it.
func initializeCache(ctx context.Context, cfg *store.Config) (interfaces.RecordCache, io.Closer, error) {
	if cfg.Storage.Cache == "badger" {
		c, err := cache.Open(cfg.Storage.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info(ctx, "Using badger record cache", "path", cfg.Storage.BadgerDir)
		return c, c, nil
	}
	return history.NewCache(cfg.Storage.DataDir), io.NopCloser(nil), nil
}

func initializeMetrics(cfg *store.Config) (*metrics.Recorder, *prometheus.Registry) {
	if !cfg.Metrics.Enabled {
		return nil, nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.New(reg), reg
}

// startMetricsServer serves the registry until ctx is done.
func startMetricsServer(ctx context.Context, cfg *store.Config, reg *prometheus.Registry) {
	if reg == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler(reg))
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info(ctx, "Metrics server listening", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorWithErr(ctx, "Metrics server stopped", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// app is everything main needs after wiring.
type app struct {
	calendar interfaces.TradingCalendar
	engine   interfaces.Engine
	eod      interfaces.EodSummarizer
	cache    io.Closer
	registry *prometheus.Registry
}

// initializeApp wires every dependency into an observable engine.
func initializeApp(ctx context.Context, cfg *store.Config) (*app, error) {
	rec, reg := initializeMetrics(cfg)

	cal, err := initializeCalendar(cfg)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	src, err := initializeNews(cfg, cal, rec)
	if err != nil {
		return nil, err
	}
	scorer, err := initializeScorer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}
	rc, closer, err := initializeCache(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("record cache: %w", err)
	}

	hist := history.NewStore(cfg.Storage.DataDir)
	ledger := tradelog.New(cfg.LedgerPath())
	eng := engine.New(cfg, engine.Deps{
		Calendar:  cal,
		News:      src,
		Scorer:    scorer,
		Cache:     rc,
		History:   hist,
		Ledger:    ledger,
		Decisions: hist,
		Metrics:   rec,
	})

	return &app{
		calendar: cal,
		engine:   engineobs.Wrap(eng),
		eod:      eodobs.Wrap(eod.NewSummarizer(cfg.Storage.DataDir, cal, ledger)),
		cache:    closer,
		registry: reg,
	}, nil
}
