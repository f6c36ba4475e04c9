package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"stockwatch/internal/analytics"
	"stockwatch/internal/config"
	"stockwatch/internal/database"
	"stockwatch/internal/ledger"
	"stockwatch/internal/logging"
	"stockwatch/internal/metrics"
	"stockwatch/internal/ratelimit"
	"stockwatch/internal/scheduler"
	"stockwatch/internal/scraper"
)

// app holds the components built once per command invocation
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	loc     *time.Location
	db      *database.GormDB
	metrics *metrics.Metrics
	limiter *ratelimit.Limiter
}

func loadApp(opts *rootOptions) (*app, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", opts.configPath, err)
	}
	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	return &app{
		cfg:     cfg,
		log:     logging.New("stockwatch", level, os.Stderr),
		loc:     cfg.Location(),
		metrics: metrics.New(),
		limiter: ratelimit.NewLimiter(cfg.Scraper.GetRequestDelay(), cfg.Scraper.MaxRequestsPerDay),
	}, nil
}

// newApp loads the config and connects to the database
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	a, err := loadApp(opts)
	if err != nil {
		return nil, err
	}

	a.db, err = database.Open(a.cfg.Database, a.loc, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", a.cfg.Database.Type, err)
	}
	if err := a.db.InitSchema(ctx); err != nil {
		a.db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close database")
		}
	}
}

func (a *app) now() time.Time {
	return time.Now().In(a.loc)
}

func (a *app) fetcher() *scraper.HTTPFetcher {
	return scraper.NewHTTPFetcher(a.cfg.Scraper, a.limiter, a.log, a.metrics)
}

func (a *app) job() *scheduler.Job {
	crawler := scraper.NewCrawler(a.fetcher(), a.cfg.Scraper.RetryPasses, a.log, a.metrics).WithClock(a.now)
	return scheduler.NewJob(scheduler.JobDeps{
		URLs:        a.db,
		Categorizer: scraper.NewCategorizer(a.cfg.Scraper.Categories),
		Crawler:     crawler,
		Status:      ledger.NewStatusLedger(a.db, a.log, a.metrics),
		Prices:      ledger.NewPriceLedger(a.db, a.log, a.metrics),
		Budget:      a.limiter,
		Log:         a.log,
		Metrics:     a.metrics,
		MetricsPath: a.cfg.Metrics.TextfilePath,
		Now:         a.now,
	})
}

func (a *app) analytics() *analytics.Service {
	return analytics.NewService(a.db, a.now)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
