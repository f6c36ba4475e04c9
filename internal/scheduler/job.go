package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"stockwatch/internal/ledger"
	"stockwatch/internal/metrics"
	"stockwatch/internal/models"
	"stockwatch/internal/ratelimit"
	"stockwatch/internal/scraper"
)

// URLSource lists the curated product URLs
type URLSource interface {
	ListURLs(ctx context.Context) ([]string, error)
}

// PageCrawler crawls one storefront's URLs
type PageCrawler interface {
	Crawl(ctx context.Context, urls []string) *scraper.CrawlResult
}

// StatusRecorder persists availability observations
type StatusRecorder interface {
	RecordObservations(ctx context.Context, observations []models.Observation, country, brand string) (ledger.BatchResult, error)
}

// PriceRecorder persists price observations
type PriceRecorder interface {
	RecordPrices(ctx context.Context, observations []models.Observation, country string) (ledger.BatchResult, error)
}

// BudgetReporter exposes the daily request budget of the fetcher
type BudgetReporter interface {
	Stats() ratelimit.Stats
}

// CategorySummary is the outcome of one storefront in a run
type CategorySummary struct {
	Category    scraper.Category
	InStock     int
	OutOfStock  int
	Duplicates  int
	SkippedURLs []string
	Status      ledger.BatchResult
	Prices      ledger.BatchResult
}

// RunSummary is the outcome of one stock check run
type RunSummary struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Categories []CategorySummary
	// Unmatched is the number of URLs no storefront rule matched
	Unmatched int
	// Budget is the request budget usage when the run finished
	Budget ratelimit.Stats
}

// Job is one stock check: list URLs, group them per storefront, crawl each
// group and persist status and price observations.
type Job struct {
	urls        URLSource
	categorizer *scraper.Categorizer
	crawler     PageCrawler
	status      StatusRecorder
	prices      PriceRecorder
	budget      BudgetReporter
	log         zerolog.Logger
	metrics     *metrics.Metrics
	metricsPath string
	now         func() time.Time
}

// JobDeps are the collaborators of a Job
type JobDeps struct {
	URLs        URLSource
	Categorizer *scraper.Categorizer
	Crawler     PageCrawler
	Status      StatusRecorder
	Prices      PriceRecorder
	// Budget is optional
	Budget      BudgetReporter
	Log         zerolog.Logger
	Metrics     *metrics.Metrics
	// MetricsPath is the Prometheus textfile written after each run; empty disables it
	MetricsPath string
	Now         func() time.Time
}

func NewJob(deps JobDeps) *Job {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Job{
		urls:        deps.URLs,
		categorizer: deps.Categorizer,
		crawler:     deps.Crawler,
		status:      deps.Status,
		prices:      deps.Prices,
		budget:      deps.Budget,
		log:         deps.Log,
		metrics:     deps.Metrics,
		metricsPath: deps.MetricsPath,
		now:         now,
	}
}

// Run executes one stock check. Skipped URLs and per-row ledger failures are
// reported in the summary; only URL listing and fatal store errors are returned.
func (j *Job) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{StartedAt: j.now()}
	defer j.finish(summary)

	urls, err := j.urls.ListURLs(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list urls: %w", err)
	}

	groups := j.categorizer.GroupByCategory(urls)
	grouped := 0
	for _, g := range groups {
		grouped += len(g.URLs)
	}
	summary.Unmatched = len(urls) - grouped

	j.log.Info().
		Int("urls", len(urls)).
		Int("categories", len(groups)).
		Int("unmatched", summary.Unmatched).
		Msg("stock check started")

	for _, g := range groups {
		cs, err := j.runCategory(ctx, g)
		summary.Categories = append(summary.Categories, cs)
		if err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func (j *Job) runCategory(ctx context.Context, g scraper.CategoryGroup) (CategorySummary, error) {
	country, brand := g.Category.Country, g.Category.Brand
	logger := j.log.With().Str("country", country).Str("brand", brand).Logger()

	res := j.crawler.Crawl(ctx, g.URLs)
	cs := CategorySummary{
		Category:    g.Category,
		InStock:     len(res.InStock),
		OutOfStock:  len(res.OutOfStock),
		Duplicates:  len(res.Duplicates),
		SkippedURLs: res.Skipped,
	}
	j.metrics.ObserveCrawl(country, brand, cs.InStock, cs.OutOfStock, len(cs.SkippedURLs))

	for _, u := range res.Skipped {
		logger.Warn().Err(res.SkipReasons[u]).Str("url", u).Msg("url skipped after retries")
	}

	observations := make([]models.Observation, 0, len(res.OutOfStock)+len(res.InStock))
	observations = append(observations, res.OutOfStock...)
	observations = append(observations, res.InStock...)

	var err error
	cs.Status, err = j.status.RecordObservations(ctx, observations, country, brand)
	if err != nil {
		return cs, fmt.Errorf("failed to record %s %s statuses: %w", country, brand, err)
	}
	cs.Prices, err = j.prices.RecordPrices(ctx, observations, country)
	if err != nil {
		return cs, fmt.Errorf("failed to record %s %s prices: %w", country, brand, err)
	}

	logger.Info().
		Int("in_stock", cs.InStock).
		Int("out_of_stock", cs.OutOfStock).
		Int("skipped", len(cs.SkippedURLs)).
		Int("duplicates", cs.Duplicates).
		Int("status_failed", cs.Status.Failed).
		Int("price_rows", cs.Prices.Written).
		Msg("category processed")

	return cs, nil
}

func (j *Job) finish(summary *RunSummary) {
	summary.FinishedAt = j.now()
	elapsed := summary.FinishedAt.Sub(summary.StartedAt)

	j.metrics.ObserveRun(elapsed.Seconds(), float64(summary.FinishedAt.Unix()))
	if j.budget != nil {
		summary.Budget = j.budget.Stats()
		if summary.Budget.Enabled {
			j.metrics.ObserveBudget(summary.Budget.RequestsLastDay, summary.Budget.RemainingThisDay)
		}
	}
	if err := j.metrics.WriteTextfile(j.metricsPath); err != nil {
		j.log.Error().Err(err).Str("path", j.metricsPath).Msg("failed to write metrics textfile")
	}

	event := j.log.Info().
		Dur("elapsed", elapsed).
		Int("categories", len(summary.Categories))
	if summary.Budget.Enabled {
		event = event.Int("budget_remaining", summary.Budget.RemainingThisDay)
	}
	event.Msg("stock check finished")
}
