package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"stockwatch/internal/metrics"
	"stockwatch/internal/models"
)

// CrawlResult partitions one crawl. Every input URL ends up in exactly one of
// OutOfStock, InStock, Skipped or Duplicates.
type CrawlResult struct {
	OutOfStock []models.Observation
	InStock    []models.Observation
	// Skipped lists URLs still unusable after the last retry pass
	Skipped []string
	// Duplicates lists URLs whose external id was already seen in this crawl
	Duplicates []string
	// SkipReasons holds the last error per skipped URL, wrapping ErrFetch or ErrNotProductPage
	SkipReasons map[string]error
}

// BreakerResetter is implemented by fetchers whose circuit breakers must be
// closed before a retry pass
type BreakerResetter interface {
	ResetBreakers()
}

// Crawler fetches and classifies product pages sequentially
type Crawler struct {
	fetcher     PageFetcher
	retryPasses int
	log         zerolog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewCrawler creates a crawler. retryPasses is the number of extra passes over
// skipped URLs after the first full pass.
func NewCrawler(fetcher PageFetcher, retryPasses int, log zerolog.Logger, m *metrics.Metrics) *Crawler {
	if retryPasses < 0 {
		retryPasses = 0
	}
	return &Crawler{
		fetcher:     fetcher,
		retryPasses: retryPasses,
		log:         log,
		metrics:     m,
		now:         time.Now,
	}
}

// WithClock sets the time source stamped on observations
func (c *Crawler) WithClock(now func() time.Time) *Crawler {
	c.now = now
	return c
}

// Crawl runs one full pass over urls followed by up to retryPasses passes over
// the skipped ones. Every retry pass starts with closed host breakers. Observations are deduplicated by external id across both
// buckets and all passes; the first occurrence wins.
func (c *Crawler) Crawl(ctx context.Context, urls []string) *CrawlResult {
	result := &CrawlResult{
		OutOfStock:  make([]models.Observation, 0),
		InStock:     make([]models.Observation, 0),
		Skipped:     make([]string, 0),
		Duplicates:  make([]string, 0),
		SkipReasons: make(map[string]error),
	}
	seen := make(map[string]struct{})

	pending := urls
	for pass := 0; pass <= c.retryPasses && len(pending) > 0; pass++ {
		if pass > 0 {
			if r, ok := c.fetcher.(BreakerResetter); ok {
				r.ResetBreakers()
			}
			c.log.Info().
				Int("pass", pass).
				Int("urls", len(pending)).
				Msg("retrying skipped urls")
		}

		var skipped []string
		for _, u := range pending {
			obs, err := c.check(ctx, u)
			if err != nil {
				c.log.Debug().Err(err).Str("url", u).Int("pass", pass).Msg("url skipped")
				result.SkipReasons[u] = err
				skipped = append(skipped, u)
				continue
			}
			delete(result.SkipReasons, u)

			if _, dup := seen[obs.ExternalID]; dup {
				c.log.Debug().Str("url", u).Str("external_id", obs.ExternalID).Msg("duplicate external id dropped")
				result.Duplicates = append(result.Duplicates, u)
				continue
			}
			seen[obs.ExternalID] = struct{}{}

			if obs.Status == models.StatusOut {
				result.OutOfStock = append(result.OutOfStock, *obs)
			} else {
				result.InStock = append(result.InStock, *obs)
			}
		}
		pending = skipped
	}

	result.Skipped = append(result.Skipped, pending...)
	return result
}

func (c *Crawler) check(ctx context.Context, u string) (*models.Observation, error) {
	body, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		if !errors.Is(err, ErrFetch) {
			err = errors.Join(ErrFetch, err)
		}
		return nil, err
	}

	obs, err := ClassifyHTML(body, u, c.now())
	if err != nil {
		if errors.Is(err, ErrNotProductPage) {
			c.metrics.ObserveFetch("not_product")
		}
		return nil, err
	}
	return obs, nil
}
