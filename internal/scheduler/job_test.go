package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/ledger"
	"stockwatch/internal/metrics"
	"stockwatch/internal/models"
	"stockwatch/internal/ratelimit"
	"stockwatch/internal/scraper"
)

type fakeURLs struct {
	urls []string
	err  error
}

func (f *fakeURLs) ListURLs(context.Context) ([]string, error) {
	return f.urls, f.err
}

// fakeCrawler marks URLs containing "out" OUT, "down" skipped, everything else IN
type fakeCrawler struct {
	batches [][]string
}

func (f *fakeCrawler) Crawl(_ context.Context, urls []string) *scraper.CrawlResult {
	f.batches = append(f.batches, urls)
	res := &scraper.CrawlResult{SkipReasons: make(map[string]error)}
	for _, u := range urls {
		obs := models.Observation{ExternalID: scraper.ExtractExternalID(u), URL: u, Price: "€10,00"}
		switch {
		case strings.Contains(u, "down"):
			res.Skipped = append(res.Skipped, u)
			res.SkipReasons[u] = scraper.ErrFetch
		case strings.Contains(u, "out"):
			obs.Status = models.StatusOut
			res.OutOfStock = append(res.OutOfStock, obs)
		default:
			obs.Status = models.StatusIn
			res.InStock = append(res.InStock, obs)
		}
	}
	return res
}

type recordCall struct {
	country, brand string
	observations   []models.Observation
}

type fakeRecorder struct {
	statusCalls []recordCall
	priceCalls  []recordCall
	err         error
}

func (f *fakeRecorder) RecordObservations(_ context.Context, obs []models.Observation, country, brand string) (ledger.BatchResult, error) {
	f.statusCalls = append(f.statusCalls, recordCall{country, brand, obs})
	if f.err != nil {
		return ledger.BatchResult{}, f.err
	}
	return ledger.BatchResult{Written: len(obs)}, nil
}

func (f *fakeRecorder) RecordPrices(_ context.Context, obs []models.Observation, country string) (ledger.BatchResult, error) {
	f.priceCalls = append(f.priceCalls, recordCall{country, "", obs})
	return ledger.BatchResult{Written: len(obs)}, nil
}

func newTestJob(urls URLSource, crawler PageCrawler, rec *fakeRecorder, m *metrics.Metrics, path string) *Job {
	return NewJob(JobDeps{
		URLs:        urls,
		Categorizer: scraper.NewCategorizer(nil),
		Crawler:     crawler,
		Status:      rec,
		Prices:      rec,
		Log:         zerolog.Nop(),
		Metrics:     m,
		MetricsPath: path,
		Now:         func() time.Time { return time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC) },
	})
}

func TestJobRun_GroupsCrawlsAndRecords(t *testing.T) {
	urls := &fakeURLs{urls: []string{
		"https://www.sharkclean.nl/zidout1",
		"https://www.ninjakitchen.fr/zidN1",
		"https://www.sharkclean.nl/zidS2",
		"https://www.sharkclean.nl/ziddown3",
		"https://www.example.com/zidX",
	}}
	crawler := &fakeCrawler{}
	rec := &fakeRecorder{}
	path := filepath.Join(t.TempDir(), "stockwatch.prom")

	summary, err := newTestJob(urls, crawler, rec, metrics.New(), path).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unmatched)
	require.Len(t, summary.Categories, 2)

	nl := summary.Categories[0]
	assert.Equal(t, "NLShark", nl.Category.Key())
	assert.Equal(t, 1, nl.InStock)
	assert.Equal(t, 1, nl.OutOfStock)
	assert.Equal(t, []string{"https://www.sharkclean.nl/ziddown3"}, nl.SkippedURLs)
	assert.Equal(t, 2, nl.Status.Written)

	require.Len(t, crawler.batches, 2)
	assert.Len(t, crawler.batches[0], 3)

	require.Len(t, rec.statusCalls, 2)
	assert.Equal(t, "NL", rec.statusCalls[0].country)
	assert.Equal(t, "Shark", rec.statusCalls[0].brand)
	// out-of-stock observations are recorded before in-stock ones
	assert.Equal(t, models.StatusOut, rec.statusCalls[0].observations[0].Status)
	assert.Equal(t, "FR", rec.priceCalls[1].country)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stockwatch_crawl_urls_total")
}

func TestJobRun_ListFailureIsReturned(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := newTestJob(&fakeURLs{err: boom}, &fakeCrawler{}, &fakeRecorder{}, nil, "").Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestJobRun_FatalLedgerErrorStopsRun(t *testing.T) {
	urls := &fakeURLs{urls: []string{
		"https://www.sharkclean.nl/zidS1",
		"https://www.ninjakitchen.fr/zidN1",
	}}
	boom := errors.New("bad connection")
	rec := &fakeRecorder{err: boom}

	summary, err := newTestJob(urls, &fakeCrawler{}, rec, nil, "").Run(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Len(t, summary.Categories, 1)
	assert.Len(t, rec.statusCalls, 1)
	assert.Empty(t, rec.priceCalls)
}

func TestJobRun_ReportsRequestBudget(t *testing.T) {
	limiter := ratelimit.NewLimiter(0, 3)
	require.NoError(t, limiter.Wait(context.Background()))
	require.NoError(t, limiter.Wait(context.Background()))

	path := filepath.Join(t.TempDir(), "stockwatch.prom")
	job := NewJob(JobDeps{
		URLs:        &fakeURLs{},
		Categorizer: scraper.NewCategorizer(nil),
		Crawler:     &fakeCrawler{},
		Status:      &fakeRecorder{},
		Prices:      &fakeRecorder{},
		Budget:      limiter,
		Log:         zerolog.Nop(),
		Metrics:     metrics.New(),
		MetricsPath: path,
	})

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Budget.Enabled)
	assert.Equal(t, 2, summary.Budget.RequestsLastDay)
	assert.Equal(t, 1, summary.Budget.RemainingThisDay)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `stockwatch_request_budget{state="remaining"} 1`)
}
