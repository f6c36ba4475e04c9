package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/config"
	"stockwatch/internal/models"
)

// fakeFetcher serves canned pages; URLs listed in failures fail that many times
type fakeFetcher struct {
	pages    map[string][]byte
	failures map[string]int
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:    make(map[string][]byte),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls[url]++
	if n, ok := f.failures[url]; ok && (n < 0 || f.calls[url] <= n) {
		return nil, errors.Join(ErrFetch, context.DeadlineExceeded)
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, errors.Join(ErrFetch, errors.New("no such page"))
	}
	return body, nil
}

var crawlTime = time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)

func newTestCrawler(f PageFetcher, passes int) *Crawler {
	return NewCrawler(f, passes, zerolog.Nop(), nil).WithClock(func() time.Time { return crawlTime })
}

func TestCrawl_EndToEndScenario(t *testing.T) {
	urlA := "https://www.sharkclean.nl/zidA"
	urlB := "https://www.sharkclean.nl/zidB"

	f := newFakeFetcher()
	f.pages[urlA] = page(titleShark, `<div data-testing-id="current-price">€19,99</div>`, outButtonNL)
	f.failures[urlB] = -1

	res := newTestCrawler(f, 2).Crawl(context.Background(), []string{urlA, urlB})

	assert.Empty(t, res.InStock)
	require.Len(t, res.OutOfStock, 1)
	assert.Equal(t, "A", res.OutOfStock[0].ExternalID)
	assert.Equal(t, "€19,99", res.OutOfStock[0].Price)
	assert.Equal(t, crawlTime, res.OutOfStock[0].ObservedAt)
	assert.Equal(t, []string{urlB}, res.Skipped)
	assert.ErrorIs(t, res.SkipReasons[urlB], ErrFetch)

	// one initial pass plus two retries
	assert.Equal(t, 3, f.calls[urlB])
	assert.Equal(t, 1, f.calls[urlA])
}

func TestCrawl_RetryRecoversIntoSameBuckets(t *testing.T) {
	urlA := "https://www.ninjakitchen.fr/zidA"
	urlB := "https://www.ninjakitchen.fr/zidB"

	f := newFakeFetcher()
	f.pages[urlA] = page(titleNinja, cartButtonFR)
	f.pages[urlB] = page(titleNinja, outButtonFR)
	f.failures[urlB] = 1

	res := newTestCrawler(f, 2).Crawl(context.Background(), []string{urlA, urlB})

	require.Len(t, res.InStock, 1)
	require.Len(t, res.OutOfStock, 1)
	assert.Equal(t, "B", res.OutOfStock[0].ExternalID)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.SkipReasons)
	assert.Equal(t, 2, f.calls[urlB])
}

func TestCrawl_NotProductPageIsSkipped(t *testing.T) {
	url := "https://www.sharkclean.be/zidX"
	f := newFakeFetcher()
	f.pages[url] = page(`<h1>Home</h1>`)

	res := newTestCrawler(f, 1).Crawl(context.Background(), []string{url})

	assert.Equal(t, []string{url}, res.Skipped)
	assert.ErrorIs(t, res.SkipReasons[url], ErrNotProductPage)
	assert.Equal(t, 2, f.calls[url])
}

func TestCrawl_DeduplicatesByExternalID(t *testing.T) {
	url1 := "https://www.sharkclean.nl/zidSAME"
	url2 := "https://www.sharkclean.be/zidSAME"
	url3 := "https://www.sharkclean.nl/zidOTHER"

	f := newFakeFetcher()
	f.pages[url1] = page(titleShark, outButtonNL)
	f.pages[url2] = page(titleShark, cartButtonNL)
	f.pages[url3] = page(titleShark)

	res := newTestCrawler(f, 0).Crawl(context.Background(), []string{url1, url2, url3})

	require.Len(t, res.OutOfStock, 1)
	assert.Equal(t, url1, res.OutOfStock[0].URL)
	require.Len(t, res.InStock, 1)
	assert.Equal(t, url3, res.InStock[0].URL)
	assert.Equal(t, []string{url2}, res.Duplicates)
}

func TestCrawl_PartitionCompleteness(t *testing.T) {
	f := newFakeFetcher()
	urls := []string{
		"https://www.ninjakitchen.nl/zid1",
		"https://www.ninjakitchen.nl/zid2",
		"https://www.ninjakitchen.nl/zid3",
		"https://www.ninjakitchen.nl/zid1",
		"https://www.ninjakitchen.nl/broken",
		"https://www.ninjakitchen.nl/zid4",
	}
	f.pages[urls[0]] = page(titleNinja, outButtonNL)
	f.pages[urls[1]] = page(titleNinja)
	f.failures[urls[2]] = 1
	f.pages[urls[2]] = page(titleNinja, cartButtonNL)
	f.pages[urls[4]] = page("<p>oops</p>")
	f.failures[urls[5]] = -1

	res := newTestCrawler(f, 2).Crawl(context.Background(), urls)

	total := len(res.InStock) + len(res.OutOfStock) + len(res.Skipped) + len(res.Duplicates)
	assert.Equal(t, len(urls), total)

	for _, obs := range append(res.InStock, res.OutOfStock...) {
		assert.NotContains(t, res.Skipped, obs.URL)
	}
	assert.Len(t, res.Skipped, 2)
	assert.Len(t, res.Duplicates, 1)
	assert.Equal(t, models.StatusOut, res.OutOfStock[0].Status)
}

func TestCrawl_EmptyInput(t *testing.T) {
	res := newTestCrawler(newFakeFetcher(), 2).Crawl(context.Background(), nil)

	assert.Empty(t, res.InStock)
	assert.Empty(t, res.OutOfStock)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.Duplicates)
}

func TestCrawl_RetryPassReopensTrippedHost(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 5 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(page(titleShark, priceTag, cartButtonNL))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig().Scraper
	require.Equal(t, 5, cfg.BreakerFailureThreshold)
	fetcher := NewHTTPFetcher(cfg, nil, zerolog.Nop(), nil)

	var urls []string
	for i := 0; i < 8; i++ {
		urls = append(urls, fmt.Sprintf("%s/zid%d", srv.URL, i))
	}

	res := newTestCrawler(fetcher, 2).Crawl(context.Background(), urls)

	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.OutOfStock)
	assert.Len(t, res.InStock, 8)
	// 5 refused, 3 short-circuited, then all 8 fetched on the first retry pass
	assert.Equal(t, int32(13), atomic.LoadInt32(&hits))
}

func TestCrawl_TimeoutsDoNotTripBreaker(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 3 {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
			return
		}
		_, _ = w.Write(page(titleShark, priceTag, outButtonNL))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig().Scraper
	cfg.BreakerFailureThreshold = 2
	fetcher := NewHTTPFetcher(cfg, nil, zerolog.Nop(), nil)
	fetcher.client.Timeout = 50 * time.Millisecond

	urls := []string{srv.URL + "/zid1", srv.URL + "/zid2", srv.URL + "/zid3", srv.URL + "/zid4"}
	res := newTestCrawler(fetcher, 0).Crawl(context.Background(), urls)

	assert.Len(t, res.Skipped, 3)
	require.Len(t, res.OutOfStock, 1)
	assert.Equal(t, "4", res.OutOfStock[0].ExternalID)
	for _, u := range res.Skipped {
		assert.NotErrorIs(t, res.SkipReasons[u], circuitbreaker.ErrOpen)
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&hits))
}
