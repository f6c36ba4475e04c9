package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/rs/zerolog"

	"stockwatch/internal/config"
	"stockwatch/internal/metrics"
	"stockwatch/internal/ratelimit"
)

// ErrFetch wraps every failure to obtain a page body
var ErrFetch = errors.New("fetch failed")

const maxBodyBytes = 5 << 20

// PageFetcher retrieves raw page markup
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches pages over HTTP with a bounded timeout, optional pacing
// and a circuit breaker per storefront host. A breaker only counts consecutive
// 403, 429 and 5xx responses.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	limiter   *ratelimit.Limiter
	log       zerolog.Logger
	metrics   *metrics.Metrics

	breakerThreshold uint
	breakerDelay     time.Duration
	breakers         map[string]circuitbreaker.CircuitBreaker[[]byte]
	mu               sync.Mutex
}

// NewHTTPFetcher builds a fetcher from the scraper config
func NewHTTPFetcher(cfg config.ScraperConfig, limiter *ratelimit.Limiter, log zerolog.Logger, m *metrics.Metrics) *HTTPFetcher {
	threshold := cfg.BreakerFailureThreshold
	if threshold < 1 {
		threshold = 1
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
		userAgent:        cfg.UserAgent,
		limiter:          limiter,
		log:              log,
		metrics:          m,
		breakerThreshold: uint(threshold),
		breakerDelay:     cfg.GetBreakerReset(),
		breakers:         make(map[string]circuitbreaker.CircuitBreaker[[]byte]),
	}
}

// Fetch GETs rawURL and returns the body. Every error wraps ErrFetch.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		f.metrics.ObserveFetch("throttled")
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	body, err := failsafe.With[[]byte](f.breakerFor(rawURL)).WithContext(ctx).Get(func() ([]byte, error) {
		return f.get(ctx, rawURL)
	})
	if err != nil {
		f.metrics.ObserveFetch(fetchOutcome(err))
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	f.metrics.ObserveFetch("ok")
	return body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}

func (f *HTTPFetcher) breakerFor(rawURL string) circuitbreaker.CircuitBreaker[[]byte] {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if cb, ok := f.breakers[host]; ok {
		return cb
	}
	cb := circuitbreaker.NewBuilder[[]byte]().
		HandleIf(func(_ []byte, err error) bool {
			return isBlockSignal(err)
		}).
		WithFailureThreshold(f.breakerThreshold).
		WithDelay(f.breakerDelay).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			f.log.Warn().
				Str("host", host).
				Str("from_state", stateName(event.OldState)).
				Str("to_state", stateName(event.NewState)).
				Msg("circuit breaker state change")
		}).
		Build()
	f.breakers[host] = cb
	return cb
}

// ResetBreakers closes every open host breaker so the next retry pass sends
// real requests again
func (f *HTTPFetcher) ResetBreakers() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, cb := range f.breakers {
		if !cb.IsClosed() {
			cb.Close()
		}
	}
}

// isBlockSignal reports responses that suggest the storefront is refusing us.
// Timeouts and transport errors never trip a breaker.
func isBlockSignal(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	code := statusErr.StatusCode
	return code == http.StatusForbidden || code == http.StatusTooManyRequests || code >= 500
}

func stateName(state circuitbreaker.State) string {
	switch state {
	case circuitbreaker.OpenState:
		return "open"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	default:
		return "closed"
	}
}

// StatusError is a non-2xx response
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

func fetchOutcome(err error) string {
	var netErr net.Error
	var statusErr *StatusError
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &statusErr):
		return "http_error"
	default:
		return "transport_error"
	}
}
