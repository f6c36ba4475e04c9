package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrBudgetExhausted is returned when the rolling daily request budget is spent
var ErrBudgetExhausted = errors.New("daily request budget exhausted")

// Limiter paces outbound requests and enforces an optional rolling 24h budget.
// A zero delay disables pacing; a zero budget disables the daily cap.
type Limiter struct {
	pacer          *rate.Limiter
	requestsPerDay int

	dayWindow []time.Time
	mu        sync.Mutex
	now       func() time.Time
}

// NewLimiter creates a limiter with the given minimum spacing and daily budget
func NewLimiter(minDelay time.Duration, requestsPerDay int) *Limiter {
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}
	return &Limiter{
		pacer:          rate.NewLimiter(limit, 1),
		requestsPerDay: requestsPerDay,
		dayWindow:      make([]time.Time, 0),
		now:            time.Now,
	}
}

// WithClock swaps the clock used for the daily window (tests)
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Wait blocks until the next request may go out. The budget is checked before
// pacing so an exhausted budget fails fast.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.reserve(); err != nil {
		return err
	}
	return l.pacer.Wait(ctx)
}

func (l *Limiter) reserve() error {
	if l.requestsPerDay <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanup(now)
	if len(l.dayWindow) >= l.requestsPerDay {
		return ErrBudgetExhausted
	}
	l.dayWindow = append(l.dayWindow, now)
	return nil
}

// cleanup drops entries older than 24 hours
func (l *Limiter) cleanup(now time.Time) {
	cutoff := now.Add(-24 * time.Hour)
	kept := l.dayWindow[:0]
	for _, t := range l.dayWindow {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.dayWindow = kept
}

// Stats returns the current budget usage
func (l *Limiter) Stats() Stats {
	if l == nil || l.requestsPerDay <= 0 {
		return Stats{Enabled: false}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanup(l.now())
	return Stats{
		Enabled:          true,
		RequestsLastDay:  len(l.dayWindow),
		LimitPerDay:      l.requestsPerDay,
		RemainingThisDay: max(0, l.requestsPerDay-len(l.dayWindow)),
	}
}

// Stats contains limiter statistics
type Stats struct {
	Enabled          bool `json:"enabled"`
	RequestsLastDay  int  `json:"requests_last_day"`
	LimitPerDay      int  `json:"limit_per_day"`
	RemainingThisDay int  `json:"remaining_this_day"`
}
