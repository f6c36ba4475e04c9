package database

import (
	"context"
	"errors"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"stockwatch/internal/config"
)

const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213

	pgLockNotAvailable = "55P03"
	pgDeadlock         = "40P01"
)

// NewLockRetryPolicy retries lock wait timeouts and deadlocks with bounded
// exponential backoff. Every other error fails immediately.
func NewLockRetryPolicy(cfg config.LockRetryConfig) retrypolicy.RetryPolicy[any] {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	builder := retrypolicy.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool {
			return IsLockContention(err)
		}).
		WithMaxRetries(attempts - 1).
		ReturnLastFailure()

	base, maxDelay := cfg.GetBaseDelay(), cfg.GetMaxDelay()
	switch {
	case base > 0 && maxDelay > base:
		builder = builder.WithBackoff(base, maxDelay)
	case base > 0:
		builder = builder.WithDelay(base)
	}

	return builder.Build()
}

// IsLockContention reports whether err is a lock wait timeout or deadlock
func IsLockContention(err error) bool {
	if err == nil {
		return false
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlLockWaitTimeout || myErr.Number == mysqlDeadlock
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgLockNotAvailable || pqErr.Code == pgDeadlock
	}

	return false
}

// Retry runs fn under policy
func Retry(ctx context.Context, policy retrypolicy.RetryPolicy[any], fn func() error) error {
	if policy == nil {
		return fn()
	}
	return failsafe.With[any](policy).WithContext(ctx).Run(fn)
}
