package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_DailyBudget(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(0, 2).WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	assert.ErrorIs(t, l.Wait(ctx), ErrBudgetExhausted)

	stats := l.Stats()
	assert.True(t, stats.Enabled)
	assert.Equal(t, 2, stats.RequestsLastDay)
	assert.Equal(t, 0, stats.RemainingThisDay)

	// the window slides after 24h
	now = now.Add(24*time.Hour + time.Second)
	assert.NoError(t, l.Wait(ctx))
	assert.Equal(t, 1, l.Stats().RequestsLastDay)
}

func TestLimiter_UnlimitedIsDisabled(t *testing.T) {
	l := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.False(t, l.Stats().Enabled)
}

func TestLimiter_PacingRespectsContext(t *testing.T) {
	l := NewLimiter(time.Hour, 0)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx))
}

func TestLimiter_NilIsNoop(t *testing.T) {
	var l *Limiter
	assert.NoError(t, l.Wait(context.Background()))
	assert.False(t, l.Stats().Enabled)
}
