package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/config"
)

type countingRunner struct {
	runs int
}

func (r *countingRunner) Run(context.Context) (*RunSummary, error) {
	r.runs++
	return &RunSummary{}, nil
}

func TestScheduler_DisabledDoesNotStart(t *testing.T) {
	s := NewScheduler(&countingRunner{}, config.ScheduleConfig{Enabled: false, Cron: "bogus"}, time.UTC, zerolog.Nop())

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.isRunning)
	s.Stop()
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := NewScheduler(&countingRunner{}, config.ScheduleConfig{Enabled: true, Cron: "not a cron"}, time.UTC, zerolog.Nop())
	assert.Error(t, s.Start(context.Background()))
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(&countingRunner{}, config.ScheduleConfig{Enabled: true, Cron: "0 */4 * * *"}, time.UTC, zerolog.Nop())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.isRunning)
	assert.Len(t, s.cron.Entries(), 1)

	s.Stop()
	assert.False(t, s.isRunning)
}

func TestScheduler_RunNow(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, config.ScheduleConfig{}, nil, zerolog.Nop())

	summary, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, summary)
	assert.Equal(t, 1, runner.runs)
}
