package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"stockwatch/internal/config"
)

// Runner is a schedulable stock check
type Runner interface {
	Run(ctx context.Context) (*RunSummary, error)
}

// Scheduler handles scheduled stock checks
type Scheduler struct {
	cron      *cron.Cron
	job       Runner
	config    config.ScheduleConfig
	log       zerolog.Logger
	isRunning bool
	mu        sync.Mutex
}

// NewScheduler creates a new scheduler. Overlapping runs are skipped.
func NewScheduler(job Runner, cfg config.ScheduleConfig, loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		job:    job,
		config: cfg,
		log:    log,
	}
}

// Start registers the stock check and starts the cron loop. ctx is handed to
// every scheduled run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled {
		s.log.Info().Msg("scheduler disabled in configuration")
		return nil
	}
	if s.isRunning {
		return nil
	}

	_, err := s.cron.AddFunc(s.config.Cron, func() {
		if _, err := s.RunNow(ctx); err != nil {
			s.log.Error().Err(err).Msg("scheduled stock check failed")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	s.log.Info().Str("cron", s.config.Cron).Msg("scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running check to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		<-s.cron.Stop().Done()
		s.isRunning = false
		s.log.Info().Msg("scheduler stopped")
	}
}

// RunNow immediately executes the stock check
func (s *Scheduler) RunNow(ctx context.Context) (*RunSummary, error) {
	s.log.Info().Msg("stock check triggered")
	return s.job.Run(ctx)
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
