package ingest

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// SchedulerConfig holds configuration for the periodic ingest schedule.
type SchedulerConfig struct {
	Job    *Job
	Logger zerolog.Logger

	// Interval between ingest runs (default: 15m).
	Interval time.Duration

	// Retention is how long readings are kept; runs also purge anything
	// older. Zero disables purging.
	Retention time.Duration
}

// Scheduler runs the ingest job on a fixed interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       *Job
	logger    zerolog.Logger
	interval  time.Duration
	retention time.Duration
}

// NewScheduler creates a new ingest scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		job:       cfg.Job,
		logger:    cfg.Logger,
		interval:  interval,
		retention: cfg.Retention,
	}
}

// Start schedules the periodic run and starts the scheduler in the
// background. The first run fires immediately.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).StartImmediately().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if _, err := s.job.Run(ctx); err != nil {
			s.logger.Error().Err(err).Msg("scheduled ingest run failed")
		}

		if s.retention > 0 {
			if _, err := s.job.Purge(ctx, time.Now().Add(-s.retention)); err != nil {
				s.logger.Error().Err(err).Msg("retention purge failed")
			}
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info().Dur("interval", s.interval).Msg("ingest scheduler started")
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
