package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/thousandyehyang-archive/kbo-news-crawl/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	query    string
	perMode  int
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs of one query.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, query string, perMode int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		driver:   driver,
		pipeline: pipeline,
		query:    query,
		perMode:  perMode,
		logger:   logger,
	}
}

// Start registers the pipeline with the provided scheduler. A failed run is logged and
// the next tick tries again.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if err := s.pipeline.Run(ctx, s.query, s.perMode); err != nil {
			s.logger.Error("scheduled run failed", "trigger", trigger.Format(time.RFC3339), "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
