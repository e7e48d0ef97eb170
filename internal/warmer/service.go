package warmer

import (
	"context"
	"fmt"
	"time"

	"github.com/DanielHemmis/BggCollections/pkg/logger"
)

const defaultInterval = 6 * time.Hour

// Job is one unit of warm-up work run every cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// ServiceParams configure the warmer.
type ServiceParams struct {
	Logger   *logger.Logger
	Jobs     []Job
	Lock     Lock
	Interval time.Duration
}

// Service runs its jobs once at start and then on a fixed cadence. A cycle
// only runs on the instance that holds the lock.
type Service struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	interval time.Duration
}

// NewService builds a warmer service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	jobs := make([]Job, 0, len(params.Jobs))
	for _, job := range params.Jobs {
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("at least one job required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		jobs:     jobs,
		lock:     params.Lock,
		interval: interval,
	}, nil
}

// Run loops until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "warm cycle failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "warmer context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "warm cycle failed", err)
			}
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another warmer holds the lock; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release warmer lock", relErr)
		}
	}()

	for _, job := range s.jobs {
		jobCtx := s.logg.WithField(ctx, "job", job.Name())
		start := time.Now()
		err := job.Run(jobCtx)
		jobCtx = s.logg.WithField(jobCtx, "duration_ms", time.Since(start).Milliseconds())
		if err != nil {
			s.logg.Error(jobCtx, "job failed", err)
			continue
		}
		s.logg.Info(jobCtx, "job completed")
	}
	return nil
}
