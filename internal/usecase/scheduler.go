package usecase

import (
	"context"
	"log/slog"
	"time"

	"ETFRanker/internal/ports"
)

// Scheduler wires the cron driver with periodic cache revalidation.
type Scheduler struct {
	driver      ports.Scheduler
	service     *Service
	invalidator ports.Invalidator
	onRender    func([]CategoryView)
	logger      *slog.Logger
}

// SchedulerDeps groups the collaborators of a revalidation job.
type SchedulerDeps struct {
	Driver      ports.Scheduler
	Service     *Service
	Invalidator ports.Invalidator
	OnRender    func([]CategoryView)
	Logger      *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring revalidation.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	return &Scheduler{
		driver:      deps.Driver,
		service:     deps.Service,
		invalidator: deps.Invalidator,
		onRender:    deps.OnRender,
		logger:      deps.Logger,
	}
}

// Start registers the revalidation job with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.service == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) {
		s.Revalidate(ctx, trigger)
	})
}

// Revalidate drops cached snapshots and re-renders every category.
func (s *Scheduler) Revalidate(ctx context.Context, trigger time.Time) {
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil && s.logger != nil {
			s.logger.Warn("cache invalidation failed", "error", err)
		}
	}

	views, err := s.service.RenderAll(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("revalidation failed", "trigger", trigger.Format(time.RFC3339), "error", err)
		}
		return
	}
	if s.onRender != nil {
		s.onRender(views)
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
