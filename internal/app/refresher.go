package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

const defaultRefreshInterval = 5 * time.Minute

type refreshTarget interface {
	Refresh(ctx context.Context) error
}

// Refresher periodically refetches stale cities.
type Refresher struct {
	scheduler *gocron.Scheduler
	target    refreshTarget
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// NewRefresher builds a refresher; it does nothing until Start.
func NewRefresher(target refreshTarget, interval, timeout time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	if timeout <= 0 {
		timeout = interval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Refresher{
		scheduler: gocron.NewScheduler(time.UTC),
		target:    target,
		interval:  interval,
		timeout:   timeout,
		logger:    logger.With("component", "refresher"),
	}
}

// Start schedules the refresh job. Runs never overlap, and the first run
// happens one interval from now.
func (r *Refresher) Start(ctx context.Context) error {
	_, err := r.scheduler.Every(r.interval).WaitForSchedule().SingletonMode().Do(func() {
		r.run(ctx)
	})
	if err != nil {
		return err
	}
	r.scheduler.StartAsync()
	r.logger.Info("refresher started", "interval", r.interval)
	return nil
}

// Stop cancels future runs.
func (r *Refresher) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}

func (r *Refresher) run(parent context.Context) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	if err := r.target.Refresh(ctx); err != nil {
		r.logger.Warn("refresh failed", "error", err)
	}
}
