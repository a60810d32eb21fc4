// Package jobs runs background maintenance on a schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const sweepTimeout = 5 * time.Minute

// Retirer deletes exchanges older than maxAgeDays across all sessions.
type Retirer interface {
	RetireAll(ctx context.Context, maxAgeDays int) (int64, error)
}

// RetentionJob periodically retires exchanges past the retention window.
type RetentionJob struct {
	retirer   Retirer
	days      int
	interval  time.Duration
	scheduler gocron.Scheduler
}

// NewRetentionJob creates the job. A days value of 0 disables it.
func NewRetentionJob(retirer Retirer, days int, interval time.Duration) (*RetentionJob, error) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &RetentionJob{
		retirer:   retirer,
		days:      days,
		interval:  interval,
		scheduler: scheduler,
	}, nil
}

// Start registers the sweep, runs it once immediately and then every interval.
func (j *RetentionJob) Start(ctx context.Context) error {
	if j.days <= 0 {
		slog.Info("memory retention disabled")
		return nil
	}
	_, err := j.scheduler.NewJob(
		gocron.DurationJob(j.interval),
		gocron.NewTask(func() {
			_, _ = j.Sweep(ctx)
		}),
		gocron.WithName("memory_retention"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}
	j.scheduler.Start()
	slog.Info("memory retention scheduled", "max_age_days", j.days, "interval", j.interval)
	return nil
}

// Sweep retires old exchanges once.
func (j *RetentionJob) Sweep(ctx context.Context) (int64, error) {
	if j.days <= 0 {
		return 0, nil
	}
	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	removed, err := j.retirer.RetireAll(sweepCtx, j.days)
	if err != nil {
		slog.Error("memory retention sweep failed", "error", err)
		return 0, err
	}
	if removed > 0 {
		slog.Info("retired old exchanges", "count", removed, "max_age_days", j.days)
	}
	return removed, nil
}

// Stop shuts the scheduler down.
func (j *RetentionJob) Stop() error {
	return j.scheduler.Shutdown()
}
