// Package scheduler runs the rescan reconciler on a cron schedule.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"media-cloud/internal/library"
	"media-cloud/internal/logging"
	"media-cloud/internal/metrics"
)

// Reconciler is the rescan entry point. *library.Library satisfies it.
type Reconciler interface {
	Reconcile(ctx context.Context, trigger string) (library.ReconcileResult, error)
}

// Trigger labels scheduled rescans.
const Trigger = "schedule"

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// New parses spec (six fields, seconds first, or a descriptor such as
// "@every 1h") and schedules rescans of r. Overlapping runs are delayed
// until the previous one finishes.
func New(spec string, r Reconciler) (*Scheduler, error) {
	logger := logging.CronLogger{}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.DelayIfStillRunning(logger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, ctx: ctx, cancel: cancel}

	if _, err := c.AddFunc(spec, func() { s.run(r) }); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid rescan schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run(r Reconciler) {
	res, err := r.Reconcile(s.ctx, Trigger)
	if err != nil {
		logging.Warn("Scheduled rescan failed: %v", err)
		metrics.BackgroundRescanFailures.Inc()
		return
	}
	if res.Created+res.Updated > 0 {
		logging.Info("Scheduled rescan: %d new, %d updated", res.Created, res.Updated)
	}
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs, cancels a running one and waits for it to
// return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
