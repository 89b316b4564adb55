package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"media-cloud/internal/logging"
)

// DefaultTimeout bounds a task when no timeout is configured.
const DefaultTimeout = 10 * time.Minute

// Job is the body of a background task. It reports progress and its final
// outcome through h. A nil return on a task that is still running completes
// it without a result; an error fails it.
type Job func(ctx context.Context, h *Handle) error

// Supervisor runs jobs in their own goroutines with a maximum runtime.
type Supervisor struct {
	store   Store
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSupervisor returns a Supervisor registering tasks in store. timeout
// <= 0 uses DefaultTimeout.
func NewSupervisor(store Store, timeout time.Duration) *Supervisor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		store:   store,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Store returns the registry tasks are created in.
func (s *Supervisor) Store() Store {
	return s.store
}

// Submit creates a task and starts job for it. The job's context is
// detached from any request and cancelled after the maximum runtime or on
// Shutdown. A job still running at the deadline has its task failed
// immediately; its later updates are rejected.
func (s *Supervisor) Submit(job Job) Task {
	h, task := s.store.Create(s.ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.supervise(h, job)
	}()

	return task
}

func (s *Supervisor) supervise(h *Handle, job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Error("Task %s panicked: %v", h.ID(), r)
				done <- fmt.Errorf("task panicked: %v", r)
			}
		}()
		done <- job(ctx, h)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("task exceeded maximum runtime of %v", s.timeout)
		} else {
			err = fmt.Errorf("task cancelled: %w", ctx.Err())
		}
	}

	if err != nil {
		if failErr := h.Fail(err); failErr == nil {
			logging.Warn("Task %s failed: %v", h.ID(), err)
		}
		return
	}
	if completeErr := h.Complete(nil); completeErr == nil {
		logging.Debug("Task %s finished without an explicit result", h.ID())
	}
}

// Shutdown cancels running jobs and waits for their supervisors to return
// or ctx to end.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.cancel()

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
