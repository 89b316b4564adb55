package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCreateStartsAsStarting(t *testing.T) {
	s := NewMemoryStore()
	h, task := s.Create(context.Background())

	if task.Status != StatusStarting {
		t.Errorf("Status = %q, want starting", task.Status)
	}
	if h.ID() != task.ID || len(task.ID) != 36 {
		t.Errorf("ID = %q, handle id %q", task.ID, h.ID())
	}
	got, ok := s.Get(task.ID)
	if !ok || got.ID != task.ID {
		t.Errorf("Get() = %+v, %v", got, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("Get(missing) should report false")
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name    string
		steps   []func(h *Handle) error
		wantErr []bool
		want    Status
	}{
		{
			name: "happy path",
			steps: []func(h *Handle) error{
				func(h *Handle) error { return h.Processing("selecting") },
				func(h *Handle) error { return h.Message("composing") },
				func(h *Handle) error { return h.Complete(map[string]int{"n": 1}) },
			},
			wantErr: []bool{false, false, false},
			want:    StatusComplete,
		},
		{
			name: "complete is final",
			steps: []func(h *Handle) error{
				func(h *Handle) error { return h.Complete(nil) },
				func(h *Handle) error { return h.Processing("again") },
				func(h *Handle) error { return h.Fail(errors.New("late")) },
				func(h *Handle) error { return h.Message("late") },
			},
			wantErr: []bool{false, true, true, true},
			want:    StatusComplete,
		},
		{
			name: "failed is final",
			steps: []func(h *Handle) error{
				func(h *Handle) error { return h.Processing("working") },
				func(h *Handle) error { return h.Fail(errors.New("boom")) },
				func(h *Handle) error { return h.Complete("result") },
			},
			wantErr: []bool{false, false, true},
			want:    StatusFailed,
		},
		{
			name: "fail straight from starting",
			steps: []func(h *Handle) error{
				func(h *Handle) error { return h.Fail(errors.New("boom")) },
			},
			wantErr: []bool{false},
			want:    StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStore()
			h, task := s.Create(context.Background())
			for i, step := range tt.steps {
				err := step(h)
				if tt.wantErr[i] != (err != nil) {
					t.Fatalf("step %d error = %v, wantErr %v", i, err, tt.wantErr[i])
				}
				if err != nil && !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("step %d error = %v, want ErrInvalidTransition", i, err)
				}
			}
			got, _ := s.Get(task.ID)
			if got.Status != tt.want {
				t.Errorf("Status = %q, want %q", got.Status, tt.want)
			}
		})
	}
}

func TestResultAndErrorFields(t *testing.T) {
	s := NewMemoryStore()

	h1, t1 := s.Create(context.Background())
	_ = h1.Complete("done")
	got, _ := s.Get(t1.ID)
	if got.Result != "done" || got.Error != "" {
		t.Errorf("complete task = %+v", got)
	}

	h2, t2 := s.Create(context.Background())
	_ = h2.Fail(errors.New("need at least 2 photos"))
	got, _ = s.Get(t2.ID)
	if got.Result != nil || got.Error != "need at least 2 photos" {
		t.Errorf("failed task = %+v", got)
	}
}

func TestStatusNeverRegressesUnderConcurrency(t *testing.T) {
	s := NewMemoryStore()
	h, task := s.Create(context.Background())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	var regressed bool
	wg.Add(1)
	go func() {
		defer wg.Done()
		last := -1
		for {
			select {
			case <-stop:
				return
			default:
			}
			got, _ := s.Get(task.ID)
			if r := got.Status.rank(); r < last {
				regressed = true
			} else {
				last = r
			}
		}
	}()

	for i := 0; i < 50; i++ {
		_ = h.Processing(fmt.Sprintf("step %d", i))
	}
	_ = h.Complete(nil)
	_ = h.Processing("late")
	close(stop)
	wg.Wait()

	if regressed {
		t.Error("observed a status regression")
	}
}

func TestConcurrentCreateUniqueIDs(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Create(context.Background())
			s.List()
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, task := range s.List() {
		if seen[task.ID] {
			t.Fatalf("duplicate id %s", task.ID)
		}
		seen[task.ID] = true
	}
	if len(seen) != 100 {
		t.Errorf("List() = %d tasks, want 100", len(seen))
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	_, task := s.Create(context.Background())

	got, _ := s.Get(task.ID)
	got.Status = StatusComplete

	again, _ := s.Get(task.ID)
	if again.Status != StatusStarting {
		t.Errorf("stored status changed through a copy: %q", again.Status)
	}
}

func waitFor(t *testing.T, s Store, id string, want Status) Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if task, _ := s.Get(id); task.Status == want {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	task, _ := s.Get(id)
	t.Fatalf("task %s status = %q, want %q", id, task.Status, want)
	return task
}

func TestSupervisor(t *testing.T) {
	tests := []struct {
		name      string
		job       Job
		want      Status
		wantError string
	}{
		{
			name: "job completes itself",
			job: func(_ context.Context, h *Handle) error {
				_ = h.Processing("working")
				return h.Complete("ok")
			},
			want: StatusComplete,
		},
		{
			name: "nil return completes",
			job:  func(context.Context, *Handle) error { return nil },
			want: StatusComplete,
		},
		{
			name:      "error fails",
			job:       func(context.Context, *Handle) error { return errors.New("not enough photos") },
			want:      StatusFailed,
			wantError: "not enough photos",
		},
		{
			name:      "panic fails",
			job:       func(context.Context, *Handle) error { panic("kaboom") },
			want:      StatusFailed,
			wantError: "task panicked: kaboom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sup := NewSupervisor(NewMemoryStore(), time.Second)
			task := sup.Submit(tt.job)
			got := waitFor(t, sup.Store(), task.ID, tt.want)
			if got.Error != tt.wantError {
				t.Errorf("Error = %q, want %q", got.Error, tt.wantError)
			}
			if err := sup.Shutdown(context.Background()); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestSupervisorTimeoutForceFails(t *testing.T) {
	sup := NewSupervisor(NewMemoryStore(), 20*time.Millisecond)
	release := make(chan struct{})
	lateErr := make(chan error, 1)

	task := sup.Submit(func(_ context.Context, h *Handle) error {
		<-release
		lateErr <- h.Complete("too late")
		return nil
	})

	got := waitFor(t, sup.Store(), task.ID, StatusFailed)
	if !strings.Contains(got.Error, "exceeded maximum runtime") {
		t.Errorf("Error = %q", got.Error)
	}

	close(release)
	if err := <-lateErr; !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("late Complete() error = %v, want ErrInvalidTransition", err)
	}
	if final, _ := sup.Store().Get(task.ID); final.Status != StatusFailed {
		t.Errorf("Status = %q after late completion", final.Status)
	}
}

func TestSupervisorShutdownCancelsJobs(t *testing.T) {
	sup := NewSupervisor(NewMemoryStore(), time.Minute)
	started := make(chan struct{})

	task := sup.Submit(func(ctx context.Context, _ *Handle) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sup.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got, _ := sup.Store().Get(task.ID); got.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
}
