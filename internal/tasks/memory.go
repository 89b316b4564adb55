package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-cloud/internal/metrics"
)

// MemoryStore keeps tasks in process memory. Restarting the process loses them.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	now   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]*Task),
		now:   time.Now,
	}
}

// Create implements Store. The task starts in StatusStarting.
func (s *MemoryStore) Create(_ context.Context) (*Handle, Task) {
	now := s.now()
	t := &Task{
		Status:    StatusStarting,
		Message:   "Starting",
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	for {
		t.ID = uuid.NewString()
		if _, taken := s.tasks[t.ID]; !taken {
			break
		}
	}
	s.tasks[t.ID] = t
	snapshot := *t
	s.mu.Unlock()

	metrics.TaskTransitionsTotal.WithLabelValues(string(StatusStarting)).Inc()
	metrics.TasksRunning.Inc()

	return &Handle{id: t.ID, mutate: s.mutate}, snapshot
}

func (s *MemoryStore) mutate(id string, fn func(t *Task) error) (Task, error) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return Task{}, fmt.Errorf("task %s not found", id)
	}
	prev := t.Status
	if err := fn(t); err != nil {
		snapshot := *t
		s.mu.Unlock()
		return snapshot, err
	}
	t.UpdatedAt = s.now()
	snapshot := *t
	s.mu.Unlock()

	if snapshot.Status != prev {
		metrics.TaskTransitionsTotal.WithLabelValues(string(snapshot.Status)).Inc()
		if snapshot.Status.Terminal() {
			metrics.TasksRunning.Dec()
			metrics.TaskDuration.WithLabelValues(string(snapshot.Status)).
				Observe(snapshot.UpdatedAt.Sub(snapshot.CreatedAt).Seconds())
		}
	}
	return snapshot, nil
}

// Get implements Store.
func (s *MemoryStore) Get(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// List implements Store. Tasks are ordered oldest first.
func (s *MemoryStore) List() []Task {
	s.mu.RLock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
