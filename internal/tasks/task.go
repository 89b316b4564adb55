package tasks

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidTransition is returned when an update would move a task
// backwards or touch a finished task.
var ErrInvalidTransition = errors.New("invalid task transition")

// Status is the lifecycle position of a task.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

func (s Status) rank() int {
	switch s {
	case StatusStarting:
		return 0
	case StatusProcessing:
		return 1
	default:
		return 2
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Task is a snapshot of a background job as reported to pollers.
type Task struct {
	ID        string    `json:"task_id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store registers tasks. Only the Handle returned by Create can change the
// task it created.
type Store interface {
	Create(ctx context.Context) (*Handle, Task)
	Get(id string) (Task, bool)
	List() []Task
}

// mutator applies fn to the task with the given id under the store's lock.
type mutator func(id string, fn func(t *Task) error) (Task, error)

// Handle is the owner's write access to one task.
type Handle struct {
	id     string
	mutate mutator
}

// ID returns the task id.
func (h *Handle) ID() string {
	return h.id
}

func (h *Handle) transition(next Status, fn func(t *Task)) error {
	_, err := h.mutate(h.id, func(t *Task) error {
		if t.Status.Terminal() || next.rank() < t.Status.rank() {
			return ErrInvalidTransition
		}
		t.Status = next
		fn(t)
		return nil
	})
	return err
}

// Processing moves the task to processing with msg.
func (h *Handle) Processing(msg string) error {
	return h.transition(StatusProcessing, func(t *Task) { t.Message = msg })
}

// Message replaces the message of a running task without changing status.
func (h *Handle) Message(msg string) error {
	_, err := h.mutate(h.id, func(t *Task) error {
		if t.Status.Terminal() {
			return ErrInvalidTransition
		}
		t.Message = msg
		return nil
	})
	return err
}

// Complete finishes the task with result.
func (h *Handle) Complete(result any) error {
	return h.transition(StatusComplete, func(t *Task) {
		t.Message = "Complete"
		t.Result = result
	})
}

// Fail finishes the task with err.
func (h *Handle) Fail(err error) error {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return h.transition(StatusFailed, func(t *Task) {
		t.Message = "Failed"
		t.Error = msg
	})
}
