package orchestrator

import (
	"fmt"

	"github.com/shaiso/Poistot/internal/domain"
)

// TaskTracker — состояние обработки одной task.
//
// Создаётся в начале Process и живёт до публикации результата.
// Проверяет переходы по domain.TaskState и хранит историю для логов.
type TaskTracker struct {
	// Task — текущая (лучшая известная) версия task.
	Task domain.Task

	current domain.TaskState
	history []domain.TaskState
}

// NewTaskTracker создаёт трекер в состоянии RECEIVED.
func NewTaskTracker(task domain.Task) *TaskTracker {
	return &TaskTracker{
		Task:    task.Clone(),
		current: domain.TaskStateReceived,
		history: []domain.TaskState{domain.TaskStateReceived},
	}
}

// Current возвращает текущее состояние.
func (t *TaskTracker) Current() domain.TaskState {
	return t.current
}

// History возвращает пройденные состояния.
func (t *TaskTracker) History() []domain.TaskState {
	return append([]domain.TaskState(nil), t.history...)
}

// Transition переводит task в состояние next.
func (t *TaskTracker) Transition(next domain.TaskState) error {
	if !t.current.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, t.current, next)
	}
	t.current = next
	t.history = append(t.history, next)
	return nil
}

// Fail переводит task в FAILED и оборачивает err.
//
// Состояние в ошибке — то, в котором она произошла.
func (t *TaskTracker) Fail(err error) *domain.RecordProcessingError {
	rpe := domain.AsRecordProcessingError(err, t.Task, t.current)
	if t.current.CanTransitionTo(domain.TaskStateFailed) {
		t.current = domain.TaskStateFailed
		t.history = append(t.history, domain.TaskStateFailed)
	}
	return rpe
}
