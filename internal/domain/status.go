package domain

// TaskState — состояние task внутри Orchestrator'а.
//
// Жизненный цикл:
//
//	RECEIVED → RESOLVING → LOADED → (FAN_OUT) → TRANSFORMED → UPDATED → (CLEANUP_CHECK) → DONE
//	                                                                    ↘ FAILED (из любого состояния)
//
// FAN_OUT с непустым списком компонентов ведёт сразу в DONE.
type TaskState string

const (
	TaskStateReceived     TaskState = "RECEIVED"
	TaskStateResolving    TaskState = "RESOLVING"
	TaskStateLoaded       TaskState = "LOADED"
	TaskStateFanOut       TaskState = "FAN_OUT"
	TaskStateTransformed  TaskState = "TRANSFORMED"
	TaskStateUpdated      TaskState = "UPDATED"
	TaskStateCleanupCheck TaskState = "CLEANUP_CHECK"
	TaskStateDone         TaskState = "DONE"
	TaskStateFailed       TaskState = "FAILED"
)

// taskTransitions — допустимые переходы (FAILED допустим всегда).
var taskTransitions = map[TaskState][]TaskState{
	TaskStateReceived:     {TaskStateResolving},
	TaskStateResolving:    {TaskStateLoaded},
	TaskStateLoaded:       {TaskStateFanOut, TaskStateTransformed},
	TaskStateFanOut:       {TaskStateTransformed, TaskStateDone},
	TaskStateTransformed:  {TaskStateUpdated},
	TaskStateUpdated:      {TaskStateCleanupCheck, TaskStateDone},
	TaskStateCleanupCheck: {TaskStateDone},
}

// IsTerminal возвращает true, если состояние финальное.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateDone || s == TaskStateFailed
}

// CanTransitionTo проверяет, допустим ли переход.
func (s TaskState) CanTransitionTo(next TaskState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == TaskStateFailed {
		return true
	}
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// JobStatus — статус пакета.
//
// Жизненный цикл:
//
//	IN_PROGRESS → COMPLETED (когда все tasks вернули результат)
//	IN_PROGRESS → ABORTED   (постановка в очередь прервана ошибкой)
type JobStatus string

const (
	// JobStatusInProgress — tasks ещё обрабатываются.
	JobStatusInProgress JobStatus = "IN_PROGRESS"

	// JobStatusCompleted — получены результаты по всем tasks.
	JobStatusCompleted JobStatus = "COMPLETED"

	// JobStatusAborted — в очередь попала только часть tasks,
	// TaskCount уменьшен до числа опубликованных.
	JobStatusAborted JobStatus = "ABORTED"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusAborted
}
