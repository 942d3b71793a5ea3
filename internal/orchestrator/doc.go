// Package orchestrator выполняет одну task удаления LOW-тега.
//
// Состояния (domain.TaskState):
//
//	RECEIVED → RESOLVING → LOADED → (FAN_OUT) → TRANSFORMED → UPDATED → (CLEANUP_CHECK) → DONE
//
// Файлы:
//   - orchestrator.go — Orchestrator, интерфейсы зависимостей, Process
//   - handlers.go     — шаги по состояниям
//   - state.go        — TaskTracker: проверка переходов и история
//   - errors.go       — тексты отчёта и ошибки
//
// Любая ошибка шага возвращается как *domain.RecordProcessingError
// с состоянием, в котором она произошла. Паники не перехватываются.
package orchestrator
