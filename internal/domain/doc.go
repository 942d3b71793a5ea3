// Package domain содержит доменные типы системы Poistot.
//
// Включает:
//   - task.go   — Task, TaskResult, UpdateResponse
//   - job.go    — Job (пакет tasks) и JobResult
//   - status.go — TaskState (машина состояний Orchestrator'а) и JobStatus
//   - errors.go — классы ошибок обработки (FailureKind)
package domain
