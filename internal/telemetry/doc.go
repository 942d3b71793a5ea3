// Package telemetry обеспечивает наблюдаемость worker'а и API.
//
// Включает:
//   - logging.go — structured logging через slog (JSON или text),
//     логгер в контексте и атрибуты job_id / task_id / record_id
//   - metrics.go — Prometheus метрики poistot_* (tasks, health gate, пауза, результаты)
//
// Методы Metrics допускают nil-получатель: компоненты без метрик
// (тесты, CLI) просто не передают их.
package telemetry
