// Package repo — хранение пакетов и результатов tasks в PostgreSQL (pgx).
//
// Таблицы:
//   - jobs — пакет, флаги операции, счётчики и статус
//   - job_results — по одному результату на task (job_id, task_id)
//
// Счётчики пакета меняются только в AddResult, в одной транзакции
// с сохранением результата.
package repo
