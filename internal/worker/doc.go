// Package worker потребляет tasks из task_queue и публикует результаты.
//
// # Обработка сообщения
//
//  1. Pacer: пауза, вычисленная после предыдущей task
//  2. разбор JSON и чтение токена сессии (ошибка — сообщение отбрасывается с ack)
//  3. Gate: ожидание доступности каталога (каждые 10s, по умолчанию без предела)
//  4. orchestrator.Process с клиентом каталога каталогизатора
//  5. публикация TaskResult (успех или ошибка) в task_result_queue
//  6. ack
//
// Отмена контекста, исчерпанный предел проверок здоровья и неудачная
// публикация возвращают сообщение в очередь (nack с requeue).
//
// # Pacer
//
//	delay = max(0, minInterval - elapsed)
//	delay == 0 → delay = slowProcessingWait
//
// Пауза пересчитывается после каждой обработанной task и
// применяется перед следующей.
//
// # Файлы пакета
//
//   - worker.go   — Worker, Config, Start/Stop
//   - handlers.go — обработка одного сообщения
//   - pacer.go    — Pacer и ComputeDelay
//   - health.go   — Gate
//   - errors.go   — ошибки
package worker
