// Package jobs — пакеты tasks: создание и сбор результатов.
//
// Submitter сохраняет пакет и публикует tasks в очередь; им пользуются
// API (пакет от каталогизатора) и Orchestrator (пакет компонентов).
// Collector читает очередь результатов и закрывает пакет, когда
// получены результаты по всем его tasks.
package jobs
