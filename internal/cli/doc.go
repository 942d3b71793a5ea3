// Package cli реализует инструмент командной строки Poistot.
//
// CLI работает с API через HTTP и не импортирует внутренние пакеты.
//
//	poistot --api-url http://localhost:8080 job submit records.txt --low-tag TEST
//	poistot job list --status IN_PROGRESS
//	poistot job results <job-id> --json | jq .
//
// Файл записей: по одной записи на строку, "<localId> [FCC<id> ...]";
// с --catalog-ids одиночный ID — это ID сводного каталога.
//
// Данные выводятся в stdout (таблица или JSON с --json), сообщения — в stderr.
// Токен сессии для submit берётся из --session-token или POISTOT_SESSION_TOKEN.
package cli
