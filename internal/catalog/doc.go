// Package catalog — клиент API записей сводного каталога.
//
// Включает:
//   - client.go — загрузка и сохранение записей (GET/PUT /bib/{id}, JSON)
//   - errors.go — APIError: текст ошибки берётся из errors[0].message
//   - health.go — HTTP-проверка доступности каталога для health gate
//
// Протокол API не является частью конвейера: Orchestrator работает
// с каталогом только через интерфейс и может получить любую реализацию.
package catalog
