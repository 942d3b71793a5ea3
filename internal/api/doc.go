// Package api содержит HTTP API приёма пакетов.
//
// Структура:
//   - handler.go     — Handler с DI (submitter, хранилище, сессии, logger)
//   - routes.go      — регистрация маршрутов
//   - middleware.go  — middleware (logging, recovery)
//   - response.go    — унифицированные JSON-ответы и обработка ошибок
//   - dto.go         — Data Transfer Objects (request/response)
//   - job_handler.go — обработчики для /jobs
//
// Каталогизатор авторизуется cookie sessionToken; токен попадает
// в tasks как есть и расшифровывается только worker'ом.
package api
