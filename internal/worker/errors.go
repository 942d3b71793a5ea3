package worker

import "errors"

// Ошибки воркера.
var (
	// ErrInvalidTask — тело сообщения не является task.
	ErrInvalidTask = errors.New("invalid task message")

	// ErrInvalidSession — учётные данные task не читаются.
	ErrInvalidSession = errors.New("invalid session token")

	// ErrPublishResult — результат не опубликован, task вернётся в очередь.
	ErrPublishResult = errors.New("publish result failed")
)
