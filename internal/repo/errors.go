package repo

import "errors"

// Ошибки репозиториев.
var (
	// ErrNotFound — пакет не найден в БД.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — результат task уже сохранён (повторная доставка).
	ErrAlreadyExists = errors.New("already exists")
)
