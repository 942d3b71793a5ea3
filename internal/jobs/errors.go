package jobs

import "errors"

// Ошибки валидации запроса на пакет.
var (
	// ErrNoRecords — в пакете нет ни одной записи.
	ErrNoRecords = errors.New("records cannot be empty")

	// ErrMissingLowTag — не указан удаляемый тег.
	ErrMissingLowTag = errors.New("lowTag cannot be empty")

	// ErrEmptyHints — у записи нет ни одной подсказки.
	ErrEmptyHints = errors.New("record must have catalogId, localId or links")
)

// IsValidationError возвращает true для ошибок некорректного запроса.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNoRecords) ||
		errors.Is(err, ErrMissingLowTag) ||
		errors.Is(err, ErrEmptyHints)
}
