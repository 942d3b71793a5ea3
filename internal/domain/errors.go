package domain

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind — класс ошибки обработки task.
//
// Перечисление закрытое: всё, что не попадает в эти классы,
// считается дефектом программы и до обработчика task не доходит.
type FailureKind string

const (
	// KindNone — ошибки нет.
	KindNone FailureKind = ""

	// KindAmbiguousResolution — по подсказкам найдено 0 или больше одной записи.
	KindAmbiguousResolution FailureKind = "AMBIGUOUS_RESOLUTION"

	// KindRecordProcessing — доменная ошибка при обработке записи.
	KindRecordProcessing FailureKind = "RECORD_PROCESSING"

	// KindUpstreamUnavailable — каталог недоступен (не финальная ошибка).
	KindUpstreamUnavailable FailureKind = "UPSTREAM_UNAVAILABLE"
)

// ErrUpstreamUnavailable — каталог не отвечает на проверку здоровья.
// Никогда не попадает в результат task, только задерживает обработку.
var ErrUpstreamUnavailable = errors.New("upstream catalog unavailable")

// AmbiguousResolutionError — ID записи не удалось определить однозначно.
type AmbiguousResolutionError struct {
	// Candidates — найденные кандидаты (пусто, если ничего не найдено).
	Candidates []string
}

func (e *AmbiguousResolutionError) Error() string {
	if len(e.Candidates) == 0 {
		return "Resolved into 0 records."
	}
	return fmt.Sprintf("Resolved into multiple records: %s", strings.Join(e.Candidates, ", "))
}

// RecordProcessingError — ошибка обработки записи.
//
// Task содержит состояние task на момент ошибки (например, уже
// определённый RecordID), именно оно публикуется в результате.
type RecordProcessingError struct {
	Message string
	Task    Task
	State   TaskState
	Err     error
}

func (e *RecordProcessingError) Error() string {
	return e.Message
}

func (e *RecordProcessingError) Unwrap() error {
	return e.Err
}

// NewRecordProcessingError создаёт ошибку обработки без причины.
func NewRecordProcessingError(message string, task Task) *RecordProcessingError {
	return &RecordProcessingError{Message: message, Task: task.Clone()}
}

// AsRecordProcessingError оборачивает err в RecordProcessingError,
// если это ещё не она. Сообщение берётся из err без изменений.
func AsRecordProcessingError(err error, task Task, state TaskState) *RecordProcessingError {
	var rpe *RecordProcessingError
	if errors.As(err, &rpe) {
		if rpe.State == "" {
			rpe.State = state
		}
		return rpe
	}
	return &RecordProcessingError{
		Message: err.Error(),
		Task:    task.Clone(),
		State:   state,
		Err:     err,
	}
}

// KindOf классифицирует ошибку.
func KindOf(err error) FailureKind {
	if err == nil {
		return KindNone
	}

	if errors.Is(err, ErrUpstreamUnavailable) {
		return KindUpstreamUnavailable
	}

	var are *AmbiguousResolutionError
	if errors.As(err, &are) {
		return KindAmbiguousResolution
	}

	return KindRecordProcessing
}
