package orchestrator

import "errors"

// Сообщения отчёта и ошибок обработки.
const (
	ReportComponentsNotHandled = "Components not handled"
	ReportComponentRecord      = "Component record."
	ReportRecordDeleted        = "Whole record deleted."

	MsgSeveralHostLinks = "Record is a component record with several host links. Record not updated."
	MsgNoChanges        = "No changes in record. Record not updated."
)

// Ошибки оркестратора.
var (
	// ErrInvalidTransition — недопустимый переход состояния task.
	// Означает ошибку в коде Orchestrator'а.
	ErrInvalidTransition = errors.New("invalid task state transition")

	// ErrNoSubmitter — у task есть компоненты, но пакеты создавать нечем.
	ErrNoSubmitter = errors.New("batch submitter is not configured")
)
