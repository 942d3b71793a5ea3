package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// RecordID — идентификатор записи в сводном каталоге.
//
// На проводе может прийти как JSON-строка, так и JSON-число
// (форма из UI и из старых клиентов), внутри всегда строка.
type RecordID string

// UnmarshalJSON принимает строку или число.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("record id must be a string or a number: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}

// String возвращает строковое представление.
func (id RecordID) String() string {
	return string(id)
}

// RecordIDHints — подсказки для определения записи.
//
// Хотя бы одно поле должно быть заполнено; какие именно — решает
// каталогизатор, поэтому итоговый ID определяется через индексы.
type RecordIDHints struct {
	// CatalogID — ID записи в сводном каталоге.
	CatalogID RecordID `json:"catalogId,omitempty"`

	// LocalID — ID записи в локальной системе библиотеки.
	LocalID RecordID `json:"localId,omitempty"`

	// Links — ссылки на записи сводного каталога (например, из поля FCC).
	Links []string `json:"links,omitempty"`
}

// IsEmpty возвращает true, если ни одна подсказка не задана.
func (h RecordIDHints) IsEmpty() bool {
	return h.CatalogID == "" && h.LocalID == "" && len(h.Links) == 0
}

// Task — единица работы: удаление LOW-тега из одной записи.
//
// Task создаётся:
//   - API при приёме пакета (по одной на запись)
//   - Orchestrator'ом при разворачивании компонентных записей
//
// Task живёт до публикации TaskResult в очередь результатов.
type Task struct {
	// JobID — пакет, к которому относится task.
	JobID string `json:"jobId,omitempty"`

	// TaskID — уникальный идентификатор task внутри пакета.
	TaskID string `json:"taskId,omitempty"`

	// RecordIDHints — подсказки для определения записи.
	RecordIDHints RecordIDHints `json:"recordIdHints"`

	// LowTag — тег локальной библиотеки.
	LowTag string `json:"lowTag"`

	// Флаги операции.
	DeleteUnusedRecords bool `json:"deleteUnusedRecords,omitempty"`
	ReplicateRecords    bool `json:"replicateRecords,omitempty"`
	BypassTagRemoval    bool `json:"bypassTagRemoval,omitempty"`
	HandleComponents    bool `json:"handleComponents,omitempty"`

	// SessionToken — зашифрованные учётные данные каталогизатора.
	SessionToken string `json:"sessionToken"`

	// HostInfo — ID host-записей, из-за которых был создан пакет компонентов.
	HostInfo []string `json:"hostInfo,omitempty"`

	// RecordID — определённый ID записи (заполняется при обработке).
	RecordID RecordID `json:"recordId,omitempty"`

	// ComponentList — ID компонентных записей (если HandleComponents).
	ComponentList []string `json:"componentList,omitempty"`

	// Hosts — ссылки на host-записи из загруженной записи.
	Hosts []string `json:"hosts,omitempty"`

	// Report — человекочитаемый журнал обработки.
	Report []string `json:"report"`
}

// Clone возвращает копию task с независимыми слайсами.
func (t Task) Clone() Task {
	c := t
	c.RecordIDHints.Links = slices.Clone(t.RecordIDHints.Links)
	c.HostInfo = slices.Clone(t.HostInfo)
	c.ComponentList = slices.Clone(t.ComponentList)
	c.Hosts = slices.Clone(t.Hosts)
	c.Report = slices.Clone(t.Report)
	return c
}

// AddReport добавляет строки в журнал.
func (t *Task) AddReport(lines ...string) {
	t.Report = append(t.Report, lines...)
}

// SkipLocalIDCheck — эвристика: ID определяется только по ID каталога,
// поэтому наличие локального ID в записи не проверяется.
func (t *Task) SkipLocalIDCheck() bool {
	return t.RecordIDHints.CatalogID != "" && t.RecordIDHints.LocalID == ""
}

// Message — сообщение от API каталога.
type Message struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// UpdateResponse — ответ API каталога на обновление записи.
type UpdateResponse struct {
	RecordID RecordID  `json:"recordId"`
	Messages []Message `json:"messages,omitempty"`
	Warnings []Message `json:"warnings,omitempty"`
}

// TaskResult — результат обработки task, публикуется в очередь результатов.
//
// Три формы:
//   - обновлено: UpdateResponse задан
//   - ошибка: TaskFailed + FailureReason
//   - разворот компонентов: нет ни UpdateResponse, ни TaskFailed (успех,
//     host-запись не изменялась, в Report — строка о созданном пакете)
type TaskResult struct {
	Task

	UpdateResponse *UpdateResponse `json:"updateResponse,omitempty"`
	TaskFailed     bool            `json:"taskFailed,omitempty"`
	FailureReason  string          `json:"failureReason,omitempty"`
}

// Succeeded создаёт успешный результат.
func Succeeded(task Task, resp *UpdateResponse) TaskResult {
	return TaskResult{Task: task.Clone(), UpdateResponse: resp}
}

// Failed создаёт результат с ошибкой.
func Failed(task Task, reason string) TaskResult {
	return TaskResult{Task: task.Clone(), TaskFailed: true, FailureReason: reason}
}
