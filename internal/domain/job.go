package domain

import (
	"time"

	"github.com/google/uuid"
)

// Job — пакет tasks, отправленный одним запросом.
//
// Job создаётся:
//   - API по запросу каталогизатора
//   - Orchestrator'ом для компонентных записей host-записи
type Job struct {
	// ID — уникальный идентификатор пакета.
	ID uuid.UUID `json:"id"`

	// ParentJobID — пакет, из которого был порождён этот (для компонентов).
	ParentJobID *uuid.UUID `json:"parent_job_id,omitempty"`

	// LowTag — удаляемый тег локальной библиотеки.
	LowTag string `json:"low_tag"`

	DeleteUnusedRecords bool `json:"delete_unused_records"`
	ReplicateRecords    bool `json:"replicate_records"`
	BypassTagRemoval    bool `json:"bypass_tag_removal"`
	HandleComponents    bool `json:"handle_components"`

	// Submitter — имя пользователя, отправившего пакет.
	Submitter string `json:"submitter,omitempty"`

	// HostIDs — host-записи (только для пакетов компонентов).
	HostIDs []string `json:"host_ids,omitempty"`

	// Счётчики.
	TaskCount      int `json:"task_count"`
	CompletedCount int `json:"completed_count"`
	FailedCount    int `json:"failed_count"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsFinished возвращает true, если по всем tasks получены результаты.
func (j *Job) IsFinished() bool {
	return j.CompletedCount >= j.TaskCount
}

// Abort фиксирует, что в очередь попали только enqueued tasks.
func (j *Job) Abort(enqueued int, now time.Time) {
	j.TaskCount = enqueued
	j.Status = JobStatusAborted
	if j.IsFinished() && j.CompletedAt == nil {
		j.CompletedAt = &now
	}
}

// JobRequest — запрос на создание пакета.
type JobRequest struct {
	Records             []RecordIDHints
	LowTag              string
	DeleteUnusedRecords bool
	ReplicateRecords    bool
	BypassTagRemoval    bool
	HandleComponents    bool
	SessionToken        string
	Submitter           string
	ParentJobID         string
	HostIDs             []string
}

// NewJob создаёт Job из запроса.
func NewJob(req JobRequest) *Job {
	job := &Job{
		ID:                  uuid.New(),
		LowTag:              req.LowTag,
		DeleteUnusedRecords: req.DeleteUnusedRecords,
		ReplicateRecords:    req.ReplicateRecords,
		BypassTagRemoval:    req.BypassTagRemoval,
		HandleComponents:    req.HandleComponents,
		Submitter:           req.Submitter,
		HostIDs:             req.HostIDs,
		TaskCount:           len(req.Records),
		Status:              JobStatusInProgress,
		CreatedAt:           time.Now(),
	}

	if parent, err := uuid.Parse(req.ParentJobID); err == nil {
		job.ParentJobID = &parent
	}

	return job
}

// Tasks строит tasks пакета, по одной на запись.
func (j *Job) Tasks(req JobRequest) []Task {
	tasks := make([]Task, 0, len(req.Records))
	for _, hints := range req.Records {
		tasks = append(tasks, Task{
			JobID:               j.ID.String(),
			TaskID:              uuid.NewString(),
			RecordIDHints:       hints,
			LowTag:              req.LowTag,
			DeleteUnusedRecords: req.DeleteUnusedRecords,
			ReplicateRecords:    req.ReplicateRecords,
			BypassTagRemoval:    req.BypassTagRemoval,
			HandleComponents:    req.HandleComponents,
			SessionToken:        req.SessionToken,
			HostInfo:            req.HostIDs,
			Report:              []string{},
		})
	}
	return tasks
}

// JobResult — сохранённый результат task.
type JobResult struct {
	JobID      uuid.UUID  `json:"job_id"`
	TaskID     string     `json:"task_id"`
	Result     TaskResult `json:"result"`
	ReceivedAt time.Time  `json:"received_at"`
}
