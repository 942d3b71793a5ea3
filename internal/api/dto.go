package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Poistot/internal/domain"
)

// CreateJobRequest — запрос на создание пакета.
type CreateJobRequest struct {
	Records             []domain.RecordIDHints `json:"records"`
	LowTag              string                 `json:"lowTag"`
	DeleteUnusedRecords bool                   `json:"deleteUnusedRecords,omitempty"`
	ReplicateRecords    bool                   `json:"replicateRecords,omitempty"`
	BypassTagRemoval    bool                   `json:"bypassTagRemoval,omitempty"`
	HandleComponents    bool                   `json:"handleComponents,omitempty"`
}

// ToDomain строит запрос на пакет от имени каталогизатора.
func (r CreateJobRequest) ToDomain(token, submitter string) domain.JobRequest {
	return domain.JobRequest{
		Records:             r.Records,
		LowTag:              r.LowTag,
		DeleteUnusedRecords: r.DeleteUnusedRecords,
		ReplicateRecords:    r.ReplicateRecords,
		BypassTagRemoval:    r.BypassTagRemoval,
		HandleComponents:    r.HandleComponents,
		SessionToken:        token,
		Submitter:           submitter,
	}
}

// JobResponse — ответ с пакетом.
type JobResponse struct {
	ID                  uuid.UUID        `json:"id"`
	ParentJobID         *uuid.UUID       `json:"parent_job_id,omitempty"`
	LowTag              string           `json:"low_tag"`
	DeleteUnusedRecords bool             `json:"delete_unused_records"`
	ReplicateRecords    bool             `json:"replicate_records"`
	BypassTagRemoval    bool             `json:"bypass_tag_removal"`
	HandleComponents    bool             `json:"handle_components"`
	Submitter           string           `json:"submitter,omitempty"`
	HostIDs             []string         `json:"host_ids,omitempty"`
	TaskCount           int              `json:"task_count"`
	CompletedCount      int              `json:"completed_count"`
	FailedCount         int              `json:"failed_count"`
	Status              domain.JobStatus `json:"status"`
	CreatedAt           time.Time        `json:"created_at"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
}

// JobFromDomain конвертирует domain.Job в JobResponse.
func JobFromDomain(j domain.Job) JobResponse {
	return JobResponse{
		ID:                  j.ID,
		ParentJobID:         j.ParentJobID,
		LowTag:              j.LowTag,
		DeleteUnusedRecords: j.DeleteUnusedRecords,
		ReplicateRecords:    j.ReplicateRecords,
		BypassTagRemoval:    j.BypassTagRemoval,
		HandleComponents:    j.HandleComponents,
		Submitter:           j.Submitter,
		HostIDs:             j.HostIDs,
		TaskCount:           j.TaskCount,
		CompletedCount:      j.CompletedCount,
		FailedCount:         j.FailedCount,
		Status:              j.Status,
		CreatedAt:           j.CreatedAt,
		CompletedAt:         j.CompletedAt,
	}
}

// JobResultResponse — ответ с результатом одной task.
//
// Токен сессии из результата наружу не отдаётся.
type JobResultResponse struct {
	TaskID         string                 `json:"task_id"`
	RecordIDHints  domain.RecordIDHints   `json:"record_id_hints"`
	RecordID       domain.RecordID        `json:"record_id,omitempty"`
	Failed         bool                   `json:"failed"`
	FailureReason  string                 `json:"failure_reason,omitempty"`
	UpdateResponse *domain.UpdateResponse `json:"update_response,omitempty"`
	Report         []string               `json:"report"`
	ReceivedAt     time.Time              `json:"received_at"`
}

// JobResultFromDomain конвертирует domain.JobResult в JobResultResponse.
func JobResultFromDomain(r domain.JobResult) JobResultResponse {
	return JobResultResponse{
		TaskID:         r.TaskID,
		RecordIDHints:  r.Result.RecordIDHints,
		RecordID:       r.Result.RecordID,
		Failed:         r.Result.TaskFailed,
		FailureReason:  r.Result.FailureReason,
		UpdateResponse: r.Result.UpdateResponse,
		Report:         r.Result.Report,
		ReceivedAt:     r.ReceivedAt,
	}
}
