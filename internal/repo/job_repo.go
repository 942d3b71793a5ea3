package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Poistot/internal/domain"
)

const jobColumns = `
	id, parent_job_id, low_tag, delete_unused_records, replicate_records,
	bypass_tag_removal, handle_components, submitter, host_ids,
	task_count, completed_count, failed_count, status, created_at, completed_at
`

// JobRepo — репозиторий для работы с пакетами и их результатами.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// Create создаёт новый пакет.
func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	hostIDs := job.HostIDs
	if hostIDs == nil {
		hostIDs = []string{}
	}

	query := `
		INSERT INTO jobs (id, parent_job_id, low_tag, delete_unused_records, replicate_records,
		                  bypass_tag_removal, handle_components, submitter, host_ids,
		                  task_count, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.ParentJobID,
		job.LowTag,
		job.DeleteUnusedRecords,
		job.ReplicateRecords,
		job.BypassTagRemoval,
		job.HandleComponents,
		nullString(job.Submitter),
		hostIDs,
		job.TaskCount,
		job.Status,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID возвращает пакет по ID.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	return scanJob(r.pool.QueryRow(ctx, query, id))
}

// List возвращает пакеты с фильтрацией, новые первыми.
func (r *JobRepo) List(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR submitter = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		nullString(filter.Submitter),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// AddResult сохраняет результат task и обновляет счётчики пакета.
//
// Пакет переходит в COMPLETED, когда получены результаты по всем tasks;
// статус ABORTED при этом сохраняется, меняется только completed_at.
// Повторный результат той же task (повторная доставка) — ErrAlreadyExists,
// счётчики при этом не меняются.
func (r *JobRepo) AddResult(ctx context.Context, result domain.JobResult) (*domain.Job, error) {
	resultJSON, err := json.Marshal(result.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	failed := 0
	if result.Result.TaskFailed {
		failed = 1
	}

	var job *domain.Job
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO job_results (job_id, task_id, failed, result, received_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (job_id, task_id) DO NOTHING
		`,
			result.JobID,
			result.TaskID,
			result.Result.TaskFailed,
			resultJSON,
			result.ReceivedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
				return ErrNotFound
			}
			return fmt.Errorf("insert job result: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrAlreadyExists
		}

		job, err = scanJob(tx.QueryRow(ctx, `
			UPDATE jobs
			SET completed_count = completed_count + 1,
			    failed_count    = failed_count + $2,
			    status          = CASE WHEN status = $5 AND completed_count + 1 >= task_count THEN $3 ELSE status END,
			    completed_at    = CASE WHEN completed_count + 1 >= task_count THEN $4 ELSE completed_at END
			WHERE id = $1
			RETURNING `+jobColumns,
			result.JobID,
			failed,
			domain.JobStatusCompleted,
			result.ReceivedAt,
			domain.JobStatusInProgress,
		))
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Abort переводит пакет в ABORTED и уменьшает task_count до числа
// опубликованных tasks: результаты придут только по ним.
func (r *JobRepo) Abort(ctx context.Context, id uuid.UUID, enqueued int) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET task_count   = $2,
		    status       = $3,
		    completed_at = CASE WHEN completed_count >= $2 THEN now() ELSE completed_at END
		WHERE id = $1
		RETURNING ` + jobColumns
	return scanJob(r.pool.QueryRow(ctx, query, id, enqueued, domain.JobStatusAborted))
}

// ListResults возвращает результаты пакета в порядке получения.
func (r *JobRepo) ListResults(ctx context.Context, jobID uuid.UUID) ([]domain.JobResult, error) {
	query := `
		SELECT job_id, task_id, result, received_at
		FROM job_results
		WHERE job_id = $1
		ORDER BY received_at ASC
	`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job results: %w", err)
	}
	defer rows.Close()

	var results []domain.JobResult
	for rows.Next() {
		var res domain.JobResult
		var resultJSON []byte
		if err := rows.Scan(&res.JobID, &res.TaskID, &resultJSON, &res.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan job result: %w", err)
		}
		if err := json.Unmarshal(resultJSON, &res.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// --- Helpers ---

// foreignKeyViolation — SQLSTATE нарушения внешнего ключа.
const foreignKeyViolation = "23503"

// JobFilter — параметры фильтрации пакетов.
type JobFilter struct {
	Status    domain.JobStatus
	Submitter string
	Limit     int
	Offset    int
}

// scanJob сканирует одну строку в Job.
func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var submitter *string
	var completedAt *time.Time

	err := row.Scan(
		&job.ID,
		&job.ParentJobID,
		&job.LowTag,
		&job.DeleteUnusedRecords,
		&job.ReplicateRecords,
		&job.BypassTagRemoval,
		&job.HandleComponents,
		&submitter,
		&job.HostIDs,
		&job.TaskCount,
		&job.CompletedCount,
		&job.FailedCount,
		&job.Status,
		&job.CreatedAt,
		&completedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if submitter != nil {
		job.Submitter = *submitter
	}
	job.CompletedAt = completedAt
	return &job, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
