package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Poistot/internal/domain"
	"github.com/shaiso/Poistot/internal/repo"
)

const abortTimeout = 5 * time.Second

// JobStore — хранение пакетов.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	Abort(ctx context.Context, id uuid.UUID, enqueued int) (*domain.Job, error)
}

// TaskPublisher — публикация task в очередь.
type TaskPublisher interface {
	PublishTask(ctx context.Context, task domain.Task) error
}

// Submitter создаёт пакет и ставит его tasks в очередь.
type Submitter struct {
	store     JobStore
	publisher TaskPublisher
	logger    *slog.Logger
}

// SubmitterConfig — конфигурация Submitter.
type SubmitterConfig struct {
	Store     JobStore
	Publisher TaskPublisher
	Logger    *slog.Logger
}

// NewSubmitter создаёт новый Submitter.
func NewSubmitter(cfg SubmitterConfig) *Submitter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Submitter{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		logger:    logger,
	}
}

// Submit проверяет запрос, сохраняет пакет и публикует по одной task на запись.
//
// Если публикация прервалась, пакет переводится в ABORTED с task_count,
// равным числу уже опубликованных tasks: они будут обработаны, и пакет
// всё равно завершится.
//
// Пакет компонентов (ParentJobID задан) наследует автора родительского пакета.
// Родитель, которого нет в БД, не ошибка: связь просто не сохраняется.
func (s *Submitter) Submit(ctx context.Context, req domain.JobRequest) (*domain.Job, error) {
	req.LowTag = strings.ToUpper(strings.TrimSpace(req.LowTag))
	if err := validate(req); err != nil {
		return nil, err
	}

	if req.ParentJobID != "" {
		if err := s.inheritFromParent(ctx, &req); err != nil {
			return nil, err
		}
	}

	job := domain.NewJob(req)
	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	logger := s.logger.With("job_id", job.ID.String())

	for i, task := range job.Tasks(req) {
		if err := s.publisher.PublishTask(ctx, task); err != nil {
			logger.Error("failed to enqueue task", "published", i, "total", job.TaskCount, "error", err)
			s.abort(job, i)
			return nil, fmt.Errorf("publish task %d of job %s: %w", i+1, job.ID, err)
		}
	}

	logger.Info("job submitted",
		"tasks", job.TaskCount,
		"low_tag", job.LowTag,
		"submitter", job.Submitter,
		"parent_job_id", req.ParentJobID,
	)
	return job, nil
}

// abort фиксирует частично поставленный в очередь пакет.
// Контекст запроса мог быть отменён, поэтому используется отдельный.
func (s *Submitter) abort(job *domain.Job, enqueued int) {
	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()

	if _, err := s.store.Abort(ctx, job.ID, enqueued); err != nil {
		s.logger.Error("failed to abort job", "job_id", job.ID.String(), "enqueued", enqueued, "error", err)
	}
}

// inheritFromParent копирует автора родительского пакета.
func (s *Submitter) inheritFromParent(ctx context.Context, req *domain.JobRequest) error {
	parentID, err := uuid.Parse(req.ParentJobID)
	if err != nil {
		s.logger.Warn("parent job id is not a uuid, ignoring", "parent_job_id", req.ParentJobID)
		req.ParentJobID = ""
		return nil
	}

	parent, err := s.store.GetByID(ctx, parentID)
	if errors.Is(err, repo.ErrNotFound) {
		s.logger.Warn("parent job not found, ignoring", "parent_job_id", req.ParentJobID)
		req.ParentJobID = ""
		return nil
	}
	if err != nil {
		return fmt.Errorf("get parent job: %w", err)
	}

	if req.Submitter == "" {
		req.Submitter = parent.Submitter
	}
	return nil
}

func validate(req domain.JobRequest) error {
	if len(req.Records) == 0 {
		return ErrNoRecords
	}
	if req.LowTag == "" {
		return ErrMissingLowTag
	}
	for i, hints := range req.Records {
		if hints.IsEmpty() {
			return fmt.Errorf("%w: record %d", ErrEmptyHints, i+1)
		}
	}
	return nil
}
