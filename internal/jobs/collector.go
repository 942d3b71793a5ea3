package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Poistot/internal/domain"
	"github.com/shaiso/Poistot/internal/mq"
	"github.com/shaiso/Poistot/internal/repo"
	"github.com/shaiso/Poistot/internal/telemetry"
)

// ResultStore — хранение результатов tasks.
type ResultStore interface {
	AddResult(ctx context.Context, result domain.JobResult) (*domain.Job, error)
}

// Collector читает очередь результатов и сохраняет их в пакеты.
type Collector struct {
	conn    *mq.Connection
	queue   string
	store   ResultStore
	metrics *telemetry.Metrics
	logger  *slog.Logger

	// now — для тестов.
	now func() time.Time

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// CollectorConfig — конфигурация Collector.
type CollectorConfig struct {
	Conn    *mq.Connection
	Queue   string // default: task_result_queue
	Store   ResultStore
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// NewCollector создаёт новый Collector.
func NewCollector(cfg CollectorConfig) *Collector {
	queue := cfg.Queue
	if queue == "" {
		queue = mq.DefaultResultQueue
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Collector{
		conn:    cfg.Conn,
		queue:   queue,
		store:   cfg.Store,
		metrics: cfg.Metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Start запускает потребление результатов.
func (c *Collector) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	consumer := mq.NewConsumer(c.conn, c.logger, mq.ConsumerConfig{
		Queue:   c.queue,
		Handler: c.handleResult,
	})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("result consumer error", "error", err)
		}
	}()

	c.logger.Info("result collector started", "queue", c.queue)
	return nil
}

// Stop останавливает Collector.
func (c *Collector) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	c.logger.Info("result collector stopped")
}

// handleResult сохраняет один результат.
//
// Результаты без пакета, повторные и неразборчивые подтверждаются
// без сохранения. Ошибка БД возвращает сообщение в очередь.
func (c *Collector) handleResult(ctx context.Context, body []byte) error {
	var result domain.TaskResult
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("dropped invalid result", "error", err)
		return nil
	}

	logger := telemetry.WithTaskID(telemetry.WithJobID(c.logger, result.JobID), result.TaskID)

	jobID, err := uuid.Parse(result.JobID)
	if err != nil || result.TaskID == "" {
		logger.Warn("dropped result without job")
		return nil
	}

	job, err := c.store.AddResult(ctx, domain.JobResult{
		JobID:      jobID,
		TaskID:     result.TaskID,
		Result:     result,
		ReceivedAt: c.now(),
	})
	switch {
	case errors.Is(err, repo.ErrAlreadyExists):
		logger.Debug("duplicate result ignored")
		return nil
	case errors.Is(err, repo.ErrNotFound):
		logger.Warn("dropped result for unknown job")
		return nil
	case err != nil:
		return err
	}

	c.metrics.ObserveCollected(result.TaskFailed)

	logger.Info("result collected",
		"record_id", result.RecordID,
		"failed", result.TaskFailed,
		"completed", job.CompletedCount,
		"total", job.TaskCount,
	)
	if job.IsFinished() {
		logger.Info("job completed", "status", job.Status, "failed_tasks", job.FailedCount)
	}
	return nil
}
