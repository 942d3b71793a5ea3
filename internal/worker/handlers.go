package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shaiso/Poistot/internal/domain"
	"github.com/shaiso/Poistot/internal/telemetry"
)

// handleTask обрабатывает одно сообщение из очереди tasks.
//
// nil — сообщение подтверждается: результат опубликован либо
// сообщение отброшено как некорректное. Ошибка — сообщение
// возвращается в очередь (отмена, каталог недоступен, не удалась публикация).
func (w *Worker) handleTask(ctx context.Context, body []byte) error {
	w.logger.Debug("waiting before task", "delay", w.pacer.Delay())
	if err := w.pacer.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()

	task, err := parseTask(body)
	if err != nil {
		w.logger.Error("dropped invalid task", "error", err)
		w.metrics.ObserveDropped(telemetry.DropReasonParse)
		return nil
	}

	logger := telemetry.WithTaskID(telemetry.WithJobID(w.logger, task.JobID), task.TaskID)
	logger.Info("received task", "low_tag", task.LowTag, "hints", task.RecordIDHints)

	creds, err := w.sessions.Read(task.SessionToken)
	if err != nil {
		logger.Error("dropped invalid task", "error", fmt.Errorf("%w: %v", ErrInvalidSession, err))
		w.metrics.ObserveDropped(telemetry.DropReasonSession)
		return nil
	}

	if err := w.gate.AwaitHealthy(ctx); err != nil {
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			// Следующая доставка ждёт не меньше интервала проверки.
			delay := w.pacer.Postpone(w.gate.Interval())
			w.metrics.SetPacerDelay(delay)
			logger.Warn("catalog unavailable, task requeued", "next_delay", delay, "error", err)
		}
		return err
	}

	result, err := w.processor.Process(ctx, task, w.newClient(creds))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result = failedResult(task, err)
		logger.Info("processing failed",
			"kind", domain.KindOf(err),
			"reason", result.FailureReason,
		)
	}

	elapsed := time.Since(start)
	delay := w.pacer.Record(elapsed)
	w.metrics.ObserveTask(result.TaskFailed, elapsed)
	w.metrics.SetPacerDelay(delay)

	if err := w.publisher.PublishResult(ctx, result); err != nil {
		return fmt.Errorf("%w: %v", ErrPublishResult, err)
	}

	logger.Info("task processed",
		"record_id", result.RecordID,
		"failed", result.TaskFailed,
		"duration", elapsed,
		"next_delay", delay,
	)
	return nil
}

// parseTask разбирает тело сообщения.
func parseTask(body []byte) (domain.Task, error) {
	var task domain.Task
	if err := json.Unmarshal(body, &task); err != nil {
		return domain.Task{}, fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	if task.Report == nil {
		task.Report = []string{}
	}
	return task, nil
}

// failedResult строит результат с ошибкой.
// Task берётся из ошибки, если там есть более полная версия.
func failedResult(task domain.Task, err error) domain.TaskResult {
	var rpe *domain.RecordProcessingError
	if errors.As(err, &rpe) {
		return domain.Failed(rpe.Task, rpe.Message)
	}
	return domain.Failed(task, err.Error())
}
