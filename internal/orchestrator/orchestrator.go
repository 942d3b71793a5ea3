package orchestrator

import (
	"context"
	"log/slog"

	"github.com/shaiso/Poistot/internal/catalog"
	"github.com/shaiso/Poistot/internal/domain"
	"github.com/shaiso/Poistot/internal/marc"
	"github.com/shaiso/Poistot/internal/resolve"
	"github.com/shaiso/Poistot/internal/telemetry"
	"github.com/shaiso/Poistot/internal/transform"
)

// Default configuration values.
const (
	defaultHostNamespace = "(FI-MELINDA)"
	defaultProtected     = "ARTO"
)

// Resolver определяет ID записи и её компоненты.
type Resolver interface {
	Resolve(ctx context.Context, req resolve.Request) (string, error)
	FindComponentIDs(ctx context.Context, recordID string) ([]string, error)
}

// CatalogClient — API каталога от имени каталогизатора.
type CatalogClient interface {
	LoadRecord(ctx context.Context, id string, opts catalog.LoadOptions) (*marc.Record, error)
	UpdateRecord(ctx context.Context, record *marc.Record) (*domain.UpdateResponse, error)
}

// Transformer применяет именованную операцию к записи.
type Transformer interface {
	Transform(ctx context.Context, operation string, record *marc.Record, opts transform.Options) (transform.Result, error)
}

// BatchSubmitter создаёт пакет tasks.
type BatchSubmitter interface {
	Submit(ctx context.Context, req domain.JobRequest) (*domain.Job, error)
}

// Orchestrator выполняет одну task от начала до конца:
//
//	resolve → load → (fan out) → transform → update → (cleanup) → done
//
// Orchestrator не хранит состояние между tasks и не знает о очередях:
// это делает worker.
type Orchestrator struct {
	resolver    Resolver
	transformer Transformer
	submitter   BatchSubmitter

	hostNamespace string
	protected     []string

	logger *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	Resolver    Resolver
	Transformer Transformer

	// Submitter — создание пакетов компонентов (опционально).
	Submitter BatchSubmitter

	// HostNamespace — префикс ссылок 773 $w (default: "(FI-MELINDA)").
	HostNamespace string

	// ProtectedClasses — значения 960 $a, запрещающие удаление (default: ARTO).
	ProtectedClasses []string

	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	namespace := cfg.HostNamespace
	if namespace == "" {
		namespace = defaultHostNamespace
	}

	protected := cfg.ProtectedClasses
	if protected == nil {
		protected = []string{defaultProtected}
	}

	transformer := cfg.Transformer
	if transformer == nil {
		transformer = transform.DefaultRegistry()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		resolver:      cfg.Resolver,
		transformer:   transformer,
		submitter:     cfg.Submitter,
		hostNamespace: namespace,
		protected:     protected,
		logger:        logger,
	}
}

// Process обрабатывает task с клиентом каталога client.
//
// Успех — TaskResult с ответом последнего обновления (nil, если
// запись не обновлялась из-за разворота компонентов).
// Любая ошибка — *domain.RecordProcessingError с лучшей известной
// версией task: до определения ID это исходная task.
func (o *Orchestrator) Process(ctx context.Context, task domain.Task, client CatalogClient) (domain.TaskResult, error) {
	t := NewTaskTracker(task)
	logger := telemetry.WithTaskID(telemetry.WithJobID(o.logger, task.JobID), task.TaskID)

	if err := o.resolveStep(ctx, t); err != nil {
		return domain.TaskResult{}, t.Fail(err)
	}
	logger = telemetry.WithRecordID(logger, t.Task.RecordID.String())

	record, err := o.loadStep(ctx, t, client)
	if err != nil {
		return domain.TaskResult{}, t.Fail(err)
	}

	done, err := o.fanOutStep(ctx, t, record, logger)
	if err != nil {
		return domain.TaskResult{}, t.Fail(err)
	}
	if done {
		logger.Info("task done", "states", t.History())
		return domain.Succeeded(t.Task, nil), nil
	}

	result, err := o.transformStep(ctx, t, record)
	if err != nil {
		return domain.TaskResult{}, t.Fail(err)
	}

	resp, err := o.updateStep(ctx, t, record, result.Record, client, logger)
	if err != nil {
		return domain.TaskResult{}, t.Fail(err)
	}

	if t.Task.DeleteUnusedRecords {
		resp, err = o.cleanupStep(ctx, t, resp, client, logger)
		if err != nil {
			return domain.TaskResult{}, t.Fail(err)
		}
	}

	if err := t.Transition(domain.TaskStateDone); err != nil {
		return domain.TaskResult{}, t.Fail(err)
	}

	logger.Info("task done", "states", t.History())
	return domain.Succeeded(t.Task, resp), nil
}
