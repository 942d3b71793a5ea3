package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Poistot/internal/catalog"
	"github.com/shaiso/Poistot/internal/domain"
	"github.com/shaiso/Poistot/internal/marc"
	"github.com/shaiso/Poistot/internal/resolve"
	"github.com/shaiso/Poistot/internal/transform"
)

// resolveStep: RECEIVED → RESOLVING.
// Определяет ID записи и, если нужно, список компонентов.
func (o *Orchestrator) resolveStep(ctx context.Context, t *TaskTracker) error {
	if err := t.Transition(domain.TaskStateResolving); err != nil {
		return err
	}

	hints := t.Task.RecordIDHints
	id, err := o.resolver.Resolve(ctx, resolve.Request{
		CatalogID:  hints.CatalogID.String(),
		LocalID:    hints.LocalID.String(),
		LibraryTag: t.Task.LowTag,
		Links:      resolve.NormalizeLinks(hints.Links),
	})
	if err != nil {
		return err
	}

	// С этого момента ошибки несут task с определённым ID.
	resolved := t.Task.Clone()
	resolved.RecordID = domain.RecordID(id)

	if resolved.HandleComponents {
		components, err := o.resolver.FindComponentIDs(ctx, id)
		if err != nil {
			t.Task = resolved
			return err
		}
		resolved.ComponentList = components
		resolved.Report = []string{}
	} else {
		resolved.Report = []string{ReportComponentsNotHandled}
	}

	t.Task = resolved
	return nil
}

// loadStep: RESOLVING → LOADED.
func (o *Orchestrator) loadStep(ctx context.Context, t *TaskTracker, client CatalogClient) (*marc.Record, error) {
	if err := t.Transition(domain.TaskStateLoaded); err != nil {
		return nil, err
	}

	record, err := client.LoadRecord(ctx, t.Task.RecordID.String(), catalog.LoadOptions{HandleDeleted: true})
	if err != nil {
		return nil, err
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// fanOutStep: LOADED → FAN_OUT (если запись — компонент или у неё есть компоненты).
//
// Возвращает true, если task завершена созданием пакета компонентов.
func (o *Orchestrator) fanOutStep(ctx context.Context, t *TaskTracker, record *marc.Record, logger *slog.Logger) (bool, error) {
	if record.HasHostLink() {
		if err := t.Transition(domain.TaskStateFanOut); err != nil {
			return false, err
		}

		t.Task.AddReport(ReportComponentRecord)
		t.Task.Hosts = record.HostLinks(o.hostNamespace)

		if len(t.Task.Hosts) > 1 {
			return false, domain.NewRecordProcessingError(MsgSeveralHostLinks, t.Task)
		}
	}

	if len(t.Task.ComponentList) == 0 {
		return false, nil
	}

	if t.Current() != domain.TaskStateFanOut {
		if err := t.Transition(domain.TaskStateFanOut); err != nil {
			return false, err
		}
	}

	if o.submitter == nil {
		return false, ErrNoSubmitter
	}

	req := componentBatch(t.Task)
	job, err := o.submitter.Submit(ctx, req)
	if err != nil {
		return false, fmt.Errorf("create component job: %w", err)
	}

	t.Task.AddReport(fmt.Sprintf("Created new job %s for %d component records.", job.ID, len(req.Records)))
	logger.Info("created job for component records", "component_job_id", job.ID, "components", len(req.Records))

	if err := t.Transition(domain.TaskStateDone); err != nil {
		return false, err
	}
	return true, nil
}

// componentBatch строит пакет: по одной task на компонент.
func componentBatch(task domain.Task) domain.JobRequest {
	records := make([]domain.RecordIDHints, 0, len(task.ComponentList))
	for _, id := range task.ComponentList {
		records = append(records, domain.RecordIDHints{CatalogID: domain.RecordID(id)})
	}

	return domain.JobRequest{
		Records:             records,
		LowTag:              task.LowTag,
		DeleteUnusedRecords: task.DeleteUnusedRecords,
		ReplicateRecords:    task.ReplicateRecords,
		SessionToken:        task.SessionToken,
		ParentJobID:         task.JobID,
		HostIDs:             []string{task.RecordID.String()},
	}
}

// transformStep: LOADED|FAN_OUT → TRANSFORMED.
func (o *Orchestrator) transformStep(ctx context.Context, t *TaskTracker, record *marc.Record) (transform.Result, error) {
	if err := t.Transition(domain.TaskStateTransformed); err != nil {
		return transform.Result{}, err
	}

	result, err := o.transformer.Transform(ctx, transform.OpRemoveLocalReference, record, transform.Options{
		DeleteUnusedRecords: t.Task.DeleteUnusedRecords,
		SkipLocalIDCheck:    t.Task.SkipLocalIDCheck(),
		LibraryTag:          t.Task.LowTag,
		ExpectedLocalID:     t.Task.RecordIDHints.LocalID.String(),
		BypassTagRemoval:    t.Task.BypassTagRemoval,
	})
	if err != nil {
		return transform.Result{}, err
	}

	t.Task.AddReport(result.Report...)
	return result, nil
}

// updateStep: TRANSFORMED → UPDATED.
//
// Неизменённая запись не сохраняется, если удаление ничьих
// записей не запрошено.
func (o *Orchestrator) updateStep(ctx context.Context, t *TaskTracker, original, updated *marc.Record, client CatalogClient, logger *slog.Logger) (*domain.UpdateResponse, error) {
	if err := t.Transition(domain.TaskStateUpdated); err != nil {
		return nil, err
	}

	if updated.String() == original.String() && !t.Task.DeleteUnusedRecords {
		return nil, domain.NewRecordProcessingError(MsgNoChanges, t.Task)
	}

	logger.Info("updating record")
	resp, err := client.UpdateRecord(ctx, updated)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// cleanupStep: UPDATED → CLEANUP_CHECK.
//
// Запись, оставшаяся без LOW и без защищённой пометки, удаляется.
func (o *Orchestrator) cleanupStep(ctx context.Context, t *TaskTracker, resp *domain.UpdateResponse, client CatalogClient, logger *slog.Logger) (*domain.UpdateResponse, error) {
	if err := t.Transition(domain.TaskStateCleanupCheck); err != nil {
		return nil, err
	}

	id := t.Task.RecordID.String()
	if resp != nil && resp.RecordID != "" {
		id = resp.RecordID.String()
	}

	record, err := client.LoadRecord(ctx, id, catalog.LoadOptions{HandleDeleted: true})
	if err != nil {
		return nil, err
	}

	if !record.IsUnused() || record.HasClassification(o.protected...) {
		return resp, nil
	}

	logger.Info("deleting unused record")
	record.MarkDeleted()

	deleted, err := client.UpdateRecord(ctx, record)
	if err != nil {
		return nil, err
	}

	t.Task.AddReport(ReportRecordDeleted)
	return deleted, nil
}
