package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Poistot/internal/domain"
	"github.com/shaiso/Poistot/internal/repo"
	"github.com/shaiso/Poistot/internal/telemetry"
)

// --- Fakes ---

type fakeStore struct {
	jobs      map[uuid.UUID]*domain.Job
	results   []domain.JobResult
	createErr error
	resultErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[uuid.UUID]*domain.Job)}
}

func (f *fakeStore) Create(_ context.Context, job *domain.Job) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return job, nil
}

func (f *fakeStore) Abort(_ context.Context, id uuid.UUID, enqueued int) (*domain.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	job.Abort(enqueued, time.Now())
	return job, nil
}

func (f *fakeStore) AddResult(_ context.Context, result domain.JobResult) (*domain.Job, error) {
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	job, ok := f.jobs[result.JobID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	for _, r := range f.results {
		if r.JobID == result.JobID && r.TaskID == result.TaskID {
			return nil, repo.ErrAlreadyExists
		}
	}
	f.results = append(f.results, result)

	job.CompletedCount++
	if result.Result.TaskFailed {
		job.FailedCount++
	}
	if job.IsFinished() {
		if job.Status == domain.JobStatusInProgress {
			job.Status = domain.JobStatusCompleted
		}
		job.CompletedAt = &result.ReceivedAt
	}
	return job, nil
}

type fakePublisher struct {
	tasks   []domain.Task
	failAt  int
	failErr error
}

func (f *fakePublisher) PublishTask(_ context.Context, task domain.Task) error {
	if f.failErr != nil && len(f.tasks) == f.failAt {
		return f.failErr
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func twoRecords() []domain.RecordIDHints {
	return []domain.RecordIDHints{
		{CatalogID: "1"},
		{LocalID: "555", Links: []string{"FCC000000002"}},
	}
}

// --- Submitter Tests ---

func TestSubmit_CreatesJobAndPublishesTasks(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	s := NewSubmitter(SubmitterConfig{Store: store, Publisher: pub})

	job, err := s.Submit(context.Background(), domain.JobRequest{
		Records:             twoRecords(),
		LowTag:              " test ",
		DeleteUnusedRecords: true,
		SessionToken:        "token",
		Submitter:           "cataloger",
	})
	require.NoError(t, err)

	assert.Equal(t, "TEST", job.LowTag)
	assert.Equal(t, 2, job.TaskCount)
	assert.Equal(t, domain.JobStatusInProgress, job.Status)
	assert.Contains(t, store.jobs, job.ID)

	require.Len(t, pub.tasks, 2)
	for i, task := range pub.tasks {
		assert.Equal(t, job.ID.String(), task.JobID)
		assert.NotEmpty(t, task.TaskID)
		assert.Equal(t, "TEST", task.LowTag)
		assert.True(t, task.DeleteUnusedRecords)
		assert.Equal(t, "token", task.SessionToken)
		assert.Equal(t, twoRecords()[i], task.RecordIDHints)
		assert.NotNil(t, task.Report)
	}
	assert.NotEqual(t, pub.tasks[0].TaskID, pub.tasks[1].TaskID)
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.JobRequest
		wantErr error
	}{
		{"no records", domain.JobRequest{LowTag: "TEST"}, ErrNoRecords},
		{"no tag", domain.JobRequest{Records: twoRecords(), LowTag: "  "}, ErrMissingLowTag},
		{"empty hints", domain.JobRequest{Records: []domain.RecordIDHints{{CatalogID: "1"}, {}}, LowTag: "TEST"}, ErrEmptyHints},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			pub := &fakePublisher{}
			s := NewSubmitter(SubmitterConfig{Store: store, Publisher: pub})

			_, err := s.Submit(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))
			assert.Empty(t, store.jobs)
			assert.Empty(t, pub.tasks)
		})
	}
}

func TestSubmit_ComponentJobInheritsSubmitter(t *testing.T) {
	store := newFakeStore()
	parent := domain.NewJob(domain.JobRequest{Records: twoRecords(), LowTag: "TEST", Submitter: "cataloger"})
	store.jobs[parent.ID] = parent

	pub := &fakePublisher{}
	s := NewSubmitter(SubmitterConfig{Store: store, Publisher: pub})

	job, err := s.Submit(context.Background(), domain.JobRequest{
		Records:     []domain.RecordIDHints{{CatalogID: "100"}, {CatalogID: "101"}},
		LowTag:      "TEST",
		ParentJobID: parent.ID.String(),
		HostIDs:     []string{"77"},
	})
	require.NoError(t, err)

	assert.Equal(t, "cataloger", job.Submitter)
	require.NotNil(t, job.ParentJobID)
	assert.Equal(t, parent.ID, *job.ParentJobID)
	assert.Equal(t, []string{"77"}, pub.tasks[0].HostInfo)
}

func TestSubmit_UnknownParentIsIgnored(t *testing.T) {
	store := newFakeStore()
	s := NewSubmitter(SubmitterConfig{Store: store, Publisher: &fakePublisher{}})

	job, err := s.Submit(context.Background(), domain.JobRequest{
		Records:     []domain.RecordIDHints{{CatalogID: "100"}},
		LowTag:      "TEST",
		ParentJobID: uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Nil(t, job.ParentJobID)
}

func TestSubmit_StoreError(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("connection refused")
	pub := &fakePublisher{}
	s := NewSubmitter(SubmitterConfig{Store: store, Publisher: pub})

	_, err := s.Submit(context.Background(), domain.JobRequest{Records: twoRecords(), LowTag: "TEST"})
	assert.ErrorIs(t, err, store.createErr)
	assert.False(t, IsValidationError(err))
	assert.Empty(t, pub.tasks)
}

func TestSubmit_PublishError(t *testing.T) {
	pub := &fakePublisher{failAt: 1, failErr: errors.New("channel closed")}
	store := newFakeStore()
	s := NewSubmitter(SubmitterConfig{Store: store, Publisher: pub})

	_, err := s.Submit(context.Background(), domain.JobRequest{Records: twoRecords(), LowTag: "TEST"})
	assert.ErrorIs(t, err, pub.failErr)
	require.Len(t, pub.tasks, 1)

	// Пакет урезан до опубликованных tasks и завершается по их результатам.
	require.Len(t, store.jobs, 1)
	var job *domain.Job
	for _, j := range store.jobs {
		job = j
	}
	assert.Equal(t, domain.JobStatusAborted, job.Status)
	assert.Equal(t, 1, job.TaskCount)
	assert.Nil(t, job.CompletedAt)

	c, _ := newTestCollector(store)
	require.NoError(t, c.handleResult(context.Background(), resultBody(t, domain.Failed(pub.tasks[0], "Resolved into 0 records."))))

	assert.Equal(t, domain.JobStatusAborted, job.Status)
	assert.Equal(t, 1, job.CompletedCount)
	assert.NotNil(t, job.CompletedAt)
}

func TestSubmit_PublishErrorOnFirstTask(t *testing.T) {
	pub := &fakePublisher{failAt: 0, failErr: errors.New("channel closed")}
	store := newFakeStore()
	s := NewSubmitter(SubmitterConfig{Store: store, Publisher: pub})

	_, err := s.Submit(context.Background(), domain.JobRequest{Records: twoRecords(), LowTag: "TEST"})
	assert.ErrorIs(t, err, pub.failErr)

	for _, job := range store.jobs {
		assert.Equal(t, domain.JobStatusAborted, job.Status)
		assert.Equal(t, 0, job.TaskCount)
		assert.NotNil(t, job.CompletedAt)
	}
}

// --- Collector Tests ---

func newTestCollector(store ResultStore) (*Collector, *telemetry.Metrics) {
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	c := NewCollector(CollectorConfig{Store: store, Metrics: metrics})
	c.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c, metrics
}

func resultBody(t *testing.T, result domain.TaskResult) []byte {
	t.Helper()
	body, err := json.Marshal(result)
	require.NoError(t, err)
	return body
}

func TestCollector_CompletesJob(t *testing.T) {
	store := newFakeStore()
	job := domain.NewJob(domain.JobRequest{Records: twoRecords(), LowTag: "TEST"})
	store.jobs[job.ID] = job
	tasks := job.Tasks(domain.JobRequest{Records: twoRecords(), LowTag: "TEST"})

	c, metrics := newTestCollector(store)

	ok := domain.Succeeded(tasks[0], &domain.UpdateResponse{RecordID: "1"})
	require.NoError(t, c.handleResult(context.Background(), resultBody(t, ok)))
	assert.Equal(t, domain.JobStatusInProgress, job.Status)

	failed := domain.Failed(tasks[1], "Resolved into 0 records.")
	require.NoError(t, c.handleResult(context.Background(), resultBody(t, failed)))

	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.CompletedCount)
	assert.Equal(t, 1, job.FailedCount)
	require.Len(t, store.results, 2)
	assert.Equal(t, "Resolved into 0 records.", store.results[1].Result.FailureReason)
	assert.Equal(t, c.now(), store.results[1].ReceivedAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ResultsCollected.WithLabelValues(telemetry.OutcomeSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ResultsCollected.WithLabelValues(telemetry.OutcomeFailed)))
}

func TestCollector_DuplicateResultIsAcked(t *testing.T) {
	store := newFakeStore()
	job := domain.NewJob(domain.JobRequest{Records: twoRecords(), LowTag: "TEST"})
	store.jobs[job.ID] = job
	task := job.Tasks(domain.JobRequest{Records: twoRecords(), LowTag: "TEST"})[0]

	c, _ := newTestCollector(store)
	body := resultBody(t, domain.Succeeded(task, nil))

	require.NoError(t, c.handleResult(context.Background(), body))
	require.NoError(t, c.handleResult(context.Background(), body))

	assert.Equal(t, 1, job.CompletedCount)
}

func TestCollector_DropsUnusableResults(t *testing.T) {
	store := newFakeStore()
	c, _ := newTestCollector(store)

	require.NoError(t, c.handleResult(context.Background(), []byte("not json")))
	require.NoError(t, c.handleResult(context.Background(), resultBody(t, domain.Failed(domain.Task{JobID: "legacy"}, "x"))))
	require.NoError(t, c.handleResult(context.Background(), resultBody(t, domain.Failed(domain.Task{JobID: uuid.NewString(), TaskID: "t"}, "x"))))

	assert.Empty(t, store.results)
}

func TestCollector_StoreErrorRequeues(t *testing.T) {
	store := newFakeStore()
	store.resultErr = errors.New("connection refused")
	c, _ := newTestCollector(store)

	task := domain.Task{JobID: uuid.NewString(), TaskID: "t", Report: []string{}}
	err := c.handleResult(context.Background(), resultBody(t, domain.Succeeded(task, nil)))
	assert.ErrorIs(t, err, store.resultErr)
}
