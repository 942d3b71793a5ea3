package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Poistot/internal/domain"
	"github.com/shaiso/Poistot/internal/orchestrator"
	"github.com/shaiso/Poistot/internal/session"
	"github.com/shaiso/Poistot/internal/telemetry"
)

// --- Fakes ---

type processorFunc func(ctx context.Context, task domain.Task, client orchestrator.CatalogClient) (domain.TaskResult, error)

func (f processorFunc) Process(ctx context.Context, task domain.Task, client orchestrator.CatalogClient) (domain.TaskResult, error) {
	return f(ctx, task, client)
}

type fakePublisher struct {
	results []domain.TaskResult
	err     error
}

func (f *fakePublisher) PublishResult(_ context.Context, result domain.TaskResult) error {
	if f.err != nil {
		return f.err
	}
	f.results = append(f.results, result)
	return nil
}

type fakeSessions struct{}

func (fakeSessions) Read(token string) (session.Credentials, error) {
	if token != "valid" {
		return session.Credentials{}, session.ErrInvalidToken
	}
	return session.Credentials{Username: "cataloger", Password: "pw"}, nil
}

// fakeChecker проваливает первые failures проверок.
type fakeChecker struct {
	failures int32
	calls    atomic.Int32
}

func (f *fakeChecker) Check(_ context.Context) error {
	if f.calls.Add(1) <= f.failures {
		return errors.New("HTTP 503")
	}
	return nil
}

type testEnv struct {
	worker    *Worker
	publisher *fakePublisher
	checker   *fakeChecker
	metrics   *telemetry.Metrics
	processed []domain.Task
	gotUser   string
}

func newTestEnv(t *testing.T, process processorFunc) *testEnv {
	t.Helper()

	env := &testEnv{
		publisher: &fakePublisher{},
		checker:   &fakeChecker{},
		metrics:   telemetry.NewMetrics(prometheus.NewRegistry()),
	}

	if process == nil {
		process = func(_ context.Context, task domain.Task, _ orchestrator.CatalogClient) (domain.TaskResult, error) {
			task.RecordID = "3"
			return domain.Succeeded(task, &domain.UpdateResponse{RecordID: "3"}), nil
		}
	}

	env.worker = New(Config{
		Processor: processorFunc(func(ctx context.Context, task domain.Task, c orchestrator.CatalogClient) (domain.TaskResult, error) {
			env.processed = append(env.processed, task)
			return process(ctx, task, c)
		}),
		Publisher: env.publisher,
		Sessions:  fakeSessions{},
		NewClient: func(creds session.Credentials) orchestrator.CatalogClient {
			env.gotUser = creds.Username
			return nil
		},
		Health:              env.checker,
		HealthRetryInterval: time.Millisecond,
		MinTaskInterval:     time.Hour,
		SlowProcessingWait:  time.Minute,
		Metrics:             env.metrics,
	})

	return env
}

func taskBody(t *testing.T, token string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"jobId":         "job-1",
		"taskId":        "task-1",
		"recordIdHints": map[string]any{"localId": 3},
		"lowTag":        "test",
		"sessionToken":  token,
	})
	require.NoError(t, err)
	return body
}

// --- Pacer Tests ---

func TestComputeDelay(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    time.Duration
	}{
		{"fast task", 3000 * time.Millisecond, 7000 * time.Millisecond},
		{"exactly min interval", 10000 * time.Millisecond, 10000 * time.Millisecond},
		{"slow task", 25 * time.Second, 10 * time.Second},
		{"instant task", 0, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDelay(10*time.Second, 10*time.Second, tt.elapsed)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPacer_RecordAndWait(t *testing.T) {
	p := NewPacer(50*time.Millisecond, time.Hour)
	assert.Zero(t, p.Delay())
	require.NoError(t, p.Wait(context.Background()))

	delay := p.Record(30 * time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, delay)
	assert.Equal(t, delay, p.Delay())

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPacer_Postpone(t *testing.T) {
	p := NewPacer(10*time.Second, 10*time.Second)

	assert.Equal(t, 5*time.Second, p.Postpone(5*time.Second))

	p.Record(3 * time.Second)
	assert.Equal(t, 7*time.Second, p.Postpone(5*time.Second))
}

func TestPacer_WaitCancelled(t *testing.T) {
	p := NewPacer(time.Hour, time.Hour)
	p.Record(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)
}

// --- Gate Tests ---

func TestGate_RetriesUntilHealthy(t *testing.T) {
	checker := &fakeChecker{failures: 2}
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	gate := NewGate(GateConfig{Checker: checker, RetryInterval: time.Millisecond, Metrics: metrics})

	require.NoError(t, gate.AwaitHealthy(context.Background()))
	assert.Equal(t, int32(3), checker.calls.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.HealthCheckFailures))
}

func TestGate_MaxAttempts(t *testing.T) {
	checker := &fakeChecker{failures: 100}
	gate := NewGate(GateConfig{Checker: checker, RetryInterval: time.Millisecond, MaxAttempts: 3})

	err := gate.AwaitHealthy(context.Background())
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
	assert.Equal(t, int32(3), checker.calls.Load())
}

func TestGate_Cancelled(t *testing.T) {
	checker := &fakeChecker{failures: 1000}
	gate := NewGate(GateConfig{Checker: checker, RetryInterval: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, gate.AwaitHealthy(ctx), context.DeadlineExceeded)
}

// --- handleTask Tests ---

func TestHandleTask_Success(t *testing.T) {
	env := newTestEnv(t, nil)

	err := env.worker.handleTask(context.Background(), taskBody(t, "valid"))
	require.NoError(t, err)

	require.Len(t, env.publisher.results, 1)
	result := env.publisher.results[0]
	assert.False(t, result.TaskFailed)
	assert.Equal(t, domain.RecordID("3"), result.RecordID)
	assert.Equal(t, domain.RecordID("3"), env.processed[0].RecordIDHints.LocalID)
	assert.Equal(t, "cataloger", env.gotUser)

	// Обработка быстрее часа — следующая пауза почти час.
	assert.Greater(t, env.worker.pacer.Delay(), 59*time.Minute)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.TasksProcessed.WithLabelValues(telemetry.OutcomeSucceeded)))
}

func TestHandleTask_ProcessingFailurePublishesResult(t *testing.T) {
	env := newTestEnv(t, func(_ context.Context, task domain.Task, _ orchestrator.CatalogClient) (domain.TaskResult, error) {
		task.RecordID = "3"
		return domain.TaskResult{}, domain.NewRecordProcessingError("No changes in record. Record not updated.", task)
	})

	require.NoError(t, env.worker.handleTask(context.Background(), taskBody(t, "valid")))

	require.Len(t, env.publisher.results, 1)
	result := env.publisher.results[0]
	assert.True(t, result.TaskFailed)
	assert.Equal(t, "No changes in record. Record not updated.", result.FailureReason)
	assert.Equal(t, domain.RecordID("3"), result.RecordID)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.TasksProcessed.WithLabelValues(telemetry.OutcomeFailed)))
}

func TestHandleTask_PlainErrorUsesOriginalTask(t *testing.T) {
	env := newTestEnv(t, func(context.Context, domain.Task, orchestrator.CatalogClient) (domain.TaskResult, error) {
		return domain.TaskResult{}, errors.New("fake-error-message")
	})

	require.NoError(t, env.worker.handleTask(context.Background(), taskBody(t, "valid")))

	result := env.publisher.results[0]
	assert.True(t, result.TaskFailed)
	assert.Equal(t, "fake-error-message", result.FailureReason)
	assert.Empty(t, result.RecordID)
	assert.Equal(t, "task-1", result.TaskID)
}

func TestHandleTask_InvalidJSONIsDropped(t *testing.T) {
	env := newTestEnv(t, nil)

	require.NoError(t, env.worker.handleTask(context.Background(), []byte("{not json")))

	assert.Empty(t, env.processed)
	assert.Empty(t, env.publisher.results)
	assert.Zero(t, env.worker.pacer.Delay())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.TasksDropped.WithLabelValues(telemetry.DropReasonParse)))
}

func TestHandleTask_InvalidSessionIsDropped(t *testing.T) {
	env := newTestEnv(t, nil)

	require.NoError(t, env.worker.handleTask(context.Background(), taskBody(t, "forged")))

	assert.Empty(t, env.processed)
	assert.Empty(t, env.publisher.results)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.TasksDropped.WithLabelValues(telemetry.DropReasonSession)))
}

func TestHandleTask_WaitsForHealthyCatalog(t *testing.T) {
	env := newTestEnv(t, nil)
	env.checker.failures = 2

	require.NoError(t, env.worker.handleTask(context.Background(), taskBody(t, "valid")))

	assert.Equal(t, int32(3), env.checker.calls.Load())
	assert.Len(t, env.publisher.results, 1)
}

func TestHandleTask_UnavailableCatalogRequeues(t *testing.T) {
	env := newTestEnv(t, nil)
	env.checker.failures = 100
	env.worker.gate.maxAttempts = 2

	err := env.worker.handleTask(context.Background(), taskBody(t, "valid"))

	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Empty(t, env.processed)
	assert.Empty(t, env.publisher.results)

	// Повторная доставка ждёт хотя бы один интервал проверки.
	assert.Equal(t, time.Millisecond, env.worker.pacer.Delay())
}

func TestHandleTask_PublishFailureRequeues(t *testing.T) {
	env := newTestEnv(t, nil)
	env.publisher.err = errors.New("channel closed")

	err := env.worker.handleTask(context.Background(), taskBody(t, "valid"))
	assert.ErrorIs(t, err, ErrPublishResult)
}

func TestHandleTask_CancelledDuringProcessing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	env := newTestEnv(t, func(ctx context.Context, _ domain.Task, _ orchestrator.CatalogClient) (domain.TaskResult, error) {
		cancel()
		return domain.TaskResult{}, ctx.Err()
	})

	err := env.worker.handleTask(ctx, taskBody(t, "valid"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, env.publisher.results)
}

func TestHandleTask_WaitsForPacer(t *testing.T) {
	env := newTestEnv(t, nil)
	env.worker.pacer.Record(-time.Hour) // пауза 2 часа

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := env.worker.handleTask(ctx, taskBody(t, "valid"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, env.processed)
}
