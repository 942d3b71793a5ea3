package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Poistot/internal/domain"
	"github.com/shaiso/Poistot/internal/mq"
	"github.com/shaiso/Poistot/internal/orchestrator"
	"github.com/shaiso/Poistot/internal/session"
	"github.com/shaiso/Poistot/internal/telemetry"
)

// Default configuration values.
const (
	defaultMinTaskInterval    = 10 * time.Second
	defaultSlowProcessingWait = 10 * time.Second
	defaultPrefetch           = 1
)

// TaskProcessor выполняет task с клиентом каталога каталогизатора.
type TaskProcessor interface {
	Process(ctx context.Context, task domain.Task, client orchestrator.CatalogClient) (domain.TaskResult, error)
}

// ResultPublisher публикует результат task.
type ResultPublisher interface {
	PublishResult(ctx context.Context, result domain.TaskResult) error
}

// SessionReader расшифровывает токен сессии.
type SessionReader interface {
	Read(token string) (session.Credentials, error)
}

// ClientFactory создаёт клиент каталога с учётными данными.
type ClientFactory func(creds session.Credentials) orchestrator.CatalogClient

// Worker обрабатывает tasks из очереди по одной.
//
// Для каждого сообщения:
//
//	пауза → разбор → сессия → проверка здоровья → обработка → результат → ack
//
// Prefetch 1 делает обработку последовательной внутри процесса;
// масштабирование — запуском нескольких процессов.
type Worker struct {
	conn     *mq.Connection
	queue    string
	prefetch int

	processor TaskProcessor
	publisher ResultPublisher
	sessions  SessionReader
	newClient ClientFactory

	pacer *Pacer
	gate  *Gate

	metrics *telemetry.Metrics
	logger  *slog.Logger

	consumer   *mq.Consumer
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Worker.
type Config struct {
	// MQ
	Conn     *mq.Connection
	Queue    string // очередь tasks (default: task_queue)
	Prefetch int    // default: 1

	// Обработка
	Processor TaskProcessor
	Publisher ResultPublisher
	Sessions  SessionReader
	NewClient ClientFactory

	// Health gate
	Health              HealthChecker
	HealthRetryInterval time.Duration // default: 10s
	HealthMaxAttempts   int           // 0 — без предела

	// Темп
	MinTaskInterval    time.Duration // default: 10s
	SlowProcessingWait time.Duration // default: 10s

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	queue := cfg.Queue
	if queue == "" {
		queue = mq.DefaultTaskQueue
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	minInterval := cfg.MinTaskInterval
	if minInterval <= 0 {
		minInterval = defaultMinTaskInterval
	}

	fallback := cfg.SlowProcessingWait
	if fallback <= 0 {
		fallback = defaultSlowProcessingWait
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		conn:      cfg.Conn,
		queue:     queue,
		prefetch:  prefetch,
		processor: cfg.Processor,
		publisher: cfg.Publisher,
		sessions:  cfg.Sessions,
		newClient: cfg.NewClient,
		pacer:     NewPacer(minInterval, fallback),
		gate: NewGate(GateConfig{
			Checker:       cfg.Health,
			RetryInterval: cfg.HealthRetryInterval,
			MaxAttempts:   cfg.HealthMaxAttempts,
			Metrics:       cfg.Metrics,
			Logger:        logger,
		}),
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// Start запускает потребление tasks.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:    w.queue,
		Handler:  w.handleTask,
		Prefetch: w.prefetch,
	})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("task consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started",
		"queue", w.queue,
		"prefetch", w.prefetch,
		"min_task_interval", w.pacer.minInterval,
	)
	return nil
}

// Stop останавливает Worker и ждёт завершения текущей task.
// Неподтверждённое сообщение брокер доставит повторно.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()

	w.logger.Info("worker stopped")
}
