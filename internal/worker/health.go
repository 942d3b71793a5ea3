package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Poistot/internal/domain"
	"github.com/shaiso/Poistot/internal/telemetry"
)

const defaultHealthRetryInterval = 10 * time.Second

// HealthChecker — одна проверка доступности каталога.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// Gate не пускает task в обработку, пока каталог недоступен.
type Gate struct {
	checker     HealthChecker
	interval    time.Duration
	maxAttempts int
	metrics     *telemetry.Metrics
	logger      *slog.Logger
}

// GateConfig — конфигурация Gate.
type GateConfig struct {
	Checker HealthChecker

	// RetryInterval — пауза между проверками (default: 10s).
	RetryInterval time.Duration

	// MaxAttempts — предел проверок; 0 — без предела.
	MaxAttempts int

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// NewGate создаёт Gate.
func NewGate(cfg GateConfig) *Gate {
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = defaultHealthRetryInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Gate{
		checker:     cfg.Checker,
		interval:    interval,
		maxAttempts: cfg.MaxAttempts,
		metrics:     cfg.Metrics,
		logger:      logger,
	}
}

// Interval возвращает паузу между проверками.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// AwaitHealthy возвращается, когда каталог ответил на проверку.
//
// Ошибки: ctx.Err() при отмене, domain.ErrUpstreamUnavailable,
// если исчерпан MaxAttempts.
func (g *Gate) AwaitHealthy(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		err := g.checker.Check(ctx)
		if err == nil {
			if attempt > 1 {
				g.logger.Info("catalog is healthy again", "attempts", attempt)
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		g.metrics.ObserveHealthFailure()

		if g.maxAttempts > 0 && attempt >= g.maxAttempts {
			return fmt.Errorf("%w: %d checks failed: %v", domain.ErrUpstreamUnavailable, attempt, err)
		}

		g.logger.Warn("catalog is not healthy, waiting",
			"wait", g.interval,
			"attempt", attempt,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.interval):
		}
	}
}
