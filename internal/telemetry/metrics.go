package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы обработки task (label outcome).
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Причины отброшенных сообщений (label reason).
const (
	DropReasonParse   = "parse"
	DropReasonSession = "session"
)

// Metrics — метрики worker'а.
//
// Нулевой *Metrics допустим: все методы ничего не делают.
type Metrics struct {
	TasksProcessed      *prometheus.CounterVec
	TaskDuration        prometheus.Histogram
	HealthCheckFailures prometheus.Counter
	PacerDelay          prometheus.Gauge
	TasksDropped        *prometheus.CounterVec
	ResultsCollected    *prometheus.CounterVec
}

// NewMetrics создаёт и регистрирует метрики в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poistot_tasks_processed_total",
			Help: "Tasks processed by the worker, by outcome.",
		}, []string{"outcome"}),
		TaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "poistot_task_duration_seconds",
			Help:    "Time spent processing one task.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		HealthCheckFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poistot_health_check_failures_total",
			Help: "Failed upstream catalog health checks.",
		}),
		PacerDelay: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "poistot_pacer_delay_seconds",
			Help: "Delay applied before the next task.",
		}),
		TasksDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poistot_tasks_dropped_total",
			Help: "Deliveries acknowledged without a result, by reason.",
		}, []string{"reason"}),
		ResultsCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poistot_results_collected_total",
			Help: "Task results stored by the collector, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.TasksProcessed,
		m.TaskDuration,
		m.HealthCheckFailures,
		m.PacerDelay,
		m.TasksDropped,
		m.ResultsCollected,
	)

	return m
}

// ObserveTask учитывает обработанную task.
func (m *Metrics) ObserveTask(failed bool, d time.Duration) {
	if m == nil {
		return
	}
	m.TasksProcessed.WithLabelValues(outcome(failed)).Inc()
	m.TaskDuration.Observe(d.Seconds())
}

// ObserveHealthFailure учитывает неудачную проверку здоровья.
func (m *Metrics) ObserveHealthFailure() {
	if m == nil {
		return
	}
	m.HealthCheckFailures.Inc()
}

// SetPacerDelay запоминает текущую паузу.
func (m *Metrics) SetPacerDelay(d time.Duration) {
	if m == nil {
		return
	}
	m.PacerDelay.Set(d.Seconds())
}

// ObserveDropped учитывает отброшенное сообщение.
func (m *Metrics) ObserveDropped(reason string) {
	if m == nil {
		return
	}
	m.TasksDropped.WithLabelValues(reason).Inc()
}

// ObserveCollected учитывает сохранённый результат.
func (m *Metrics) ObserveCollected(failed bool) {
	if m == nil {
		return
	}
	m.ResultsCollected.WithLabelValues(outcome(failed)).Inc()
}

func outcome(failed bool) string {
	if failed {
		return OutcomeFailed
	}
	return OutcomeSucceeded
}
