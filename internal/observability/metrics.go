package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	tripsCreatedTotal *prometheus.CounterVec
	chatTurnsTotal    *prometheus.CounterVec

	modelCallTotal    *prometheus.CounterVec
	modelCallDuration *prometheus.HistogramVec
	modelRetriesTotal *prometheus.CounterVec

	storeOpDuration *prometheus.HistogramVec

	activeCoordinators prometheus.Gauge
	hydrationsTotal    prometheus.Counter
	evictionsTotal     prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			tripsCreatedTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "trips_created_total",
					Help: "Total trips created by final status.",
				},
				[]string{"status"},
			),
			chatTurnsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "chat_turns_total",
					Help: "Total transcript turns appended by role and status.",
				},
				[]string{"role", "status"},
			),
			modelCallTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "model_calls_total",
					Help: "Total model calls by operation and status.",
				},
				[]string{"op", "status"},
			),
			modelCallDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "model_call_duration_seconds",
					Help:    "Model call duration in seconds by operation.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"op"},
			),
			modelRetriesTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "model_retries_total",
					Help: "Total model call retries by operation.",
				},
				[]string{"op"},
			),
			storeOpDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "store_op_duration_seconds",
					Help:    "Trip store operation duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"op"},
			),
			activeCoordinators: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "active_coordinators",
					Help: "Current live coordinator count.",
				},
			),
			hydrationsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "coordinator_hydrations_total",
					Help: "Total coordinator hydrations from the trip store.",
				},
			),
			evictionsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "coordinator_evictions_total",
					Help: "Total idle coordinator evictions.",
				},
			),
		}

		prometheus.MustRegister(
			m.tripsCreatedTotal,
			m.chatTurnsTotal,
			m.modelCallTotal,
			m.modelCallDuration,
			m.modelRetriesTotal,
			m.storeOpDuration,
			m.activeCoordinators,
			m.hydrationsTotal,
			m.evictionsTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordTripCreated(status string) {
	getMetrics().tripsCreatedTotal.WithLabelValues(status).Inc()
}

func RecordChatTurn(role string, success bool) {
	status := "error"
	if success {
		status = "success"
	}
	getMetrics().chatTurnsTotal.WithLabelValues(role, status).Inc()
}

func RecordModelCall(op string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.modelCallTotal.WithLabelValues(op, status).Inc()
	m.modelCallDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func RecordModelRetry(op string) {
	getMetrics().modelRetriesTotal.WithLabelValues(op).Inc()
}

func RecordStoreOp(op string, duration time.Duration) {
	getMetrics().storeOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func SetActiveCoordinators(count int) {
	getMetrics().activeCoordinators.Set(float64(count))
}

func RecordHydration() {
	getMetrics().hydrationsTotal.Inc()
}

func RecordEviction() {
	getMetrics().evictionsTotal.Inc()
}
