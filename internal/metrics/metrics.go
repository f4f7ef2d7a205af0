// Package metrics wraps a private Prometheus registry with the counters
// and histograms the event store, listener runtime, retry queue and Kafka
// bridge all share.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-wide registry and the engine's named metrics.
type Metrics struct {
	registry *prometheus.Registry

	AppendTotal      *prometheus.CounterVec
	AppendDuration   *prometheus.HistogramVec
	ConflictRetries  *prometheus.CounterVec
	ListenerLag      *prometheus.GaugeVec
	ListenerFailures *prometheus.CounterVec
	QueueClaimed     *prometheus.CounterVec
	QueueFailed      *prometheus.CounterVec
	QueueLatency     *prometheus.HistogramVec
	KafkaConsumed    *prometheus.CounterVec
	KafkaProduced    *prometheus.CounterVec
}

// New initializes a Metrics instance with the standard Go/process
// collectors plus the engine's own metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.AppendTotal = m.counterVec(prometheus.CounterOpts{
		Name: "cartd_eventstore_append_total",
		Help: "Conditional appends to the event log, by outcome.",
	}, []string{"outcome"})

	m.AppendDuration = m.histogramVec(prometheus.HistogramOpts{
		Name:    "cartd_eventstore_append_duration_seconds",
		Help:    "Latency of conditional appends.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	m.ConflictRetries = m.counterVec(prometheus.CounterOpts{
		Name: "cartd_decision_conflict_retries_total",
		Help: "Number of Conflict retries performed by the decision maker, by command type.",
	}, []string{"command"})

	m.ListenerLag = m.gaugeVec(prometheus.GaugeOpts{
		Name: "cartd_listener_checkpoint_lag",
		Help: "Difference between the event store head and a listener's last processed event id.",
	}, []string{"listener"})

	m.ListenerFailures = m.counterVec(prometheus.CounterOpts{
		Name: "cartd_listener_failures_total",
		Help: "Listener handler failures, by listener and error kind.",
	}, []string{"listener", "kind"})

	m.QueueClaimed = m.counterVec(prometheus.CounterOpts{
		Name: "cartd_queue_claimed_total",
		Help: "Tasks claimed from the retry queue, by task type.",
	}, []string{"task_type"})

	m.QueueFailed = m.counterVec(prometheus.CounterOpts{
		Name: "cartd_queue_failed_total",
		Help: "Tasks that exhausted their retries, by task type.",
	}, []string{"task_type"})

	m.QueueLatency = m.histogramVec(prometheus.HistogramOpts{
		Name:    "cartd_queue_task_duration_seconds",
		Help:    "Task handler execution latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task_type", "outcome"})

	m.KafkaConsumed = m.counterVec(prometheus.CounterOpts{
		Name: "cartd_kafka_consumed_total",
		Help: "Inbound Kafka messages processed, by topic and outcome.",
	}, []string{"topic", "outcome"})

	m.KafkaProduced = m.counterVec(prometheus.CounterOpts{
		Name: "cartd_kafka_produced_total",
		Help: "Outbound Kafka messages published, by topic and outcome.",
	}, []string{"topic", "outcome"})

	return m
}

func (m *Metrics) counterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labels)
	m.registry.MustRegister(cv)
	return cv
}

func (m *Metrics) gaugeVec(opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labels)
	m.registry.MustRegister(gv)
	return gv
}

func (m *Metrics) histogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labels)
	m.registry.MustRegister(hv)
	return hv
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts a standalone metrics HTTP server and returns a shutdown func.
func (m *Metrics) Serve(addr string) func(context.Context) error {
	srv := &http.Server{Addr: addr, Handler: m.Handler()}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return func(ctx context.Context) error {
		return srv.Shutdown(ctx)
	}
}
