package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	PipelineRuns      prometheus.Counter
	PipelineFailures  prometheus.Counter
	PipelineDuration  prometheus.Histogram
	MessagesFetched   prometheus.Counter
	MessageOutcomes   *prometheus.CounterVec
	InferenceCalls    *prometheus.CounterVec
	InferenceDuration *prometheus.HistogramVec
	Deliveries        *prometheus.CounterVec
	Notifications     *prometheus.CounterVec
}

// NewMetrics registers the metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PipelineRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "rfp_relay_pipeline_runs_total",
			Help: "Total number of inbox reconciliation runs",
		}),
		PipelineFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "rfp_relay_pipeline_failures_total",
			Help: "Total number of runs aborted before processing messages",
		}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rfp_relay_pipeline_duration_seconds",
			Help:    "Time spent in one reconciliation run",
			Buckets: prometheus.DefBuckets,
		}),
		MessagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "rfp_relay_messages_fetched_total",
			Help: "Total number of candidate messages fetched from the mailbox",
		}),
		MessageOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rfp_relay_message_outcomes_total",
			Help: "Inbound messages by terminal outcome",
		}, []string{"outcome"}),
		InferenceCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rfp_relay_inference_calls_total",
			Help: "Language model calls by operation and result",
		}, []string{"op", "result"}),
		InferenceDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rfp_relay_inference_duration_seconds",
			Help:    "Language model call latency",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"op"}),
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rfp_relay_deliveries_total",
			Help: "Outbound invitation emails by result",
		}, []string{"result"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rfp_relay_notifications_total",
			Help: "Proposal notifications by channel and result",
		}, []string{"channel", "result"}),
	}
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// ObserveInference records one model call
func (m *Metrics) ObserveInference(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.InferenceCalls.WithLabelValues(op, result(err)).Inc()
	m.InferenceDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveDelivery records one outbound email
func (m *Metrics) ObserveDelivery(err error) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(result(err)).Inc()
}

// ObserveNotification records one notifier call
func (m *Metrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(channel, result(err)).Inc()
}

// ObserveOutcome records the terminal state of one inbound message
func (m *Metrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.MessageOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveRun records a finished reconciliation run
func (m *Metrics) ObserveRun(fetched int, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.PipelineRuns.Inc()
	m.PipelineDuration.Observe(d.Seconds())
	m.MessagesFetched.Add(float64(fetched))
	if err != nil {
		m.PipelineFailures.Inc()
	}
}
