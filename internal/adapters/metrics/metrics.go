package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/workers"
)

const namespace = "kanso"

// Recorder is everything the service reports. It satisfies workers.Metrics
// so the same value is handed to the HTTP layer and the workers.
type Recorder interface {
	workers.Metrics

	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	// Handler serves the exposition format, or nil when metrics are off.
	Handler() http.Handler
}

type Prometheus struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	streakJobs        *prometheus.CounterVec
	streakJobDuration prometheus.Histogram
	streakJobsDropped prometheus.Counter
	remindersSent     prometheus.Counter
}

func (m *Prometheus) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *Prometheus) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *Prometheus) ObserveStreakJob(outcome string, duration time.Duration) {
	m.streakJobs.WithLabelValues(outcome).Inc()
	m.streakJobDuration.Observe(duration.Seconds())
}

func (m *Prometheus) IncStreakJobsDropped() {
	m.streakJobsDropped.Inc()
}

func (m *Prometheus) IncRemindersSent() {
	m.remindersSent.Inc()
}

func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the private registry so callers can add collectors.
func (m *Prometheus) Registry() *prometheus.Registry {
	return m.registry
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// New returns a Prometheus recorder on a private registry, or a no-op
// recorder when disabled. queueDepth, when non-nil, is sampled on scrape.
func New(enabled bool, queueDepth func() int) Recorder {
	if !enabled {
		return &noopMetrics{}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Prometheus{
		registry: reg,

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		streakJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streak_jobs_total",
			Help:      "Streak recalculation jobs by outcome",
		}, []string{"outcome"}),

		streakJobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "streak_job_duration_seconds",
			Help:      "Duration of a streak recalculation in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		streakJobsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streak_jobs_dropped_total",
			Help:      "Streak jobs dropped because the queue was full",
		}),

		remindersSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "At-risk reminders delivered",
		}),
	}

	if queueDepth != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streak_queue_depth",
			Help:      "Jobs waiting in the streak queue",
		}, func() float64 {
			return float64(queueDepth())
		})
	}

	return m
}

// noopMetrics is used when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) ObserveStreakJob(_ string, _ time.Duration)       {}
func (n *noopMetrics) IncStreakJobsDropped()                            {}
func (n *noopMetrics) IncRemindersSent()                                {}
func (n *noopMetrics) Handler() http.Handler                            { return nil }
