package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quiz_practice"

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeFormatError = "format_error"
	OutcomeBackendErr  = "backend_error"
	OutcomeError       = "error"
)

// Collector groups the service's Prometheus collectors. A nil *Collector is
// valid and records nothing.
type Collector struct {
	sessionsStarted   prometheus.Counter
	sessionsFinished  *prometheus.CounterVec
	activeSessions    prometheus.Gauge
	autoAdvances      prometheus.Counter
	scorePercent      prometheus.Histogram
	generations       *prometheus.CounterVec
	generationSeconds prometheus.Histogram
	historyWrites     *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
}

// New registers collectors on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		sessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Practice sessions started.",
		}),
		sessionsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finished_total",
			Help:      "Practice sessions that reached a terminal state, by outcome.",
		}, []string{"outcome"}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently being answered.",
		}),
		autoAdvances: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "question_timeouts_total",
			Help:      "Questions committed by the per-question deadline.",
		}),
		scorePercent: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_score_percent",
			Help:      "Final session score as a percentage.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_generations_total",
			Help:      "AI quiz generation requests, by outcome.",
		}, []string{"outcome"}),
		generationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quiz_generation_seconds",
			Help:      "Latency of the generation backend.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
		historyWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_writes_total",
			Help:      "History record writes, by outcome.",
		}, []string{"outcome"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method and status code.",
		}, []string{"method", "code"}),
	}
}

func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.sessionsStarted.Inc()
	c.activeSessions.Inc()
}

// SessionCompleted records a submitted session and its score.
func (c *Collector) SessionCompleted(percent int) {
	if c == nil {
		return
	}
	c.sessionsFinished.WithLabelValues("completed").Inc()
	c.activeSessions.Dec()
	c.scorePercent.Observe(float64(percent))
}

func (c *Collector) SessionAborted() {
	if c == nil {
		return
	}
	c.sessionsFinished.WithLabelValues("aborted").Inc()
	c.activeSessions.Dec()
}

func (c *Collector) QuestionTimedOut() {
	if c == nil {
		return
	}
	c.autoAdvances.Inc()
}

// Generation records one generation request and, when the backend was
// called, its latency.
func (c *Collector) Generation(outcome string, took time.Duration) {
	if c == nil {
		return
	}
	c.generations.WithLabelValues(outcome).Inc()
	if took > 0 {
		c.generationSeconds.Observe(took.Seconds())
	}
}

func (c *Collector) HistoryWrite(outcome string) {
	if c == nil {
		return
	}
	c.historyWrites.WithLabelValues(outcome).Inc()
}

func (c *Collector) HTTPRequest(method, code string) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, code).Inc()
}
