package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors, registered on an injected registry.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	attemptsStarted *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		attemptsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_attempts_started_total",
				Help: "Attempts opened per quiz",
			},
			[]string{"quiz_id"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_submissions_total",
				Help: "Scored submissions by outcome",
			},
			[]string{"outcome"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_submissions_rejected_total",
				Help: "Rejected submissions by reason",
			},
			[]string{"reason"},
		),
	}
	registry.MustRegister(m.requests, m.requestDuration, m.attemptsStarted, m.submissions, m.rejections)
	return m
}

func (m *Metrics) AttemptStarted(quizID string) {
	m.attemptsStarted.WithLabelValues(quizID).Inc()
}

func (m *Metrics) AttemptSubmitted(_ string, passed bool) {
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SubmissionRejected(reason string) {
	m.rejections.WithLabelValues(reason).Inc()
}

// Middleware records request counts and latencies per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
