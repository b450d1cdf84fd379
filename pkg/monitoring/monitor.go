package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	EnrollmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "learnhub_enrollments_total",
			Help: "Total number of course enrollments",
		},
	)

	ModuleCompletionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "learnhub_module_completions_total",
			Help: "Total number of modules marked complete",
		},
	)

	QuizSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_quiz_submissions_total",
			Help: "Quiz submissions by outcome",
		},
		[]string{"outcome"},
	)

	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "learnhub_ws_clients",
			Help: "Connected message board websocket clients",
		},
	)

	WSEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_ws_events_total",
			Help: "Message board events pushed to websocket clients",
		},
		[]string{"type"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			EnrollmentsTotal,
			ModuleCompletionsTotal,
			QuizSubmissionsTotal,
			WSClients,
			WSEventsTotal,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
