package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Clinic metrics
	triageAssessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anc_triage_assessments_total",
			Help: "Total number of triage classifications by category",
		},
		[]string{"category"},
	)

	alertsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anc_alerts_raised_total",
			Help: "Total number of clinic alerts raised",
		},
		[]string{"type"},
	)

	broadcastMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anc_broadcast_messages_total",
			Help: "Total number of broadcast messages by target group and outcome",
		},
		[]string{"group", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count, latency and in-flight requests. The
// path label is the matched route template so IDs do not explode the
// label space.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil && status < http.StatusBadRequest {
				status = http.StatusInternalServerError
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// RecordAssessment counts one triage classification.
func RecordAssessment(category string) {
	triageAssessments.WithLabelValues(category).Inc()
}

// RecordAlert counts one raised alert.
func RecordAlert(alertType string) {
	alertsRaised.WithLabelValues(alertType).Inc()
}

// RecordBroadcast counts one broadcast message outcome.
func RecordBroadcast(group, status string) {
	broadcastMessages.WithLabelValues(group, status).Inc()
}
