// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 Metrics collector
// =============================================================================

// Collector aggregates the Prometheus metrics of the council engine and
// its HTTP surface.
type Collector struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Council lifecycle metrics
	councilsCreated   *prometheus.CounterVec
	councilsConfirmed prometheus.Counter
	councilsCompleted *prometheus.CounterVec

	// Stage metrics
	stageScores *prometheus.HistogramVec

	// Trigger metrics
	triggersTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a metrics collector registered on the default
// Prometheus registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.councilsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "councils_created_total",
			Help:      "Total number of councils created",
		},
		[]string{"crypto"},
	)

	c.councilsConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "councils_confirmed_total",
			Help:      "Total number of councils confirmed",
		},
	)

	c.councilsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "councils_completed_total",
			Help:      "Total number of councils completed",
		},
		[]string{"mode"}, // ratings, progressive
	)

	c.stageScores = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_score",
			Help:      "Distribution of stage analysis scores",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"stage"},
	)

	c.triggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Total number of resolved chat triggers",
		},
		[]string{"intent"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 Recording helpers
// =============================================================================

// RecordHTTPRequest records one HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCouncilCreated records a council creation.
func (c *Collector) RecordCouncilCreated(crypto string) {
	c.councilsCreated.WithLabelValues(crypto).Inc()
}

// RecordCouncilConfirmed records a successful pending → active transition.
func (c *Collector) RecordCouncilConfirmed() {
	c.councilsConfirmed.Inc()
}

// RecordCouncilCompleted records a council reaching the complete state.
// Mode distinguishes rating collection from progressive stage exhaustion.
func (c *Collector) RecordCouncilCompleted(mode string) {
	c.councilsCompleted.WithLabelValues(mode).Inc()
}

// RecordStageScore records one stage analysis score.
func (c *Collector) RecordStageScore(stage string, score int) {
	c.stageScores.WithLabelValues(stage).Observe(float64(score))
}

// RecordTrigger records one resolved chat trigger.
func (c *Collector) RecordTrigger(intent string) {
	c.triggersTotal.WithLabelValues(intent).Inc()
}

// statusCode buckets an HTTP status code into its class.
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
