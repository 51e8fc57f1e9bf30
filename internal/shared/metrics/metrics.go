package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ingestStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_started_total",
		Help: "Total ingestion pipeline runs started",
	})
	ingestCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_completed_total",
		Help: "Total ingestion pipeline runs completed successfully",
	})
	ingestRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_rejected_total",
		Help: "Total ingestion pipeline runs rejected, by reason",
	}, []string{"reason"})
	ingestFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_failed_total",
		Help: "Total ingestion pipeline runs failed, by stage",
	}, []string{"stage"})
	ingestStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingest_stage_duration_seconds",
		Help:    "Ingestion stage duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"stage"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// IncIngestStarted increments the started counter.
func IncIngestStarted() {
	ingestStartedTotal.Inc()
}

// IncIngestCompleted increments the completed counter.
func IncIngestCompleted() {
	ingestCompletedTotal.Inc()
}

// IncIngestRejected increments the rejected counter for a reason.
func IncIngestRejected(reason string) {
	ingestRejectedTotal.WithLabelValues(reason).Inc()
}

// IncIngestFailed increments the failed counter for a stage.
func IncIngestFailed(stage string) {
	ingestFailedTotal.WithLabelValues(stage).Inc()
}

// ObserveStageDuration records a pipeline stage duration.
func ObserveStageDuration(stage string, d time.Duration) {
	if d < 0 {
		d = 0
	}
	ingestStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// HTTP is gin middleware recording request counts and latencies.
func HTTP() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
