package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	certRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certledger_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	certRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "certledger_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	certCommitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certledger_commits_total",
		Help: "Total successful certificate commits.",
	})

	certInvalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certledger_invalidations_total",
		Help: "Total successful certificate invalidations.",
	})

	certRepairsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certledger_repairs_total",
		Help: "Total validity mirrors re-synced by the repair endpoint.",
	})

	certErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certledger_errors_total",
		Help: "Total failed requests by error category.",
	}, []string{"category"})

	certIntegrityFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certledger_integrity_failures_total",
		Help: "Total reads that detected an off-chain digest mismatch.",
	})

	certInconsistenciesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certledger_inconsistencies_total",
		Help: "Total reads that found a commitment without an off-chain record.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request
// metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		certRequestsTotal.WithLabelValues(method, path, status).Inc()
		certRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}
