package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transmute",
		Name:      "http_requests_total",
		Help:      "HTTP requests processed, by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "transmute",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	conversions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transmute",
		Name:      "conversions_total",
		Help:      "Converter invocations, by converter and outcome.",
	}, []string{"converter", "outcome"})

	conversionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "transmute",
		Name:      "conversion_duration_seconds",
		Help:      "Time spent inside external converter tools.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"converter"})

	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transmute",
		Name:      "metadata_cache_lookups_total",
		Help:      "Metadata cache lookups, by result (hit or miss).",
	}, []string{"result"})

	mirrorFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "transmute",
		Name:      "mirror_failures_total",
		Help:      "Object-store mirror operations that failed.",
	})

	registerOnce sync.Once
)

// InitMetrics registers all collectors with the default registry. Safe to call repeatedly.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, conversions, conversionDuration, cacheLookups, mirrorFailures)
	})
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// ObserveConversion records one converter invocation.
func ObserveConversion(converter, outcome string, elapsed time.Duration) {
	conversions.WithLabelValues(converter, outcome).Inc()
	conversionDuration.WithLabelValues(converter).Observe(elapsed.Seconds())
}

// CacheHit and CacheMiss count metadata cache lookups.
func CacheHit()  { cacheLookups.WithLabelValues("hit").Inc() }
func CacheMiss() { cacheLookups.WithLabelValues("miss").Inc() }

// MirrorFailed counts a failed object-store mirror operation.
func MirrorFailed() { mirrorFailures.Inc() }
