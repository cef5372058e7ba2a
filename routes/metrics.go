package routes

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thula",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "thula",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	paymentChallenges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thula",
		Name:      "payment_challenges_total",
		Help:      "402 challenges issued per gated route.",
	}, []string{"route"})

	paymentVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thula",
		Name:      "payment_verifications_total",
		Help:      "Payment session verifications by outcome.",
	}, []string{"route", "result"})

	contributionsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "thula",
		Name:      "contributions_recorded_total",
		Help:      "Contributions accepted.",
	})

	feedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "thula",
		Name:      "feed_clients",
		Help:      "Connected live feed clients.",
	})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thula",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	}, []string{"route"})
)

// Metrics records request count and latency per matched route
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler exposes the Prometheus registry
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
