// Package metrics exposes Prometheus collectors for HTTP traffic and site
// activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hasker",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hasker",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hasker",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	posts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hasker",
			Subsystem: "content",
			Name:      "posts_total",
			Help:      "Questions and answers created.",
		},
		[]string{"kind"},
	)

	votes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hasker",
			Subsystem: "content",
			Name:      "votes_total",
			Help:      "Votes cast, by target and resulting action.",
		},
		[]string{"target", "action"},
	)

	mails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hasker",
			Subsystem: "mail",
			Name:      "sent_total",
			Help:      "Notification e-mails by outcome.",
		},
		[]string{"success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		posts,
		votes,
		mails,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latencies. Routes are labelled by
// their pattern (e.g., /questions/:id) to keep cardinality bounded.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordPost counts a created question or answer.
func RecordPost(kind string) {
	posts.WithLabelValues(kind).Inc()
}

// RecordVote counts a vote; action is one of "cast", "flip" or "retract".
func RecordVote(target, action string) {
	votes.WithLabelValues(target, action).Inc()
}

// RecordMail counts a notification delivery attempt.
func RecordMail(success bool) {
	mails.WithLabelValues(strconv.FormatBool(success)).Inc()
}
