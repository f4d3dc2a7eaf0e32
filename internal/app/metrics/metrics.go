package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mint_layer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mint_layer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mint_layer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mint_layer",
			Subsystem: "session",
			Name:      "refreshes_total",
			Help:      "Total number of on-chain state refreshes.",
		},
		[]string{"status"},
	)

	eligibilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mint_layer",
			Subsystem: "session",
			Name:      "eligibility_checks_total",
			Help:      "Eligibility evaluations by blocking reason.",
		},
		[]string{"reason"},
	)

	mintAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mint_layer",
			Subsystem: "mint",
			Name:      "attempts_total",
			Help:      "Mint attempts reaching a terminal state.",
		},
		[]string{"outcome"},
	)

	mintDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mint_layer",
			Subsystem: "mint",
			Name:      "attempt_duration_seconds",
			Help:      "Duration from mint trigger to terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~100s
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		refreshes,
		eligibilityChecks,
		mintAttempts,
		mintDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordRefresh records the outcome of one on-chain state refresh.
func RecordRefresh(success bool) {
	status := "error"
	if success {
		status = "ok"
	}
	refreshes.WithLabelValues(status).Inc()
}

// RecordEligibility records the blocking reason of one eligibility check.
// An allowed check records the reason "none".
func RecordEligibility(reason string) {
	if reason == "" {
		reason = "none"
	}
	eligibilityChecks.WithLabelValues(reason).Inc()
}

// RecordAttempt records a mint attempt reaching a terminal state.
func RecordAttempt(outcome string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	mintAttempts.WithLabelValues(outcome).Inc()
	mintDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Hijack passes through to the underlying writer so websocket upgrades work
// on instrumented routes.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hj.Hijack()
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "mint" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/mint"
	}
	return "/mint/" + parts[1]
}
