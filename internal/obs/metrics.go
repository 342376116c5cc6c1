package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Domain metrics.
var (
	onboardingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_transitions_total",
			Help: "Onboarding wizard transitions by event and result.",
		},
		[]string{"event", "result"},
	)

	onboardingSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_submissions_total",
			Help: "Onboarding submissions by result.",
		},
		[]string{"result"},
	)

	draftPersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "onboarding_draft_persist_failures_total",
		Help: "Draft writes or deletes that the storage backend rejected.",
	})

	permissionDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permission_denials_total",
			Help: "Requests refused because the user lacked an operation.",
		},
		[]string{"permission"},
	)
)

var initOnce sync.Once

// Init registers all collectors in the default registry. Safe to call repeatedly.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			onboardingTransitions, onboardingSubmissions, draftPersistFailures, permissionDenials,
		)
	})
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTransition counts a wizard transition attempt.
func ObserveTransition(event, result string) {
	onboardingTransitions.WithLabelValues(event, result).Inc()
}

// ObserveSubmission counts a terminal submit attempt.
func ObserveSubmission(result string) {
	onboardingSubmissions.WithLabelValues(result).Inc()
}

// DraftPersistFailed counts a failed draft write.
func DraftPersistFailed() {
	draftPersistFailures.Inc()
}

// PermissionDenied counts a refused request.
func PermissionDenied(permission string) {
	permissionDenials.WithLabelValues(permission).Inc()
}

// Instrument records in-flight, count and latency per canonical path.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

var onboardingActions = map[string]bool{
	"next":   true,
	"back":   true,
	"edit":   true,
	"submit": true,
}

// CanonicalPath collapses identifiers so metric label cardinality stays bounded.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	const prefix = "/v1/onboarding/"
	if !strings.HasPrefix(p, prefix) {
		return p
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(p, prefix), "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return prefix + ":id"
	case len(parts) == 2 && onboardingActions[parts[1]]:
		return prefix + ":id/" + parts[1]
	case len(parts) == 3 && parts[1] == "documents":
		return prefix + ":id/documents/:slot"
	}
	return p
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
