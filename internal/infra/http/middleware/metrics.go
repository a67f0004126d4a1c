package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	reconciliationRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciliation_runs_total",
			Help: "Total number of reconciliation passes",
		},
	)

	reconciliationAnomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliation_anomalies_total",
			Help: "Total number of reconciliation anomalies by kind",
		},
		[]string{"kind"},
	)

	leadMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_mutations_total",
			Help: "Total number of mutation gateway operations",
		},
		[]string{"op", "outcome"},
	)

	activeLeads = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_leads",
			Help: "Number of leads in the active view after the last pass",
		},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

func RecordReconciliation(activeCount, staleRemote, invalid, normalizedStages int) {
	reconciliationRuns.Inc()
	activeLeads.Set(float64(activeCount))
	if staleRemote > 0 {
		reconciliationAnomalies.WithLabelValues("stale_remote_record").Add(float64(staleRemote))
	}
	if invalid > 0 {
		reconciliationAnomalies.WithLabelValues("invalid_record").Add(float64(invalid))
	}
	if normalizedStages > 0 {
		reconciliationAnomalies.WithLabelValues("normalized_stage").Add(float64(normalizedStages))
	}
}

func RecordMutation(op, outcome string) {
	leadMutations.WithLabelValues(op, outcome).Inc()
}
