package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.startedAt).String(),
	})
}

// handleReady performs a readiness check with dependency verification.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.store == nil {
		checks["store"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.store.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["cache"] = map[string]any{
		"summary_entries":  s.summaryCache.Size(),
		"overview_entries": s.overviewCache.Size(),
		"status":           "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes counters in a Prometheus-like plain text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	summaryStats := s.summaryCache.Stats()
	overviewStats := s.overviewCache.Stats()

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_request_duration_avg_us Average request duration in microseconds\n")
	fmt.Fprintf(w, "# TYPE http_request_duration_avg_us gauge\n")
	fmt.Fprintf(w, "http_request_duration_avg_us %d\n\n", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP transactions_recorded_total Total number of transactions recorded\n")
	fmt.Fprintf(w, "# TYPE transactions_recorded_total counter\n")
	fmt.Fprintf(w, "transactions_recorded_total %d\n\n", s.metrics.transactionsTotal.Load())

	fmt.Fprintf(w, "# HELP summaries_computed_total Total number of daily summaries computed\n")
	fmt.Fprintf(w, "# TYPE summaries_computed_total counter\n")
	fmt.Fprintf(w, "summaries_computed_total %d\n\n", s.metrics.summariesTotal.Load())

	fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n")
	fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
	fmt.Fprintf(w, "cache_hits_total{cache=\"summary\"} %d\n", summaryStats.Hits)
	fmt.Fprintf(w, "cache_hits_total{cache=\"overview\"} %d\n\n", overviewStats.Hits)

	fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n")
	fmt.Fprintf(w, "# TYPE cache_misses_total counter\n")
	fmt.Fprintf(w, "cache_misses_total{cache=\"summary\"} %d\n", summaryStats.Misses)
	fmt.Fprintf(w, "cache_misses_total{cache=\"overview\"} %d\n\n", overviewStats.Misses)

	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n")
	fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries{cache=\"summary\"} %d\n", s.summaryCache.Size())
	fmt.Fprintf(w, "cache_entries{cache=\"overview\"} %d\n\n", s.overviewCache.Size())

	fmt.Fprintf(w, "# HELP rate_limited_requests_total Total requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limited_requests_total counter\n")
	fmt.Fprintf(w, "rate_limited_requests_total %d\n\n", rateLimitMetrics.LimitedHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.metrics.startedAt).Seconds())
}
