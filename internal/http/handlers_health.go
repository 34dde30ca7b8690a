package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleMetrics writes the counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	sec := s.detector.GetMetrics()

	metrics := []struct {
		name, kind string
		value      int64
	}{
		{"ledgerdash_http_requests_total", "counter", tm.TotalRequests},
		{"ledgerdash_http_requests_in_flight", "gauge", tm.InFlight},
		{"ledgerdash_http_client_errors_total", "counter", tm.ClientErrors},
		{"ledgerdash_http_server_errors_total", "counter", tm.ServerErrors},
		{"ledgerdash_http_response_time_avg_microseconds", "gauge", tm.AverageResponseTime},
		{"ledgerdash_rate_limit_hits_total", "counter", rl.TotalHits},
		{"ledgerdash_rate_limit_clients", "gauge", rl.ClientCount},
		{"ledgerdash_suspicious_requests_total", "counter", sec.SuspiciousRequests},
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, m := range metrics {
		fmt.Fprintf(w, "# TYPE %s %s\n%s %d\n", m.name, m.kind, m.name, m.value)
	}
}
