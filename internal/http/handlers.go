package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	switch {
	case s.ready == nil:
		checks["storage"] = "not_configured"
	default:
		if err := s.ready(ctx); err != nil {
			checks["storage"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	if s.rateLimiter != nil {
		checks["rate_limiter"] = map[string]any{
			"active_clients": s.rateLimiter.ActiveClients(),
			"status":         "ok",
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	fmt.Fprintf(w, "# HELP kharcha_uptime_seconds Time since the server started\n")
	fmt.Fprintf(w, "# TYPE kharcha_uptime_seconds gauge\n")
	fmt.Fprintf(w, "kharcha_uptime_seconds %.0f\n", time.Since(s.started).Seconds())

	fmt.Fprintf(w, "# HELP kharcha_http_requests_total Requests served\n")
	fmt.Fprintf(w, "# TYPE kharcha_http_requests_total counter\n")
	fmt.Fprintf(w, "kharcha_http_requests_total %d\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "kharcha_http_requests_in_flight %d\n", traceMetrics.InFlight)
	fmt.Fprintf(w, "kharcha_http_client_errors_total %d\n", traceMetrics.ClientErrors)
	fmt.Fprintf(w, "kharcha_http_server_errors_total %d\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP kharcha_http_response_microseconds_avg Mean request duration\n")
	fmt.Fprintf(w, "# TYPE kharcha_http_response_microseconds_avg gauge\n")
	fmt.Fprintf(w, "kharcha_http_response_microseconds_avg %d\n", traceMetrics.AverageMicros)

	fmt.Fprintf(w, "# HELP kharcha_security_suspicious_requests_total Requests matching scanner patterns\n")
	fmt.Fprintf(w, "# TYPE kharcha_security_suspicious_requests_total counter\n")
	fmt.Fprintf(w, "kharcha_security_suspicious_requests_total %d\n", securityMetrics.SuspiciousRequests)
	reasons := make([]string, 0, len(securityMetrics.ByReason))
	for reason := range securityMetrics.ByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(w, "kharcha_security_suspicious_requests_total{reason=%q} %d\n", reason, securityMetrics.ByReason[reason])
	}
	fmt.Fprintf(w, "kharcha_security_invalid_ip_total %d\n", securityMetrics.InvalidIPAttempts)

	if s.rateLimiter != nil {
		rl := s.rateLimiter.GetMetrics()
		fmt.Fprintf(w, "# HELP kharcha_rate_limit_rejections_total Requests rejected by the rate limiter\n")
		fmt.Fprintf(w, "# TYPE kharcha_rate_limit_rejections_total counter\n")
		fmt.Fprintf(w, "kharcha_rate_limit_rejections_total %d\n", rl.TotalHits)
		fmt.Fprintf(w, "kharcha_rate_limit_clients %d\n", rl.ClientCount)
	}
}
