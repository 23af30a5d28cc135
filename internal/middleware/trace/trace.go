// Package trace assigns request ids, logs every request and keeps request
// counters for /metrics.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"kharcha/internal/log"
)

type contextKey struct{}

// RequestIDHeader carries the id in and out of the service. Incoming ids
// that are not UUIDs are replaced.
const RequestIDHeader = "X-Request-ID"

// Metrics is a snapshot of the request counters.
type Metrics struct {
	TotalRequests int64
	InFlight      int64
	ClientErrors  int64
	ServerErrors  int64
	// AverageMicros is the mean duration over all completed requests.
	AverageMicros int64
}

// Middleware traces requests. The zero value is not usable; see
// NewMiddleware.
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.StructuredLogger

	total, inFlight, clientErrs, serverErrs, micros atomic.Int64
}

func NewMiddleware(extractIP func(*http.Request) string, logger *log.Logger) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		logger:    log.NewStructuredLogger(logger),
	}
}

// Middleware tags the request with an id, puts a request-scoped logger in
// its context and logs its completion.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.total.Add(1)
		m.inFlight.Add(1)
		defer m.inFlight.Add(-1)

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), contextKey{}, requestID)
		reqLogger := log.FromContext(ctx).With(log.FieldRequestID, requestID)
		ctx = log.NewContext(ctx, reqLogger)
		r = r.WithContext(ctx)

		reqLogger.DebugContext(ctx, "HTTP request started",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		m.micros.Add(elapsed.Microseconds())
		switch {
		case rw.status >= 500:
			m.serverErrs.Add(1)
		case rw.status >= 400:
			m.clientErrs.Add(1)
		}
		m.logger.LogHTTPEnd(ctx, r, rw.status, elapsed.Milliseconds(), clientIP)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestID returns the id the middleware stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// GetMetrics returns current metrics.
func (m *Middleware) GetMetrics() Metrics {
	total := m.total.Load()
	inFlight := m.inFlight.Load()
	metrics := Metrics{
		TotalRequests: total,
		InFlight:      inFlight,
		ClientErrors:  m.clientErrs.Load(),
		ServerErrors:  m.serverErrs.Load(),
	}
	if done := total - inFlight; done > 0 {
		metrics.AverageMicros = m.micros.Load() / done
	}
	return metrics
}
