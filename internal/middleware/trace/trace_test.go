package trace

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"kharcha/internal/log"
)

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: log.FormatJSON, Output: &buf, Component: log.ComponentHTTP})
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.7" }, logger)

	var seen string
	handler := log.Middleware(logger)(m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "generates an id", incoming: ""},
		{name: "keeps a valid incoming id", incoming: "0d4a3b52-8a30-4bd7-9a49-6b3f4c1f0e11", keep: true},
		{name: "replaces a malformed id", incoming: "<script>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(http.MethodGet, "/api/emis", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			got := rr.Header().Get(RequestIDHeader)
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("response id %q is not a uuid", got)
			}
			if got != seen {
				t.Errorf("context id %q != header id %q", seen, got)
			}
			if tt.keep && got != tt.incoming {
				t.Errorf("id = %q, want %q", got, tt.incoming)
			}

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
			}
			if entry[log.FieldRequestID] != got || entry[log.FieldStatusCode] != float64(http.StatusTeapot) {
				t.Errorf("unexpected log entry %v", entry)
			}
			if entry["level"] != "WARN" {
				t.Errorf("4xx should log at WARN, got %v", entry["level"])
			}
		})
	}

	got := m.GetMetrics()
	if got.TotalRequests != 3 || got.ClientErrors != 3 || got.ServerErrors != 0 || got.InFlight != 0 {
		t.Errorf("GetMetrics() = %+v", got)
	}
}
