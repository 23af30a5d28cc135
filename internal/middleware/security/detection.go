package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"kharcha/internal/log"
)

// Reasons reported by Inspect.
const (
	ReasonScanPath   = "scan_path"
	ReasonInjection  = "injection"
	ReasonScanner    = "scanner_agent"
	ReasonMethod     = "unusual_method"
	ReasonLongURL    = "long_url"
	ReasonProxyChain = "proxy_chain"
)

const (
	maxURLLength     = 2048
	maxForwardedHops = 5
)

// scannedPaths are paths nothing in this API serves; hits are scans.
var scannedPaths = []string{
	".env", ".git", ".ssh", "wp-admin", "wp-login", "phpmyadmin",
	"admin.php", "config.php", "etc/passwd", "cmd.exe",
}

// injectionMarkers are looked for in both path and query.
var injectionMarkers = []string{
	"../", "..\\", "<script", "javascript:", "eval(", "union select", "' or '1'='1",
}

var scannerAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
}

var unusualMethods = map[string]bool{
	"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true,
}

// DetectionMetrics counts flagged requests in total and per reason.
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
	ByReason           map[string]int64
}

// Detector flags requests that look like scans or injection attempts and
// resolves the client address behind trusted proxies.
type Detector struct {
	suspicious     int64
	invalidIP      int64
	mu             sync.Mutex
	byReason       map[string]int64
	trustedProxies []*net.IPNet
	logger         *log.Logger
}

// NewDetector trusts loopback and private ranges as proxies. A nil logger
// writes text to stdout.
func NewDetector(logger *log.Logger) *Detector {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	d := &Detector{
		byReason: make(map[string]int64),
		logger:   logger.WithComponent(log.ComponentSecurity),
	}
	for _, cidr := range []string{"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "::1/128"} {
		if err := d.AddTrustedProxy(cidr); err != nil {
			panic(err)
		}
	}
	return d
}

// Inspect returns the first reason r looks hostile, if any.
func (d *Detector) Inspect(r *http.Request) (string, bool) {
	path := strings.ToLower(r.URL.Path)
	query, err := url.QueryUnescape(r.URL.RawQuery)
	if err != nil {
		query = r.URL.RawQuery
	}
	query = strings.ToLower(query)

	reason := ""
	switch {
	case containsAny(path, scannedPaths):
		reason = ReasonScanPath
	case containsAny(path, injectionMarkers) || containsAny(query, injectionMarkers):
		reason = ReasonInjection
	case containsAny(strings.ToLower(r.UserAgent()), scannerAgents):
		reason = ReasonScanner
	case unusualMethods[r.Method]:
		reason = ReasonMethod
	case len(r.URL.String()) > maxURLLength:
		reason = ReasonLongURL
	case strings.Count(r.Header.Get("X-Forwarded-For"), ",") > maxForwardedHops:
		reason = ReasonProxyChain
	}
	if reason == "" {
		return "", false
	}

	atomic.AddInt64(&d.suspicious, 1)
	d.mu.Lock()
	d.byReason[reason]++
	d.mu.Unlock()
	return reason, true
}

// DetectSuspiciousRequest reports whether Inspect flags r.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	_, flagged := d.Inspect(r)
	return flagged
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the peer address, or the first valid forwarded
// address when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	ip := net.ParseIP(peer)
	if ip == nil {
		atomic.AddInt64(&d.invalidIP, 1)
		return peer
	}
	if !d.isTrustedProxy(ip) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// AddTrustedProxy trusts forwarded headers from cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

// GetMetrics returns a snapshot of the counters.
func (d *Detector) GetMetrics() DetectionMetrics {
	d.mu.Lock()
	byReason := make(map[string]int64, len(d.byReason))
	for k, v := range d.byReason {
		byReason[k] = v
	}
	d.mu.Unlock()
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.suspicious),
		InvalidIPAttempts:  atomic.LoadInt64(&d.invalidIP),
		ByReason:           byReason,
	}
}

// Middleware logs flagged requests and passes every request on.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason, flagged := d.Inspect(r); flagged {
			log.FromContextOr(r.Context(), d.logger).WarnContext(r.Context(), "Suspicious request",
				log.FieldReason, reason,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, d.ExtractClientIP(r),
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}
