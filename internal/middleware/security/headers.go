package security

import (
	"net/http"
	"strconv"
)

// HeadersConfig lists the response headers the API sets. Empty values are
// not sent.
type HeadersConfig struct {
	CSP                 string
	FrameOptions        string
	ContentTypeOptions  string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginOpener   string
	CrossOriginResource string
	CacheControl        string

	// HSTS is only sent on TLS or TLS-terminated requests.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
}

// DefaultHeadersConfig suits a JSON API that serves no documents of its
// own. Ledger data is never cached by intermediaries.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                 "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'",
		FrameOptions:        "DENY",
		ContentTypeOptions:  "nosniff",
		ReferrerPolicy:      "no-referrer",
		PermissionsPolicy:   "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:   "same-origin",
		CrossOriginResource: "same-origin",
		CacheControl:        "no-store",

		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
	}
}

// HeadersMiddleware sets the configured headers before the handler runs.
type HeadersMiddleware struct {
	static [][2]string
	hsts   string
}

func NewHeadersMiddleware(c HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{}
	for _, kv := range [][2]string{
		{"Content-Security-Policy", c.CSP},
		{"X-Frame-Options", c.FrameOptions},
		{"X-Content-Type-Options", c.ContentTypeOptions},
		{"Referrer-Policy", c.ReferrerPolicy},
		{"Permissions-Policy", c.PermissionsPolicy},
		{"Cross-Origin-Opener-Policy", c.CrossOriginOpener},
		{"Cross-Origin-Resource-Policy", c.CrossOriginResource},
		{"Cache-Control", c.CacheControl},
	} {
		if kv[1] != "" {
			h.static = append(h.static, kv)
		}
	}
	if c.HSTSMaxAge > 0 {
		h.hsts = "max-age=" + strconv.Itoa(c.HSTSMaxAge)
		if c.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
		if c.HSTSPreload {
			h.hsts += "; preload"
		}
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for _, kv := range h.static {
			headers.Set(kv[0], kv[1])
		}
		if h.hsts != "" && (r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https") {
			headers.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
