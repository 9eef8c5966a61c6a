// Package security sets defensive response headers and flags requests that
// look like probing.
package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CSP directives for the dashboard. htmx and Chart.js load from two CDNs.
var dashboardCSP = []string{
	"default-src 'self'",
	"script-src 'self' https://unpkg.com https://cdn.jsdelivr.net",
	"style-src 'self' 'unsafe-inline'",
	"img-src 'self' data:",
	"connect-src 'self'",
	"object-src 'none'",
	"frame-ancestors 'none'",
	"base-uri 'self'",
	"form-action 'self'",
}

// HSTS is sent only on TLS requests; a zero MaxAge disables it.
type HSTS struct {
	MaxAge            time.Duration
	IncludeSubdomains bool
	Preload           bool
}

func (h HSTS) String() string {
	v := "max-age=" + strconv.FormatInt(int64(h.MaxAge/time.Second), 10)
	if h.IncludeSubdomains {
		v += "; includeSubDomains"
	}
	if h.Preload {
		v += "; preload"
	}
	return v
}

// Policy is the set of headers stamped on every response. Headers with an
// empty value are skipped.
type Policy struct {
	Headers map[string]string
	HSTS    HSTS
}

func DefaultPolicy() Policy {
	return Policy{
		Headers: map[string]string{
			"Content-Security-Policy":      strings.Join(dashboardCSP, "; "),
			"X-Frame-Options":              "DENY",
			"X-Content-Type-Options":       "nosniff",
			"Referrer-Policy":              "strict-origin-when-cross-origin",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
		HSTS: HSTS{MaxAge: 365 * 24 * time.Hour, IncludeSubdomains: true, Preload: true},
	}
}

// Headers returns middleware applying p.
func Headers(p Policy) func(http.Handler) http.Handler {
	hsts := ""
	if p.HSTS.MaxAge > 0 {
		hsts = p.HSTS.String()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for name, value := range p.Headers {
				if value != "" {
					h.Set(name, value)
				}
			}
			if r.TLS != nil && hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Cacheable marks responses as immutable for maxAge; used for embedded
// static assets.
func Cacheable(maxAge time.Duration) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(int(maxAge/time.Second)) + ", immutable"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
