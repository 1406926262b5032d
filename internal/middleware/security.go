package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ChartAssetsOrigin serves the echarts bundle referenced by rendered chart pages
const ChartAssetsOrigin = "https://go-echarts.github.io"

// SecureHeaders provides configurable security headers
type SecureHeaders struct {
	// HSTS settings
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	// CSP settings
	ContentSecurityPolicy string

	// Charts are embedded in an iframe of the dashboard, so framing by
	// the same origin must stay allowed.
	XFrameOptions string

	XContentTypeOptions string
	ReferrerPolicy      string
	PermissionsPolicy   string

	// Development mode relaxes CSP
	DevMode bool
}

// DefaultSecureHeaders returns secure headers with default settings
func DefaultSecureHeaders() *SecureHeaders {
	return &SecureHeaders{
		HSTSMaxAge:            63072000,
		HSTSIncludeSubdomains: true,
		XFrameOptions:         "SAMEORIGIN",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}
}

// Handler returns the middleware handler
func (sh *SecureHeaders) Handler(next http.Handler) http.Handler {
	csp := sh.ContentSecurityPolicy
	if csp == "" {
		csp = sh.defaultCSP()
	}
	permissions := sh.PermissionsPolicy
	if permissions == "" {
		permissions = defaultPermissionsPolicy()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if sh.HSTSMaxAge > 0 && r.TLS != nil {
			hsts := fmt.Sprintf("max-age=%d", sh.HSTSMaxAge)
			if sh.HSTSIncludeSubdomains {
				hsts += "; includeSubDomains"
			}
			h.Set("Strict-Transport-Security", hsts)
		}

		h.Set("Content-Security-Policy", csp)
		h.Set("Permissions-Policy", permissions)
		if sh.XFrameOptions != "" {
			h.Set("X-Frame-Options", sh.XFrameOptions)
		}
		if sh.XContentTypeOptions != "" {
			h.Set("X-Content-Type-Options", sh.XContentTypeOptions)
		}
		if sh.ReferrerPolicy != "" {
			h.Set("Referrer-Policy", sh.ReferrerPolicy)
		}

		next.ServeHTTP(w, r)
	})
}

func (sh *SecureHeaders) defaultCSP() string {
	if sh.DevMode {
		return strings.Join([]string{
			"default-src 'self'",
			"script-src 'self' 'unsafe-inline' 'unsafe-eval' *",
			"style-src 'self' 'unsafe-inline' *",
			"img-src * data: blob:",
		}, "; ")
	}
	return strings.Join([]string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-inline' " + ChartAssetsOrigin,
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data: blob:",
		"frame-ancestors 'self'",
		"base-uri 'self'",
		"form-action 'self'",
	}, "; ")
}

func defaultPermissionsPolicy() string {
	return strings.Join([]string{
		"accelerometer=()",
		"camera=()",
		"geolocation=()",
		"microphone=()",
		"payment=()",
		"usb=()",
	}, ", ")
}

// AuditLog records state-changing requests (uploads and session deletes)
// with the session they touched. Safe methods pass through silently.
func AuditLog(logger *slog.Logger, sessionCookie string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.InfoContext(r.Context(), "audit",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("session_id", auditSessionID(r, ww, sessionCookie)),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// auditSessionID prefers the route parameter, then a freshly set cookie, then the request cookie
func auditSessionID(r *http.Request, w http.ResponseWriter, cookieName string) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if id := rctx.URLParam("id"); id != "" {
			return id
		}
	}
	resp := http.Response{Header: w.Header()}
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			return c.Value
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
