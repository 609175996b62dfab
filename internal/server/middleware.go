// Package server provides HTTP middleware shared by the API endpoints.
package server

import (
	"net/http"
	"strings"
)

// CORSConfig holds CORS middleware configuration.
type CORSConfig struct {
	AllowedOrigins []string // empty = allow all (*)
}

// OriginAllowed reports whether origin may use the API. An empty allow
// list admits every origin, as does a "*" entry. Requests without an
// Origin header are not cross-origin and are always allowed.
func (cfg CORSConfig) OriginAllowed(origin string) bool {
	if origin == "" || len(cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// CORSMiddlewareWithConfig adds CORS headers for allowed origins. For
// disallowed origins no headers are set, so the browser blocks the
// response, and preflight requests get 403.
func CORSMiddlewareWithConfig(cfg CORSConfig, next http.Handler) http.Handler {
	restricted := len(cfg.AllowedOrigins) > 0
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if !cfg.OriginAllowed(origin) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		allowedOrigin := "*"
		if restricted && origin != "" {
			allowedOrigin = origin
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CSPConfig holds Content-Security-Policy configuration.
type CSPConfig struct {
	DefaultSrc     []string
	ConnectSrc     []string
	FrameAncestors []string
}

// APICSPConfig returns the policy for JSON endpoints, which serve no
// active content.
func APICSPConfig() CSPConfig {
	return CSPConfig{
		DefaultSrc:     []string{"'none'"},
		FrameAncestors: []string{"'none'"},
	}
}

// BuildCSPHeader builds a Content-Security-Policy header value from config.
func (cfg CSPConfig) BuildCSPHeader() string {
	var directives []string
	if len(cfg.DefaultSrc) > 0 {
		directives = append(directives, "default-src "+strings.Join(cfg.DefaultSrc, " "))
	}
	if len(cfg.ConnectSrc) > 0 {
		directives = append(directives, "connect-src "+strings.Join(cfg.ConnectSrc, " "))
	}
	if len(cfg.FrameAncestors) > 0 {
		directives = append(directives, "frame-ancestors "+strings.Join(cfg.FrameAncestors, " "))
	}
	return strings.Join(directives, "; ")
}

// SecurityHeadersWithCSP adds standard security headers and the given CSP.
func SecurityHeadersWithCSP(cfg CSPConfig, next http.Handler) http.Handler {
	cspHeader := cfg.BuildCSPHeader()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if cspHeader != "" {
			w.Header().Set("Content-Security-Policy", cspHeader)
		}
		next.ServeHTTP(w, r)
	})
}
