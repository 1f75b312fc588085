package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/fairwaylab/swinggate/internal/csrf"
	"github.com/fairwaylab/swinggate/internal/ratelimit"
)

// ClientKey resolves the rate-limit key for a request: first entry of
// X-Forwarded-For, then X-Real-IP, then the connection's remote host.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RateLimit enforces the given limiter per client key. X-RateLimit-*
// headers are attached to allowed and denied responses alike so clients
// can pace themselves; denials get a 429 with Retry-After.
func RateLimit(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			res := l.Check(key)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", res.ResetAt.UTC().Format(time.RFC3339))

			if !res.Allowed {
				retryAfter := l.RetryAfter(res)
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				slog.Warn("rate limit exceeded", "limiter", l.Name(), "key", key, "retry_after", retryAfter)
				writeJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":      "Too many requests",
					"message":    fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retryAfter),
					"retryAfter": retryAfter,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCSRF rejects mutating requests without a valid double-submit
// token. Safe methods pass through untouched.
func RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}
		if appErr := csrf.Require(r); appErr != nil {
			slog.Warn("csrf validation failed", "method", r.Method, "path", r.URL.Path, "key", ClientKey(r))
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error":   "CSRF Validation Failed",
				"message": "Invalid or missing CSRF token",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Recover is the request backstop: an unrecognized panic becomes a 500
// with a generic body. Stack traces go to the log, never the response.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic in handler", "path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"error":   "Internal Server Error",
					"message": "Something went wrong. Please try again.",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
