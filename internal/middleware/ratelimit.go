package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/adforge-app/adforge/internal/auth"
	"github.com/adforge-app/adforge/internal/metrics"
	"github.com/adforge-app/adforge/internal/ratelimit"
)

// rateLimitedResponse is the 429 body: machine-readable error plus the
// seconds to wait before retrying.
type rateLimitedResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter"`
}

// RateLimit enforces the given limit class against the shared limiter.
// The identifier is the authenticated user ID when available, otherwise
// the client IP, so anonymous and authenticated traffic get isolated
// buckets.
func RateLimit(limiter *ratelimit.Limiter, class ratelimit.Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := identify(r)

			res, err := limiter.Check(identifier, class)
			if err != nil {
				// Only reachable with an empty identifier, which clientIP
				// never produces. Treat as a server bug, not a user error.
				slog.Error("rate limiter check failed", "error", err, "class", class)
				http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				metrics.RateLimitRejectionsTotal.WithLabelValues(string(class)).Inc()

				retryAfter := int64(res.RetryAfter(time.Now()).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(rateLimitedResponse{
					Error:      "rate_limited",
					Message:    "too many requests, slow down",
					RetryAfter: retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func identify(r *http.Request) string {
	if claims := auth.GetUserClaims(r.Context()); claims != nil && claims.UserID != "" {
		return claims.UserID
	}
	return clientIP(r)
}

func clientIP(r *http.Request) string {
	// Check X-Forwarded-For first (trusted reverse proxy)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
