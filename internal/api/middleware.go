package api

import (
	"encoding/json/v2"
	"net/http"
	"strings"

	"github.com/atelierapp/atelier-server/internal/ratelimit"
)

const matchRoute = "/api/v1/textures/match"

// matchRateLimit throttles model-backed match requests per client address.
// Other routes pass through untouched.
func matchRateLimit(limiter *ratelimit.KeyedLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && r.URL.Path == matchRoute {
				if !limiter.Allow(clientKey(r)) {
					writeRateLimited(w)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller for rate limiting. RealIP middleware has
// already resolved forwarded addresses into RemoteAddr.
func clientKey(r *http.Request) string {
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}

func writeRateLimited(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	body, err := json.Marshal(Envelope{
		V:       envelopeVersion,
		Success: false,
		Error: &Error{
			Code:    "RATE_LIMITED",
			Message: "too many match requests, slow down",
		},
	})
	if err != nil {
		return
	}
	_, _ = w.Write(body)
}
