package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"slackbridge/errors"
	"slackbridge/server/metrics"
)

type rateLimiters struct {
	visitors map[string]*rate.Limiter
	mu       sync.Mutex
}

func (l *rateLimiters) getOrCreate(ip string, create func() *rate.Limiter) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.visitors[ip]
	if !exists {
		limiter = create()
		l.visitors[ip] = limiter
	}

	return limiter
}

// RateLimit implements per-IP rate limiting: requests per window. Each
// RateLimit call owns its own limiter table, so separate routes throttle
// independently. Rejected requests are counted per client in m.
func RateLimit(requests int, window time.Duration, m *metrics.Metrics) func(http.Handler) http.Handler {
	limiters := &rateLimiters{visitors: make(map[string]*rate.Limiter)}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if idx := strings.LastIndex(ip, ":"); idx != -1 {
				ip = ip[:idx] // Strip port number if present
			}

			limiter := limiters.getOrCreate(ip, func() *rate.Limiter {
				return rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
			})

			if !limiter.Allow() {
				m.RateLimitHits.WithLabelValues(ip).Inc()
				errResp := errors.NewRateLimitError("Rate limit exceeded", int(window.Seconds()), nil)
				errResp.RequestID = GetRequestID(r.Context())
				errors.WriteError(w, errResp)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
