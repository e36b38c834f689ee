// Package ratelimit throttles write requests per client address.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"futurebank/internal/log"
	"futurebank/internal/metrics"
)

// DefaultRate allows 30 writes per minute per client.
const DefaultRate = "30-M"

// Limiter wraps a ulule limiter backed by an in-process memory store.
type Limiter struct {
	limiter *limiter.Limiter
}

// New builds a limiter from a formatted rate such as "30-M" or "5-S".
func New(formatted string) (*Limiter, error) {
	if formatted == "" {
		formatted = DefaultRate
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", formatted, err)
	}
	return &Limiter{limiter: limiter.New(memory.NewStore(), rate)}, nil
}

// Middleware limits state-changing requests only; GET and HEAD pass through.
// keyFunc picks the bucket, usually the client IP.
func (l *Limiter) Middleware(keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFunc(r)
			logger := log.FromContext(r.Context())
			lc, err := l.limiter.Get(r.Context(), key)
			if err != nil {
				logger.Error("Failed to get rate limit context", log.FieldClientIP, key, log.FieldError, err)
				http.Error(w, "rate limit check failed", http.StatusInternalServerError)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))

			if lc.Reached {
				metrics.RateLimited.Inc()
				logger.Warn("Rate limit exceeded", log.FieldClientIP, key, "limit", lc.Limit)
				retry := time.Until(time.Unix(lc.Reset, 0)).Round(time.Second)
				if retry < time.Second {
					retry = time.Second
				}
				h.Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
				http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
