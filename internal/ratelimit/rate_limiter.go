package ratelimit

import (
	"log/slog"
	"net/http"

	"github.com/bornholm/burpacl/internal/syncx"
	"github.com/bornholm/burpacl/pkg/log"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// RateLimiter limits requests per user key.
type RateLimiter struct {
	rate  rate.Limit
	burst int
	users syncx.Map[string, *rate.Limiter]
}

type GetUserKeyFunc func(r *http.Request) (string, error)

func (l *RateLimiter) Allow(userKey string) bool {
	limiter, exists := l.users.Load(userKey)
	if !exists {
		limiter, _ = l.users.LoadOrStore(userKey, rate.NewLimiter(l.rate, l.burst))
	}

	return limiter.Allow()
}

func (l *RateLimiter) Middleware(getUserKey GetUserKeyFunc) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userKey, err := getUserKey(r)
			if err != nil {
				slog.ErrorContext(ctx, "could not retrieve user key", log.Error(errors.WithStack(err)))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			if !l.Allow(userKey) {
				slog.WarnContext(ctx, "rate limit exceeded", slog.String("key", userKey))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func New(rate rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		rate:  rate,
		burst: burst,
	}
}
