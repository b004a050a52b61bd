package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"flowershop/internal/config"
	"flowershop/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type rateLimiter struct {
	limiters sync.Map
	cfg      config.APIRateLimitConfig
}

func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	return &rateLimiter{
		cfg: cfg,
	}
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}

// Middleware throttles requests per client address. RPS <= 0 disables it.
func (l *rateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.cfg.RPS > 0 && !l.getLimiter(clientIP(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "Слишком много запросов, попробуйте позже")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// submissionLimit caps form posts per client address within a window. The counter lives in
// the shared store so the limit holds across instances.
func submissionLimit(store domain.SessionStore, limit int, window time.Duration, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			allowed, err := store.CheckRateLimit(r.Context(), "submit:"+clientIP(r), limit, window)
			if err != nil {
				// хранилище недоступно: не блокируем покупателя
				logger.Warn().Err(err).Msg("Submission rate limit check failed")
			} else if !allowed {
				writeError(w, http.StatusTooManyRequests, "Слишком много заявок, попробуйте позже")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
