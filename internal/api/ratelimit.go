// ABOUTME: Per-caller token bucket limiting of mutating HTTP requests
// ABOUTME: Uses golang.org/x/time/rate; reads and the event stream are never limited

package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/2389/adledger/internal/auth"
)

// limiterPruneInterval bounds how often allow sweeps refilled buckets.
const limiterPruneInterval = time.Minute

// writeLimiter keeps one token bucket per caller. Anonymous requests share
// the bucket of the empty caller.
type writeLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	limiters  map[auth.Caller]*rate.Limiter
	lastPrune time.Time
	now       func() time.Time
}

// newWriteLimiter returns nil when perSecond is not positive, which
// disables limiting.
func newWriteLimiter(perSecond float64, burst int) *writeLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &writeLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[auth.Caller]*rate.Limiter),
		now:      time.Now,
	}
}

func (l *writeLimiter) allow(caller auth.Caller) bool {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastPrune) >= limiterPruneInterval {
		l.pruneLocked(now)
		l.lastPrune = now
	}
	lim, ok := l.limiters[caller]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[caller] = lim
	}
	l.mu.Unlock()

	return lim.AllowN(now, 1)
}

// pruneLocked drops every bucket that has refilled to burst. A fresh bucket
// behaves identically, so callers lose no budget.
func (l *writeLimiter) pruneLocked(now time.Time) {
	for caller, lim := range l.limiters {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, caller)
		}
	}
}

// rateLimitMiddleware rejects mutating requests over the caller's budget
// with 429.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.writes == nil {
		return next
	}
	retryAfter := strconv.Itoa(max(1, int(1/float64(s.writes.limit))))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isMutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		caller, _ := auth.CallerFromContext(r.Context())
		if !s.writes.allow(caller) {
			s.logger.Debug("write rate exceeded", "caller", caller, "path", r.URL.Path)
			w.Header().Set("Retry-After", retryAfter)
			s.sendJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
