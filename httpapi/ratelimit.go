package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL   = 10 * time.Minute
	limiterSweepSize = 4096
)

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP in memory. Idle buckets are
// swept once the table grows past limiterSweepSize.
type ipLimiter struct {
	mu      sync.Mutex
	entries map[string]*ipEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func newIPLimiter(perSecond float64, burst int, now func() time.Time) *ipLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiter{
		entries: make(map[string]*ipEntry),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[ip]
	if !ok {
		if len(l.entries) >= limiterSweepSize {
			l.sweep(now)
		}
		e = &ipEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (l *ipLimiter) sweep(now time.Time) {
	for ip, e := range l.entries {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(l.entries, ip)
		}
	}
}

func (s *Server) limitIP(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	retry := strconv.Itoa(int(math.Ceil(1 / float64(s.limiter.limit))))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := s.clientIP(r)
		if ip != "" && !s.limiter.allow(ip) {
			w.Header().Set("Retry-After", retry)
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too_many_requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
