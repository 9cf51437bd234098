package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter caps requests per client over a fixed one-minute window.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*window
	limit     int
	period    time.Duration
	lastPrune time.Time
	now       func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter returns a limiter allowing requestsPerMinute per client.
// A non-positive limit disables limiting.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*window),
		limit:   requestsPerMinute,
		period:  time.Minute,
		now:     time.Now,
	}
}

func (rl *RateLimiter) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientKey(r)) {
			w.Header().Set("Retry-After", "60")
			respondRateLimited(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.prune(now)

	win, ok := rl.clients[key]
	if !ok || !now.Before(win.resetAt) {
		win = &window{resetAt: now.Add(rl.period)}
		rl.clients[key] = win
	}

	if win.count >= rl.limit {
		return false
	}
	win.count++
	return true
}

// prune drops expired windows at most once per period. Callers hold rl.mu.
func (rl *RateLimiter) prune(now time.Time) {
	if now.Sub(rl.lastPrune) < rl.period {
		return
	}
	for key, win := range rl.clients {
		if !now.Before(win.resetAt) {
			delete(rl.clients, key)
		}
	}
	rl.lastPrune = now
}

func clientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func respondRateLimited(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"Rate limit exceeded"}`))
}
