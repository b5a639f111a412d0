package http

import (
	"net/http"
	"sync"
	"time"
)

const (
	writesPerMinute   = 60
	limiterCleanup    = 5 * time.Minute
	limiterStaleAfter = 10 * time.Minute
)

// writeLimiter caps ledger mutations per client per minute.
type writeLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientWindow
	limit    int
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type clientWindow struct {
	start    time.Time
	requests int
}

func newWriteLimiter(limit int) *writeLimiter {
	rl := &writeLimiter{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *writeLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[clientIP]
	if !ok || now.Sub(c.start) > time.Minute {
		rl.clients[clientIP] = &clientWindow{start: now, requests: 1}
		return true
	}
	c.requests++
	return c.requests <= rl.limit
}

func (rl *writeLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanup)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.evictStale()
		case <-rl.stop:
			return
		}
	}
}

func (rl *writeLimiter) evictStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-limiterStaleAfter)
	for ip, c := range rl.clients {
		if c.start.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *writeLimiter) close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// limitWrites rejects POST requests from clients over the limit.
func (s *Server) limitWrites(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && !s.limiter.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
