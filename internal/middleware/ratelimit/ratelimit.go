package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	window   = time.Minute
	staleFor = 10 * time.Minute
)

// Config sets the per-client budget. Zero values fall back to DefaultConfig.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, CleanupInterval: 5 * time.Minute}
}

// counter is one client's current window.
type counter struct {
	opened time.Time
	seen   time.Time
	used   int
}

// Limiter is a fixed-window request counter per client key.
type Limiter struct {
	limit int
	now   func() time.Time

	mu       sync.Mutex
	counters map[string]*counter
	rejected int64

	done     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts a limiter and its cleanup goroutine. Call Stop to end it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	rl := &Limiter{
		limit:    config.RequestsPerMinute,
		now:      time.Now,
		counters: make(map[string]*counter),
		done:     make(chan struct{}),
	}
	go rl.cleanupEvery(config.CleanupInterval)
	return rl
}

// Allow spends one request of key's budget and reports whether it was
// available.
func (rl *Limiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c := rl.counters[key]
	if c == nil || now.Sub(c.opened) >= window {
		c = &counter{opened: now}
		rl.counters[key] = c
	}
	c.seen = now
	c.used++
	if c.used <= rl.limit {
		return true
	}
	rl.rejected++
	return false
}

// RetryAfter is the number of whole seconds until key's window resets.
func (rl *Limiter) RetryAfter(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c := rl.counters[key]
	if c == nil {
		return 0
	}
	left := window - rl.now().Sub(c.opened)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

func (rl *Limiter) cleanupEvery(interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-tick.C:
			rl.cleanupStaleEntries()
		}
	}
}

// cleanupStaleEntries forgets clients idle for longer than staleFor.
func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-staleFor)
	for key, c := range rl.counters {
		if c.seen.Before(cutoff) {
			delete(rl.counters, key)
		}
	}
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.counters)
}

func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// Metrics is reported by the readiness probe.
type Metrics struct {
	TotalHits   int64 `json:"total_hits"`
	ClientCount int64 `json:"client_count"`
}

func (rl *Limiter) GetMetrics() Metrics {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return Metrics{TotalHits: rl.rejected, ClientCount: int64(len(rl.counters))}
}

// Middleware limits requests for which apply returns true. onLimit writes
// the rejection; nil answers with a plain 429.
func (rl *Limiter) Middleware(key func(*http.Request) string, apply func(*http.Request) bool, onLimit func(http.ResponseWriter, *http.Request, int)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apply == nil || apply(r) {
				k := key(r)
				if !rl.Allow(k) {
					retry := rl.RetryAfter(k)
					w.Header().Set("Retry-After", strconv.Itoa(retry))
					if onLimit == nil {
						http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
					} else {
						onLimit(w, r, retry)
					}
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
