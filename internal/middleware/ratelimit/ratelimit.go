// Package ratelimit caps ledger writes per client in fixed one-minute windows.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const window = time.Minute

type Config struct {
	// RequestsPerMinute is the write budget of a single client IP.
	RequestsPerMinute int
	// CleanupInterval is how often idle clients are forgotten.
	CleanupInterval time.Duration
	// IdleTTL is how long a client may stay silent before it is forgotten.
	IdleTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		IdleTTL:           10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = def.RequestsPerMinute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = def.IdleTTL
	}
	return c
}

// budget is one client's counter for the window that began at start.
type budget struct {
	start time.Time
	seen  time.Time
	used  int
}

// take spends one request from b and reports whether it fit in limit.
func (b *budget) take(now time.Time, limit int) bool {
	if now.Sub(b.start) >= window {
		b.start, b.used = now, 0
	}
	b.seen = now
	b.used++
	return b.used <= limit
}

// Limiter tracks a budget per client IP.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	budgets map[string]*budget

	rejected atomic.Int64
	done     chan struct{}
	stopOnce sync.Once
}

func NewLimiter(cfg Config) *Limiter {
	l := &Limiter{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		budgets: make(map[string]*budget),
		done:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow spends one request of clientIP's budget for the current minute.
func (l *Limiter) Allow(clientIP string) bool {
	now := l.now()

	l.mu.Lock()
	b, ok := l.budgets[clientIP]
	if !ok {
		b = &budget{start: now}
		l.budgets[clientIP] = b
	}
	allowed := b.take(now, l.cfg.RequestsPerMinute)
	l.mu.Unlock()

	if !allowed {
		l.rejected.Add(1)
	}
	return allowed
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.forgetIdle()
		case <-l.done:
			return
		}
	}
}

func (l *Limiter) forgetIdle() {
	cutoff := l.now().Add(-l.cfg.IdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, b := range l.budgets {
		if b.seen.Before(cutoff) {
			delete(l.budgets, ip)
		}
	}
}

// Stop ends the sweeper. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

type Metrics struct {
	Rejected    int64 `json:"rejected"`
	ClientCount int64 `json:"client_count"`
}

func (l *Limiter) GetMetrics() Metrics {
	l.mu.Lock()
	clients := int64(len(l.budgets))
	l.mu.Unlock()
	return Metrics{Rejected: l.rejected.Load(), ClientCount: clients}
}

// Middleware rejects over-budget requests with 429 and a Retry-After of one
// window. Requests for which skip returns true are not counted.
func (l *Limiter) Middleware(clientIP func(*http.Request) string, skip func(*http.Request) bool, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(window / time.Second))
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if (skip == nil || !skip(r)) && !l.Allow(clientIP(r)) {
				w.Header().Set("Retry-After", retryAfter)
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
