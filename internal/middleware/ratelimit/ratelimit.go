// Package ratelimit throttles mutating requests per client address.
package ratelimit

import (
	"math"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	window   = time.Minute
	idleTTL  = 10 * time.Minute
	errLimit = "rate limit exceeded, try again later"
)

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 120, CleanupInterval: 5 * time.Minute}
}

// Limiter counts requests per client in fixed one minute windows.
type Limiter struct {
	limit int
	now   func() time.Time

	mu      sync.Mutex
	windows map[string]*counter

	done     chan struct{}
	stopOnce sync.Once
}

type counter struct {
	start time.Time
	seen  time.Time
	n     int
}

// NewLimiter starts a background sweep of idle clients; Stop ends it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	l := &Limiter{
		limit:   cfg.RequestsPerMinute,
		now:     time.Now,
		windows: map[string]*counter{},
		done:    make(chan struct{}),
	}
	go l.sweepEvery(cfg.CleanupInterval)
	return l
}

func (l *Limiter) Allow(client string) bool {
	ok, _ := l.take(client)
	return ok
}

// take records one request and, when refused, how long until the window resets.
func (l *Limiter) take(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c := l.windows[client]
	if c == nil || now.Sub(c.start) >= window {
		l.windows[client] = &counter{start: now, seen: now, n: 1}
		return true, 0
	}
	c.n++
	c.seen = now
	if c.n <= l.limit {
		return true, 0
	}
	return false, window - now.Sub(c.start)
}

func (l *Limiter) sweepEvery(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-t.C:
			l.cleanupStaleEntries()
		}
	}
}

func (l *Limiter) cleanupStaleEntries() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for client, c := range l.windows {
		if now.Sub(c.seen) > idleTTL {
			delete(l.windows, client)
		}
	}
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Middleware limits requests whose method is listed; with no methods it
// limits everything. Refused requests get 429 and a Retry-After in seconds.
func (l *Limiter) Middleware(methods ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(methods) > 0 && !slices.Contains(methods, c.Request.Method) {
			c.Next()
			return
		}
		ok, wait := l.take(c.ClientIP())
		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(secs, 1)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": errLimit})
			return
		}
		c.Next()
	}
}
