// Package http serves the transactions collection with json-server
// compatible routes.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"dtmoney/internal/cache"
	"dtmoney/internal/core"
	"dtmoney/internal/log"
	"dtmoney/internal/middleware/ratelimit"
	"dtmoney/internal/middleware/security"
	"dtmoney/internal/middleware/trace"
	"dtmoney/internal/ports"
	"dtmoney/internal/services"
)

const (
	defaultCacheSize       = 100
	defaultCacheTTL        = 30 * time.Second
	cacheCleanupInterval   = time.Minute
	readinessCheckDeadline = 5 * time.Second
)

// Options configures NewServer. Repository is required. A nil Publisher
// disables event fan-out and a nil Ping reports always ready. Only peers in
// TrustedProxies may set X-Forwarded-For; with none, the rate limit keys on
// the socket address.
type Options struct {
	Addr               string
	Repository         ports.TransactionRepository
	Publisher          ports.EventPublisher
	Ping               func(ctx context.Context) error
	Logger             *log.Logger
	RateLimitPerMinute int
	CacheTTL           time.Duration
	CacheSize          int
	TrustedProxies     []string
}

type Server struct {
	http.Server

	transactions *services.TransactionService
	ping         func(ctx context.Context) error
	logger       *log.Logger
	sl           *log.StructuredLogger
	startedAt    time.Time
	rateLimiter  *ratelimit.Limiter
	proxies      []string

	// list responses keyed by normalized query, cleared on every write
	listCache    *cache.LRUCache[[]core.Transaction]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}

	s := &Server{
		transactions: services.NewTransactionService(opts.Repository, opts.Publisher, logger),
		ping:         opts.Ping,
		logger:       logger,
		sl:           log.NewStructuredLogger(logger),
		startedAt:    time.Now(),
		rateLimiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		listCache:    cache.NewLRUCache[[]core.Transaction](size, ttl),
		cacheManager: cache.NewManager(logger),
		proxies:      opts.TrustedProxies,
	}
	s.cacheManager.Register(s.listCache)
	s.cacheManager.StartCleanup(cacheCleanupInterval)

	s.Addr = opts.Addr
	s.Handler = s.routes()
	s.ReadHeaderTimeout = 10 * time.Second
	s.ReadTimeout = 15 * time.Second
	s.WriteTimeout = 15 * time.Second
	s.IdleTimeout = 60 * time.Second
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(s.proxies); err != nil {
		s.logger.Warn("Ignoring invalid trusted proxies", "error", err, "proxies", s.proxies)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(
		gin.Recovery(),
		trace.RequestID(),
		log.GinMiddleware(s.logger, trace.FromGin),
		security.Headers(security.DefaultHeadersConfig()),
	)

	r.GET("/healthz", s.handleHealth)
	r.GET("/readyz", s.handleReady)

	tx := r.Group("/transactions")
	tx.Use(s.rateLimiter.Middleware(http.MethodPost, http.MethodDelete))
	tx.GET("", s.handleListTransactions)
	tx.GET("/:id", s.handleGetTransaction)
	tx.POST("", s.handleCreateTransaction)
	tx.DELETE("/:id", s.handleDeleteTransaction)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

// Shutdown stops background goroutines and the HTTP server. Safe to call
// more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) invalidateLists() {
	s.listCache.Clear()
}
