package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"dailyspend/internal/cache"
	"dailyspend/internal/config"
	"dailyspend/internal/core"
	"dailyspend/internal/ledger"
	applog "dailyspend/internal/log"
	"dailyspend/internal/middleware/ratelimit"
	"dailyspend/internal/middleware/security"
	"dailyspend/internal/middleware/trace"
	"dailyspend/internal/services"
)

// Deps carries everything the server needs. Store is used for direct reads
// and readiness probes; writes go through the ledger service so events get
// published.
type Deps struct {
	Store     ledger.Store
	Ledger    *services.LedgerService
	Summaries *services.SummaryService
	Logger    *applog.Logger
}

type appMetrics struct {
	startedAt         time.Time
	transactionsTotal atomic.Int64
	summariesTotal    atomic.Int64
}

type Server struct {
	http.Server

	store      ledger.Store
	ledgerSvc  *services.LedgerService
	summaries  *services.SummaryService
	logger     *applog.Logger
	structured *applog.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	headers          *security.HeadersMiddleware

	// Response caches, invalidated per user on every write
	summaryCache  *cache.LRUCache[services.Summary]
	overviewCache *cache.LRUCache[core.MonthOverview]
	cacheManager  *cache.Manager

	metrics      appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{
		store:            deps.Store,
		ledgerSvc:        deps.Ledger,
		summaries:        deps.Summaries,
		logger:           logger,
		structured:       applog.NewStructuredLogger(logger),
		securityDetector: security.NewDetector(),
		headers:          security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
		}),
		summaryCache:  cache.NewLRUCache[services.Summary](cfg.CacheSize, cfg.CacheTTL),
		overviewCache: cache.NewLRUCache[core.MonthOverview](cfg.CacheSize, cfg.CacheTTL),
		cacheManager:  cache.NewManager(),
		metrics:       appMetrics{startedAt: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.overviewCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/transactions/", s.handleTransactionByID)
	mux.HandleFunc("/api/goals", s.handleGoals)
	mux.HandleFunc("/api/profile", s.handleProfile)
	mux.HandleFunc("/api/recurring", s.handleRecurring)
	mux.HandleFunc("/api/recurring/", s.handleRecurringByID)
	mux.HandleFunc("/api/summary/daily", s.handleDailySummary)
	mux.HandleFunc("/api/dashboard/month", s.handleMonthOverview)

	// Request-scoped loggers carry the trace-assigned request ID so handler
	// logs correlate with the access log.
	withLogger := applog.Middleware(logger)
	withRequestID := applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, nil)
	watched := s.securityDetector.Middleware(mux)
	handler := s.headers.Middleware(s.traceMiddleware.Middleware(withLogger(withRequestID(limited(watched)))))

	s.Server = http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Shutdown stops the HTTP server and the background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidateUser drops every cached response for the user. Called after any
// write that can change a summary or overview.
func (s *Server) invalidateUser(userID string) {
	dropped := s.summaryCache.DeletePrefix(userID+"|") + s.overviewCache.DeletePrefix(userID+"|")
	if dropped > 0 {
		s.logger.Debug("Invalidated cached responses", "user_id", userID, "entries", dropped)
	}
}
