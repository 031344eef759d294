// Package server assembles the HTTP and WebSocket API for the staking
// ledger.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/stakevault/internal/domain"
	"github.com/alanyoungcy/stakevault/internal/server/handler"
	"github.com/alanyoungcy/stakevault/internal/server/middleware"
	"github.com/alanyoungcy/stakevault/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// APIKeys gate the whole API; empty disables authentication.
	APIKeys []string
	// AdminKeys additionally gate the /api/admin subtree.
	AdminKeys []string
	// RateLimitPerMin caps requests per client IP per minute; zero or a nil
	// limiter disables rate limiting.
	RateLimitPerMin int64
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Options   *handler.OptionHandler
	Positions *handler.PositionHandler
	Balance   *handler.BalanceHandler
	Admin     *handler.AdminHandler
}

// Server is the headless HTTP + WebSocket API server for the staking ledger.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required beyond the API key).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Option catalog.
	mux.HandleFunc("GET /api/options", handlers.Options.ListOptions)
	mux.HandleFunc("GET /api/options/{index}", handlers.Options.GetOption)
	mux.HandleFunc("GET /api/options/{index}/quote", handlers.Options.QuoteRewards)

	// Staking.
	mux.HandleFunc("POST /api/stake", handlers.Positions.Stake)
	mux.HandleFunc("GET /api/positions", handlers.Positions.ListPositions)
	mux.HandleFunc("POST /api/positions/{index}/withdraw", handlers.Positions.Withdraw)
	mux.HandleFunc("POST /api/positions/{index}/claim", handlers.Positions.ClaimRewards)
	mux.HandleFunc("GET /api/positions/{index}/claimable", handlers.Positions.Claimable)

	// Custody balances.
	mux.HandleFunc("GET /api/balance", handlers.Balance.AvailableBalance)

	// Admin subtree behind the admin key.
	admin := middleware.Admin(cfg.AdminKeys)
	mux.Handle("POST /api/admin/options", admin(http.HandlerFunc(handlers.Admin.AddOption)))
	mux.Handle("POST /api/admin/owners", admin(http.HandlerFunc(handlers.Admin.AddStakeOwner)))
	mux.Handle("POST /api/admin/ownership", admin(http.HandlerFunc(handlers.Admin.TransferOwnership)))
	mux.Handle("POST /api/admin/pause", admin(http.HandlerFunc(handlers.Admin.SetPaused)))
	mux.Handle("GET /api/admin/audit", admin(http.HandlerFunc(handlers.Admin.ListAudit)))

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKeys)(h)
	if limiter != nil && cfg.RateLimitPerMin > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimitPerMin, time.Minute)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
