// Package api exposes the storefront over HTTP REST: the chat assistant,
// the product catalog, session transcripts, the shopping cart and the
// payment confirmation callback.
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (recovery, CORS, logging)
//   - health.go: Health check endpoints (/health, /ready)
//   - chat.go: Conversational assistant endpoint
//   - sessions.go: Chat transcript endpoints
//   - products.go: Catalog endpoints
//   - orders.go: Order lookup and payment confirmation
//   - cart.go: Shopping cart endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads to shed slow-drip clients.
	ReadHeaderTimeout = 10 * time.Second

	ReadTimeout  = 30 * time.Second
	WriteTimeout = 60 * time.Second
	IdleTimeout  = 120 * time.Second
)

// ServerConfig wires the server's handlers.
type ServerConfig struct {
	Pool *pgxpool.Pool

	Chat     *ChatHandler
	Sessions *SessionHandler
	Products *ProductHandler
	Orders   *OrderHandler
	Cart     *CartHandler

	// CORSOrigins are the storefront origins allowed to call the API.
	CORSOrigins []string
}

// Server is the storefront's HTTP server.
type Server struct {
	mux         *http.ServeMux
	corsOrigins []string
	logger      log.Logger
}

// NewServer creates an HTTP server with all configured routes registered.
// Nil handlers are skipped, so a deployment without payments simply has no
// payment routes.
func NewServer(cfg ServerConfig, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()
	NewHealthHandler(cfg.Pool, logger).RegisterRoutes(mux)
	if cfg.Chat != nil {
		cfg.Chat.RegisterRoutes(mux)
	}
	if cfg.Sessions != nil {
		cfg.Sessions.RegisterRoutes(mux)
	}
	if cfg.Products != nil {
		cfg.Products.RegisterRoutes(mux)
	}
	if cfg.Orders != nil {
		cfg.Orders.RegisterRoutes(mux)
	}
	if cfg.Cart != nil {
		cfg.Cart.RegisterRoutes(mux)
	}

	return &Server{mux: mux, corsOrigins: cfg.CORSOrigins, logger: logger}
}

// Handler returns the HTTP handler with middleware applied.
// Order: recovery → CORS → logging → routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		corsMiddleware(s.corsOrigins),
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
