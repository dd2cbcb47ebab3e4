package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/codex-k8s/pocketbase-mcp-server/internal/http/health"
)

// Options configures the HTTP listener.
type Options struct {
	// Listen is the listen address.
	Listen string
	// Path is the MCP endpoint path.
	Path string
	// ReadTimeout bounds reading a request. Zero means 15s.
	ReadTimeout time.Duration
	// IdleTimeout bounds keep-alive connections. Zero means 60s.
	IdleTimeout time.Duration
	// ShutdownTimeout bounds graceful shutdown. Zero means 10s.
	ShutdownTimeout time.Duration
	// Ready is an optional readiness check of the backend.
	Ready health.Check
}

// App controls the HTTP server lifecycle.
type App struct {
	baseCtx         context.Context
	server          *http.Server
	health          *health.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// New initializes the HTTP server with health endpoints.
func New(baseCtx context.Context, opts Options, handler http.Handler, logger *slog.Logger) (*App, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is nil")
	}
	if baseCtx == nil {
		return nil, fmt.Errorf("base context is nil")
	}
	path := strings.TrimSpace(opts.Path)
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("http path %q must start with /", opts.Path)
	}

	healthHandler := health.New(opts.Ready)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	mux.HandleFunc("/healthz", healthHandler.Healthz)
	mux.HandleFunc("/readyz", healthHandler.Readyz)

	// No write timeout: streamable responses stay open for the call duration.
	srv := &http.Server{
		Addr:        opts.Listen,
		Handler:     mux,
		ReadTimeout: orDefault(opts.ReadTimeout, 15*time.Second),
		IdleTimeout: orDefault(opts.IdleTimeout, 60*time.Second),
	}

	return &App{
		baseCtx:         baseCtx,
		server:          srv,
		health:          healthHandler,
		logger:          logger,
		shutdownTimeout: orDefault(opts.ShutdownTimeout, 10*time.Second),
	}, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run listens on the configured address and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		a.health.SetReady()
		if a.logger != nil {
			a.logger.Info("http server started", "addr", ln.Addr().String())
		}
		errCh <- a.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		if a.logger != nil {
			a.logger.Info("shutdown requested")
		}
		return a.shutdown()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		if a.logger != nil {
			a.logger.Error("http server error", "error", err)
		}
		return err
	}
}

func (a *App) shutdown() error {
	a.health.SetNotReady()
	// The base context is usually the one whose cancellation triggered shutdown.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(a.baseCtx), a.shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func orDefault(value, def time.Duration) time.Duration {
	if value <= 0 {
		return def
	}
	return value
}
