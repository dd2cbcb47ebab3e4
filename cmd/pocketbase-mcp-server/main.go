package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codex-k8s/pocketbase-mcp-server/configs"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/app"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/audit"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/config"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/constants"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/log"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/pocketbase"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/runtime"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/schema"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/tools"
)

func main() {
	catalogPath := flag.String("catalog", "", "Tool catalog file (defaults to the embedded catalog)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(cfg.LogLevel, os.Stderr)

	path := cfg.CatalogPath
	if *catalogPath != "" {
		path = *catalogPath
	}
	catalog, err := configs.Catalog(path)
	if err != nil {
		logger.Error("load catalog failed", "error", err)
		os.Exit(1)
	}

	client, err := pocketbase.New(cfg.PocketBaseURL,
		pocketbase.WithTimeout(cfg.HTTPTimeout),
		pocketbase.WithRatePerMinute(cfg.RatePerMinute),
	)
	if err != nil {
		logger.Error("create pocketbase client failed", "error", err)
		os.Exit(1)
	}

	dispatcher, err := tools.New(client, tools.Credentials{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}, catalog.Tools)
	if err != nil {
		logger.Error("build dispatcher failed", "error", err)
		os.Exit(1)
	}

	validator, err := schema.Compile(catalog.Tools)
	if err != nil {
		logger.Error("compile input schemas failed", "error", err)
		os.Exit(1)
	}

	var auditLog audit.Logger = audit.New(logger)
	if cfg.AuditDB != "" {
		sqliteLog, err := audit.OpenSQLite(cfg.AuditDB, logger)
		if err != nil {
			logger.Error("open audit database failed", "error", err)
			os.Exit(1)
		}
		defer func() { _ = sqliteLog.Close() }()
		auditLog = sqliteLog
	}

	builder := runtime.Builder{
		Logger:     logger,
		Audit:      auditLog,
		Dispatcher: dispatcher,
		Validator:  validator,
		Tools:      cfg.Tools,
	}
	server, err := builder.Build(catalog)
	if err != nil {
		logger.Error("build server failed", "error", err)
		os.Exit(1)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	go func() {
		sig := <-sigCh
		logger.Warn("shutdown requested", "signal", sig.String())
		cancel()
	}()

	logger.Info("pocketbase mcp server starting",
		"transport", cfg.Transport,
		"pocketbase_url", cfg.PocketBaseURL,
		"tools", len(dispatcher.Names()),
	)

	switch cfg.Transport {
	case constants.TransportStdio:
		err = runStdio(baseCtx, server)
	default:
		err = runHTTP(baseCtx, cfg, server, client, logger)
	}
	if err != nil {
		logger.Error("runtime error", "error", err)
		cancel()
		os.Exit(1)
	}
}

func runStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func runHTTP(ctx context.Context, cfg config.Config, server *mcp.Server, client *pocketbase.Client, logger *slog.Logger) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{
		Stateless: cfg.HTTPStateless,
	})

	application, err := app.New(ctx, app.Options{
		Listen:          cfg.HTTPListen,
		Path:            cfg.HTTPPath,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Ready:           client.Health,
	}, handler, logger)
	if err != nil {
		return err
	}

	return application.Run(ctx)
}
