package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/olegbakhtin/document-qa-service/internal/adapters/http"
	mcpadapter "github.com/olegbakhtin/document-qa-service/internal/adapters/mcp"
	"github.com/olegbakhtin/document-qa-service/internal/bootstrap"
	"github.com/olegbakhtin/document-qa-service/internal/config"
	"github.com/olegbakhtin/document-qa-service/internal/observability/logging"
	"github.com/olegbakhtin/document-qa-service/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	if cfg.MCPEnabled {
		logger = logging.NewStderrJSONLogger("api", cfg.LogLevel)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	httpMetrics.RegisterSynthesisCache("api", app.Cache.Stats)

	router := httpadapter.NewRouter(cfg, app.AskUC, app.IngestUC, app.Repo, app.RemoveUC, app.Conversations, app.History)
	router.SetMetrics(httpMetrics)
	router.SetReadiness(func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return app.DB.PingContext(pingCtx)
	})

	go func() {
		if err := app.SubscribeCacheInvalidation(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("cache_invalidation_subscription_stopped", "error", err)
		}
	}()

	if cfg.MCPEnabled {
		go func() {
			if err := mcpadapter.NewServer(app.AskUC, app.Repo).ServeStdio(); err != nil {
				slog.Error("mcp_server_failed", "error", err)
			}
		}()
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		slog.Error("api_listen_failed", "port", cfg.APIPort, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxConns > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConns)
	}

	server := &http.Server{
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort, "max_conns", cfg.APIMaxConns, "mcp_enabled", cfg.MCPEnabled)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
