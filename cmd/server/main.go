// Command server runs the ors-proxy RSP-to-LGC translation proxy.
//
// Configuration can be provided via:
//   - YAML config file (--config flag, ORS_PROXY_CONFIG env, ./config.yaml)
//   - Environment variables (UPSTREAM_URL, OPENAI_API_KEY, DATABASE_URL, PORT, ...)
//
// See SPEC_FULL.md §6 for the full list of recognized environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ors-proxy/ors-proxy/pkg/auth"
	"github.com/ors-proxy/ors-proxy/pkg/auth/apikey"
	"github.com/ors-proxy/ors-proxy/pkg/auth/jwt"
	"github.com/ors-proxy/ors-proxy/pkg/auth/noop"
	"github.com/ors-proxy/ors-proxy/pkg/config"
	"github.com/ors-proxy/ors-proxy/pkg/engine"
	"github.com/ors-proxy/ors-proxy/pkg/observability"
	"github.com/ors-proxy/ors-proxy/pkg/store"
	"github.com/ors-proxy/ors-proxy/pkg/store/postgres"
	"github.com/ors-proxy/ors-proxy/pkg/store/sqlite"
	"github.com/ors-proxy/ors-proxy/pkg/transport"
	transporthttp "github.com/ors-proxy/ors-proxy/pkg/transport/http"
	"github.com/ors-proxy/ors-proxy/pkg/upstream"
)

func main() {
	code := run()
	os.Exit(code)
}

// run returns the process exit code per SPEC_FULL.md §6: 0 normal shutdown,
// 1 on bind failure, 2 on store initialization/migration failure, 3 on
// invalid configuration.
func run() int {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return 3
	}

	logger := newLogger(cfg.Observability.LogLevel)
	slog.SetDefault(logger)

	st, err := openStore(context.Background(), cfg.Storage)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		return 2
	}
	defer st.Close()

	upstreamClient := upstream.New(upstream.Config{
		URL:     cfg.Upstream.URL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Server.RequestTimeout,
	})

	eng := engine.New(st, upstreamClient, engine.Config{
		DefaultModel:   cfg.Upstream.DefaultModel,
		RequestTimeout: cfg.Server.RequestTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
	}, logger)

	adapter := transporthttp.NewAdapter(eng, eng, transporthttp.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.Port),
		MaxBodySize:     10 << 20,
		ShutdownTimeout: 30,
	},
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(logger),
	)

	rspHandler := auth.Middleware(buildAuthenticator(cfg.Auth), nil, auth.DefaultBypassEndpoints)(adapter.Handler())
	rspHandler = observability.MetricsMiddleware(rspHandler)
	logger.Info("inbound authentication configured", "mode", cfg.Auth.Mode)

	mux := http.NewServeMux()
	mux.Handle("/", rspHandler)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	metricsSrv := &http.Server{
		Addr:    cfg.Observability.MetricsAddr,
		Handler: metricsMux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("server starting", "addr", addr, "upstream", cfg.Upstream.URL, "storage", cfg.Storage.BackendScheme())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("responses server: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics endpoint enabled", "addr", cfg.Observability.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
			return 1
		}
		return 0
	case err := <-errCh:
		logger.Error("server failed", "error", err)
		return 1
	}
}

// openStore dispatches to the sqlite or postgres store.Store backend based
// on the scheme of cfg.DatabaseURL.
func openStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	switch cfg.BackendScheme() {
	case "postgres":
		dsn := cfg.DatabaseURL
		return postgres.New(ctx, postgres.Config{
			DSN:             dsn,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			MigrateOnStart:  cfg.Postgres.MigrateOnStart,
		})
	case "sqlite":
		dsn := strings.TrimPrefix(cfg.DatabaseURL, "sqlite://")
		return sqlite.Open(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported storage.database_url scheme %q", cfg.BackendScheme())
	}
}

// newLogger creates the process-wide slog.Logger from the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// buildAuthenticator builds the inbound auth chain from cfg.Auth. When
// auth.mode is "none" the chain always votes Yes as an anonymous caller,
// so every request still passes through the same identity-injection and
// bypass-list machinery as the apikey/jwt modes.
func buildAuthenticator(cfg config.AuthConfig) *auth.AuthChain {
	switch cfg.Mode {
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.APIKeys))
		for _, key := range cfg.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key:      key,
				Identity: auth.Identity{Subject: key},
			})
		}
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{apikey.New(entries)},
			DefaultDecision: auth.No,
		}
	case "jwt":
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{jwt.New(jwt.Config{Secret: []byte(cfg.JWTSecret)})},
			DefaultDecision: auth.No,
		}
	default:
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{&noop.Authenticator{}},
			DefaultDecision: auth.No,
		}
	}
}
