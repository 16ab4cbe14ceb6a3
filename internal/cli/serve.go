package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hippocampai/memgate/internal/config"
	"github.com/hippocampai/memgate/internal/health"
	"github.com/hippocampai/memgate/internal/mcpserver"
	"github.com/hippocampai/memgate/internal/service"
	"github.com/hippocampai/memgate/internal/store"
	"github.com/hippocampai/memgate/internal/store/pg"
	"github.com/hippocampai/memgate/internal/store/sqlite"
	"github.com/hippocampai/memgate/internal/telemetry"
	"github.com/hippocampai/memgate/internal/tools"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP stdio server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	caps := st.Capabilities()
	slog.Info("store ready",
		"backend", cfg.Store.Backend,
		"metadata", caps.Metadata,
		"telemetry", caps.Telemetry,
	)

	recorder := telemetry.NewRecorder(100)
	defer recorder.Close()
	if cfg.Redis.URL != "" {
		if err := recorder.WithRedisMirror(ctx, cfg.Redis.URL); err != nil {
			slog.Warn("redis mirror unavailable", "error", err)
		}
	}

	tracing, err := telemetry.NewTracing(ctx, telemetry.TraceConfig{
		Endpoint: cfg.Tracing.Endpoint,
		Protocol: cfg.Tracing.Protocol,
		Insecure: cfg.Tracing.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tracing.Shutdown(shutdownCtx)
	}()

	svc := service.New(st)

	reg := tools.NewRegistry(telemetry.NewToolLogger(slog.Default()), recorder)
	reg.SetRateLimiter(tools.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	reg.SetTracer(tracing.Tracer())
	tools.RegisterMemoryTools(reg, svc)
	tools.RegisterTelemetryTools(reg, recorder)

	srv := mcpserver.New(reg, mcpserver.Options{
		Name:          cfg.Server.Name,
		DefaultUserID: cfg.Server.DefaultUserID,
		HealthProbes:  healthProbes(cfg, recorder),
		ConfigSummary: configSummary(cfg),
	})

	watcher, err := config.NewWatcher(configPath)
	if err == nil {
		watcher.OnChange(func(next *config.Config) {
			setupLogging(next.Log.Level)
			reg.SetRateLimiter(tools.NewRateLimiter(next.RateLimit.RPS, next.RateLimit.Burst))
		})
		if err := watcher.Start(); err != nil {
			slog.Warn("config watcher disabled", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("mcp server listening", "transport", "stdio", "tools", reg.Count())
		return mcpserver.ServeStdio(srv)
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		return nil
	})
	return g.Wait()
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		return sqlite.New(cfg.Store.SQLitePath)
	case config.BackendPostgres:
		db, err := pg.OpenDB(cfg.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		return pg.New(db), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

// configSummary is the memory://config resource payload. The Postgres
// DSN carries credentials, so only its presence is reported.
func configSummary(cfg *config.Config) map[string]any {
	summary := map[string]any{
		"backend":         cfg.Store.Backend,
		"default_user_id": cfg.Server.DefaultUserID,
		"redis_url":       cfg.Redis.URL,
		"otlp_endpoint":   cfg.Tracing.Endpoint,
		"rate_limit_rps":  cfg.RateLimit.RPS,
	}
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		summary["sqlite_path"] = cfg.Store.SQLitePath
	case config.BackendPostgres:
		summary["postgres_dsn_set"] = cfg.Store.PostgresDSN != ""
	}
	return summary
}

func healthProbes(cfg *config.Config, recorder *telemetry.Recorder) []health.Probe {
	var probes []health.Probe
	if cfg.Store.Backend == config.BackendPostgres {
		if addr, err := health.AddrFromURL(cfg.Store.PostgresDSN, "5432"); err == nil {
			probes = append(probes, health.TCPProbe("postgres", addr))
		}
	}
	if cfg.Redis.URL != "" {
		probes = append(probes, health.Probe{
			Name:  "redis",
			Check: recorder.PingMirror,
		})
	}
	return probes
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	// Logs go to stderr; stdout carries the MCP stream.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
