package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/opsboard/internal/audit"
	"github.com/JonMunkholm/opsboard/internal/backend"
	"github.com/JonMunkholm/opsboard/internal/config"
	"github.com/JonMunkholm/opsboard/internal/core"
	"github.com/JonMunkholm/opsboard/internal/logging"
	"github.com/JonMunkholm/opsboard/internal/screens"
	"github.com/JonMunkholm/opsboard/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"backend", cfg.Backend.URL(),
		"audit_db", cfg.Database.AuditEnabled(),
		"export_max_concurrent", cfg.Export.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	// Audit store: PostgreSQL when configured, memory otherwise
	var store audit.Store = audit.NewMemoryStore()
	if cfg.Database.AuditEnabled() {
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := audit.NewPGStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to migrate audit schema", "error", err)
			os.Exit(1)
		}
		store = pg
	} else {
		slog.Warn("DATABASE_URL not set, audit log kept in memory only")
	}

	api := backend.New(cfg.Backend.URL(), cfg.Backend.Timeout,
		backend.WithServiceToken(cfg.Backend.ServiceToken),
		backend.WithRetryBaseDelay(cfg.Backend.RetryBaseDelay),
	)

	service, err := core.NewService(core.Deps{
		API:         api,
		Audit:       audit.NewRecorder(store),
		Limiter:     core.NewExportLimiter(cfg.Export.MaxConcurrent, cfg.Export.MaxWaitTime),
		CacheTTL:    cfg.Cache.TTL,
		ExportLimit: cfg.Export.AllLimit,
		ReturnURL:   cfg.Server.OrientationReturnURL(),
		Map: core.MapSettings{
			TileURL:   cfg.Map.TileURL,
			APIKey:    cfg.Map.APIKey,
			ImageSize: cfg.Map.ImageSize,
			Center:    [2]float64{cfg.Map.CenterLat, cfg.Map.CenterLon},
		},
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	slog.Info("screens registered", "count", screens.Count())

	server := web.NewServer(service, web.Options{
		Server:   cfg.Server,
		Auth:     cfg.Auth,
		Rate:     cfg.Rate,
		Security: cfg.Security,
	})

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go service.StartMaintenance(jobCtx, core.MaintenanceConfig{
		RetentionDays: cfg.Archive.RetentionDays,
		BatchSize:     cfg.Archive.BatchSize,
		PurgeInterval: cfg.Archive.CheckInterval,
		SweepInterval: cfg.Cache.SweepInterval,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Let running exports finish writing
		if active := service.Limiter().ActiveCount(); active > 0 {
			slog.Info("waiting for exports to complete", "active", active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("exports did not complete in time", "error", err)
			}
		}
	}()

	if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// openPool connects the audit database pool and verifies it.
func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to audit database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}
