package core

// scheduler.go runs background maintenance:
//  1. Purge audit entries older than the retention period
//  2. Sweep expired pages out of the query cache
//
// Both loops are context-aware and stop on shutdown. A failed run is logged
// and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// MaintenanceConfig holds scheduler settings. Zero values get defaults.
type MaintenanceConfig struct {
	RetentionDays int           // Days to keep audit entries (default: 365)
	BatchSize     int           // Rows per purge batch (default: 5000)
	PurgeInterval time.Duration // How often to purge (default: 24h)
	SweepInterval time.Duration // How often to sweep the cache (default: 1m)
}

func (c MaintenanceConfig) withDefaults() MaintenanceConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 365
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5000
	}
	if c.PurgeInterval <= 0 {
		c.PurgeInterval = 24 * time.Hour
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	return c
}

// StartMaintenance blocks running the purge and sweep loops until ctx is
// cancelled. The purge runs once immediately.
func (s *Service) StartMaintenance(ctx context.Context, cfg MaintenanceConfig) {
	cfg = cfg.withDefaults()
	slog.Info("maintenance scheduler started",
		"retention_days", cfg.RetentionDays,
		"batch_size", cfg.BatchSize,
		"purge_interval", cfg.PurgeInterval,
		"sweep_interval", cfg.SweepInterval,
	)

	s.runPurgeJob(ctx, cfg)

	purge := time.NewTicker(cfg.PurgeInterval)
	defer purge.Stop()
	sweep := time.NewTicker(cfg.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("maintenance scheduler stopped")
			return
		case <-purge.C:
			s.runPurgeJob(ctx, cfg)
		case <-sweep.C:
			s.runSweepJob()
		}
	}
}

// runPurgeJob performs one audit purge.
func (s *Service) runPurgeJob(ctx context.Context, cfg MaintenanceConfig) {
	start := time.Now()
	retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour

	purged, err := s.audit.Purge(ctx, retention, cfg.BatchSize)
	if err != nil {
		slog.Error("audit purge failed", "error", err, "entries_purged", purged)
		return
	}
	slog.Info("purged audit entries",
		"entries_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// runSweepJob evicts expired cache entries.
func (s *Service) runSweepJob() {
	if n := s.pages.Sweep(); n > 0 {
		slog.Debug("swept query cache", "entries_evicted", n, "entries_left", s.pages.Len())
	}
}
