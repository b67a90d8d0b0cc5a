package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/aevon-lab/projection-daemon/internal/admin"
	corecfg "github.com/aevon-lab/projection-daemon/internal/core/config"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/aevon-lab/projection-daemon/internal/core/storage/memory"
	"github.com/aevon-lab/projection-daemon/internal/core/storage/postgres"
	"github.com/aevon-lab/projection-daemon/internal/daemon"
	"github.com/aevon-lab/projection-daemon/internal/ingestion"
	"github.com/aevon-lab/projection-daemon/internal/logging"
	"github.com/aevon-lab/projection-daemon/internal/migrations"
	"github.com/aevon-lab/projection-daemon/internal/projection"
	"github.com/aevon-lab/projection-daemon/internal/server"
)

func main() {
	configPath := flag.String("config", "aevond.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Bootstrap logger until the configured one exists
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	slog.Info("Loaded config",
		"database_type", cfg.Database.Type,
		"daemon_mode", cfg.Daemon.Mode,
		"rollup_rules", len(cfg.Rollups.Rules))

	if err := run(cfg, logger); err != nil {
		slog.Error("Daemon stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

func run(cfg *corecfg.Config, logger *slog.Logger) error {
	// 2. Projections
	registry, err := projection.NewRegistry(projection.RollupProjections(cfg.Rollups.Rules, logger)...)
	if err != nil {
		return fmt.Errorf("build projection registry: %w", err)
	}

	opts, err := daemonOptions(cfg.Daemon, cfg.Tenancy)
	if err != nil {
		return err
	}
	d := daemon.New(registry, nil, opts, logger)
	defer func() {
		if err := d.Close(); err != nil {
			slog.Error("Failed to close databases", "error", err)
		}
	}()

	// 3. Master database
	master, err := openDatabase(cfg.Database, cfg.Database.Identifier, cfg.Database.DSN)
	if err != nil {
		return err
	}
	if err := d.AttachDatabase(master); err != nil {
		_ = master.Close()
		return err
	}

	// 3.1. Static tenant databases
	for _, tenant := range cfg.Tenancy.Databases {
		db, err := openDatabase(cfg.Database, tenant.Name, tenant.DSN)
		if err != nil {
			return fmt.Errorf("tenant %s: %w", tenant.Name, err)
		}
		if err := d.AttachDatabase(db); err != nil {
			_ = db.Close()
			return fmt.Errorf("tenant %s: %w", tenant.Name, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Async daemon
	var waiter projection.StaleWaiter
	if cfg.Daemon.Enabled {
		if err := d.StartAllShards(ctx); err != nil {
			return fmt.Errorf("start daemon: %w", err)
		}
		waiter = d
		slog.Info("Projection daemon started",
			"node_id", opts.NodeID,
			"mode", opts.Mode,
			"shards", len(registry.AsyncShards()),
			"databases", d.Databases())
	} else {
		slog.Info("Projection daemon disabled by config")
	}

	// 4.1. Tenant discovery
	if cfg.Tenancy.Discover {
		pg, ok := master.(*postgres.Adapter)
		if !ok {
			return fmt.Errorf("tenancy.discover requires database.type postgres")
		}
		watcher := daemon.NewTenantWatcher(d, postgres.NewTenantSource(pg.DB()),
			func(_ context.Context, tenant storage.TenantDatabase) (storage.Database, error) {
				return openDatabase(cfg.Database, tenant.Name, tenant.DSN)
			}, logger)
		go watcher.Run(ctx)
	}

	// 5. HTTP surfaces
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), d, cfg.Server.Mode)
	ingestion.NewService(d, registry, cfg.Database.Identifier, cfg.Server.MaxBodySizeMB).RegisterRoutes(srv.Engine)
	projection.NewService(d, waiter, registry, cfg.Database.Identifier).RegisterRoutes(srv.Engine)
	admin.NewService(d).RegisterRoutes(srv.Engine)

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled; shards stop before databases close.
	err = srv.Run(ctx)
	d.StopAll()
	return err
}

// openDatabase connects one event store database and migrates it.
func openDatabase(cfg corecfg.DatabaseConfig, name, dsn string) (storage.Database, error) {
	if cfg.Type == "memory" {
		slog.Warn("Using in-memory event store; events are lost on exit", "database", name)
		return memory.New(name), nil
	}

	db, err := postgres.Open(dsn, name, cfg.MaxOpenConns, cfg.MaxIdleConns)
	if err != nil {
		return nil, err
	}
	if err := migrations.RunMigrations(db, name, cfg.AutoMigrate); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", name, err)
	}
	adapter, err := postgres.NewAdapterFromDB(db, name)
	if err != nil {
		db.Close()
		return nil, err
	}
	return adapter, nil
}

func daemonOptions(cfg corecfg.DaemonConfig, tenancy corecfg.TenancyConfig) (daemon.Options, error) {
	mode, err := daemon.ParseMode(cfg.Mode)
	if err != nil {
		return daemon.Options{}, err
	}
	nodeID := cfg.NodeID
	if nodeID == "" {
		nodeID = uuid.NewString()
	}
	return daemon.Options{
		NodeID:                 nodeID,
		Mode:                   mode,
		BatchSize:              cfg.BatchSize,
		PollingInterval:        cfg.PollingInterval,
		FastPollingInterval:    cfg.FastPollingInterval,
		StaleSequenceThreshold: cfg.StaleSequenceThreshold,
		SafeHarborThreshold:    cfg.SafeHarborThreshold,
		LeadershipPollingTime:  cfg.LeadershipPollingTime,
		LeaseDuration:          cfg.LeaseDuration,
		DiscoveryInterval:      tenancy.DiscoveryInterval,
		ErrorPolicy: daemon.ErrorPolicy{
			ImmediateRetries:         cfg.ErrorPolicy.ImmediateRetries,
			Backoff:                  cfg.ErrorPolicy.Backoff,
			SkipPoisonEvents:         cfg.ErrorPolicy.SkipPoisonEvents,
			InfrastructureBackoffMax: cfg.ErrorPolicy.InfrastructureBackoffMax,
		},
	}, nil
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
