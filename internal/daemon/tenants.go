package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

// DatabaseOpener connects to a tenant database discovered at runtime.
type DatabaseOpener func(ctx context.Context, tenant storage.TenantDatabase) (storage.Database, error)

// TenantWatcher polls a DatabaseSource and attaches every tenant database the
// daemon does not serve yet. Removed tenants are left attached.
type TenantWatcher struct {
	daemon   *Daemon
	source   storage.DatabaseSource
	open     DatabaseOpener
	interval time.Duration
	logger   *slog.Logger
}

func NewTenantWatcher(d *Daemon, source storage.DatabaseSource, open DatabaseOpener, logger *slog.Logger) *TenantWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantWatcher{
		daemon:   d,
		source:   source,
		open:     open,
		interval: d.opts.DiscoveryInterval,
		logger:   logger,
	}
}

// Run syncs immediately and then on every interval until ctx is cancelled.
func (w *TenantWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("[Tenants] Watching for tenant databases", "interval", w.interval)
	for {
		if _, err := w.Sync(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("[Tenants] Discovery failed", "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Sync attaches the tenants not yet attached and returns their names.
// A tenant that fails to open is logged and retried on the next sync.
func (w *TenantWatcher) Sync(ctx context.Context) ([]string, error) {
	tenants, err := w.source.TenantDatabases(ctx)
	if err != nil {
		return nil, err
	}

	var attached []string
	for _, tenant := range tenants {
		if tenant.Name == "" {
			continue
		}
		if _, ok := w.daemon.Database(tenant.Name); ok {
			continue
		}

		db, err := w.open(ctx, tenant)
		if err != nil {
			w.logger.Error("[Tenants] Failed to open tenant database", "database", tenant.Name, "error", err)
			continue
		}
		if err := w.daemon.AttachDatabase(db); err != nil {
			_ = db.Close()
			if errors.Is(err, ErrDatabaseAttached) {
				continue
			}
			w.logger.Error("[Tenants] Failed to attach tenant database", "database", tenant.Name, "error", err)
			continue
		}
		w.logger.Info("[Tenants] Tenant database attached", "database", tenant.Name)
		attached = append(attached, tenant.Name)
	}
	return attached, nil
}
