package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

// TryAcquireLease takes or renews a lease with a single conditional upsert.
func (a *Adapter) TryAcquireLease(ctx context.Context, resource, nodeID string, ttl time.Duration) (storage.Lease, bool, error) {
	var lease storage.Lease
	err := a.db.QueryRowContext(ctx, queryTryAcquireLease, resource, nodeID, ttl.Milliseconds()).
		Scan(&lease.Resource, &lease.NodeID, &lease.AcquiredAt, &lease.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Lease{}, false, nil
	}
	if err != nil {
		return storage.Lease{}, false, fmt.Errorf("failed to acquire lease %q: %w", resource, err)
	}
	return lease, true, nil
}

// ReleaseLease deletes the lease if nodeID owns it.
func (a *Adapter) ReleaseLease(ctx context.Context, resource, nodeID string) error {
	result, err := a.db.ExecContext(ctx, queryReleaseLease, resource, nodeID)
	if err != nil {
		return fmt.Errorf("failed to release lease %q: %w", resource, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read release result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("release lease %q: %w", resource, storage.ErrLeaseNotHeld)
	}
	return nil
}

// CurrentLease returns the lease row regardless of expiry.
func (a *Adapter) CurrentLease(ctx context.Context, resource string) (storage.Lease, error) {
	var lease storage.Lease
	err := a.db.QueryRowContext(ctx, querySelectLease, resource).
		Scan(&lease.Resource, &lease.NodeID, &lease.AcquiredAt, &lease.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Lease{}, fmt.Errorf("lease %q: %w", resource, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Lease{}, fmt.Errorf("failed to read lease %q: %w", resource, err)
	}
	return lease, nil
}
