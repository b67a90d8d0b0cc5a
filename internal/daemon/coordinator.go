package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/aevon-lab/projection-daemon/internal/metrics"
)

// leaseStore is the slice of storage.Database the coordinator needs.
type leaseStore interface {
	storage.LeaseStore
	Now(ctx context.Context) (time.Time, error)
}

// Coordinator decides whether this node runs a database's shards.
// In Solo mode it always does. In HotCold mode it holds a renewable lease on
// "daemon:<database>" and starts or stops the shards as leadership changes.
type Coordinator struct {
	database string
	store    leaseStore
	nodeID   string
	mode     Mode
	interval time.Duration
	ttl      time.Duration
	logger   *slog.Logger

	// onAcquire runs on acquisition and after every renewal; it must leave running shards alone.
	onAcquire func(ctx context.Context)
	onLose    func()

	mu          sync.Mutex
	leader      bool
	lastRenewed time.Time
}

func newCoordinator(database string, store leaseStore, opts Options, logger *slog.Logger, onAcquire func(context.Context), onLose func()) *Coordinator {
	return &Coordinator{
		database:  database,
		store:     store,
		nodeID:    opts.NodeID,
		mode:      opts.Mode,
		interval:  opts.LeadershipPollingTime,
		ttl:       opts.LeaseDuration,
		logger:    logger.With("database", database, "node_id", opts.NodeID),
		onAcquire: onAcquire,
		onLose:    onLose,
	}
}

func (c *Coordinator) resource() string {
	return "daemon:" + c.database
}

// Run blocks until ctx is cancelled. Shards are stopped and the lease released on return.
func (c *Coordinator) Run(ctx context.Context) {
	if c.mode == Solo {
		c.becomeLeader(ctx)
		<-ctx.Done()
		c.stepDown("shutdown")
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("[Coordinator] Competing for lease", "resource", c.resource(), "ttl", c.ttl)
	c.tick(ctx)
	for {
		select {
		case <-ticker.C:
			c.tick(ctx)
		case <-ctx.Done():
			wasLeader := c.stepDown("shutdown")
			if wasLeader {
				c.release()
			}
			return
		}
	}
}

func (c *Coordinator) tick(ctx context.Context) {
	_, acquired, err := c.store.TryAcquireLease(ctx, c.resource(), c.nodeID, c.ttl)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("[Coordinator] Lease renewal failed", "error", err)
		c.mu.Lock()
		expired := c.leader && time.Since(c.lastRenewed) >= c.ttl
		c.mu.Unlock()
		if expired {
			c.stepDown("lease could not be renewed before expiry")
		}
		return
	}

	if acquired {
		c.mu.Lock()
		c.lastRenewed = time.Now()
		renewed := c.leader
		c.mu.Unlock()
		if renewed {
			// Shards that stopped on a failed pre-commit check come back under the renewed lease.
			c.onAcquire(ctx)
			return
		}
		c.becomeLeader(ctx)
		return
	}
	c.stepDown("lease held by another node")
}

func (c *Coordinator) becomeLeader(ctx context.Context) {
	c.mu.Lock()
	if c.leader {
		c.mu.Unlock()
		return
	}
	c.leader = true
	c.lastRenewed = time.Now()
	c.mu.Unlock()

	c.logger.Info("[Coordinator] Leadership acquired", "mode", c.mode.String())
	metrics.SetLeader(c.database, true)
	c.onAcquire(ctx)
}

// stepDown stops the shards if this node was leading. Reports whether it was.
func (c *Coordinator) stepDown(reason string) bool {
	c.mu.Lock()
	if !c.leader {
		c.mu.Unlock()
		return false
	}
	c.leader = false
	c.mu.Unlock()

	c.logger.Info("[Coordinator] Leadership released", "reason", reason)
	metrics.SetLeader(c.database, false)
	c.onLose()
	return true
}

func (c *Coordinator) release() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.store.ReleaseLease(ctx, c.resource(), c.nodeID); err != nil && !errors.Is(err, storage.ErrLeaseNotHeld) {
		c.logger.Warn("[Coordinator] Failed to release lease", "error", err)
	}
}

// IsLeader reports the coordinator's current belief.
func (c *Coordinator) IsLeader() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leader
}

// CheckLeadership confirms against the store that this node still holds an
// unexpired lease. Shard agents call it right before committing a batch.
func (c *Coordinator) CheckLeadership(ctx context.Context) error {
	if c.mode == Solo {
		return nil
	}
	if !c.IsLeader() {
		return ErrLeadershipLost
	}

	lease, err := c.store.CurrentLease(ctx, c.resource())
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: lease %s released", ErrLeadershipLost, c.resource())
	}
	if err != nil {
		return fmt.Errorf("%w: read lease %s: %w", ErrLeaseUnverified, c.resource(), err)
	}
	if lease.NodeID != c.nodeID {
		return fmt.Errorf("%w: lease %s held by %s", ErrLeadershipLost, c.resource(), lease.NodeID)
	}

	now, err := c.store.Now(ctx)
	if err != nil {
		return fmt.Errorf("%w: read clock for lease %s: %w", ErrLeaseUnverified, c.resource(), err)
	}
	if !now.Before(lease.ExpiresAt) {
		return fmt.Errorf("%w: lease %s expired at %s", ErrLeadershipLost, c.resource(), lease.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}
