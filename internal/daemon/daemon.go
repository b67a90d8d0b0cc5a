package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/aevon-lab/projection-daemon/internal/projection"
)

// Daemon owns every async shard of every attached database.
// One runtime per database bundles its high-water agent, coordinator and shard agents.
type Daemon struct {
	registry *projection.Registry
	tracker  *Tracker
	opts     Options
	logger   *slog.Logger

	mu       sync.RWMutex
	runtimes map[string]*databaseRuntime
	primary  string
	runCtx   context.Context
	cancel   context.CancelFunc
	running  bool
	wg       sync.WaitGroup
}

type databaseRuntime struct {
	name        string
	db          storage.Database
	highWater   *HighWaterAgent
	coordinator *Coordinator
	agents      map[string]*ShardAgent
	shards      []string

	// control serializes leadership transitions with rebuilds.
	control sync.Mutex
	ctx     context.Context
}

// New creates a stopped daemon. tracker may be shared with observers; nil creates one.
func New(registry *projection.Registry, tracker *Tracker, opts Options, logger *slog.Logger) *Daemon {
	if tracker == nil {
		tracker = NewTracker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{
		registry: registry,
		tracker:  tracker,
		opts:     opts.withDefaults(),
		logger:   logger,
		runtimes: make(map[string]*databaseRuntime),
	}
}

// Tracker returns the daemon's state hub.
func (d *Daemon) Tracker() *Tracker {
	return d.tracker
}

// AttachDatabase adds a database. When the daemon is running its shards start
// right away, subject to leadership.
func (d *Daemon) AttachDatabase(db storage.Database) error {
	name := db.Identifier()

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.runtimes[name]; exists {
		return fmt.Errorf("%s: %w", name, ErrDatabaseAttached)
	}

	rt := d.newRuntime(db)
	d.runtimes[name] = rt
	if d.primary == "" {
		d.primary = name
	}
	d.logger.Info("[Daemon] Database attached", "database", name, "shards", len(rt.shards))

	if d.running {
		d.launchLocked(rt)
	}
	return nil
}

func (d *Daemon) newRuntime(db storage.Database) *databaseRuntime {
	name := db.Identifier()
	logger := d.logger.With("component", "daemon")

	rt := &databaseRuntime{
		name:   name,
		db:     db,
		agents: make(map[string]*ShardAgent),
	}
	rt.highWater = NewHighWaterAgent(name, NewDetector(db, d.opts.SafeHarborThreshold, logger), d.tracker, d.opts, logger)
	rt.coordinator = newCoordinator(name, db, d.opts, logger,
		func(ctx context.Context) { d.startRuntimeShards(ctx, rt) },
		func() { d.stopRuntimeShards(rt) },
	)

	for _, shard := range d.registry.AsyncShards() {
		rt.agents[shard.Name] = newShardAgent(shard, name, db, rt.highWater, rt.coordinator, d.tracker, d.opts, logger)
		rt.shards = append(rt.shards, shard.Name)
	}
	return rt
}

// StartAllShards launches every attached database. It returns once the
// background loops are running; shards start as leadership allows.
func (d *Daemon) StartAllShards(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}
	d.runCtx, d.cancel = context.WithCancel(ctx)
	d.running = true

	d.logger.Info("[Daemon] Starting",
		"mode", d.opts.Mode.String(),
		"node_id", d.opts.NodeID,
		"databases", len(d.runtimes),
	)
	for _, name := range d.sortedNamesLocked() {
		d.launchLocked(d.runtimes[name])
	}
	return nil
}

func (d *Daemon) launchLocked(rt *databaseRuntime) {
	ctx := d.runCtx
	rt.control.Lock()
	rt.ctx = ctx
	rt.control.Unlock()

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		rt.highWater.Start(ctx)
	}()
	go func() {
		defer d.wg.Done()
		rt.coordinator.Run(ctx)
	}()
}

// StopAll stops every shard and waits for the loops to exit. In-flight batches
// either commit or are abandoned.
func (d *Daemon) StopAll() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel := d.cancel
	d.mu.Unlock()

	cancel()
	d.wg.Wait()
	d.logger.Info("[Daemon] Stopped")
}

// Close stops the daemon and closes every attached database.
func (d *Daemon) Close() error {
	d.StopAll()

	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	for _, name := range d.sortedNamesLocked() {
		if err := d.runtimes[name].db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (d *Daemon) startRuntimeShards(ctx context.Context, rt *databaseRuntime) {
	rt.control.Lock()
	defer rt.control.Unlock()

	for _, name := range rt.shards {
		if err := rt.agents[name].Start(ctx); err != nil {
			d.logger.Error("[Daemon] Failed to start shard", "database", rt.name, "shard", name, "error", err)
		}
	}
}

func (d *Daemon) stopRuntimeShards(rt *databaseRuntime) {
	rt.control.Lock()
	defer rt.control.Unlock()
	d.stopAgents(rt.agentList(rt.shards))
}

func (d *Daemon) stopAgents(agents []*ShardAgent) {
	var g errgroup.Group
	for _, agent := range agents {
		g.Go(func() error {
			agent.Stop()
			return nil
		})
	}
	_ = g.Wait()
}

func (rt *databaseRuntime) agentList(names []string) []*ShardAgent {
	out := make([]*ShardAgent, 0, len(names))
	for _, name := range names {
		out = append(out, rt.agents[name])
	}
	return out
}

func (rt *databaseRuntime) shouldRun() bool {
	return rt.ctx != nil && rt.ctx.Err() == nil && rt.coordinator.IsLeader()
}

// PauseShard stops a shard and keeps it stopped across leadership changes until ResumeShard.
func (d *Daemon) PauseShard(database, shard string) error {
	_, agent, err := d.agent(database, shard)
	if err != nil {
		return err
	}
	agent.Pause()
	return nil
}

// ResumeShard releases a paused shard. It restarts from persisted progress on the leader.
func (d *Daemon) ResumeShard(database, shard string) error {
	rt, agent, err := d.agent(database, shard)
	if err != nil {
		return err
	}

	rt.control.Lock()
	defer rt.control.Unlock()
	return agent.Resume(rt.ctx, rt.shouldRun())
}

// RebuildProjection discards a projection's documents and progress in every
// database, then replays it from sequence 0. The shards stay stopped while
// the teardown runs.
func (d *Daemon) RebuildProjection(ctx context.Context, name string) error {
	p, ok := d.registry.Get(name)
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrProjectionNotFound)
	}
	if p.Options().Lifecycle != projection.Async {
		return fmt.Errorf("%s: only async projections can be rebuilt", name)
	}

	var shardNames []string
	for _, shard := range projection.ShardsFor(p) {
		shardNames = append(shardNames, shard.Name)
	}

	for _, rt := range d.runtimeList() {
		if err := d.rebuildIn(ctx, rt, p, shardNames); err != nil {
			return err
		}
	}
	return nil
}

func (d *Daemon) rebuildIn(ctx context.Context, rt *databaseRuntime, p projection.Projection, shardNames []string) error {
	rt.control.Lock()
	defer rt.control.Unlock()

	if d.opts.Mode == HotCold && !rt.coordinator.IsLeader() {
		return fmt.Errorf("rebuild %s in %s: %w", p.Name(), rt.name, ErrNotLeader)
	}

	d.logger.Info("[Daemon] Rebuilding projection", "database", rt.name, "projection", p.Name())
	agents := rt.agentList(shardNames)
	d.stopAgents(agents)

	if t, ok := p.(projection.Teardowner); ok {
		if err := t.Teardown(ctx, rt.db); err != nil {
			return fmt.Errorf("rebuild %s in %s: teardown: %w", p.Name(), rt.name, err)
		}
	} else {
		deleted, err := rt.db.DeleteProjectionDocuments(ctx, p.Name())
		if err != nil {
			return fmt.Errorf("rebuild %s in %s: delete documents: %w", p.Name(), rt.name, err)
		}
		d.logger.Info("[Daemon] Projection documents deleted", "database", rt.name, "projection", p.Name(), "documents", deleted)
	}

	for _, agent := range agents {
		if err := agent.Reset(ctx); err != nil {
			return fmt.Errorf("rebuild %s in %s: %w", p.Name(), rt.name, err)
		}
	}

	run := rt.shouldRun()
	for _, agent := range agents {
		if err := agent.Resume(rt.ctx, run); err != nil {
			return fmt.Errorf("rebuild %s in %s: restart: %w", p.Name(), rt.name, err)
		}
	}
	return nil
}

// WaitForNonStaleData blocks until every async shard of database has committed
// the high-water mark observed when the call started. An empty database waits
// for all of them. On timeout it returns an error wrapping ErrStaleData.
func (d *Daemon) WaitForNonStaleData(ctx context.Context, database string, timeout time.Duration) error {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()
	if !running {
		return ErrDaemonStopped
	}

	var runtimes []*databaseRuntime
	if database == "" {
		runtimes = d.runtimeList()
	} else {
		rt, err := d.runtime(database)
		if err != nil {
			return err
		}
		runtimes = []*databaseRuntime{rt}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, rt := range runtimes {
		if err := d.waitRuntime(ctx, rt); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%s after %s: %w", rt.name, timeout, ErrStaleData)
			}
			return err
		}
	}
	return nil
}

func (d *Daemon) waitRuntime(ctx context.Context, rt *databaseRuntime) error {
	stats, err := rt.highWater.CheckNow(ctx)
	if err != nil {
		return fmt.Errorf("detect high water mark of %s: %w", rt.name, err)
	}
	target := stats.CurrentMark

	wake := make(chan struct{}, 1)
	unsubscribe := d.tracker.Subscribe(func(state ShardState) {
		if state.Database != rt.name {
			return
		}
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(d.opts.FastPollingInterval)
	defer ticker.Stop()

	for {
		caughtUp, err := d.caughtUp(ctx, rt, target)
		if err != nil {
			return err
		}
		if caughtUp {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		case <-ticker.C:
		}
	}
}

func (d *Daemon) caughtUp(ctx context.Context, rt *databaseRuntime, target int64) (bool, error) {
	for _, name := range rt.shards {
		agent := rt.agents[name]
		if agent.Status() == StatusPaused {
			return false, fmt.Errorf("%s/%s: %w", rt.name, name, ErrShardPaused)
		}
		seq, err := rt.db.ProgressFor(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, fmt.Errorf("read progress of %s/%s: %w", rt.name, name, err)
		}
		if seq < target {
			return false, nil
		}
	}
	return true, nil
}

// ProjectionProgressFor returns the persisted progress of one shard.
// A known shard that never committed reports sequence 0.
func (d *Daemon) ProjectionProgressFor(ctx context.Context, database, shard string) (storage.ProjectionProgress, error) {
	rt, err := d.runtime(database)
	if err != nil {
		return storage.ProjectionProgress{}, err
	}

	row, err := rt.db.FindProgress(ctx, shard)
	if errors.Is(err, storage.ErrNotFound) {
		if _, known := rt.agents[shard]; known {
			return storage.ProjectionProgress{ShardName: shard, TenantDatabase: rt.name}, nil
		}
		return storage.ProjectionProgress{}, fmt.Errorf("%s/%s: %w", rt.name, shard, ErrShardNotFound)
	}
	if err != nil {
		return storage.ProjectionProgress{}, err
	}
	return row, nil
}

// AllProjectionProgress returns every progress row of database, or of every
// database when database is empty.
func (d *Daemon) AllProjectionProgress(ctx context.Context, database string) ([]storage.ProjectionProgress, error) {
	runtimes, err := d.selectRuntimes(database)
	if err != nil {
		return nil, err
	}

	var out []storage.ProjectionProgress
	for _, rt := range runtimes {
		rows, err := rt.db.AllProgress(ctx)
		if err != nil {
			return nil, fmt.Errorf("read progress of %s: %w", rt.name, err)
		}
		out = append(out, rows...)
	}
	return out, nil
}

// ShardStatuses reports every agent of database, or of every database when empty.
func (d *Daemon) ShardStatuses(database string) ([]ShardStatus, error) {
	runtimes, err := d.selectRuntimes(database)
	if err != nil {
		return nil, err
	}

	var out []ShardStatus
	for _, rt := range runtimes {
		for _, name := range rt.shards {
			out = append(out, rt.agents[name].Snapshot())
		}
	}
	return out, nil
}

// HighWater returns the last published high-water statistics of database.
func (d *Daemon) HighWater(database string) (HighWaterStatistics, error) {
	rt, err := d.runtime(database)
	if err != nil {
		return HighWaterStatistics{}, err
	}
	return rt.highWater.Statistics(), nil
}

// IsLeader reports whether this node currently runs database's shards.
func (d *Daemon) IsLeader(database string) bool {
	rt, err := d.runtime(database)
	return err == nil && rt.coordinator.IsLeader()
}

// Database returns an attached database by name. An empty name is the first attached one.
func (d *Daemon) Database(name string) (storage.Database, bool) {
	rt, err := d.runtime(name)
	if err != nil {
		return nil, false
	}
	return rt.db, true
}

// DocumentStore satisfies projection.DocumentStores.
func (d *Daemon) DocumentStore(database string) (storage.DocumentStore, bool) {
	return d.Database(database)
}

// Ping checks every attached database. It backs the /health endpoint.
func (d *Daemon) Ping(ctx context.Context) error {
	var errs []error
	for _, rt := range d.runtimeList() {
		if err := rt.db.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rt.name, err))
		}
	}
	return errors.Join(errs...)
}

// Databases lists attached database names in order.
func (d *Daemon) Databases() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sortedNamesLocked()
}

func (d *Daemon) agent(database, shard string) (*databaseRuntime, *ShardAgent, error) {
	rt, err := d.runtime(database)
	if err != nil {
		return nil, nil, err
	}
	agent, ok := rt.agents[shard]
	if !ok {
		return nil, nil, fmt.Errorf("%s/%s: %w", rt.name, shard, ErrShardNotFound)
	}
	return rt, agent, nil
}

func (d *Daemon) runtime(database string) (*databaseRuntime, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if database == "" {
		database = d.primary
	}
	rt, ok := d.runtimes[database]
	if !ok {
		return nil, fmt.Errorf("%q: %w", database, ErrDatabaseNotFound)
	}
	return rt, nil
}

func (d *Daemon) selectRuntimes(database string) ([]*databaseRuntime, error) {
	if database == "" {
		return d.runtimeList(), nil
	}
	rt, err := d.runtime(database)
	if err != nil {
		return nil, err
	}
	return []*databaseRuntime{rt}, nil
}

func (d *Daemon) runtimeList() []*databaseRuntime {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*databaseRuntime, 0, len(d.runtimes))
	for _, name := range d.sortedNamesLocked() {
		out = append(out, d.runtimes[name])
	}
	return out
}

func (d *Daemon) sortedNamesLocked() []string {
	names := make([]string, 0, len(d.runtimes))
	for name := range d.runtimes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
