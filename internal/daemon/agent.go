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
	"github.com/aevon-lab/projection-daemon/internal/projection"
)

// AgentStatus is the life-cycle state of a shard agent.
type AgentStatus int

const (
	StatusStopped AgentStatus = iota
	StatusStarting
	StatusRunning
	StatusPaused
	StatusErrored
	StatusRetrying
)

func (s AgentStatus) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusErrored:
		return "errored"
	case StatusRetrying:
		return "retrying"
	}
	return fmt.Sprintf("AgentStatus(%d)", int(s))
}

// LeadershipChecker confirms this node may still write for a database.
type LeadershipChecker interface {
	CheckLeadership(ctx context.Context) error
}

type markSource interface {
	Mark() (int64, <-chan struct{})
}

// ShardStatus is an operator-facing snapshot of one agent.
type ShardStatus struct {
	Database   string `json:"database"`
	Shard      string `json:"shard"`
	Projection string `json:"projection"`
	Status     string `json:"status"`
	Sequence   int64  `json:"sequence"`
	LastError  string `json:"last_error,omitempty"`
}

// ShardAgent drives one shard in one database: wait for the high-water mark to
// pass the shard's floor, load the range, apply it, and commit progress in the
// same unit of work as the projection's writes.
type ShardAgent struct {
	shard    projection.Shard
	database string
	db       storage.Database
	loader   *EventLoader
	marks    markSource
	leader   LeadershipChecker
	tracker  *Tracker
	opts     Options
	logger   *slog.Logger

	// lifecycle serializes Start, Stop, Pause, Resume and Reset. The loop goroutine never takes it.
	lifecycle sync.Mutex

	mu       sync.Mutex
	status   AgentStatus
	held     bool // paused until an explicit Resume
	sequence int64
	lastErr  error
	cancel   context.CancelFunc
	done     chan struct{}
}

func newShardAgent(
	shard projection.Shard,
	database string,
	db storage.Database,
	marks markSource,
	leader LeadershipChecker,
	tracker *Tracker,
	opts Options,
	logger *slog.Logger,
) *ShardAgent {
	return &ShardAgent{
		shard:    shard,
		database: database,
		db:       db,
		loader:   NewEventLoader(db),
		marks:    marks,
		leader:   leader,
		tracker:  tracker,
		opts:     opts,
		logger:   logger.With("shard", shard.Name, "database", database),
	}
}

// Start resumes the shard from its persisted progress. A running agent is left alone;
// an agent held paused stays paused.
func (a *ShardAgent) Start(ctx context.Context) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	return a.startLocked(ctx)
}

func (a *ShardAgent) startLocked(ctx context.Context) error {
	a.mu.Lock()
	if a.held || a.status == StatusRunning || a.status == StatusRetrying || a.status == StatusStarting {
		a.mu.Unlock()
		return nil
	}
	a.status = StatusStarting
	a.mu.Unlock()

	// A loop that ended on its own (error pause, leadership loss) still owns a context.
	a.stopLoopLocked()

	floor, hasRow := int64(0), true
	row, err := a.db.FindProgress(ctx, a.shard.Name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		hasRow = false
	case err != nil:
		a.setStatus(StatusStopped, err)
		return fmt.Errorf("start %s: read progress: %w", a.shard.Name, err)
	default:
		floor = row.LastSequence
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	a.mu.Lock()
	a.status = StatusRunning
	a.sequence = floor
	a.lastErr = nil
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	a.logger.Info("[ShardAgent] Starting", "floor", floor)
	a.publish(ActionStarted, floor, nil)

	go a.run(loopCtx, floor, hasRow, done)
	return nil
}

// Stop ends the loop. An in-flight batch either commits or is abandoned uncommitted.
func (a *ShardAgent) Stop() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	if !a.stopLoopLocked() {
		return
	}
	a.mu.Lock()
	wasPaused := a.status == StatusPaused
	if !wasPaused {
		a.status = StatusStopped
	}
	seq := a.sequence
	a.mu.Unlock()

	if !wasPaused {
		a.logger.Info("[ShardAgent] Stopped", "sequence", seq)
		a.publish(ActionStopped, seq, nil)
	}
}

// Pause stops the loop and holds the shard until Resume.
func (a *ShardAgent) Pause() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.stopLoopLocked()
	a.mu.Lock()
	a.status = StatusPaused
	a.held = true
	seq := a.sequence
	a.mu.Unlock()

	a.logger.Info("[ShardAgent] Paused by operator", "sequence", seq)
	a.publish(ActionPaused, seq, nil)
}

// Resume releases a hold and starts the loop when run is true. Followers
// in HotCold mode pass false: the hold is cleared and the next leader starts it.
func (a *ShardAgent) Resume(ctx context.Context, run bool) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.mu.Lock()
	a.held = false
	if a.status == StatusPaused {
		a.status = StatusStopped
	}
	a.mu.Unlock()

	if !run {
		return nil
	}
	return a.startLocked(ctx)
}

// Reset stops the loop and deletes the shard's progress row so the next Start replays from 0.
func (a *ShardAgent) Reset(ctx context.Context) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.stopLoopLocked()
	if err := a.db.DeleteProgress(ctx, a.shard.Name); err != nil {
		return fmt.Errorf("reset %s: %w", a.shard.Name, err)
	}

	a.mu.Lock()
	a.status = StatusStopped
	a.sequence = 0
	a.lastErr = nil
	a.mu.Unlock()
	return nil
}

// stopLoopLocked cancels the loop and waits for it. Reports whether a loop existed.
func (a *ShardAgent) stopLoopLocked() bool {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}

// Status returns the current life-cycle state.
func (a *ShardAgent) Status() AgentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Snapshot reports the agent for operator queries.
func (a *ShardAgent) Snapshot() ShardStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := ShardStatus{
		Database:   a.database,
		Shard:      a.shard.Name,
		Projection: a.shard.Projection.Name(),
		Status:     a.status.String(),
		Sequence:   a.sequence,
	}
	if a.lastErr != nil {
		s.LastError = a.lastErr.Error()
	}
	return s
}

func (a *ShardAgent) run(ctx context.Context, floor int64, hasRow bool, done chan struct{}) {
	defer close(done)

	retry := retryState{policy: a.opts.ErrorPolicy}
	skip := make(map[int64]bool)

	for {
		if ctx.Err() != nil {
			return
		}

		mark, changed := a.marks.Mark()
		if mark <= floor {
			if !sleep(ctx, changed, a.opts.FastPollingInterval) {
				return
			}
			continue
		}

		next, err := a.processBatch(ctx, floor, mark, hasRow, skip)
		if err == nil {
			floor, hasRow = next, true
			retry.reset()
			continue
		}

		kind := classifyFailure(ctx, err)
		d := retry.next(kind, err)
		switch d.action {
		case stopShard:
			if kind == failureLeadership {
				a.logger.Warn("[ShardAgent] Leadership lost, abandoning batch", "floor", floor, "error", err)
				a.setStatus(StatusStopped, err)
				a.publish(ActionStopped, floor, err)
			}
			return

		case pauseShard:
			a.pauseOnError(floor, kind, err)
			return

		case skipEvent:
			a.logger.Error("[ShardAgent] Skipping poison event", "sequence", d.sequence, "error", err)
			skip[d.sequence] = true

		case retryImmediately:
			a.logger.Warn("[ShardAgent] Batch failed, retrying", "floor", floor, "error", err)
			a.setStatus(StatusRetrying, err)
			metrics.IncBatchRetry(kind.String())

		case retryAfterDelay:
			a.logger.Warn("[ShardAgent] Batch failed, backing off",
				"floor", floor,
				"kind", kind.String(),
				"delay", d.delay,
				"error", err,
			)
			a.setStatus(StatusRetrying, err)
			metrics.IncBatchRetry(kind.String())
			if !sleep(ctx, nil, d.delay) {
				return
			}
		}
	}
}

// processBatch applies one range and commits it together with the new progress.
// It returns the committed ceiling.
func (a *ShardAgent) processBatch(ctx context.Context, floor, mark int64, hasRow bool, skip map[int64]bool) (int64, error) {
	started := time.Now()

	rng, err := a.loader.Load(ctx, a.shard, floor, mark, a.opts.BatchSize)
	if err != nil {
		return floor, err
	}

	events := rng.Events
	if len(skip) > 0 {
		kept := events[:0]
		for _, evt := range events {
			if !skip[evt.Sequence] {
				kept = append(kept, evt)
			}
		}
		events = kept
	}

	uow, err := a.db.Begin(ctx)
	if err != nil {
		return floor, fmt.Errorf("begin unit of work: %w", err)
	}

	if len(events) > 0 {
		if err := a.shard.Projection.Apply(ctx, uow, events); err != nil {
			_ = uow.Rollback()
			return floor, err
		}
	}

	if err := a.leader.CheckLeadership(ctx); err != nil {
		_ = uow.Rollback()
		return floor, err
	}

	if hasRow {
		err = uow.UpdateProgress(ctx, a.shard.Name, floor, rng.Ceiling)
	} else {
		err = uow.InsertProgress(ctx, a.shard.Name, rng.Ceiling)
	}
	if err != nil {
		_ = uow.Rollback()
		return floor, err
	}

	if err := uow.Commit(); err != nil {
		return floor, err
	}

	for seq := range skip {
		if seq <= rng.Ceiling {
			delete(skip, seq)
		}
	}

	a.mu.Lock()
	a.status = StatusRunning
	a.sequence = rng.Ceiling
	a.lastErr = nil
	a.mu.Unlock()

	metrics.ObserveBatchApply(a.shard.Name, len(events), time.Since(started))
	metrics.SetShardSequence(a.shard.Name, a.database, rng.Ceiling)
	a.logger.Debug("[ShardAgent] Batch committed",
		"floor", floor,
		"ceiling", rng.Ceiling,
		"events", len(events),
	)
	a.publish(ActionUpdated, rng.Ceiling, nil)
	return rng.Ceiling, nil
}

func (a *ShardAgent) pauseOnError(floor int64, kind failureKind, err error) {
	a.logger.Error("[ShardAgent] Pausing shard after failure",
		"floor", floor,
		"kind", kind.String(),
		"error", err,
	)

	a.setStatus(StatusErrored, err)
	a.publish(ActionErrored, floor, err)

	a.mu.Lock()
	a.status = StatusPaused
	a.held = true
	a.mu.Unlock()
	a.publish(ActionPaused, floor, err)
}

func (a *ShardAgent) setStatus(status AgentStatus, err error) {
	a.mu.Lock()
	a.status = status
	if err != nil {
		a.lastErr = err
	}
	a.mu.Unlock()
}

func (a *ShardAgent) publish(action ShardAction, sequence int64, err error) {
	metrics.IncShardTransition(action.String())
	a.tracker.Publish(ShardState{
		Database:  a.database,
		ShardName: a.shard.Name,
		Sequence:  sequence,
		Action:    action,
		Err:       err,
	})
}

// sleep waits for d, an optional wake-up channel, or cancellation. It reports false on cancellation.
func sleep(ctx context.Context, wake <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-wake:
	case <-timer.C:
	}
	return true
}
