package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aevon-lab/projection-daemon/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// HighWaterAgent runs the detector of one database on a timer and shares the
// result with every shard agent of that database. Shard agents never block it.
type HighWaterAgent struct {
	database       string
	detector       *Detector
	tracker        *Tracker
	interval       time.Duration
	staleThreshold time.Duration
	logger         *slog.Logger

	group singleflight.Group

	mu      sync.Mutex
	current HighWaterStatistics
	changed chan struct{} // closed and replaced whenever the mark moves
}

func NewHighWaterAgent(database string, detector *Detector, tracker *Tracker, opts Options, logger *slog.Logger) *HighWaterAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &HighWaterAgent{
		database:       database,
		detector:       detector,
		tracker:        tracker,
		interval:       opts.PollingInterval,
		staleThreshold: opts.StaleSequenceThreshold,
		logger:         logger,
		changed:        make(chan struct{}),
	}
}

// Start runs detection cycles until ctx is cancelled.
func (h *HighWaterAgent) Start(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.Info("[HighWater] Starting detection", "database", h.database, "interval", h.interval)

	h.cycle(ctx)
	for {
		select {
		case <-ticker.C:
			h.cycle(ctx)
		case <-ctx.Done():
			h.logger.Info("[HighWater] Stopping (context cancelled)", "database", h.database)
			return
		}
	}
}

func (h *HighWaterAgent) cycle(ctx context.Context) {
	if _, err := h.CheckNow(ctx); err != nil && ctx.Err() == nil {
		h.logger.Error("[HighWater] Detection failed", "database", h.database, "error", err)
	}
}

// CheckNow runs a detection cycle immediately. Concurrent callers share one cycle.
func (h *HighWaterAgent) CheckNow(ctx context.Context) (HighWaterStatistics, error) {
	v, err, _ := h.group.Do("detect", func() (interface{}, error) {
		return h.detect(ctx)
	})
	if err != nil {
		return HighWaterStatistics{}, err
	}
	return v.(HighWaterStatistics), nil
}

func (h *HighWaterAgent) detect(ctx context.Context) (HighWaterStatistics, error) {
	stats, err := h.detector.Detect(ctx)
	if err != nil {
		return HighWaterStatistics{}, err
	}

	previous := h.Statistics()
	status := InterpretStatus(previous, stats, h.staleThreshold)
	// A gap left behind the last append never turns Stale, so a held mark is checked too.
	held := status == FallingBehind && stats.heldFor(previous) > h.staleThreshold
	if status == Stale || held {
		if status == Stale {
			h.logger.Warn("[HighWater] Mark is stale, checking safe zone",
				"database", h.database,
				"mark", stats.CurrentMark,
				"highest_sequence", stats.HighestSequence,
				"since", stats.LastUpdated,
			)
		} else {
			h.logger.Info("[HighWater] Mark held at a gap, checking safe zone",
				"database", h.database,
				"mark", stats.CurrentMark,
				"highest_sequence", stats.HighestSequence,
				"since", stats.LastUpdated,
			)
		}
		safe, err := h.detector.DetectInSafeZone(ctx)
		if err != nil {
			return HighWaterStatistics{}, err
		}
		// Both cycles count as one for trend purposes.
		safe.LastMark = stats.LastMark
		stats = safe
	}

	h.publish(stats)
	return stats, nil
}

func (h *HighWaterAgent) publish(stats HighWaterStatistics) {
	h.mu.Lock()
	moved := stats.CurrentMark > h.current.CurrentMark
	h.current = stats
	if moved {
		close(h.changed)
		h.changed = make(chan struct{})
	}
	h.mu.Unlock()

	metrics.SetHighWater(h.database, stats.CurrentMark, stats.HighestSequence)
	if moved {
		h.logger.Debug("[HighWater] Mark advanced", "database", h.database, "mark", stats.CurrentMark)
		h.tracker.Publish(ShardState{
			Database:  h.database,
			ShardName: HighWaterShardName,
			Sequence:  stats.CurrentMark,
			Action:    ActionHighWaterMark,
			Timestamp: stats.Timestamp,
		})
	}
}

// Statistics returns the last published statistics.
func (h *HighWaterAgent) Statistics() HighWaterStatistics {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Mark returns the last published mark along with a channel closed when it next moves.
func (h *HighWaterAgent) Mark() (int64, <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current.CurrentMark, h.changed
}
