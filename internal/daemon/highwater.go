package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

// HighWaterStatus classifies one detection cycle against the previous one.
type HighWaterStatus int

const (
	CaughtUp HighWaterStatus = iota
	Changed
	FallingBehind
	Stale
)

func (s HighWaterStatus) String() string {
	switch s {
	case CaughtUp:
		return "caught_up"
	case Changed:
		return "changed"
	case FallingBehind:
		return "falling_behind"
	case Stale:
		return "stale"
	}
	return fmt.Sprintf("HighWaterStatus(%d)", int(s))
}

// HighWaterStatistics is the result of one detection cycle.
// CurrentMark <= HighestSequence, and CurrentMark never decreases between cycles.
type HighWaterStatistics struct {
	LastMark        int64     `json:"last_mark"`
	CurrentMark     int64     `json:"current_mark"`
	HighestSequence int64     `json:"highest_sequence"`
	Timestamp       time.Time `json:"timestamp"`

	// LastUpdated is when CurrentMark last moved, or when detection started.
	LastUpdated time.Time `json:"last_updated"`
}

// HasChanged reports whether the cycle moved the mark.
func (s HighWaterStatistics) HasChanged() bool {
	return s.CurrentMark > s.LastMark
}

// InterpretStatus classifies current given the previous cycle's statistics.
// Stale means the mark has not moved for longer than staleThreshold while the
// event log kept growing. A mark held behind a log that stopped growing is
// FallingBehind.
func InterpretStatus(previous, current HighWaterStatistics, staleThreshold time.Duration) HighWaterStatus {
	if current.CurrentMark == current.HighestSequence {
		return CaughtUp
	}
	if current.CurrentMark != previous.CurrentMark {
		return Changed
	}
	if current.HighestSequence > previous.HighestSequence && current.heldFor(previous) > staleThreshold {
		return Stale
	}
	return FallingBehind
}

// heldFor is how long the mark has not moved as of current.Timestamp.
func (s HighWaterStatistics) heldFor(previous HighWaterStatistics) time.Duration {
	since := s.LastUpdated
	if since.IsZero() {
		since = previous.Timestamp
	}
	if since.IsZero() {
		return 0
	}
	return s.Timestamp.Sub(since)
}

// Detector computes the high-water mark of one database.
// It is safe for concurrent use; cycles are serialized.
type Detector struct {
	store      storage.HighWaterStore
	safeHarbor time.Duration
	logger     *slog.Logger

	mu          sync.Mutex
	loaded      bool
	mark        int64
	lastUpdated time.Time
}

// NewDetector creates a detector that resumes from the persisted mark on first use.
func NewDetector(store storage.HighWaterStore, safeHarbor time.Duration, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{store: store, safeHarbor: safeHarbor, logger: logger}
}

// Detect advances the mark over the contiguous run of persisted sequences.
// It never moves past a gap.
func (d *Detector) Detect(ctx context.Context) (HighWaterStatistics, error) {
	return d.detect(ctx, false)
}

// DetectInSafeZone behaves like Detect, and additionally steps over the gap
// directly above the mark when the first event after it was committed longer
// than the safe-harbor threshold ago. After the step the mark only extends
// over events older than the threshold, and it stops at the next gap.
func (d *Detector) DetectInSafeZone(ctx context.Context) (HighWaterStatistics, error) {
	return d.detect(ctx, true)
}

func (d *Detector) detect(ctx context.Context, safeZone bool) (HighWaterStatistics, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		persisted, err := d.store.LoadHighWaterMark(ctx)
		if err != nil {
			return HighWaterStatistics{}, fmt.Errorf("load high water mark: %w", err)
		}
		d.mark = persisted
		d.loaded = true
	}

	now, err := d.store.Now(ctx)
	if err != nil {
		return HighWaterStatistics{}, fmt.Errorf("read store clock: %w", err)
	}
	if d.lastUpdated.IsZero() {
		d.lastUpdated = now
	}

	mark, err := d.store.LastContiguousSequence(ctx, d.mark, time.Time{})
	if err != nil {
		return HighWaterStatistics{}, fmt.Errorf("contiguous sequence scan: %w", err)
	}

	if safeZone {
		mark, err = d.stepOverExpiredGap(ctx, mark, now.Add(-d.safeHarbor))
		if err != nil {
			return HighWaterStatistics{}, err
		}
	}

	// Read after the scan: every persisted sequence was reserved before it, so
	// the mark cannot overtake the highest sequence.
	highest, err := d.store.FetchHighestAssignedSequence(ctx)
	if err != nil {
		return HighWaterStatistics{}, fmt.Errorf("fetch highest assigned sequence: %w", err)
	}
	if mark > highest {
		mark = highest
	}
	if mark < d.mark {
		mark = d.mark
	}

	stats := HighWaterStatistics{
		LastMark:        d.mark,
		CurrentMark:     mark,
		HighestSequence: highest,
		Timestamp:       now,
		LastUpdated:     d.lastUpdated,
	}

	if mark > d.mark {
		if err := d.store.SaveHighWaterMark(ctx, mark); err != nil {
			return HighWaterStatistics{}, fmt.Errorf("save high water mark: %w", err)
		}
		d.mark = mark
		d.lastUpdated = now
		stats.LastUpdated = now
	}
	return stats, nil
}

func (d *Detector) stepOverExpiredGap(ctx context.Context, mark int64, cutoff time.Time) (int64, error) {
	next, at, found, err := d.store.NextEventAfter(ctx, mark)
	if err != nil {
		return mark, fmt.Errorf("find event after gap: %w", err)
	}
	if !found || next == mark+1 || at.After(cutoff) {
		return mark, nil
	}

	d.logger.Warn("[HighWater] Skipping abandoned sequence gap",
		"gap_start", mark+1,
		"gap_end", next-1,
		"next_event_at", at,
	)

	extended, err := d.store.LastContiguousSequence(ctx, next, cutoff)
	if err != nil {
		return mark, fmt.Errorf("contiguous sequence scan: %w", err)
	}
	return extended, nil
}

// Mark returns the last detected mark without querying the store.
func (d *Detector) Mark() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mark
}
