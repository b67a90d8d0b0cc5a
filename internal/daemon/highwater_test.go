package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aevon-lab/projection-daemon/internal/core/storage/memory"
)

func TestDetector_GapsAndSafeHarbor(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := memory.New("main", memory.WithClock(clock.Now))
	appendTrips(t, store, "trip-1", 500)
	store.DeleteEvents(400, 405)

	detector := NewDetector(store, 5*time.Second, discardLogger())

	stats, err := detector.Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(399), stats.CurrentMark)
	assert.Equal(t, int64(500), stats.HighestSequence)

	stats, err = detector.DetectInSafeZone(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(399), stats.CurrentMark, "gap is younger than the safe harbor")

	clock.Advance(10 * time.Second)

	stats, err = detector.Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(399), stats.CurrentMark, "plain detection never crosses a gap")

	stats, err = detector.DetectInSafeZone(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(399), stats.LastMark)
	assert.Equal(t, int64(404), stats.CurrentMark)
	assert.True(t, stats.HasChanged())

	stats, err = detector.DetectInSafeZone(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500), stats.CurrentMark)
	assert.LessOrEqual(t, stats.CurrentMark, stats.HighestSequence)
}

func TestDetector_WaitsForInFlightReservation(t *testing.T) {
	ctx := context.Background()
	store := memory.New("main")
	appendTrips(t, store, "trip-1", 3)
	reserved := store.ReserveSequences(1)
	appendTrips(t, store, "trip-2", 2)

	detector := NewDetector(store, time.Hour, discardLogger())

	stats, err := detector.Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.CurrentMark)
	assert.Equal(t, int64(6), stats.HighestSequence)

	require.NoError(t, store.CompleteReserved(reserved[0], "trip-3", tripEvent("trip.started")))

	stats, err = detector.Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.CurrentMark)
}

func TestDetector_ResumesPersistedMark(t *testing.T) {
	ctx := context.Background()
	store := memory.New("main")
	appendTrips(t, store, "trip-1", 7)

	_, err := NewDetector(store, time.Second, discardLogger()).Detect(ctx)
	require.NoError(t, err)

	restarted := NewDetector(store, time.Second, discardLogger())
	stats, err := restarted.Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.LastMark)
	assert.Equal(t, int64(7), stats.CurrentMark)
	assert.False(t, stats.HasChanged())
}

func TestDetector_MarkNeverDecreases(t *testing.T) {
	ctx := context.Background()
	store := memory.New("main")
	appendTrips(t, store, "trip-1", 10)

	detector := NewDetector(store, time.Second, discardLogger())
	_, err := detector.Detect(ctx)
	require.NoError(t, err)

	store.DeleteEvents(3)
	stats, err := detector.Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.CurrentMark)
}

func TestInterpretStatus(t *testing.T) {
	t0 := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	threshold := 3 * time.Second

	tests := []struct {
		name     string
		previous HighWaterStatistics
		current  HighWaterStatistics
		want     HighWaterStatus
	}{
		{
			name:     "caught up",
			previous: HighWaterStatistics{CurrentMark: 5},
			current:  HighWaterStatistics{CurrentMark: 10, HighestSequence: 10, Timestamp: t0},
			want:     CaughtUp,
		},
		{
			name:     "changed",
			previous: HighWaterStatistics{CurrentMark: 5},
			current:  HighWaterStatistics{CurrentMark: 8, HighestSequence: 10, Timestamp: t0, LastUpdated: t0},
			want:     Changed,
		},
		{
			name:     "falling behind within threshold",
			previous: HighWaterStatistics{CurrentMark: 8, HighestSequence: 10},
			current:  HighWaterStatistics{CurrentMark: 8, HighestSequence: 12, Timestamp: t0.Add(2 * time.Second), LastUpdated: t0},
			want:     FallingBehind,
		},
		{
			name:     "stale past threshold",
			previous: HighWaterStatistics{CurrentMark: 8, HighestSequence: 10},
			current:  HighWaterStatistics{CurrentMark: 8, HighestSequence: 12, Timestamp: t0.Add(4 * time.Second), LastUpdated: t0},
			want:     Stale,
		},
		{
			name:     "held past threshold without new events",
			previous: HighWaterStatistics{CurrentMark: 8, HighestSequence: 12},
			current:  HighWaterStatistics{CurrentMark: 8, HighestSequence: 12, Timestamp: t0.Add(4 * time.Second), LastUpdated: t0},
			want:     FallingBehind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InterpretStatus(tt.previous, tt.current, threshold))
		})
	}
}

func TestHighWaterAgent_HeldMarkUsesSafeZone(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := memory.New("main", memory.WithClock(clock.Now))
	appendTrips(t, store, "trip-1", 500)
	store.DeleteEvents(400, 405)

	opts := Options{StaleSequenceThreshold: 3 * time.Second, SafeHarborThreshold: 5 * time.Second}.withDefaults()
	tracker := NewTracker()
	agent := NewHighWaterAgent("main", NewDetector(store, opts.SafeHarborThreshold, discardLogger()), tracker, opts, discardLogger())

	stats, err := agent.CheckNow(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(399), stats.CurrentMark)

	mark, changed := agent.Mark()
	require.Equal(t, int64(399), mark)

	clock.Advance(10 * time.Second)
	stats, err = agent.CheckNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(404), stats.CurrentMark)

	select {
	case <-changed:
	default:
		t.Fatal("mark channel was not closed when the mark moved")
	}

	latest, ok := tracker.Latest("main", HighWaterShardName)
	require.True(t, ok)
	assert.Equal(t, ActionHighWaterMark, latest.Action)
	assert.Equal(t, int64(404), latest.Sequence)
}

func TestHighWaterAgent_StaleWhileLogGrowsUsesSafeZone(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := memory.New("main", memory.WithClock(clock.Now))
	appendTrips(t, store, "trip-1", 10)
	store.DeleteEvents(5)

	opts := Options{StaleSequenceThreshold: 3 * time.Second, SafeHarborThreshold: 5 * time.Second}.withDefaults()
	agent := NewHighWaterAgent("main", NewDetector(store, opts.SafeHarborThreshold, discardLogger()), NewTracker(), opts, discardLogger())

	stats, err := agent.CheckNow(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(4), stats.CurrentMark)

	clock.Advance(4 * time.Second)
	appendTrips(t, store, "trip-2", 2)
	stats, err = agent.CheckNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.CurrentMark, "gap is still younger than the safe harbor")

	clock.Advance(2 * time.Second)
	appendTrips(t, store, "trip-2", 1)
	stats, err = agent.CheckNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.CurrentMark, "stops before events younger than the safe harbor")
	assert.Equal(t, int64(13), stats.HighestSequence)
}
