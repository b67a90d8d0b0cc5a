package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/aevon-lab/projection-daemon/internal/core/storage/memory"
	"github.com/aevon-lab/projection-daemon/internal/projection"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tripEvent(eventType string) *v1.Event {
	return &v1.Event{Type: eventType, Data: map[string]interface{}{}}
}

// appendTrips writes n events to stream, one append each.
func appendTrips(t *testing.T, s storage.EventStore, stream string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := s.Append(context.Background(), stream, storage.AppendOptions{AggregateType: "trip"},
			[]*v1.Event{tripEvent("trip.started")})
		require.NoError(t, err)
	}
}

func fastOptions() Options {
	return Options{
		NodeID:                 "node-a",
		BatchSize:              10,
		PollingInterval:        10 * time.Millisecond,
		FastPollingInterval:    5 * time.Millisecond,
		StaleSequenceThreshold: 50 * time.Millisecond,
		SafeHarborThreshold:    100 * time.Millisecond,
		LeadershipPollingTime:  20 * time.Millisecond,
		LeaseDuration:          200 * time.Millisecond,
		ErrorPolicy: ErrorPolicy{
			ImmediateRetries:         1,
			Backoff:                  []time.Duration{5 * time.Millisecond},
			InfrastructureBackoffMax: 20 * time.Millisecond,
		},
	}
}

// sequenceLog records what a projection applied, in order.
type sequenceLog struct {
	mu   sync.Mutex
	seqs []int64
}

func (l *sequenceLog) add(seq int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seqs = append(l.seqs, seq)
}

func (l *sequenceLog) snapshot() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int64, len(l.seqs))
	copy(out, l.seqs)
	return out
}

// countingProjection keeps one document per stream holding the number of
// trip.started events seen. failOn makes the handler fail for that event type.
func countingProjection(name string, log *sequenceLog, opts ...projection.Option) *projection.EventProjection {
	p := projection.NewEventProjection(name, opts...)
	p.On("trip.started", func(ctx context.Context, session storage.DocumentSession, evt *v1.Event) error {
		if log != nil {
			log.add(evt.Sequence)
		}
		doc, err := session.LoadDocument(ctx, name, evt.StreamID)
		if errors.Is(err, storage.ErrNotFound) {
			doc = storage.Document{ProjectionName: name, ID: evt.StreamID, TenantID: evt.TenantID, Data: map[string]interface{}{}}
		} else if err != nil {
			return err
		}
		n, _ := doc.Data["count"].(int)
		doc.Data["count"] = n + 1
		doc.LastSequence = evt.Sequence
		return session.UpsertDocument(ctx, doc)
	})
	return p
}

func documentCount(t *testing.T, docs storage.DocumentStore, projectionName, id string) int {
	t.Helper()
	doc, err := docs.LoadDocument(context.Background(), projectionName, id)
	require.NoError(t, err)
	n, _ := doc.Data["count"].(int)
	return n
}

func newTestDaemon(t *testing.T, opts Options, projections ...projection.Projection) *Daemon {
	t.Helper()
	registry, err := projection.NewRegistry(projections...)
	require.NoError(t, err)
	d := New(registry, nil, opts, discardLogger())
	t.Cleanup(d.StopAll)
	return d
}

func newMemoryStore(name string) *memory.Store {
	return memory.New(name)
}
