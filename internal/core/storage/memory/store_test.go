package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time         { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func started(kind string) *v1.Event {
	return &v1.Event{Type: kind, Data: map[string]interface{}{}}
}

func appendOne(t *testing.T, s *Store, stream string) {
	t.Helper()
	mustAppend(t, s, stream, started("trip.started"))
}

func mustAppend(t *testing.T, s *Store, stream string, events ...*v1.Event) []*v1.Event {
	t.Helper()
	appended, err := s.Append(context.Background(), stream, storage.AppendOptions{AggregateType: "trip"}, events)
	require.NoError(t, err)
	return appended
}

func TestStore_AppendAssignsSequencesAndVersions(t *testing.T) {
	s := New("main")

	first := mustAppend(t, s, "trip-1", started("trip.started"), started("trip.ended"))
	second := mustAppend(t, s, "trip-2", started("trip.started"))

	require.Equal(t, int64(1), first[0].Sequence)
	require.Equal(t, int64(2), first[1].Version)
	require.Equal(t, int64(3), second[0].Sequence)
	require.Equal(t, int64(1), second[0].Version)

	highest, err := s.FetchHighestAssignedSequence(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), highest)

	name, found, err := s.FetchStreamAggregateTypeName(context.Background(), "trip-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "trip", name)
}

func TestStore_ExpectedVersionConflictTombstonesReservation(t *testing.T) {
	s := New("main")
	appendOne(t, s, "trip-1")

	stale := int64(0)
	_, err := s.Append(context.Background(), "trip-1", storage.AppendOptions{ExpectedVersion: &stale}, []*v1.Event{started("trip.ended")})
	require.ErrorIs(t, err, storage.ErrStreamVersionConflict)

	// Sequence 2 was reserved and then tombstoned, so the log stays contiguous.
	mark, err := s.LastContiguousSequence(context.Background(), 0, time.Time{})
	require.NoError(t, err)
	require.Equal(t, int64(2), mark)

	events, err := s.FetchEventsInRange(context.Background(), storage.EventRangeQuery{Floor: 0, Ceiling: 10, Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 1, "tombstones are never loaded")
}

func TestStore_FetchEventsInRangeFilters(t *testing.T) {
	s := New("main")
	mustAppend(t, s, "trip-1", started("trip.started"), started("trip.ended"))
	_, err := s.Append(context.Background(), "invoice-1", storage.AppendOptions{AggregateType: "invoice"},
		[]*v1.Event{started("invoice.issued")})
	require.NoError(t, err)

	events, err := s.FetchEventsInRange(context.Background(), storage.EventRangeQuery{
		Floor:   0,
		Ceiling: 3,
		Filter:  storage.EventFilter{AggregateTypes: []string{"trip"}},
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, events, 2)

	events, err = s.FetchEventsInRange(context.Background(), storage.EventRangeQuery{
		Floor:   1,
		Ceiling: 3,
		Filter:  storage.EventFilter{EventTypes: []string{"trip.ended", "invoice.issued"}},
		Limit:   1,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, int64(2), events[0].Sequence)
}

func TestStore_LastContiguousSequenceWithGapsAndCutoff(t *testing.T) {
	clock := newClock()
	s := New("main", WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		appendOne(t, s, "trip-1")
	}
	clock.Advance(time.Minute)
	for i := 0; i < 5; i++ {
		appendOne(t, s, "trip-1")
	}
	s.DeleteEvents(4)

	mark, err := s.LastContiguousSequence(context.Background(), 0, time.Time{})
	require.NoError(t, err)
	require.Equal(t, int64(3), mark)

	mark, err = s.LastContiguousSequence(context.Background(), 4, time.Time{})
	require.NoError(t, err)
	require.Equal(t, int64(15), mark)

	mark, err = s.LastContiguousSequence(context.Background(), 4, clock.Now().Add(-30*time.Second))
	require.NoError(t, err)
	require.Equal(t, int64(10), mark, "events committed after the cutoff count as missing")

	seq, _, found, err := s.NextEventAfter(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(5), seq)
}

func TestStore_ProgressScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("stale expectation is rejected and keeps stored value", func(t *testing.T) {
		s := New("main")
		require.NoError(t, s.InsertProgress(ctx, "trips:All", 12))

		err := s.UpdateProgress(ctx, "trips:All", 5, 50)
		require.ErrorIs(t, err, storage.ErrProgressionOutOfOrder)

		seq, err := s.ProgressFor(ctx, "trips:All")
		require.NoError(t, err)
		require.Equal(t, int64(12), seq)
	})

	t.Run("matching expectation advances", func(t *testing.T) {
		s := New("main")
		require.NoError(t, s.InsertProgress(ctx, "trips:All", 12))
		require.NoError(t, s.UpdateProgress(ctx, "trips:All", 12, 50))

		seq, err := s.ProgressFor(ctx, "trips:All")
		require.NoError(t, err)
		require.Equal(t, int64(50), seq)

		row, err := s.FindProgress(ctx, "trips:All")
		require.NoError(t, err)
		require.Equal(t, int64(2), row.Version)
		require.Equal(t, "main", row.TenantDatabase)
	})

	t.Run("second insert conflicts", func(t *testing.T) {
		s := New("main")
		require.NoError(t, s.InsertProgress(ctx, "trips:All", 1))
		require.ErrorIs(t, s.InsertProgress(ctx, "trips:All", 2), storage.ErrProgressExists)
	})

	t.Run("missing row reads as zero", func(t *testing.T) {
		seq, err := New("main").ProgressFor(ctx, "never-ran")
		require.NoError(t, err)
		require.Zero(t, seq)
	})
}

func TestStore_UnitOfWorkIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := New("main")
	require.NoError(t, s.InsertProgress(ctx, "trips:All", 10))

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.UpsertDocument(ctx, storage.Document{ProjectionName: "trips", ID: "trip-1", Data: map[string]interface{}{"n": 1}}))

	doc, err := uow.LoadDocument(ctx, "trips", "trip-1")
	require.NoError(t, err, "a unit of work reads its own writes")
	require.Equal(t, 1, doc.Data["n"])

	require.NoError(t, uow.UpdateProgress(ctx, "trips:All", 10, 20))

	// A concurrent writer moves the row; the commit must apply nothing.
	require.NoError(t, s.UpdateProgress(ctx, "trips:All", 10, 15))
	require.ErrorIs(t, uow.Commit(), storage.ErrProgressionOutOfOrder)

	_, err = s.LoadDocument(ctx, "trips", "trip-1")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_CommitFaultTombstones(t *testing.T) {
	ctx := context.Background()
	s := New("main")
	boom := errors.New("connection reset")
	s.SetFaultInjector(func(op Operation) error {
		if op == OpCommit {
			return boom
		}
		return nil
	})

	_, err := s.Append(ctx, "trip-1", storage.AppendOptions{}, []*v1.Event{started("trip.started")})
	require.ErrorIs(t, err, boom)

	s.SetFaultInjector(nil)
	mark, err := s.LastContiguousSequence(ctx, 0, time.Time{})
	require.NoError(t, err)
	require.Equal(t, int64(1), mark)
}

func TestStore_HighWaterMarkNeverRegresses(t *testing.T) {
	ctx := context.Background()
	s := New("main")

	require.NoError(t, s.SaveHighWaterMark(ctx, 40))
	require.NoError(t, s.SaveHighWaterMark(ctx, 30))

	mark, err := s.LoadHighWaterMark(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(40), mark)
}

func TestStore_LeaseExclusivity(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	s := New("main", WithClock(clock.Now))

	leaseA, ok, err := s.TryAcquireLease(ctx, "daemon:main", "node-a", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = s.TryAcquireLease(ctx, "daemon:main", "node-b", 10*time.Second)
	require.NoError(t, err)
	require.False(t, ok, "live lease belongs to node-a")

	clock.Advance(5 * time.Second)
	renewed, ok, err := s.TryAcquireLease(ctx, "daemon:main", "node-a", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, leaseA.AcquiredAt, renewed.AcquiredAt)

	clock.Advance(11 * time.Second)
	leaseB, ok, err := s.TryAcquireLease(ctx, "daemon:main", "node-b", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok, "expired lease can be taken over")
	require.Equal(t, "node-b", leaseB.NodeID)

	require.ErrorIs(t, s.ReleaseLease(ctx, "daemon:main", "node-a"), storage.ErrLeaseNotHeld)
	require.NoError(t, s.ReleaseLease(ctx, "daemon:main", "node-b"))
}
