package projection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	"github.com/aevon-lab/projection-daemon/internal/core/partition"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

func noop(context.Context, storage.DocumentSession, *v1.Event) error { return nil }

func TestShardsFor(t *testing.T) {
	single := ShardsFor(NewEventProjection("trips").On("trip.started", noop))
	require.Len(t, single, 1)
	assert.Equal(t, "trips:All", single[0].Name)
	assert.Equal(t, []string{"trip.started"}, single[0].Filter.EventTypes)

	sliced := ShardsFor(NewEventProjection("fares", WithSlices(3)))
	require.Len(t, sliced, 3)
	for i, s := range sliced {
		assert.Equal(t, i, s.Slice)
		assert.Equal(t, 3, s.Slices)
	}
	assert.Equal(t, "fares:2", sliced[2].Name)
}

func TestShard_Accepts(t *testing.T) {
	p := NewEventProjection("trips", WithSlices(2), WithAggregateTypes("trip")).On("trip.started", noop)
	shards := ShardsFor(p)

	evt := &v1.Event{StreamID: "trip-7", Type: "trip.started", AggregateTypeName: "trip"}
	owner := partition.For("trip-7", 2)
	assert.True(t, shards[owner].Accepts(evt))
	assert.False(t, shards[1-owner].Accepts(evt))

	other := &v1.Event{StreamID: "trip-7", Type: "trip.started", AggregateTypeName: "invoice"}
	assert.False(t, shards[owner].Accepts(other))

	unhandled := &v1.Event{StreamID: "trip-7", Type: "trip.ended", AggregateTypeName: "trip"}
	assert.False(t, shards[owner].Accepts(unhandled))
}

func TestRegistry(t *testing.T) {
	inline := NewEventProjection("stream_counts", WithLifecycle(Inline))
	async := NewEventProjection("trips", WithSlices(2))
	other := NewEventProjection("fares")

	r, err := NewRegistry(async, inline, other)
	require.NoError(t, err)

	names := func(ps []Projection) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.Name())
		}
		return out
	}
	assert.Equal(t, []string{"fares", "stream_counts", "trips"}, names(r.All()))
	assert.Equal(t, []string{"stream_counts"}, names(r.Inline()))

	var shardNames []string
	for _, s := range r.AsyncShards() {
		shardNames = append(shardNames, s.Name)
	}
	assert.Equal(t, []string{"fares:All", "trips:0", "trips:1"}, shardNames)

	got, ok := r.Get("trips")
	require.True(t, ok)
	assert.Same(t, async, got)

	_, err = NewRegistry(async, NewEventProjection("trips"))
	require.Error(t, err)
	_, err = NewRegistry(NewEventProjection(""))
	require.Error(t, err)
}

func TestEventProjection_Apply(t *testing.T) {
	var seen []int64
	boom := errors.New("bad payload")

	p := NewEventProjection("trips").
		On("trip.started", func(_ context.Context, _ storage.DocumentSession, evt *v1.Event) error {
			seen = append(seen, evt.Sequence)
			if evt.Sequence == 3 {
				return boom
			}
			return nil
		})

	events := []*v1.Event{
		{Sequence: 1, Type: "trip.started"},
		{Sequence: 2, Type: "trip.ended"},
		{Sequence: 3, Type: "trip.started"},
		{Sequence: 4, Type: "trip.started"},
	}

	err := p.Apply(context.Background(), nil, events)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []int64{1, 3}, seen, "unhandled types are skipped and the batch stops at the failure")

	var applyErr *ApplyError
	require.True(t, errors.As(err, &applyErr))
	assert.Equal(t, "trips", applyErr.Projection)
	assert.Equal(t, "trip.started", applyErr.EventType)

	seq, ok := FailedSequence(err)
	require.True(t, ok)
	assert.Equal(t, int64(3), seq)
}

func TestEventProjection_TransientErrorsAreNotPinnedToAnEvent(t *testing.T) {
	p := NewEventProjection("trips").
		On("trip.started", func(context.Context, storage.DocumentSession, *v1.Event) error {
			return Transient(errors.New("cache unavailable"))
		})

	err := p.Apply(context.Background(), nil, []*v1.Event{{Sequence: 5, Type: "trip.started"}})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	_, ok := FailedSequence(err)
	assert.False(t, ok)

	assert.Nil(t, Transient(nil))
	assert.Equal(t, "inline", Inline.String())
	assert.Equal(t, "async", Async.String())
}
