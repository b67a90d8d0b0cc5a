package daemon

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	"github.com/aevon-lab/projection-daemon/internal/core/partition"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/aevon-lab/projection-daemon/internal/core/storage/memory"
	"github.com/aevon-lab/projection-daemon/internal/projection"
)

func sequencesOf(events []*v1.Event) []int64 {
	out := make([]int64, 0, len(events))
	for _, evt := range events {
		out = append(out, evt.Sequence)
	}
	return out
}

func TestEventLoader_Load(t *testing.T) {
	ctx := context.Background()
	store := memory.New("main")
	appendTrips(t, store, "trip-1", 4)
	_, err := store.Append(ctx, "invoice-1", storage.AppendOptions{AggregateType: "invoice"},
		[]*v1.Event{tripEvent("trip.started"), tripEvent("trip.started")})
	require.NoError(t, err)
	appendTrips(t, store, "trip-2", 4)

	all := projection.ShardsFor(countingProjection("trips", nil))[0]
	tripsOnly := projection.ShardsFor(countingProjection("trips", nil, projection.WithAggregateTypes("trip")))[0]

	tests := []struct {
		name        string
		shard       projection.Shard
		floor       int64
		ceiling     int64
		batchSize   int
		wantCeiling int64
		wantSeqs    []int64
	}{
		{name: "whole range", shard: all, floor: 0, ceiling: 10, batchSize: 100, wantCeiling: 10, wantSeqs: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{name: "capped at batch size", shard: all, floor: 2, ceiling: 10, batchSize: 3, wantCeiling: 5, wantSeqs: []int64{3, 4, 5}},
		{name: "aggregate type filter", shard: tripsOnly, floor: 3, ceiling: 8, batchSize: 100, wantCeiling: 8, wantSeqs: []int64{4, 7, 8}},
		{name: "filtered range still reaches ceiling", shard: tripsOnly, floor: 4, ceiling: 6, batchSize: 100, wantCeiling: 6, wantSeqs: []int64{}},
		{name: "empty range", shard: all, floor: 10, ceiling: 10, batchSize: 100, wantCeiling: 10, wantSeqs: []int64{}},
	}

	loader := NewEventLoader(store)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := loader.Load(ctx, tt.shard, tt.floor, tt.ceiling, tt.batchSize)
			require.NoError(t, err)
			assert.Equal(t, tt.shard.Name, rng.ShardName)
			assert.Equal(t, tt.floor, rng.Floor)
			assert.Equal(t, tt.wantCeiling, rng.Ceiling)
			assert.Equal(t, tt.wantSeqs, sequencesOf(rng.Events))
		})
	}
}

func TestEventLoader_ResolvesAggregateTypes(t *testing.T) {
	ctx := context.Background()
	store := memory.New("main")
	appendTrips(t, store, "trip-1", 2)

	shard := projection.ShardsFor(countingProjection("trips", nil))[0]
	rng, err := NewEventLoader(store).Load(ctx, shard, 0, 2, 10)
	require.NoError(t, err)
	for _, evt := range rng.Events {
		assert.Equal(t, "trip", evt.AggregateTypeName)
	}
}

func TestEventLoader_SlicedShards(t *testing.T) {
	ctx := context.Background()
	store := memory.New("main")
	streams := []string{"trip-a", "trip-b", "trip-c", "trip-d", "trip-e"}
	for _, stream := range streams {
		appendTrips(t, store, stream, 2)
	}

	loader := NewEventLoader(store)
	shards := projection.ShardsFor(countingProjection("trips", nil, projection.WithSlices(3)))
	require.Len(t, shards, 3)

	seen := 0
	for _, shard := range shards {
		rng, err := loader.Load(ctx, shard, 0, 10, 100)
		require.NoError(t, err)
		for _, evt := range rng.Events {
			assert.Equal(t, shard.Slice, partition.For(evt.StreamID, 3))
		}
		seen += len(rng.Events)
	}
	assert.Equal(t, 10, seen, "every event lands in exactly one slice")
}

func TestEventLoader_FailureKeepsNoState(t *testing.T) {
	ctx := context.Background()
	store := memory.New("main")
	appendTrips(t, store, "trip-1", 3)

	boom := errors.New("connection reset by peer")
	store.SetFaultInjector(func(op memory.Operation) error {
		if op == memory.OpFetchRange {
			return boom
		}
		return nil
	})

	loader := NewEventLoader(store)
	shard := projection.ShardsFor(countingProjection("trips", nil))[0]
	_, err := loader.Load(ctx, shard, 0, 3, 10)
	require.ErrorIs(t, err, boom)

	store.SetFaultInjector(nil)
	rng, err := loader.Load(ctx, shard, 0, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, sequencesOf(rng.Events))
}
