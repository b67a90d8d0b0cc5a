package daemon

import (
	"context"
	"fmt"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/aevon-lab/projection-daemon/internal/projection"
)

// EventRange is one batch of work for a shard: the events in (Floor, Ceiling]
// that the shard accepts. Committing the batch moves the shard to Ceiling even
// when Events is empty.
type EventRange struct {
	ShardName string
	Floor     int64
	Ceiling   int64
	Events    []*v1.Event
}

// EventLoader fetches filtered event ranges for shards.
// It keeps no state between calls; a failed Load is retried by re-issuing it.
type EventLoader struct {
	store storage.EventStore
}

func NewEventLoader(store storage.EventStore) *EventLoader {
	return &EventLoader{store: store}
}

// Load returns the shard's events in (floor, min(ceiling, floor+batchSize)],
// ascending, with each event's aggregate type resolved.
func (l *EventLoader) Load(ctx context.Context, shard projection.Shard, floor, ceiling int64, batchSize int) (EventRange, error) {
	if batchSize > 0 && ceiling-floor > int64(batchSize) {
		ceiling = floor + int64(batchSize)
	}
	rng := EventRange{ShardName: shard.Name, Floor: floor, Ceiling: ceiling}
	if ceiling <= floor {
		return rng, nil
	}

	events, err := l.store.FetchEventsInRange(ctx, storage.EventRangeQuery{
		Floor:   floor,
		Ceiling: ceiling,
		Filter:  shard.Filter,
		Limit:   batchSize,
	})
	if err != nil {
		return EventRange{}, fmt.Errorf("load %s (%d, %d]: %w", shard.Name, floor, ceiling, err)
	}

	// Resolved once per stream id per batch.
	aggregateTypes := make(map[string]string)
	accepted := events[:0]
	for _, evt := range events {
		name, seen := aggregateTypes[evt.StreamID]
		if !seen {
			resolved, found, err := l.store.FetchStreamAggregateTypeName(ctx, evt.StreamID)
			if err != nil {
				return EventRange{}, fmt.Errorf("resolve aggregate type of %s: %w", evt.StreamID, err)
			}
			if found {
				name = resolved
			}
			aggregateTypes[evt.StreamID] = name
		}
		evt.AggregateTypeName = name

		if shard.Accepts(evt) {
			accepted = append(accepted, evt)
		}
	}
	rng.Events = accepted
	return rng, nil
}
