package projection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	coreagg "github.com/aevon-lab/projection-daemon/internal/core/aggregation"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/aevon-lab/projection-daemon/internal/core/storage/memory"
)

func rollupEvent(seq int64, stream string, at time.Time, data map[string]interface{}) *v1.Event {
	return &v1.Event{
		Sequence:          seq,
		StreamID:          stream,
		Type:              "trip.ended",
		TenantID:          "acme",
		Timestamp:         at,
		AggregateTypeName: "trip",
		Data:              data,
	}
}

func applyInUnitOfWork(t *testing.T, store *memory.Store, p Projection, events ...*v1.Event) {
	t.Helper()
	ctx := context.Background()
	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Apply(ctx, uow, events))
	require.NoError(t, uow.Commit())
}

func loadRollup(t *testing.T, store *memory.Store, rule, id string) coreagg.RollupState {
	t.Helper()
	doc, err := store.LoadDocument(context.Background(), rule, id)
	require.NoError(t, err)
	state, err := coreagg.StateFromDocument(doc.Data)
	require.NoError(t, err)
	return state
}

func TestRollupProjection_Options(t *testing.T) {
	p := NewRollupProjection(coreagg.RollupRule{
		Name:           "fare_total",
		SourceEvents:   []string{"trip.ended"},
		AggregateTypes: []string{"trip"},
		Operator:       coreagg.OpSum,
		Field:          "fare.amount",
		GroupBy:        coreagg.GroupByStream,
		Slices:         4,
	}, nil)

	opts := p.Options()
	require.Equal(t, Async, opts.Lifecycle)
	require.Equal(t, []string{"trip.ended"}, opts.Filter.EventTypes)
	require.Equal(t, []string{"trip"}, opts.Filter.AggregateTypes)
	require.Len(t, ShardsFor(p), 4)
}

func TestRollupProjection_Apply(t *testing.T) {
	at := time.Date(2026, 2, 11, 10, 17, 0, 0, time.UTC)

	tests := []struct {
		name      string
		rule      coreagg.RollupRule
		events    []*v1.Event
		wantID    string
		wantValue string
		wantCount int64
		wantLast  int64
	}{
		{
			name: "sum by stream with nested field",
			rule: coreagg.RollupRule{Name: "fares", Operator: coreagg.OpSum, Field: "fare.amount", GroupBy: coreagg.GroupByStream},
			events: []*v1.Event{
				rollupEvent(1, "trip-1", at, map[string]interface{}{"fare": map[string]interface{}{"amount": "10.10"}}),
				rollupEvent(2, "trip-1", at, map[string]interface{}{"fare": map[string]interface{}{"amount": 2.2}}),
			},
			wantID:    "trip-1",
			wantValue: "12.3",
			wantCount: 2,
			wantLast:  2,
		},
		{
			name: "count ignores missing field",
			rule: coreagg.RollupRule{Name: "trips", Operator: coreagg.OpCount, GroupBy: coreagg.GroupByTenant},
			events: []*v1.Event{
				rollupEvent(3, "trip-1", at, map[string]interface{}{}),
				rollupEvent(4, "trip-2", at, map[string]interface{}{}),
			},
			wantID:    "acme",
			wantValue: "2",
			wantCount: 2,
			wantLast:  4,
		},
		{
			name: "max skips non numeric values",
			rule: coreagg.RollupRule{Name: "longest", Operator: coreagg.OpMax, Field: "km"},
			events: []*v1.Event{
				rollupEvent(5, "trip-1", at, map[string]interface{}{"km": 3}),
				rollupEvent(6, "trip-2", at, map[string]interface{}{"km": "far"}),
				rollupEvent(7, "trip-3", at, map[string]interface{}{"km": 8}),
			},
			wantID:    "all",
			wantValue: "8",
			wantCount: 2,
			wantLast:  7,
		},
		{
			name: "windowed min by aggregate type",
			rule: coreagg.RollupRule{Name: "shortest", Operator: coreagg.OpMin, Field: "km", GroupBy: coreagg.GroupByAggregateType, WindowSize: time.Hour},
			events: []*v1.Event{
				rollupEvent(8, "trip-1", at, map[string]interface{}{"km": 5}),
				rollupEvent(9, "trip-2", at.Add(10*time.Minute), map[string]interface{}{"km": 4}),
			},
			wantID:    "trip@2026-02-11T10:00:00Z",
			wantValue: "4",
			wantCount: 2,
			wantLast:  9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New("main")
			tt.rule.Fingerprint = "abc123"
			applyInUnitOfWork(t, store, NewRollupProjection(tt.rule, nil), tt.events...)

			state := loadRollup(t, store, tt.rule.Name, tt.wantID)
			require.True(t, decimal.RequireFromString(tt.wantValue).Equal(state.Value), "value %s", state.Value)
			require.Equal(t, tt.wantCount, state.EventCount)
			require.Equal(t, tt.wantLast, state.LastSequence)
			require.Equal(t, "abc123", state.RuleFingerprint)
		})
	}
}

func TestRollupProjection_ReplayIsIdempotent(t *testing.T) {
	store := memory.New("main")
	p := NewRollupProjection(coreagg.RollupRule{Name: "fares", Operator: coreagg.OpSum, Field: "amount", GroupBy: coreagg.GroupByStream}, nil)
	at := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	events := []*v1.Event{
		rollupEvent(1, "trip-1", at, map[string]interface{}{"amount": 5}),
		rollupEvent(2, "trip-1", at, map[string]interface{}{"amount": 7}),
	}

	applyInUnitOfWork(t, store, p, events...)
	applyInUnitOfWork(t, store, p, events...)

	state := loadRollup(t, store, "fares", "trip-1")
	require.True(t, decimal.NewFromInt(12).Equal(state.Value))
	require.Equal(t, int64(2), state.EventCount)
}

type failingSession struct {
	storage.DocumentSession
	err error
}

func (s failingSession) LoadDocument(context.Context, string, string) (storage.Document, error) {
	return storage.Document{}, s.err
}

func TestRollupProjection_LoadFailures(t *testing.T) {
	p := NewRollupProjection(coreagg.RollupRule{Name: "trips", Operator: coreagg.OpCount}, nil)
	evt := rollupEvent(11, "trip-1", time.Now(), map[string]interface{}{})

	t.Run("transient", func(t *testing.T) {
		err := p.Apply(context.Background(), failingSession{err: context.DeadlineExceeded}, []*v1.Event{evt})
		require.Error(t, err)
		require.True(t, IsTransient(err))
	})

	t.Run("fatal names the event", func(t *testing.T) {
		err := p.Apply(context.Background(), failingSession{err: errors.New("corrupt row")}, []*v1.Event{evt})
		require.Error(t, err)
		require.False(t, IsTransient(err))
		seq, ok := FailedSequence(err)
		require.True(t, ok)
		require.Equal(t, int64(11), seq)
	})
}
