package daemon

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/aevon-lab/projection-daemon/internal/projection"
)

func TestClassifyFailure(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want failureKind
	}{
		{name: "apply", ctx: context.Background(), err: errors.New("bad payload"), want: failureApply},
		{name: "marked transient", ctx: context.Background(), err: projection.Transient(errors.New("cache down")), want: failureTransient},
		{name: "deadline", ctx: context.Background(), err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: failureTransient},
		{name: "out of order", ctx: context.Background(), err: &storage.ProgressionOutOfOrderError{Shard: "trips:All"}, want: failureConflict},
		{name: "progress exists", ctx: context.Background(), err: storage.ErrProgressExists, want: failureConflict},
		{name: "leadership", ctx: context.Background(), err: fmt.Errorf("%w: expired", ErrLeadershipLost), want: failureLeadership},
		{name: "lease unreadable", ctx: context.Background(), err: fmt.Errorf("%w: read lease daemon:main: %w", ErrLeaseUnverified, errors.New("permission denied")), want: failureTransient},
		{name: "stopping", ctx: canceled, err: errors.New("anything"), want: failureCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyFailure(tt.ctx, tt.err))
		})
	}
}

func TestRetryState_ApplyFailures(t *testing.T) {
	applyErr := &projection.ApplyError{Projection: "trips", Sequence: 42, EventType: "trip.started", Err: errors.New("boom")}
	policy := ErrorPolicy{
		ImmediateRetries:         2,
		Backoff:                  []time.Duration{time.Second, 5 * time.Second},
		InfrastructureBackoffMax: 30 * time.Second,
	}

	t.Run("retries then pauses", func(t *testing.T) {
		r := retryState{policy: policy}
		want := []decision{
			{action: retryImmediately},
			{action: retryImmediately},
			{action: retryAfterDelay, delay: time.Second},
			{action: retryAfterDelay, delay: 5 * time.Second},
			{action: pauseShard},
		}
		for i, w := range want {
			assert.Equal(t, w, r.next(failureApply, applyErr), "failure %d", i+1)
		}
	})

	t.Run("skip poison opt in", func(t *testing.T) {
		skipping := policy
		skipping.SkipPoisonEvents = true
		r := retryState{policy: skipping}
		for i := 0; i < 4; i++ {
			r.next(failureApply, applyErr)
		}
		assert.Equal(t, decision{action: skipEvent, sequence: 42}, r.next(failureApply, applyErr))
	})

	t.Run("skip needs a known event", func(t *testing.T) {
		skipping := policy
		skipping.SkipPoisonEvents = true
		skipping.ImmediateRetries = 0
		skipping.Backoff = nil
		r := retryState{policy: skipping}
		assert.Equal(t, decision{action: pauseShard}, r.next(failureApply, errors.New("no event attached")))
	})

	t.Run("reset restarts the budget", func(t *testing.T) {
		r := retryState{policy: policy}
		r.next(failureApply, applyErr)
		r.next(failureApply, applyErr)
		r.reset()
		assert.Equal(t, decision{action: retryImmediately}, r.next(failureApply, applyErr))
	})
}

func TestRetryState_TransientBackoffIsCapped(t *testing.T) {
	r := retryState{policy: ErrorPolicy{InfrastructureBackoffMax: 500 * time.Millisecond}}
	var delays []time.Duration
	for i := 0; i < 6; i++ {
		d := r.next(failureTransient, errors.New("connection refused"))
		assert.Equal(t, retryAfterDelay, d.action)
		delays = append(delays, d.delay)
	}
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
	}, delays)
}

func TestRetryState_NonRetryable(t *testing.T) {
	r := retryState{policy: ErrorPolicy{ImmediateRetries: 5}}
	assert.Equal(t, pauseShard, r.next(failureConflict, storage.ErrProgressionOutOfOrder).action)
	assert.Equal(t, stopShard, r.next(failureLeadership, ErrLeadershipLost).action)
	assert.Equal(t, stopShard, r.next(failureCanceled, context.Canceled).action)
}
