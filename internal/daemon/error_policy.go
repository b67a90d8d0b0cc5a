package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/aevon-lab/projection-daemon/internal/projection"
)

type failureKind int

const (
	failureApply      failureKind = iota // projection logic or bad data
	failureTransient                     // connectivity, timeouts, serialization failures
	failureConflict                      // progression out of order: two writers on one shard
	failureLeadership                    // lease lost before commit
	failureCanceled                      // shard is stopping
)

func (k failureKind) String() string {
	switch k {
	case failureTransient:
		return "transient"
	case failureConflict:
		return "conflict"
	case failureLeadership:
		return "leadership"
	case failureCanceled:
		return "canceled"
	}
	return "apply"
}

func classifyFailure(ctx context.Context, err error) failureKind {
	switch {
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return failureCanceled
	case errors.Is(err, ErrLeadershipLost):
		return failureLeadership
	case errors.Is(err, storage.ErrProgressionOutOfOrder), errors.Is(err, storage.ErrProgressExists):
		return failureConflict
	case projection.IsTransient(err), storage.IsTransient(err), errors.Is(err, ErrLeaseUnverified):
		return failureTransient
	}
	return failureApply
}

type decisionAction int

const (
	retryImmediately decisionAction = iota
	retryAfterDelay
	skipEvent
	pauseShard
	stopShard
)

type decision struct {
	action   decisionAction
	delay    time.Duration
	sequence int64 // skipEvent only
}

const initialInfrastructureBackoff = 100 * time.Millisecond

// retryState walks the error policy for consecutive failures of one shard.
// reset is called after every committed batch.
type retryState struct {
	policy            ErrorPolicy
	applyFailures     int
	transientFailures int
}

func (r *retryState) reset() {
	r.applyFailures = 0
	r.transientFailures = 0
}

// next decides what to do about err. Transient failures back off exponentially
// up to InfrastructureBackoffMax and never pause. Apply failures use the
// immediate retries, then each configured backoff delay, then pause (or skip
// the failing event when the policy opts in and the event is known).
func (r *retryState) next(kind failureKind, err error) decision {
	switch kind {
	case failureCanceled, failureLeadership:
		return decision{action: stopShard}
	case failureConflict:
		return decision{action: pauseShard}
	case failureTransient:
		delay := initialInfrastructureBackoff << r.transientFailures
		if delay <= 0 || delay > r.policy.InfrastructureBackoffMax {
			delay = r.policy.InfrastructureBackoffMax
		} else {
			r.transientFailures++
		}
		return decision{action: retryAfterDelay, delay: delay}
	}

	r.applyFailures++
	if r.applyFailures <= r.policy.ImmediateRetries {
		return decision{action: retryImmediately}
	}
	if idx := r.applyFailures - r.policy.ImmediateRetries - 1; idx < len(r.policy.Backoff) {
		return decision{action: retryAfterDelay, delay: r.policy.Backoff[idx]}
	}

	if r.policy.SkipPoisonEvents {
		if seq, ok := projection.FailedSequence(err); ok {
			r.applyFailures = 0
			return decision{action: skipEvent, sequence: seq}
		}
	}
	return decision{action: pauseShard}
}
