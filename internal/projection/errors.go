package projection

import (
	"errors"
	"fmt"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
)

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks a projection failure as retryable: the shard retries it
// without counting against the error policy's pause budget.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked with Transient.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// ApplyError names the event a projection failed on.
// The shard agent needs it to skip a poison event.
type ApplyError struct {
	Projection string
	Sequence   int64
	EventType  string
	Err        error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("projection %s failed on event %d (%s): %v", e.Projection, e.Sequence, e.EventType, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

func newApplyError(projection string, evt *v1.Event, err error) error {
	return &ApplyError{Projection: projection, Sequence: evt.Sequence, EventType: evt.Type, Err: err}
}

// FailedSequence extracts the failing event's sequence from err.
func FailedSequence(err error) (int64, bool) {
	var applyErr *ApplyError
	if errors.As(err, &applyErr) {
		return applyErr.Sequence, true
	}
	return 0, false
}
