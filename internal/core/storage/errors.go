package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoEvents is returned by Append when called with no events.
	ErrNoEvents = errors.New("no events to append")

	// ErrStreamVersionConflict is returned when an append's expected version does not match the stream.
	ErrStreamVersionConflict = errors.New("stream version conflict")

	// ErrProgressExists is returned when inserting progress for a shard that already has a row.
	ErrProgressExists = errors.New("projection progress already exists")

	// ErrProgressionOutOfOrder is returned when a progress update's precondition fails.
	// It means two writers advanced the same shard and must never be retried.
	ErrProgressionOutOfOrder = errors.New("projection progression out of order")

	// ErrLeaseNotHeld is returned when a lease operation requires ownership the caller lacks.
	ErrLeaseNotHeld = errors.New("lease not held")
)

// ProgressionOutOfOrderError details a rejected progress update.
type ProgressionOutOfOrderError struct {
	Shard     string
	Expected  int64
	Attempted int64
	Actual    int64
	Found     bool
}

func (e *ProgressionOutOfOrderError) Error() string {
	if !e.Found {
		return fmt.Sprintf("%s: shard %q has no progress row (expected %d, attempted %d)",
			ErrProgressionOutOfOrder, e.Shard, e.Expected, e.Attempted)
	}
	return fmt.Sprintf("%s: shard %q is at %d (expected %d, attempted %d)",
		ErrProgressionOutOfOrder, e.Shard, e.Actual, e.Expected, e.Attempted)
}

func (e *ProgressionOutOfOrderError) Unwrap() error {
	return ErrProgressionOutOfOrder
}

// Postgres SQLSTATE codes the storage layer reacts to.
const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqAdminShutdown        = "57P01"
	pqCrashShutdown        = "57P02"
	pqCannotConnectNow     = "57P03"
)

// IsUniqueViolation reports whether err is a Postgres unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

// IsTransient reports whether err is an infrastructure failure worth retrying:
// dropped connections, network timeouts, server restarts and serialization aborts.
// Cancellation of the caller's own context is not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqSerializationFailure, pqDeadlockDetected, pqAdminShutdown, pqCrashShutdown, pqCannotConnectNow:
			return true
		}
		// Class 08: connection exception.
		return pqErr.Code.Class() == "08"
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
