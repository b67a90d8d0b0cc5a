package daemon

import (
	"errors"

	"github.com/aevon-lab/projection-daemon/internal/projection"
)

var (
	ErrShardNotFound      = errors.New("shard not found")
	ErrProjectionNotFound = errors.New("projection not found")
	ErrDatabaseNotFound   = errors.New("database not attached")
	ErrDatabaseAttached   = errors.New("database already attached")

	// ErrLeadershipLost aborts an in-flight batch on a node that no longer holds the lease.
	ErrLeadershipLost = errors.New("leadership lost")

	// ErrLeaseUnverified means the pre-commit lease check could not read the lease or the
	// store clock. The batch is retried as an infrastructure failure.
	ErrLeaseUnverified = errors.New("lease could not be verified")

	// ErrNotLeader rejects control operations a HotCold follower must not perform.
	ErrNotLeader = errors.New("node does not hold the database lease")

	ErrShardPaused   = errors.New("shard is paused")
	ErrDaemonStopped = errors.New("daemon is stopped")

	// ErrStaleData is the query layer's sentinel so callers can match either name.
	ErrStaleData = projection.ErrStaleData
)
