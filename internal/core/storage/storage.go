package storage

import (
	"context"
	"time"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
)

// HighWaterMarkName is the progression row the high-water detector persists its mark under.
const HighWaterMarkName = "HighWaterMark"

// AppendOptions controls how events are appended to a stream.
type AppendOptions struct {
	// AggregateType is recorded on the stream the first time it is written.
	AggregateType string

	// ExpectedVersion, when non-nil, must equal the stream's version before the append.
	ExpectedVersion *int64
}

// EventFilter restricts which events a shard receives. Empty lists match everything.
// Filters are evaluated by the store, not by the caller.
type EventFilter struct {
	EventTypes     []string
	AggregateTypes []string
}

// IsEmpty reports whether the filter lets every event through.
func (f EventFilter) IsEmpty() bool {
	return len(f.EventTypes) == 0 && len(f.AggregateTypes) == 0
}

// Matches evaluates the filter against one event and its stream's aggregate type.
// Tombstones never match.
func (f EventFilter) Matches(evt *v1.Event, aggregateType string) bool {
	if evt.IsTombstone() {
		return false
	}
	if len(f.EventTypes) > 0 && !contains(f.EventTypes, evt.Type) {
		return false
	}
	if len(f.AggregateTypes) > 0 && !contains(f.AggregateTypes, aggregateType) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// EventRangeQuery selects events with Floor < sequence <= Ceiling, ascending.
type EventRangeQuery struct {
	Floor   int64
	Ceiling int64
	Filter  EventFilter
	Limit   int
}

// EventStore is the append-only event log.
type EventStore interface {
	// Append assigns sequence numbers and stream versions at commit and returns the persisted events.
	// Returns ErrNoEvents for an empty slice and ErrStreamVersionConflict when
	// opts.ExpectedVersion does not match.
	Append(ctx context.Context, streamID string, opts AppendOptions, events []*v1.Event) ([]*v1.Event, error)

	// FetchHighestAssignedSequence returns the highest sequence ever handed out by the
	// sequence generator, committed or not.
	FetchHighestAssignedSequence(ctx context.Context) (int64, error)

	// FetchEventsInRange returns events in (q.Floor, q.Ceiling] matching q.Filter, ascending,
	// at most q.Limit (0: no limit). Tombstones are never returned.
	FetchEventsInRange(ctx context.Context, q EventRangeQuery) ([]*v1.Event, error)

	// FetchStreamAggregateTypeName returns the aggregate type recorded for a stream.
	// found is false when the stream is unknown or untyped.
	FetchStreamAggregateTypeName(ctx context.Context, streamID string) (name string, found bool, err error)
}

// HighWaterStore exposes the queries the high-water detector runs.
type HighWaterStore interface {
	FetchHighestAssignedSequence(ctx context.Context) (int64, error)

	// LastContiguousSequence returns the largest N >= start such that every sequence in
	// (start, N] is persisted. Events committed after notAfter are treated as missing;
	// a zero notAfter disables the cutoff.
	LastContiguousSequence(ctx context.Context, start int64, notAfter time.Time) (int64, error)

	// NextEventAfter returns the first persisted sequence above mark and its commit timestamp.
	NextEventAfter(ctx context.Context, mark int64) (seq int64, at time.Time, found bool, err error)

	// LoadHighWaterMark returns the persisted mark, 0 if none.
	LoadHighWaterMark(ctx context.Context) (int64, error)

	// SaveHighWaterMark persists mark unless a higher one is already stored.
	SaveHighWaterMark(ctx context.Context, mark int64) error

	// Now returns the store's clock, which timestamps events.
	Now(ctx context.Context) (time.Time, error)
}

// ProjectionProgress is the durable checkpoint of one shard in one database.
type ProjectionProgress struct {
	ShardName      string    `json:"shard_name"`
	TenantDatabase string    `json:"tenant_database"`
	LastSequence   int64     `json:"last_sequence"`
	Version        int64     `json:"version"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProgressWriter is the write half of progress persistence; implemented both by
// the store and by a UnitOfWork.
type ProgressWriter interface {
	// InsertProgress creates the shard's row. Returns ErrProgressExists when one exists.
	InsertProgress(ctx context.Context, shard string, sequence int64) error

	// UpdateProgress moves the shard's row from expectedPrior to sequence.
	// Returns a *ProgressionOutOfOrderError when the stored value differs.
	UpdateProgress(ctx context.Context, shard string, expectedPrior, sequence int64) error
}

// ProgressStore persists per-shard checkpoints.
type ProgressStore interface {
	ProgressWriter

	// ProgressFor returns the shard's last sequence, 0 for a never-started shard.
	ProgressFor(ctx context.Context, shard string) (int64, error)

	// FindProgress returns the full row or ErrNotFound.
	FindProgress(ctx context.Context, shard string) (ProjectionProgress, error)

	// AllProgress returns every row ordered by shard name.
	AllProgress(ctx context.Context) ([]ProjectionProgress, error)

	// DeleteProgress removes the shard's row. Deleting a missing row is not an error.
	DeleteProgress(ctx context.Context, shard string) error
}

// Document is one materialized projection output row.
type Document struct {
	ProjectionName string                 `json:"projection"`
	ID             string                 `json:"id"`
	TenantID       string                 `json:"tenant_id"`
	Data           map[string]interface{} `json:"data"`
	LastSequence   int64                  `json:"last_sequence"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// DocumentSession reads and writes documents inside one unit of work.
// Reads observe the session's own pending writes.
type DocumentSession interface {
	LoadDocument(ctx context.Context, projection, id string) (Document, error)
	UpsertDocument(ctx context.Context, doc Document) error
	DeleteDocument(ctx context.Context, projection, id string) error
}

// DocumentStore is the read and teardown side of projection documents.
type DocumentStore interface {
	LoadDocument(ctx context.Context, projection, id string) (Document, error)

	// ListDocuments returns a projection's documents ordered by id, at most limit (0: no limit).
	ListDocuments(ctx context.Context, projection string, limit int) ([]Document, error)

	// DeleteProjectionDocuments removes every document a projection owns.
	DeleteProjectionDocuments(ctx context.Context, projection string) (int64, error)
}

// UnitOfWork binds event appends, document writes and progress writes to one transaction.
// A shard's progress update and its projection's writes always share a UnitOfWork.
type UnitOfWork interface {
	DocumentSession
	ProgressWriter

	AppendEvents(ctx context.Context, streamID string, opts AppendOptions, events []*v1.Event) ([]*v1.Event, error)

	Commit() error
	Rollback() error
}

// Transactor opens units of work.
type Transactor interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// Lease is a time-bound ownership grant of a coordinated resource.
type Lease struct {
	Resource   string    `json:"resource"`
	NodeID     string    `json:"node_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// LeaseStore persists leadership leases with conditional writes.
type LeaseStore interface {
	// TryAcquireLease takes or renews the lease when it is unexpired-and-ours or expired.
	// acquired is false when another node holds a live lease.
	TryAcquireLease(ctx context.Context, resource, nodeID string, ttl time.Duration) (lease Lease, acquired bool, err error)

	// ReleaseLease drops the lease if nodeID holds it.
	ReleaseLease(ctx context.Context, resource, nodeID string) error

	// CurrentLease returns the lease row or ErrNotFound.
	CurrentLease(ctx context.Context, resource string) (Lease, error)
}

// Database bundles every store of one tenant database.
type Database interface {
	EventStore
	HighWaterStore
	ProgressStore
	DocumentStore
	LeaseStore
	Transactor

	// Identifier names the database; progress rows and leases are scoped by it.
	Identifier() string

	Ping(ctx context.Context) error
	Close() error
}

// TenantDatabase describes a tenant database discovered at runtime.
type TenantDatabase struct {
	Name string `json:"name"`
	DSN  string `json:"-"`
}

// DatabaseSource lists the tenant databases the daemon should serve.
type DatabaseSource interface {
	TenantDatabases(ctx context.Context) ([]TenantDatabase, error)
}
