package v1

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTenantID is stamped on events appended without an explicit tenant.
const DefaultTenantID = "*DEFAULT*"

// TombstoneEventType marks a synthetic event written to close a sequence gap
// left behind by a failed append. Tombstones are never handed to projections.
const TombstoneEventType = "tombstone"

// TombstoneStreamID is the stream that owns every tombstone event.
const TombstoneStreamID = "__tombstones__"

// Event is an immutable record in the event log.
// It separates the "Envelope" (store-assigned attributes) from the "Letter" (Data).
type Event struct {
	// --- Store Attributes (The Envelope) ---

	// Sequence is the globally unique, monotonically assigned position of the event.
	// Assigned by the database at commit time; gaps are possible.
	Sequence int64 `json:"sequence"`

	// ID uniquely identifies the event. Generated on append when empty.
	ID uuid.UUID `json:"id"`

	// StreamID identifies the stream (aggregate instance) that owns the event.
	StreamID string `json:"stream_id"`

	// Version is the position of the event within its stream, starting at 1.
	Version int64 `json:"version"`

	// Type is the domain-specific event name (e.g. "trip.started").
	// Projections dispatch on it.
	Type string `json:"type"`

	// Timestamp is when the event was committed (store clock).
	Timestamp time.Time `json:"timestamp"`

	// TenantID scopes the event inside a tenant database.
	TenantID string `json:"tenant_id"`

	// CausationID identifies the event or command that caused this event (optional).
	CausationID *uuid.UUID `json:"causation_id,omitempty"`

	// CorrelationID links related events across streams (optional).
	CorrelationID *uuid.UUID `json:"correlation_id,omitempty"`

	// Headers is a free-form key-value bag (trace ids, user agent, ...).
	Headers map[string]string `json:"headers,omitempty"`

	// AggregateTypeName is the stream's aggregate kind, resolved by the event
	// loader once per stream per batch. Not persisted on the event row.
	AggregateTypeName string `json:"aggregate_type,omitempty"`

	// --- User Payload (The Letter) ---

	// Data is the domain-specific payload.
	Data map[string]interface{} `json:"data"`
}

// IsTombstone reports whether the event is a synthetic gap filler.
func (e *Event) IsTombstone() bool {
	return e.Type == TombstoneEventType
}

// Validate ensures the caller supplied everything the store cannot derive.
// Defaults TenantID and ID in place.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Type) == "" {
		return fmt.Errorf("type is required")
	}
	if e.Type == TombstoneEventType {
		return fmt.Errorf("type %q is reserved", TombstoneEventType)
	}
	if e.TenantID == "" {
		e.TenantID = DefaultTenantID
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// NewTombstone builds the gap filler for a reserved but never committed sequence.
func NewTombstone(sequence int64, at time.Time) *Event {
	return &Event{
		Sequence:  sequence,
		ID:        uuid.New(),
		StreamID:  TombstoneStreamID,
		Version:   sequence,
		Type:      TombstoneEventType,
		Timestamp: at,
		TenantID:  DefaultTenantID,
		Data:      map[string]interface{}{},
	}
}
