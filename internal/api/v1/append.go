package v1

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AppendRequest is the body of POST /v1/streams/:stream_id/events.
type AppendRequest struct {
	// AggregateType names the stream's aggregate kind. Recorded on first append.
	AggregateType string `json:"aggregate_type"`

	// ExpectedVersion, when set, must equal the stream's current version.
	// Use 0 to require a brand-new stream.
	ExpectedVersion *int64 `json:"expected_version,omitempty"`

	// TenantID applies to every event that does not carry its own.
	TenantID string `json:"tenant_id,omitempty"`

	Events []AppendEvent `json:"events"`
}

// AppendEvent is one event inside an AppendRequest.
type AppendEvent struct {
	ID            uuid.UUID              `json:"id,omitempty"`
	Type          string                 `json:"type"`
	TenantID      string                 `json:"tenant_id,omitempty"`
	CausationID   *uuid.UUID             `json:"causation_id,omitempty"`
	CorrelationID *uuid.UUID             `json:"correlation_id,omitempty"`
	Headers       map[string]string      `json:"headers,omitempty"`
	Data          map[string]interface{} `json:"data"`
}

// AppendResponse reports the positions assigned to an append.
type AppendResponse struct {
	StreamID      string  `json:"stream_id"`
	StreamVersion int64   `json:"stream_version"`
	Sequences     []int64 `json:"sequences"`
}

// Validate checks the request envelope and returns the events to append.
func (r *AppendRequest) Validate(streamID string) ([]*Event, error) {
	if strings.TrimSpace(streamID) == "" {
		return nil, fmt.Errorf("stream_id is required")
	}
	if len(r.Events) == 0 {
		return nil, fmt.Errorf("events must not be empty")
	}
	if r.ExpectedVersion != nil && *r.ExpectedVersion < 0 {
		return nil, fmt.Errorf("expected_version must be >= 0")
	}

	events := make([]*Event, 0, len(r.Events))
	for i, in := range r.Events {
		tenant := in.TenantID
		if tenant == "" {
			tenant = r.TenantID
		}
		evt := &Event{
			ID:            in.ID,
			StreamID:      streamID,
			Type:          in.Type,
			TenantID:      tenant,
			CausationID:   in.CausationID,
			CorrelationID: in.CorrelationID,
			Headers:       in.Headers,
			Data:          in.Data,
		}
		if evt.Data == nil {
			evt.Data = map[string]interface{}{}
		}
		if err := evt.Validate(); err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		events = append(events, evt)
	}
	return events, nil
}
