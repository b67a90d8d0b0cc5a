package v1

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEvent_Validation(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
		checkFn func(*testing.T, *Event) // Optional validation after Validate()
	}{
		{
			name: "valid event with all fields",
			event: Event{
				ID:       uuid.New(),
				StreamID: "trip-1",
				TenantID: "tenant_abc",
				Type:     "trip.started",
			},
		},
		{
			name: "tenant_id defaults",
			event: Event{
				StreamID: "trip-1",
				Type:     "trip.started",
			},
			checkFn: func(t *testing.T, e *Event) {
				if e.TenantID != DefaultTenantID {
					t.Errorf("TenantID should default to %q, got %q", DefaultTenantID, e.TenantID)
				}
			},
		},
		{
			name: "id is generated when missing",
			event: Event{
				StreamID: "trip-1",
				Type:     "trip.started",
			},
			checkFn: func(t *testing.T, e *Event) {
				if e.ID == uuid.Nil {
					t.Error("ID should be generated")
				}
			},
		},
		{
			name:    "missing type",
			event:   Event{StreamID: "trip-1"},
			wantErr: true,
		},
		{
			name:    "reserved tombstone type",
			event:   Event{StreamID: "trip-1", Type: TombstoneEventType},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.checkFn != nil {
				tt.checkFn(t, &tt.event)
			}
		})
	}
}

func TestEvent_JSONOmitsEmptyOptionalFields(t *testing.T) {
	evt := Event{
		Sequence:  7,
		StreamID:  "trip-1",
		Version:   2,
		Type:      "trip.ended",
		Timestamp: time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC),
		TenantID:  DefaultTenantID,
		Data:      map[string]interface{}{"km": 12.5},
	}

	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"causation_id", "correlation_id", "headers", "aggregate_type"} {
		if _, ok := decoded[key]; ok {
			t.Errorf("expected %q to be omitted, got %v", key, decoded[key])
		}
	}
	if decoded["sequence"] != float64(7) {
		t.Errorf("sequence = %v, want 7", decoded["sequence"])
	}
}

func TestNewTombstone(t *testing.T) {
	at := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	tomb := NewTombstone(42, at)

	if !tomb.IsTombstone() {
		t.Fatal("expected tombstone")
	}
	if tomb.Sequence != 42 || tomb.StreamID != TombstoneStreamID {
		t.Fatalf("unexpected tombstone %+v", tomb)
	}
}

func TestAppendRequest_Validate(t *testing.T) {
	negative := int64(-1)

	tests := []struct {
		name     string
		streamID string
		req      AppendRequest
		wantErr  bool
		wantLen  int
	}{
		{
			name:     "inherits request tenant",
			streamID: "trip-1",
			req: AppendRequest{
				TenantID: "acme",
				Events:   []AppendEvent{{Type: "trip.started"}, {Type: "trip.ended", TenantID: "other"}},
			},
			wantLen: 2,
		},
		{name: "missing stream", req: AppendRequest{Events: []AppendEvent{{Type: "a"}}}, wantErr: true},
		{name: "empty events", streamID: "trip-1", wantErr: true},
		{
			name:     "negative expected version",
			streamID: "trip-1",
			req:      AppendRequest{ExpectedVersion: &negative, Events: []AppendEvent{{Type: "a"}}},
			wantErr:  true,
		},
		{
			name:     "event without type",
			streamID: "trip-1",
			req:      AppendRequest{Events: []AppendEvent{{}}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := tt.req.Validate(tt.streamID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(events) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(events), tt.wantLen)
			}
			if events[0].TenantID != "acme" || events[1].TenantID != "other" {
				t.Errorf("tenants = %q,%q", events[0].TenantID, events[1].TenantID)
			}
			if events[0].Data == nil {
				t.Error("Data should default to an empty map")
			}
		})
	}
}
