package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/google/uuid"
)

// execer is satisfied by both *sql.DB and *sql.Tx so every write helper runs
// either standalone or inside a unit of work.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// marshalEventJSON marshals an event's headers and data fields to JSON.
// Empty headers produce nil (SQL NULL) rather than a JSON "null" string.
func marshalEventJSON(event *v1.Event) (headersJSON, dataJSON []byte, err error) {
	if len(event.Headers) > 0 {
		headersJSON, err = json.Marshal(event.Headers)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal headers: %w", err)
		}
	}

	data := event.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	dataJSON, err = json.Marshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal data: %w", err)
	}

	return headersJSON, dataJSON, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEventRow scans a database row into an Event struct.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanEventRow(row scanner) (*v1.Event, error) {
	var evt v1.Event
	var causation, correlation uuid.NullUUID
	var headersJSON, dataJSON []byte

	err := row.Scan(
		&evt.Sequence,
		&evt.ID,
		&evt.StreamID,
		&evt.Version,
		&evt.Type,
		&evt.Timestamp,
		&evt.TenantID,
		&causation,
		&correlation,
		&headersJSON,
		&dataJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}

	evt.CausationID = uuidPtr(causation)
	evt.CorrelationID = uuidPtr(correlation)

	if len(headersJSON) > 0 {
		if err := json.Unmarshal(headersJSON, &evt.Headers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal headers: %w", err)
		}
	}

	if err := json.Unmarshal(dataJSON, &evt.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data: %w", err)
	}

	return &evt, nil
}

func scanProgressRow(row scanner, database string) (storage.ProjectionProgress, error) {
	progress := storage.ProjectionProgress{TenantDatabase: database}
	if err := row.Scan(&progress.ShardName, &progress.LastSequence, &progress.Version, &progress.UpdatedAt); err != nil {
		return storage.ProjectionProgress{}, err
	}
	return progress, nil
}

func scanDocumentRow(row scanner) (storage.Document, error) {
	var doc storage.Document
	var dataJSON []byte
	if err := row.Scan(&doc.ProjectionName, &doc.ID, &doc.TenantID, &dataJSON, &doc.LastSequence, &doc.UpdatedAt); err != nil {
		return storage.Document{}, err
	}
	if err := json.Unmarshal(dataJSON, &doc.Data); err != nil {
		return storage.Document{}, fmt.Errorf("failed to unmarshal document data: %w", err)
	}
	return doc, nil
}
