package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

// LoadDocument reads one projection document.
func (a *Adapter) LoadDocument(ctx context.Context, projection, id string) (storage.Document, error) {
	return loadDocument(ctx, a.db, projection, id)
}

// ListDocuments returns up to limit documents of a projection ordered by id.
func (a *Adapter) ListDocuments(ctx context.Context, projection string, limit int) ([]storage.Document, error) {
	rows, err := a.db.QueryContext(ctx, queryListDocuments, projection, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []storage.Document
	for rows.Next() {
		doc, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

// DeleteProjectionDocuments tears down every document of a projection.
func (a *Adapter) DeleteProjectionDocuments(ctx context.Context, projection string) (int64, error) {
	result, err := a.db.ExecContext(ctx, queryDeleteProjectionDocuments, projection)
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents of %q: %w", projection, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	return deleted, nil
}

func loadDocument(ctx context.Context, q execer, projection, id string) (storage.Document, error) {
	doc, err := scanDocumentRow(q.QueryRowContext(ctx, querySelectDocument, projection, id))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Document{}, fmt.Errorf("document %s/%s: %w", projection, id, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Document{}, fmt.Errorf("failed to load document %s/%s: %w", projection, id, err)
	}
	return doc, nil
}

func upsertDocument(ctx context.Context, q execer, doc storage.Document) error {
	data := doc.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal document data: %w", err)
	}

	if _, err := q.ExecContext(ctx, queryUpsertDocument,
		doc.ProjectionName,
		doc.ID,
		doc.TenantID,
		dataJSON,
		doc.LastSequence,
	); err != nil {
		return fmt.Errorf("failed to upsert document %s/%s: %w", doc.ProjectionName, doc.ID, err)
	}
	return nil
}

func deleteDocument(ctx context.Context, q execer, projection, id string) error {
	if _, err := q.ExecContext(ctx, queryDeleteDocument, projection, id); err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", projection, id, err)
	}
	return nil
}
