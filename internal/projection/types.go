package projection

import (
	"time"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

// DocumentQueryRequest selects one document, or a page of documents when ID is empty.
type DocumentQueryRequest struct {
	Database   string
	Projection string
	ID         string
	Limit      int
	Wait       time.Duration // >0 waits for the daemon to catch up before reading
}

// DocumentResponse is one materialized document.
type DocumentResponse struct {
	Database     string                 `json:"database"`
	Projection   string                 `json:"projection"`
	ID           string                 `json:"id"`
	TenantID     string                 `json:"tenant_id,omitempty"`
	Data         map[string]interface{} `json:"data"`
	LastSequence int64                  `json:"last_sequence"`
	UpdatedAt    time.Time              `json:"updated_at"`
	Stale        bool                   `json:"stale"`
}

// DocumentListResponse is a page of documents of one projection.
type DocumentListResponse struct {
	Database   string             `json:"database"`
	Projection string             `json:"projection"`
	Stale      bool               `json:"stale"`
	Documents  []DocumentResponse `json:"documents"`
}

func toResponse(database string, doc storage.Document, stale bool) DocumentResponse {
	return DocumentResponse{
		Database:     database,
		Projection:   doc.ProjectionName,
		ID:           doc.ID,
		TenantID:     doc.TenantID,
		Data:         doc.Data,
		LastSequence: doc.LastSequence,
		UpdatedAt:    doc.UpdatedAt,
		Stale:        stale,
	}
}
