package ingestion

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	httperr "github.com/aevon-lab/projection-daemon/internal/core/errors"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	"github.com/gin-gonic/gin"
)

const (
	msgReadBodyFailed   = "Failed to read request body"
	msgInvalidJSON      = "Invalid JSON body"
	msgPersistFailed    = "Failed to append events"
	msgVersionConflict  = "Stream version does not match expected_version"
	msgUnknownDatabase  = "Database is not attached"
	msgBodyTooLarge     = "Request body exceeds maximum allowed size"
	msgInvalidAppendReq = "Invalid append request"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// AppendHandler handles POST /v1/streams/:stream_id/events
// Query parameters: database
func (s *Service) AppendHandler(c *gin.Context) {
	streamID := c.Param("stream_id")

	db, ierr := s.resolveDatabase(c.Query("database"))
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	req, payloadSize, ierr := s.parseRequest(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	events, err := req.Validate(streamID)
	if err != nil {
		slog.Warn("[Ingestion] Append request rejected", "stream_id", streamID, "error", err)
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    msgInvalidAppendReq,
			details:    err.Error(),
		})
		return
	}

	persisted, err := s.Append(c.Request.Context(), db, streamID, storage.AppendOptions{
		AggregateType:   req.AggregateType,
		ExpectedVersion: req.ExpectedVersion,
	}, events)
	if err != nil {
		writeError(c, appendFailure(db.Identifier(), streamID, err))
		return
	}

	resp := v1.AppendResponse{
		StreamID:  streamID,
		Sequences: make([]int64, 0, len(persisted)),
	}
	for _, evt := range persisted {
		resp.Sequences = append(resp.Sequences, evt.Sequence)
		resp.StreamVersion = evt.Version
	}

	slog.Info("[Ingestion] Events appended",
		"database", db.Identifier(),
		"stream_id", streamID,
		"count", len(persisted),
		"stream_version", resp.StreamVersion,
		"payload_size", payloadSize)

	c.JSON(http.StatusCreated, resp)
}

func (s *Service) resolveDatabase(name string) (storage.Database, *ingestionError) {
	if name == "" {
		name = s.defaultDatabase
	}
	db, ok := s.databases.Database(name)
	if !ok {
		return nil, &ingestionError{
			statusCode: http.StatusNotFound,
			errorType:  httperr.HttpNotFoundError,
			message:    msgUnknownDatabase,
			details:    map[string]interface{}{"database": name},
		}
	}
	return db, nil
}

// parseRequest reads the raw request body and binds it into an AppendRequest.
// Returns the parsed request and the raw payload size (used for structured logging upstream).
func (s *Service) parseRequest(c *gin.Context) (*v1.AppendRequest, int, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgBodyTooLarge,
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var req v1.AppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("[Ingestion] Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}
	return &req, len(bodyBytes), nil
}

func appendFailure(database, streamID string, err error) *ingestionError {
	switch {
	case errors.Is(err, storage.ErrStreamVersionConflict):
		slog.Info("[Ingestion] Stream version conflict", "database", database, "stream_id", streamID, "error", err)
		return &ingestionError{
			statusCode: http.StatusConflict,
			errorType:  httperr.HttpStreamVersionConflict,
			message:    msgVersionConflict,
			details:    err.Error(),
		}
	case errors.Is(err, storage.ErrNoEvents):
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    msgInvalidAppendReq,
			details:    err.Error(),
		}
	}

	slog.Error("[Ingestion] Failed to append events", "database", database, "stream_id", streamID, "error", err)
	return &ingestionError{
		statusCode: http.StatusInternalServerError,
		errorType:  httperr.HttpInternalError,
		message:    msgPersistFailed,
	}
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
