package errors

const (
	HttpInternalError          = "internal_error"
	HttpInvalidJsonError       = "invalid_json"
	HttpValidationError        = "validation_failed"
	HttpStreamVersionConflict  = "stream_version_conflict"
	HttpNotFoundError          = "not_found"
	HttpShardNotFoundError     = "shard_not_found"
	HttpProjectionNotFound     = "projection_not_found"
	HttpStaleDataError         = "stale_data"
	HttpDaemonUnavailableError = "daemon_unavailable"
	HttpServiceUnavailable     = "service_unavailable"
)

// ErrorResponse is the error response body of every HTTP surface.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
