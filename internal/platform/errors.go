package platform

import (
	"errors"
	"net/http"
)

// Messages surfaced to callers. They are shown verbatim in error banners.
const (
	msgNonJSON       = "Server returned non-JSON response"
	msgEmptyResponse = "Server returned empty response"
	msgMalformedJSON = "Server returned malformed JSON"
	msgRequestFailed = "Request failed"
	msgNetworkFailed = "Network request failed"
	msgUploadFailed  = "Upload failed"
)

// ProtocolError reports a response that violates the JSON transport contract:
// a non-JSON content type, an empty body, or a body that does not parse.
type ProtocolError struct {
	Message     string
	StatusCode  int
	ContentType string
	Cause       error
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	return e.Message
}

// Unwrap returns the underlying parse error, if any
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// APIError reports a request the server explicitly rejected with a non-2xx
// status. Message is the body's "error" field, or a generic fallback.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Unauthorized reports whether the server rejected the credential itself.
// Expired, invalid and insufficient tokens are not distinguished.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// TransportError reports a request that never produced an HTTP response:
// network unreachable, aborted, or an upload that failed mid-transfer.
type TransportError struct {
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return e.Message
}

// Unwrap returns the underlying transport error
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsUnauthorized reports whether err carries a 401 APIError anywhere in its chain.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}
