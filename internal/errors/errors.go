package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Session errors (AUTH-001 to AUTH-099)
	ErrCodeNotLoggedIn ErrorCode = "AUTH-001"
	ErrCodeForbidden   ErrorCode = "AUTH-002"
	ErrCodeLoginFailed ErrorCode = "AUTH-003"

	// Service errors (API-001 to API-099)
	ErrCodeRequestRejected ErrorCode = "API-001"
	ErrCodeProtocol        ErrorCode = "API-002"

	// Network errors (NET-001 to NET-099)
	ErrCodeTransport ErrorCode = "NET-001"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound   ErrorCode = "IO-001"
	ErrCodeFileReadFailed ErrorCode = "IO-002"

	// Configuration errors (CFG-001 to CFG-099)
	ErrCodeConfigInvalid ErrorCode = "CFG-001"

	// Usage errors (CLI-001 to CLI-099)
	ErrCodeUsage ErrorCode = "CLI-001"

	// Diagnostics errors (DOC-001 to DOC-099)
	ErrCodeUnhealthy ErrorCode = "DOC-001"
)

// AppError represents an error with code, suggestions, and documentation
type AppError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder

	// Error code and message
	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	// Add cause if it says something the message does not
	if e.Cause != nil && e.Cause.Error() != e.Message {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	// Add suggestions
	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	// Add documentation link
	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *AppError) WithDocs(url string) *AppError {
	e.DocsURL = url
	return e
}

// Common error constructors for frequently used errors

// NewNotLoggedInError is returned when a protected view is opened without a session
func NewNotLoggedInError() *AppError {
	return New(ErrCodeNotLoggedIn, "you are not logged in").
		WithSuggestion("Run 'grievance auth login' to sign in").
		WithSuggestion("Run 'grievance auth register' to create an account")
}

// NewForbiddenError is returned when a member opens an admin view
func NewForbiddenError(route, landing string) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf("%s requires the admin role", route)).
		WithSuggestion(fmt.Sprintf("Continue from %s with 'grievance dashboard'", landing)).
		WithSuggestion("Ask an administrator to grant you access")
}

// NewLoginFailedError wraps a failed login or registration
func NewLoginFailedError(cause error) *AppError {
	return Wrap(ErrCodeLoginFailed, cause.Error(), cause).
		WithSuggestion("Check your email and password").
		WithSuggestion("Verify the API URL with 'grievance auth status'")
}

// NewRequestRejectedError wraps a request the server refused
func NewRequestRejectedError(cause error) *AppError {
	return Wrap(ErrCodeRequestRejected, cause.Error(), cause)
}

// NewProtocolError wraps a response that broke the JSON contract
func NewProtocolError(cause error) *AppError {
	return Wrap(ErrCodeProtocol, cause.Error(), cause).
		WithSuggestion("Check that the API URL points at the grievance service and not a web page").
		WithSuggestion("Set GRIEVANCE_API_URL or pass --api-url")
}

// NewTransportError wraps a request that never got a response
func NewTransportError(cause error) *AppError {
	return Wrap(ErrCodeTransport, cause.Error(), cause).
		WithSuggestion("Check your network connection").
		WithSuggestion("Verify the grievance service is running at the configured API URL")
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *AppError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}

// NewFileReadError creates a file read error
func NewFileReadError(path string, cause error) *AppError {
	return Wrap(ErrCodeFileReadFailed, fmt.Sprintf("failed to read file: %s", path), cause).
		WithSuggestion("Verify you have read permissions for the file")
}

// NewConfigInvalidError creates a configuration error
func NewConfigInvalidError(cause error) *AppError {
	return Wrap(ErrCodeConfigInvalid, "invalid configuration", cause).
		WithSuggestion("Check .grievance.yaml and GRIEVANCE_* environment variables").
		WithDocs("https://github.com/felixgeelhaar/grievance#configuration")
}

// NewUsageError reports invalid flags or arguments
func NewUsageError(message string, suggestions ...string) *AppError {
	return New(ErrCodeUsage, message).WithSuggestions(suggestions...)
}

// NewUnhealthyError is returned by doctor when a check failed
func NewUnhealthyError(failed []string) *AppError {
	return New(ErrCodeUnhealthy, fmt.Sprintf("%d check(s) failed: %s", len(failed), strings.Join(failed, ", "))).
		WithSuggestion("Run 'grievance doctor -o json' for details")
}
