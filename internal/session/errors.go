package session

import (
	"errors"
	"fmt"
)

// Error codes for session failures
const (
	ErrLoginFailed        = "SESSION_LOGIN_FAILED"
	ErrRegistrationFailed = "SESSION_REGISTRATION_FAILED"
	ErrTokenPersistFailed = "SESSION_TOKEN_PERSIST_FAILED"
)

// AuthError is returned by Login and Register. Message is the text shown
// to the user; Cause keeps the Access Client error for errors.As.
type AuthError struct {
	Code    string
	Message string
	Cause   error
}

// Error returns the user-facing message
func (e *AuthError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// wrapAuthError builds an AuthError whose message is the cause's own text,
// so a rejection such as "Invalid credentials" reaches the user verbatim.
func wrapAuthError(code string, cause error) *AuthError {
	message := "Authentication failed"
	if cause != nil && cause.Error() != "" {
		message = cause.Error()
	}
	return &AuthError{Code: code, Message: message, Cause: cause}
}

// IsAuthError reports whether err carries an AuthError
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

func persistError(op string, cause error) *AuthError {
	return &AuthError{
		Code:    ErrTokenPersistFailed,
		Message: fmt.Sprintf("failed to %s credentials", op),
		Cause:   cause,
	}
}
