// Package exitcode maps command errors to process exit statuses.
package exitcode

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/felixgeelhaar/grievance/internal/errors"
	"github.com/felixgeelhaar/grievance/internal/platform"
	"github.com/felixgeelhaar/grievance/internal/session"
)

const (
	Success      = 0
	GeneralError = 1
	// UsageError covers bad flags, arguments and missing terminal input
	UsageError = 2
	// AuthError covers not logged in, forbidden and rejected credentials
	AuthError    = 5
	NetworkError = 6
	Interrupted  = 130
)

// cobra reports usage problems as plain errors
var usageMarkers = []string{
	"unknown command",
	"unknown flag",
	"unknown shorthand flag",
	"required flag",
	"accepts ",
	"requires at least",
	"invalid argument",
}

var appCodes = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeNotLoggedIn:   AuthError,
	apperrors.ErrCodeForbidden:     AuthError,
	apperrors.ErrCodeLoginFailed:   AuthError,
	apperrors.ErrCodeTransport:     NetworkError,
	apperrors.ErrCodeUsage:         UsageError,
	apperrors.ErrCodeConfigInvalid: UsageError,
}

// For returns the exit status for err. The first match wins: cancellation,
// the AppError code, then the access-client error kinds found in the chain.
func For(err error) int {
	if err == nil {
		return Success
	}
	if errors.Is(err, context.Canceled) {
		return Interrupted
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if code, ok := appCodes[appErr.Code]; ok {
			return code
		}
	}

	var transportErr *platform.TransportError
	switch {
	case platform.IsUnauthorized(err), session.IsAuthError(err):
		return AuthError
	case errors.As(err, &transportErr):
		return NetworkError
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range usageMarkers {
		if strings.Contains(msg, marker) {
			return UsageError
		}
	}
	return GeneralError
}
