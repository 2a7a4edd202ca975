package cmd

import (
	"errors"

	apperrors "github.com/felixgeelhaar/grievance/internal/errors"
	"github.com/felixgeelhaar/grievance/internal/platform"
	"github.com/felixgeelhaar/grievance/internal/session"
)

// FromClientError turns access client and session errors into coded
// errors with suggestions. The original error stays in the chain.
func FromClientError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		if authErr.Code == session.ErrTokenPersistFailed {
			return apperrors.Wrap(apperrors.ErrCodeFileReadFailed, authErr.Message, err).
				WithSuggestion("Check that the credentials path is writable (credentials.path)")
		}
		return apperrors.NewLoginFailedError(err)
	}

	if platform.IsUnauthorized(err) {
		return apperrors.Wrap(apperrors.ErrCodeNotLoggedIn, err.Error(), err).
			WithSuggestion("Your session was rejected and has been cleared").
			WithSuggestion("Run 'grievance auth login' to sign in again")
	}

	var apiErr *platform.APIError
	if errors.As(err, &apiErr) {
		return apperrors.NewRequestRejectedError(err)
	}

	var protoErr *platform.ProtocolError
	if errors.As(err, &protoErr) {
		return apperrors.NewProtocolError(err)
	}

	var transportErr *platform.TransportError
	if errors.As(err, &transportErr) {
		return apperrors.NewTransportError(err)
	}

	return err
}
