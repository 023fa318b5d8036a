package authclient

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	textCodeSessionExpired   = "SESSION_EXPIRED"
	textCodeTokenMalformed   = "TOKEN_MALFORMED"
	textCodeAuthRejected     = "AUTH_REJECTED"
	textCodeConnectivity     = "CONNECTIVITY"
	textCodeNotAuthenticated = "NOT_AUTHENTICATED"
	textCodeInFlight         = "OPERATION_IN_FLIGHT"
)

// ErrSessionExpired is returned when the stored token is no longer accepted,
// either by the local expiry check or by the remote service.
var ErrSessionExpired = errors.New("session expired", errors.CategoryAuth).
	WithTextCode(textCodeSessionExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a stored token cannot be decoded. It is
// handled exactly like an expired session: the token is discarded.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrNotAuthenticated is returned by flows that require an existing session
// before any remote call is made.
var ErrNotAuthenticated = errors.New("not authenticated", errors.CategoryAuth).
	WithTextCode(textCodeNotAuthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrOperationInFlight is returned when a login or change-password call is
// issued while a previous one has not resolved.
var ErrOperationInFlight = errors.New("operation already in flight", errors.CategoryConflict).
	WithTextCode(textCodeInFlight).
	WithCode(errors.CodeConflict)

// IsSessionExpired reports whether err belongs to the expired/invalid
// session class that forces a logout.
func IsSessionExpired(err error) bool {
	if hasTextCode(err, textCodeSessionExpired) || hasTextCode(err, textCodeTokenMalformed) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "token is expired")
}

// IsAuthRejected reports whether err is a definitive rejection by the remote
// service (bad credentials, duplicate username, rejected payload). The
// server-supplied message is meant to be surfaced verbatim.
func IsAuthRejected(err error) bool {
	return hasTextCode(err, textCodeAuthRejected)
}

// IsConnectivity reports whether err is a transport failure. Connectivity
// failures never mutate session state on user-triggered flows.
func IsConnectivity(err error) bool {
	return hasTextCode(err, textCodeConnectivity)
}

// IsValidation reports whether err was raised before any network call due to
// a missing or mismatched field.
func IsValidation(err error) bool {
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.Category == errors.CategoryValidation
	}
	return false
}

// ErrorStatus returns the HTTP status the remote service answered with, or
// zero when err carries none.
func ErrorStatus(err error) int {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return 0
	}
	if rich.Metadata != nil {
		if status, ok := rich.Metadata["status"].(int); ok {
			return status
		}
	}
	return 0
}

// UserMessage extracts the message intended for display near the triggering
// form: the server text for rejections, a generic one for transport failures.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsConnectivity(err) {
		return "Unable to reach the authentication service. Please try again."
	}
	var rich *errors.Error
	if errors.As(err, &rich) && rich.Message != "" {
		return rich.Message
	}
	return err.Error()
}

func hasTextCode(err error, code string) bool {
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.TextCode == code
	}
	return false
}
