package authclient

import (
	"github.com/goliatone/go-errors"
)

// SessionState is the lifecycle position of the client session.
type SessionState string

const (
	// SessionUninitialized is the state before Start has run.
	SessionUninitialized SessionState = "uninitialized"
	// SessionLoading covers the startup validation window. It is entered at
	// most once per manager.
	SessionLoading SessionState = "loading"
	// SessionAuthenticated means a server-validated token exists in the store.
	SessionAuthenticated SessionState = "authenticated"
	// SessionUnauthenticated means no token is stored.
	SessionUnauthenticated SessionState = "unauthenticated"
)

// ErrInvalidSessionTransition is returned when a flow would move the session
// to a state the lifecycle does not allow.
var ErrInvalidSessionTransition = errors.New("invalid session state transition", errors.CategoryValidation).
	WithTextCode("INVALID_SESSION_TRANSITION").
	WithCode(errors.CodeBadRequest)

// sessionTransitions is the allowed lifecycle graph:
// Uninitialized -> Loading -> {Authenticated, Unauthenticated}, then login
// and logout style flows move between the two terminal states.
var sessionTransitions = map[SessionState]map[SessionState]struct{}{
	SessionUninitialized: {
		SessionLoading:         {},
		SessionUnauthenticated: {},
	},
	SessionLoading: {
		SessionAuthenticated:   {},
		SessionUnauthenticated: {},
	},
	SessionAuthenticated: {
		SessionUnauthenticated: {},
	},
	SessionUnauthenticated: {
		SessionAuthenticated: {},
	},
}

// CanTransition reports whether the lifecycle allows moving from s to
// target. Same-state moves are handled by callers as no-ops.
func (s SessionState) CanTransition(target SessionState) bool {
	allowed, ok := sessionTransitions[s]
	if !ok {
		return false
	}
	_, exists := allowed[target]
	return exists
}

// Session is an immutable snapshot of the client's authentication state.
// Exactly one live session exists per SessionManager.
type Session struct {
	User    *User
	Policy  *PasswordPolicy
	Loading bool
	State   SessionState
}

// Authenticated reports whether the snapshot carries a validated user.
func (s Session) Authenticated() bool {
	return s.User != nil
}
