package authclient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// User is the identity returned by the remote service. The client treats it
// as opaque: fields are surfaced for display, never derived or validated
// locally beyond presence.
type User struct {
	ID        string    `json:"id,omitempty"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// UUID parses the server-assigned identifier when it is a UUID.
func (u *User) UUID() (uuid.UUID, error) {
	return uuid.Parse(u.ID)
}

// PasswordPolicy carries the server-declared password rules. Fetched once at
// startup and rendered as advisory hints; enforcement stays server-side.
type PasswordPolicy struct {
	MinLength        int  `json:"min_length"`
	RequireMixedCase bool `json:"require_mixed_case"`
	RequireSpecial   bool `json:"require_special"`
	HistoryLimit     int  `json:"history_limit"`
}

// LoginResult is the payload of a successful login call.
type LoginResult struct {
	Token string
	User  *User
}

// RemoteAPI is the surface of the remote authentication service consumed by
// the SessionManager. Client is the HTTP implementation.
type RemoteAPI interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Register(ctx context.Context, username, password, confirmPassword string) (string, error)
	CheckAuth(ctx context.Context, token string) (*User, error)
	ChangePassword(ctx context.Context, token, currentPassword, newPassword, confirmPassword string) (string, error)
	PasswordRequirements(ctx context.Context) (*PasswordPolicy, error)
}

// TokenStore persists the bearer token across application runs. A missing
// token is reported as an empty string, not an error. Implementations do no
// validation; the SessionManager is the only writer.
type TokenStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Redirect is a navigation intent produced by the SessionManager. The manager
// never navigates; the HTTP layer executes intents, attaching Message as a
// flash banner when present.
type Redirect struct {
	Path    string
	Message string
	// Replace signals the history entry should be replaced rather than
	// pushed, so the back button does not loop into the gated route.
	Replace bool
}

// Config holds client session options
type Config interface {
	GetBaseURL() string
	GetStorageKey() string
	GetLoginRoute() string
	GetDefaultRoute() string
	GetRejectedRouteKey() string
	GetHTTPTimeout() time.Duration
}

// SimpleConfig is a literal-friendly Config implementation. Zero values fall
// back to the package defaults.
type SimpleConfig struct {
	BaseURL          string
	StorageKey       string
	LoginRoute       string
	DefaultRoute     string
	RejectedRouteKey string
	HTTPTimeout      time.Duration
}

const (
	DefaultStorageKey       = "token"
	DefaultLoginRoute       = "/login"
	DefaultRoute            = "/"
	DefaultRejectedRouteKey = "rejected_route"
	DefaultHTTPTimeout      = 10 * time.Second
)

func (c SimpleConfig) GetBaseURL() string { return c.BaseURL }

func (c SimpleConfig) GetStorageKey() string {
	if c.StorageKey == "" {
		return DefaultStorageKey
	}
	return c.StorageKey
}

func (c SimpleConfig) GetLoginRoute() string {
	if c.LoginRoute == "" {
		return DefaultLoginRoute
	}
	return c.LoginRoute
}

func (c SimpleConfig) GetDefaultRoute() string {
	if c.DefaultRoute == "" {
		return DefaultRoute
	}
	return c.DefaultRoute
}

func (c SimpleConfig) GetRejectedRouteKey() string {
	if c.RejectedRouteKey == "" {
		return DefaultRejectedRouteKey
	}
	return c.RejectedRouteKey
}

func (c SimpleConfig) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeout <= 0 {
		return DefaultHTTPTimeout
	}
	return c.HTTPTimeout
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
