// Package guard provides route gating middleware driven by the client
// session: pending indicator while the session loads, the wrapped handler
// when authenticated, and a path-preserving redirect to login otherwise.
package guard

import (
	"context"
	"net/http"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-router"
)

// SessionSource is the slice of the SessionManager the guard consumes.
type SessionSource interface {
	Session() authclient.Session
	RefreshAuth(ctx context.Context) bool
}

type Config struct {
	// Session is required.
	Session SessionSource

	// LoginPath is where unauthenticated requests are sent.
	LoginPath string

	// RejectedRouteKey names the cookie preserving the original URL.
	RejectedRouteKey string

	// UserContextKey is the locals key under which the current user is
	// exposed to downstream handlers and templates.
	UserContextKey string

	// PendingView, when set, is rendered while the session is loading.
	// Otherwise PendingHandler runs; the default sends a plain indicator.
	PendingView    string
	PendingHandler router.HandlerFunc

	// Filter skips the guard for matching requests.
	Filter func(router.Context) bool

	// ErrorHandler receives render failures from the pending path.
	ErrorHandler router.ErrorHandler
}

func configDefault(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Session == nil {
		panic("guard: Config.Session is required")
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = authclient.DefaultLoginRoute
	}
	if cfg.RejectedRouteKey == "" {
		cfg.RejectedRouteKey = authclient.DefaultRejectedRouteKey
	}
	if cfg.UserContextKey == "" {
		cfg.UserContextKey = authclient.TemplateUserKey
	}
	if cfg.PendingHandler == nil {
		cfg.PendingHandler = func(ctx router.Context) error {
			if cfg.PendingView != "" {
				return ctx.Render(cfg.PendingView, router.ViewContext{})
			}
			return ctx.Status(http.StatusOK).SendString("Loading...")
		}
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx router.Context, err error) error {
			return err
		}
	}

	return cfg
}

// New returns the gating middleware. While the session is still loading no
// navigation decision is made; once resolved, an unauthenticated request
// gets exactly one RefreshAuth attempt before being redirected to login with
// the original URL preserved.
func New(config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return next(ctx)
			}

			session := cfg.Session.Session()

			if session.Loading {
				if err := cfg.PendingHandler(ctx); err != nil {
					return cfg.ErrorHandler(ctx, err)
				}
				return nil
			}

			if session.Authenticated() {
				ctx.Locals(cfg.UserContextKey, session.User)
				return next(ctx)
			}

			// the session may predate a persisted token (hot reload,
			// login in another tab); give the store one chance
			if cfg.Session.RefreshAuth(ctx.Context()) {
				ctx.Locals(cfg.UserContextKey, cfg.Session.Session().User)
				return next(ctx)
			}

			authclient.SetRejectedRoute(ctx, cfg.RejectedRouteKey)

			return authclient.ExecuteRedirect(ctx, &authclient.Redirect{
				Path:    cfg.LoginPath,
				Replace: true,
			})
		}
	}
}
