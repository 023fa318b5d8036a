package authclient

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// SetRejectedRoute remembers the originally requested URL in a short-lived
// cookie so login can send the user back there afterwards.
func SetRejectedRoute(ctx router.Context, key string) {
	if key == "" {
		key = DefaultRejectedRouteKey
	}

	ctx.Cookie(&router.Cookie{
		Name:     key,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// ConsumeRejectedRoute reads and deletes the preserved route, falling back to
// def when none was recorded.
func ConsumeRejectedRoute(ctx router.Context, key, def string) string {
	if key == "" {
		key = DefaultRejectedRouteKey
	}

	r := ctx.Cookies(key)
	if r == "" {
		return def
	}
	cookieDel(ctx, key)
	return r
}

// ExecuteRedirect performs a Redirect intent produced by the SessionManager:
// the message travels as a flash banner, and Replace picks a status code
// that replaces the history entry instead of pushing one.
func ExecuteRedirect(ctx router.Context, r *Redirect) error {
	if r == nil {
		return nil
	}

	status := http.StatusSeeOther
	if ctx.Method() == string(router.GET) {
		status = http.StatusFound
	}

	if r.Message != "" {
		return flash.WithSuccess(ctx, router.ViewContext{
			"system_message": r.Message,
		}).Redirect(r.Path, status)
	}

	return ctx.Redirect(r.Path, status)
}

func cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
