package authclient_test

import (
	"net/http"
	"testing"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSetRejectedRoute(t *testing.T) {
	ctx := router.NewMockContext()
	ctx.On("OriginalURL").Return("/reports?page=2")

	var cookie *router.Cookie
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		cookie = c
		return c.Name == authclient.DefaultRejectedRouteKey
	})).Return()

	authclient.SetRejectedRoute(ctx, "")

	require.NotNil(t, cookie)
	assert.Equal(t, "/reports?page=2", cookie.Value)
	assert.True(t, cookie.HTTPOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, "Lax", cookie.SameSite)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), cookie.Expires, 10*time.Second)
}

func TestConsumeRejectedRouteFallsBack(t *testing.T) {
	ctx := router.NewMockContext()
	ctx.CookiesM[authclient.DefaultRejectedRouteKey] = ""

	path := authclient.ConsumeRejectedRoute(ctx, "", "/")
	assert.Equal(t, "/", path)
}

func TestConsumeRejectedRouteDeletesCookie(t *testing.T) {
	ctx := router.NewMockContext()
	ctx.CookiesM[authclient.DefaultRejectedRouteKey] = "/reports"

	var deleted *router.Cookie
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		deleted = c
		return c.Name == authclient.DefaultRejectedRouteKey
	})).Return()

	path := authclient.ConsumeRejectedRoute(ctx, "", "/")
	assert.Equal(t, "/reports", path)

	require.NotNil(t, deleted)
	assert.Empty(t, deleted.Value)
	assert.True(t, deleted.Expires.Before(time.Now()))
}

func TestExecuteRedirectNilIsNoOp(t *testing.T) {
	ctx := router.NewMockContext()
	require.NoError(t, authclient.ExecuteRedirect(ctx, nil))
	ctx.AssertNotCalled(t, "Redirect", mock.Anything, mock.Anything)
}

func TestExecuteRedirectStatusByMethod(t *testing.T) {
	tests := []struct {
		method string
		status int
	}{
		{"POST", http.StatusSeeOther},
		{"GET", http.StatusFound},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			ctx := router.NewMockContext()
			ctx.On("Method").Return(tt.method)
			ctx.On("Redirect", "/login", []int{tt.status}).Return(nil)

			err := authclient.ExecuteRedirect(ctx, &authclient.Redirect{Path: "/login", Replace: true})
			require.NoError(t, err)
			ctx.AssertExpectations(t)
		})
	}
}
