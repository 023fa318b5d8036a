package authclient_test

import (
	"context"
	"net/http"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSessionFlows implements authclient.SessionFlows
type MockSessionFlows struct {
	mock.Mock
}

func (m *MockSessionFlows) Session() authclient.Session {
	args := m.Called()
	return args.Get(0).(authclient.Session)
}

func (m *MockSessionFlows) PasswordPolicy() *authclient.PasswordPolicy {
	args := m.Called()
	if policy := args.Get(0); policy != nil {
		return policy.(*authclient.PasswordPolicy)
	}
	return nil
}

func (m *MockSessionFlows) Login(ctx context.Context, username, password string) error {
	args := m.Called(ctx, username, password)
	return args.Error(0)
}

func (m *MockSessionFlows) Register(ctx context.Context, username, password, confirmPassword string) (string, error) {
	args := m.Called(ctx, username, password, confirmPassword)
	return args.String(0), args.Error(1)
}

func (m *MockSessionFlows) ChangePassword(ctx context.Context, currentPassword, newPassword, confirmPassword string) (*authclient.Redirect, error) {
	args := m.Called(ctx, currentPassword, newPassword, confirmPassword)
	if redirect := args.Get(0); redirect != nil {
		return redirect.(*authclient.Redirect), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionFlows) Logout(ctx context.Context) *authclient.Redirect {
	args := m.Called(ctx)
	if redirect := args.Get(0); redirect != nil {
		return redirect.(*authclient.Redirect)
	}
	return nil
}

func newTestController(session *MockSessionFlows) *authclient.AuthController {
	return authclient.NewAuthController(
		authclient.WithControllerSession(session),
	)
}

func TestNewAuthControllerRequiresSession(t *testing.T) {
	assert.Panics(t, func() {
		authclient.NewAuthController()
	})
}

func TestLoginShowRendersForm(t *testing.T) {
	session := new(MockSessionFlows)
	ctrl := newTestController(session)

	ctx := router.NewMockContext()
	ctx.On("Render", ctrl.Views.Login, mock.Anything).Return(nil)

	require.NoError(t, ctrl.LoginShow(ctx))
	ctx.AssertExpectations(t)
}

func TestLoginPostValidationFailureRendersErrors(t *testing.T) {
	session := new(MockSessionFlows)
	ctrl := newTestController(session)

	ctx := router.NewMockContext()
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*authclient.LoginRequest)
		payload.Username = "admin"
		payload.Password = ""
	})

	var rendered router.ViewContext
	ctx.On("Render", ctrl.Views.Login, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		rendered = args.Get(1).(router.ViewContext)
	})

	require.NoError(t, ctrl.LoginPost(ctx))

	fields, ok := rendered["validation"].(map[string]string)
	require.True(t, ok, "expected a validation map")
	assert.Contains(t, fields, "password")

	session.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginPostSuccessRedirectsToRejectedRoute(t *testing.T) {
	session := new(MockSessionFlows)
	session.On("Login", mock.Anything, "admin", "Sup3r-secret!").Return(nil).Once()

	ctrl := newTestController(session)

	ctx := router.NewMockContext()
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*authclient.LoginRequest)
		payload.Username = "admin"
		payload.Password = "Sup3r-secret!"
	})
	ctx.On("Context").Return(context.Background())

	// a preserved route wins over the default destination
	ctx.CookiesM[authclient.DefaultRejectedRouteKey] = "/reports"
	ctx.On("Cookie", mock.Anything).Return()
	ctx.On("Redirect", "/reports", []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.LoginPost(ctx))
	ctx.AssertExpectations(t)
	session.AssertExpectations(t)
}

func TestLoginPostWithoutRejectedRouteUsesDefault(t *testing.T) {
	session := new(MockSessionFlows)
	session.On("Login", mock.Anything, "admin", "Sup3r-secret!").Return(nil).Once()

	ctrl := newTestController(session)

	ctx := router.NewMockContext()
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*authclient.LoginRequest)
		payload.Username = "admin"
		payload.Password = "Sup3r-secret!"
	})
	ctx.On("Context").Return(context.Background())
	ctx.CookiesM[authclient.DefaultRejectedRouteKey] = ""
	ctx.On("Redirect", authclient.DefaultRoute, []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.LoginPost(ctx))
	ctx.AssertExpectations(t)
}

func TestLoginPostRejectedRendersServerMessage(t *testing.T) {
	session := new(MockSessionFlows)
	session.On("Login", mock.Anything, "admin", "wrong").Return(errRejected).Once()

	ctrl := newTestController(session)

	ctx := router.NewMockContext()
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*authclient.LoginRequest)
		payload.Username = "admin"
		payload.Password = "wrong"
	})
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookie", mock.Anything).Return().Maybe()
	ctx.On("Locals", mock.Anything, mock.Anything).Return(nil).Maybe()

	var rendered router.ViewContext
	ctx.On("Render", ctrl.Views.Login, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		rendered = args.Get(1).(router.ViewContext)
	})

	require.NoError(t, ctrl.LoginPost(ctx))

	fields, ok := rendered["errors"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "Invalid username or password.", fields["authentication"])
}

func TestRegistrationShowIncludesPolicyHints(t *testing.T) {
	session := new(MockSessionFlows)
	session.On("PasswordPolicy").Return(testPolicy)

	ctrl := newTestController(session)

	ctx := router.NewMockContext()
	var rendered router.ViewContext
	ctx.On("Render", ctrl.Views.Register, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		rendered = args.Get(1).(router.ViewContext)
	})

	require.NoError(t, ctrl.RegistrationShow(ctx))

	policy, ok := rendered["policy"].(router.ViewContext)
	require.True(t, ok, "expected policy view data")
	assert.Equal(t, 8, policy["min_length"])
	assert.Contains(t, policy["hints"], "At least 8 characters")
}

func TestChangePasswordPostSessionExpiredRedirects(t *testing.T) {
	session := new(MockSessionFlows)
	session.On("ChangePassword", mock.Anything, "stale", "N3w-pass!", "N3w-pass!").
		Return(&authclient.Redirect{
			Path:    authclient.DefaultLoginRoute,
			Message: authclient.MsgSessionExpired,
			Replace: true,
		}, authclient.ErrSessionExpired).Once()

	ctrl := newTestController(session)

	ctx := router.NewMockContext()
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*authclient.ChangePasswordPayload)
		payload.CurrentPassword = "stale"
		payload.NewPassword = "N3w-pass!"
		payload.ConfirmPassword = "N3w-pass!"
	})
	ctx.On("Context").Return(context.Background())
	ctx.On("Method").Return("POST")
	ctx.On("Cookie", mock.Anything).Return().Maybe()
	ctx.On("Locals", mock.Anything, mock.Anything).Return(nil).Maybe()
	ctx.On("Redirect", authclient.DefaultLoginRoute, []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.ChangePasswordPost(ctx))
	session.AssertExpectations(t)
}

func TestLogOutRedirectsToLogin(t *testing.T) {
	session := new(MockSessionFlows)
	session.On("Logout", mock.Anything).
		Return(&authclient.Redirect{Path: authclient.DefaultLoginRoute, Replace: true}).Once()

	ctrl := newTestController(session)

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("Method").Return("GET")
	ctx.On("Redirect", authclient.DefaultLoginRoute, []int{http.StatusFound}).Return(nil)

	require.NoError(t, ctrl.LogOut(ctx))
	ctx.AssertExpectations(t)
}

func TestValidateStringEquals(t *testing.T) {
	rule := authclient.ValidateStringEquals("expected")

	assert.NoError(t, rule("expected"))
	assert.Error(t, rule("different"))
	assert.Error(t, rule(42))
}

func TestFormatValidationErrorToMap(t *testing.T) {
	assert.Empty(t, authclient.FormatValidationErrorToMap(nil))

	payload := authclient.RegistrationCreatePayload{
		Username:        "admin",
		Password:        "Str0ng-pass!",
		ConfirmPassword: "different",
	}
	err := payload.Validate()
	require.Error(t, err)
	require.IsType(t, validation.Errors{}, err)

	fields := authclient.FormatValidationErrorToMap(err)
	assert.Contains(t, fields, "confirm_password")
	assert.NotContains(t, fields, "username")
}
