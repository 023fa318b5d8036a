package authclient_test

import (
	"context"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/mock"
)

// MockRemoteAPI implements authclient.RemoteAPI
type MockRemoteAPI struct {
	mock.Mock
}

func (m *MockRemoteAPI) Login(ctx context.Context, username, password string) (*authclient.LoginResult, error) {
	args := m.Called(ctx, username, password)
	if result := args.Get(0); result != nil {
		return result.(*authclient.LoginResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRemoteAPI) Register(ctx context.Context, username, password, confirmPassword string) (string, error) {
	args := m.Called(ctx, username, password, confirmPassword)
	return args.String(0), args.Error(1)
}

func (m *MockRemoteAPI) CheckAuth(ctx context.Context, token string) (*authclient.User, error) {
	args := m.Called(ctx, token)
	if user := args.Get(0); user != nil {
		return user.(*authclient.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRemoteAPI) ChangePassword(ctx context.Context, token, currentPassword, newPassword, confirmPassword string) (string, error) {
	args := m.Called(ctx, token, currentPassword, newPassword, confirmPassword)
	return args.String(0), args.Error(1)
}

func (m *MockRemoteAPI) PasswordRequirements(ctx context.Context) (*authclient.PasswordPolicy, error) {
	args := m.Called(ctx)
	if policy := args.Get(0); policy != nil {
		return policy.(*authclient.PasswordPolicy), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTokenStore implements authclient.TokenStore with error injection
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Get(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockTokenStore) Set(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
