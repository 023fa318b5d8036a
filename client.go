package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	defaultLoginPath          = "/api/auth/login"
	defaultRegisterPath       = "/api/auth/register"
	defaultCheckAuthPath      = "/api/auth/check-auth"
	defaultChangePasswordPath = "/api/auth/change-password"
	defaultRequirementsPath   = "/api/auth/password-requirements"
)

// ClientConfig holds the remote service configuration.
type ClientConfig struct {
	// BaseURL is the scheme://host[:port] of the authentication service.
	BaseURL string

	// Endpoint overrides, relative to BaseURL. Defaults follow the
	// /api/auth base path.
	LoginPath          string
	RegisterPath       string
	CheckAuthPath      string
	ChangePasswordPath string
	RequirementsPath   string

	HTTPClient *http.Client
	Logger     Logger
}

// Client implements RemoteAPI over HTTP. Every call normalizes transport and
// service failures into rich errors; none of them panic or leak raw
// *url.Error values to callers.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     Logger
}

var _ RemoteAPI = (*Client)(nil)

// NewClient creates a Client for the service at cfg.BaseURL.
func NewClient(cfg ClientConfig) *Client {
	if cfg.LoginPath == "" {
		cfg.LoginPath = defaultLoginPath
	}
	if cfg.RegisterPath == "" {
		cfg.RegisterPath = defaultRegisterPath
	}
	if cfg.CheckAuthPath == "" {
		cfg.CheckAuthPath = defaultCheckAuthPath
	}
	if cfg.ChangePasswordPath == "" {
		cfg.ChangePasswordPath = defaultChangePasswordPath
	}
	if cfg.RequirementsPath == "" {
		cfg.RequirementsPath = defaultRequirementsPath
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = defLogger{}
	}

	return &Client{
		config:     cfg,
		httpClient: client,
		logger:     logger,
	}
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type checkAuthResponse struct {
	User *User `json:"user"`
}

// Login exchanges credentials for a bearer token and the authenticated user.
// Rejections keep the server-supplied message verbatim.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}

	var out loginResponse
	if err := c.do(ctx, http.MethodPost, c.config.LoginPath, "", body, &out); err != nil {
		return nil, err
	}

	if out.AccessToken == "" {
		return nil, errors.New("login response missing access token", errors.CategoryExternal).
			WithTextCode(textCodeConnectivity)
	}

	return &LoginResult{Token: out.AccessToken, User: out.User}, nil
}

// Register creates an account. It never authenticates; the confirmation
// message is returned for display.
func (c *Client) Register(ctx context.Context, username, password, confirmPassword string) (string, error) {
	body := map[string]string{
		"username":        username,
		"password":        password,
		"confirmPassword": confirmPassword,
	}

	var out messageResponse
	if err := c.do(ctx, http.MethodPost, c.config.RegisterPath, "", body, &out); err != nil {
		return "", err
	}

	return out.Message, nil
}

// CheckAuth asks the service whether token is still valid. A non-2xx answer
// is reported as a session-expired class error.
func (c *Client) CheckAuth(ctx context.Context, token string) (*User, error) {
	var out checkAuthResponse
	if err := c.do(ctx, http.MethodGet, c.config.CheckAuthPath, token, nil, &out); err != nil {
		if IsConnectivity(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CategoryAuth, ErrSessionExpired.Message).
			WithTextCode(ErrSessionExpired.TextCode).
			WithCode(errors.CodeUnauthorized)
	}

	if out.User == nil {
		return nil, ErrSessionExpired
	}

	return out.User, nil
}

// ChangePassword rotates the password for the session behind token. A 401
// answer is normalized to the session-expired class so callers invalidate the
// session; other rejections keep the server message.
func (c *Client) ChangePassword(ctx context.Context, token, currentPassword, newPassword, confirmPassword string) (string, error) {
	body := map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
		"confirmPassword": confirmPassword,
	}

	var out messageResponse
	if err := c.do(ctx, http.MethodPost, c.config.ChangePasswordPath, token, body, &out); err != nil {
		if ErrorStatus(err) == http.StatusUnauthorized {
			return "", errors.Wrap(err, errors.CategoryAuth, ErrSessionExpired.Message).
				WithTextCode(ErrSessionExpired.TextCode).
				WithCode(errors.CodeUnauthorized)
		}
		return "", err
	}

	return out.Message, nil
}

// PasswordRequirements fetches the advisory password policy. Callers treat
// failures as non-fatal; the policy simply stays absent.
func (c *Client) PasswordRequirements(ctx context.Context) (*PasswordPolicy, error) {
	var out PasswordPolicy
	if err := c.do(ctx, http.MethodGet, c.config.RequirementsPath, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type serviceError struct {
	Error             string `json:"error"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
	LockedUntil       string `json:"locked_until,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to encode request")
		}
		reader = bytes.NewReader(encoded)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to build request")
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("auth service request failed", "path", path, "error", err)
		return errors.Wrap(err, errors.CategoryExternal, "auth service unreachable").
			WithTextCode(textCodeConnectivity)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "failed to read response").
			WithTextCode(textCodeConnectivity)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.rejectionError(path, resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "invalid response from auth service").
			WithTextCode(textCodeConnectivity).
			WithMetadata(map[string]any{"status": resp.StatusCode})
	}

	return nil
}

// rejectionError turns a non-2xx answer into a rich error carrying the
// verbatim server message, the HTTP status, and any lockout hints.
func (c *Client) rejectionError(path string, status int, raw []byte) error {
	message := "request rejected"

	var payload serviceError
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	} else if trimmed := strings.TrimSpace(string(raw)); trimmed != "" && len(trimmed) < 200 {
		message = trimmed
	}

	metadata := map[string]any{
		"status": status,
		"path":   path,
	}
	if payload.RemainingAttempts != nil {
		metadata["remaining_attempts"] = *payload.RemainingAttempts
	}
	if payload.LockedUntil != "" {
		metadata["locked_until"] = payload.LockedUntil
	}

	category := errors.CategoryAuth
	code := errors.CodeUnauthorized
	switch {
	case status == http.StatusBadRequest:
		category = errors.CategoryValidation
		code = errors.CodeBadRequest
	case status == http.StatusForbidden:
		code = errors.CodeForbidden
	case status >= 500:
		category = errors.CategoryExternal
		code = errors.CodeInternal
	}

	return errors.New(message, category).
		WithTextCode(textCodeAuthRejected).
		WithCode(code).
		WithMetadata(metadata)
}
