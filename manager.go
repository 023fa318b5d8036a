package authclient

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// User-facing messages carried on forced navigation. The change-password and
// registration texts are part of the UI contract and tested verbatim.
const (
	MsgSessionExpired  = "Session expired. Please log in again."
	MsgInvalidSession  = "Invalid session. Please log in again."
	MsgPasswordChanged = "Password changed successfully. Please log in with your new password."
	MsgRegistered      = "Registration successful! Please log in."
)

// SessionManager is the single source of truth for the client session. It is
// the only writer of the TokenStore and of the user/policy state; consumers
// read snapshots through Session and receive navigation intents as Redirect
// values, which keeps state transitions separate from their side effects.
type SessionManager struct {
	api    RemoteAPI
	tokens TokenStore
	cfg    Config
	logger Logger
	now    func() time.Time

	mu       sync.Mutex
	state    SessionState
	user     *User
	policy   *PasswordPolicy
	started  bool
	inFlight bool
}

// NewSessionManager wires the manager's collaborators. The manager starts
// Uninitialized; call Start once the host application is ready.
func NewSessionManager(api RemoteAPI, tokens TokenStore, cfg Config) *SessionManager {
	if cfg == nil {
		cfg = SimpleConfig{}
	}
	return &SessionManager{
		api:    api,
		tokens: tokens,
		cfg:    cfg,
		logger: defLogger{},
		now:    time.Now,
		state:  SessionUninitialized,
	}
}

func (m *SessionManager) WithLogger(logger Logger) *SessionManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithClock injects a custom clock (useful for expiry tests).
func (m *SessionManager) WithClock(clock func() time.Time) *SessionManager {
	if clock != nil {
		m.now = clock
	}
	return m
}

// Session returns a point-in-time snapshot of the session.
func (m *SessionManager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Session{
		User:    m.user,
		Policy:  m.policy,
		Loading: m.state == SessionLoading,
		State:   m.state,
	}
}

// PasswordPolicy returns the policy fetched at startup, or nil when the
// fetch failed. Hints only; the remote service enforces the rules.
func (m *SessionManager) PasswordPolicy() *PasswordPolicy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policy
}

// Start runs the startup validation sequence exactly once: fetch the policy
// best-effort, read the stored token, check expiry locally, then confirm with
// the remote service. Subsequent calls are no-ops. The returned Redirect is
// non-nil only when a previously persisted session had to be invalidated, so
// the host can surface the expiry banner.
func (m *SessionManager) Start(ctx context.Context) (*Redirect, error) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil, nil
	}
	m.started = true
	m.state = SessionLoading
	m.mu.Unlock()

	if policy, err := m.api.PasswordRequirements(ctx); err != nil {
		m.logger.Warn("password requirements unavailable", "error", err)
	} else {
		m.mu.Lock()
		m.policy = policy
		m.mu.Unlock()
	}

	token, err := m.tokens.Get(ctx)
	if err != nil {
		m.logger.Error("token store read failed", "error", err)
		m.finishStartup(nil)
		return nil, err
	}

	if token == "" {
		m.finishStartup(nil)
		return nil, nil
	}

	claims, err := DecodeToken(token)
	if err != nil {
		m.logger.Warn("stored token is malformed, discarding")
		return m.invalidateStartup(ctx, MsgInvalidSession)
	}

	if claims.Expired(m.now()) {
		m.logger.Info("stored token is expired, discarding")
		return m.invalidateStartup(ctx, MsgSessionExpired)
	}

	user, err := m.api.CheckAuth(ctx, token)
	if err != nil {
		m.logger.Warn("server rejected stored token", "error", err)
		return m.invalidateStartup(ctx, MsgSessionExpired)
	}

	m.finishStartup(user)
	return nil, nil
}

// Login exchanges credentials for a session. Empty fields fail before any
// network call; a failed remote call leaves the session untouched and the
// server message is preserved for display. On success the token is persisted
// before the user is exposed, keeping store and state in lockstep.
func (m *SessionManager) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password are required", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	release, err := m.acquireFlight()
	if err != nil {
		return err
	}
	defer release()

	result, err := m.api.Login(ctx, username, password)
	if err != nil {
		m.logger.Info("login rejected", "username", username, "error", err)
		return err
	}

	if err := m.tokens.Set(ctx, result.Token); err != nil {
		m.logger.Error("failed to persist token", "error", err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.transitionLocked(SessionAuthenticated); err != nil {
		// keep token and user in lockstep even on a misused lifecycle
		if clearErr := m.tokens.Clear(ctx); clearErr != nil {
			m.logger.Error("failed to clear token", "error", clearErr)
		}
		return err
	}
	m.user = result.User
	return nil
}

// Register creates an account without authenticating: the session is never
// mutated, whatever the outcome. The confirmation message is returned for
// display.
func (m *SessionManager) Register(ctx context.Context, username, password, confirmPassword string) (string, error) {
	if username == "" || password == "" || confirmPassword == "" {
		return "", errors.New("username, password, and password confirmation are required", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}
	if password != confirmPassword {
		return "", errors.New("passwords do not match", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	message, err := m.api.Register(ctx, username, password, confirmPassword)
	if err != nil {
		return "", err
	}
	if message == "" {
		message = MsgRegistered
	}
	return message, nil
}

// ChangePassword rotates the password of the current session. Success always
// ends the session: the server invalidates outstanding tokens, so the client
// must log in again. A 401-class rejection ends it too, with the expiry
// banner; any other failure leaves the session intact.
func (m *SessionManager) ChangePassword(ctx context.Context, currentPassword, newPassword, confirmPassword string) (*Redirect, error) {
	token, err := m.tokens.Get(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	release, err := m.acquireFlight()
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := m.api.ChangePassword(ctx, token, currentPassword, newPassword, confirmPassword); err != nil {
		if IsSessionExpired(err) {
			redirect := m.endSession(ctx, MsgSessionExpired)
			return redirect, err
		}
		return nil, err
	}

	return m.endSession(ctx, MsgPasswordChanged), nil
}

// Logout unconditionally clears the session without contacting the server.
func (m *SessionManager) Logout(ctx context.Context) *Redirect {
	return m.endSession(ctx, "")
}

// RefreshAuth re-validates the stored token with the remote service and
// reports whether the session is now authenticated. It never touches the
// loading flag. A definitive rejection clears the session; a connectivity
// failure leaves it untouched.
func (m *SessionManager) RefreshAuth(ctx context.Context) bool {
	token, err := m.tokens.Get(ctx)
	if err != nil {
		m.logger.Error("token store read failed", "error", err)
		return false
	}
	if token == "" {
		return false
	}

	user, err := m.api.CheckAuth(ctx, token)
	if err != nil {
		if IsConnectivity(err) {
			m.logger.Warn("auth check unreachable, keeping session", "error", err)
			return false
		}
		m.endSession(ctx, "")
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != SessionAuthenticated {
		if err := m.transitionLocked(SessionAuthenticated); err != nil {
			m.logger.Error("refresh could not transition session", "error", err)
			return false
		}
	}
	m.user = user
	return true
}

// endSession clears the token and the user in lockstep and produces the
// login redirect intent. Replace is set so the gated route does not linger in
// history.
func (m *SessionManager) endSession(ctx context.Context, message string) *Redirect {
	if err := m.tokens.Clear(ctx); err != nil {
		m.logger.Error("failed to clear token", "error", err)
	}

	m.mu.Lock()
	if m.state != SessionUnauthenticated {
		if err := m.transitionLocked(SessionUnauthenticated); err != nil {
			// every state may end; reaching this means the table regressed
			m.logger.Error("session end transition rejected", "error", err)
			m.state = SessionUnauthenticated
		}
	}
	m.user = nil
	m.mu.Unlock()

	return &Redirect{
		Path:    m.cfg.GetLoginRoute(),
		Message: message,
		Replace: true,
	}
}

func (m *SessionManager) finishStartup(user *User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user != nil {
		if err := m.transitionLocked(SessionAuthenticated); err == nil {
			m.user = user
			return
		}
	}
	if err := m.transitionLocked(SessionUnauthenticated); err != nil {
		m.state = SessionUnauthenticated
	}
	if user == nil {
		m.user = nil
	}
}

// invalidateStartup discards a stale persisted token during startup and
// finishes unauthenticated, handing back the banner intent.
func (m *SessionManager) invalidateStartup(ctx context.Context, message string) (*Redirect, error) {
	if err := m.tokens.Clear(ctx); err != nil {
		m.logger.Error("failed to clear token", "error", err)
	}
	m.finishStartup(nil)
	return &Redirect{
		Path:    m.cfg.GetLoginRoute(),
		Message: message,
		Replace: true,
	}, nil
}

// acquireFlight serializes user-triggered flows: a second login or
// change-password call while one is pending is rejected instead of racing.
func (m *SessionManager) acquireFlight() (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return nil, ErrOperationInFlight
	}
	m.inFlight = true
	return func() {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
	}, nil
}

func (m *SessionManager) transitionLocked(target SessionState) error {
	if m.state == target {
		return nil
	}
	if !m.state.CanTransition(target) {
		return ErrInvalidSessionTransition.WithMetadata(map[string]any{
			"from": string(m.state),
			"to":   string(target),
		})
	}
	m.state = target
	return nil
}
