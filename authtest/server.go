// Package authtest runs an in-process authentication service with the same
// wire contract as the production one: bearer tokens, lockout counters,
// password history, and the advisory policy endpoint. Tests and examples
// point a Client at Server.URL and exercise real HTTP round trips.
package authtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	authclient "github.com/goliatone/go-auth-client"
)

const (
	// DefaultMaxAttempts failed logins lock the account.
	DefaultMaxAttempts = 5
	// DefaultLockout is how long a locked account stays locked.
	DefaultLockout = 15 * time.Minute
	// DefaultTokenTTL is the lifetime of minted bearer tokens.
	DefaultTokenTTL = time.Hour
)

type account struct {
	id          uuid.UUID
	username    string
	hash        []byte
	history     [][]byte
	createdAt   time.Time
	failed      int
	lockedUntil time.Time
	// tokens issued before this instant are rejected
	tokensValidFrom time.Time
}

// Server is the fake authentication service.
type Server struct {
	mu          sync.Mutex
	users       map[string]*account
	secret      []byte
	tokenTTL    time.Duration
	maxAttempts int
	lockout     time.Duration
	policy      authclient.PasswordPolicy
	now         func() time.Time

	srv *httptest.Server
}

type Option func(*Server)

func WithPolicy(policy authclient.PasswordPolicy) Option {
	return func(s *Server) {
		s.policy = policy
	}
}

func WithMaxAttempts(n int) Option {
	return func(s *Server) {
		s.maxAttempts = n
	}
}

func WithLockout(d time.Duration) Option {
	return func(s *Server) {
		s.lockout = d
	}
}

func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) {
		s.tokenTTL = d
	}
}

// WithClock injects the server's clock so tests can drive lockout expiry.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		s.now = clock
	}
}

// NewServer starts the fake service. Callers own the returned Server and must
// Close it.
func NewServer(opts ...Option) *Server {
	s := &Server{
		users:       map[string]*account{},
		secret:      []byte(uuid.NewString()),
		tokenTTL:    DefaultTokenTTL,
		maxAttempts: DefaultMaxAttempts,
		lockout:     DefaultLockout,
		policy: authclient.PasswordPolicy{
			MinLength:        8,
			RequireMixedCase: true,
			RequireSpecial:   true,
			HistoryLimit:     5,
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("GET /api/auth/check-auth", s.handleCheckAuth)
	mux.HandleFunc("POST /api/auth/change-password", s.handleChangePassword)
	mux.HandleFunc("GET /api/auth/password-requirements", s.handleRequirements)

	s.srv = httptest.NewServer(mux)

	return s
}

func (s *Server) URL() string {
	return s.srv.URL
}

func (s *Server) Close() {
	s.srv.Close()
}

// MustAddUser seeds an account, bypassing policy checks.
func (s *Server) MustAddUser(username, password string) *authclient.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := &account{
		id:        uuid.New(),
		username:  username,
		hash:      hash,
		history:   [][]byte{hash},
		createdAt: s.now().UTC(),
	}
	s.users[username] = acc

	return userPayload(acc)
}

// MintToken issues a signed token for username. A negative ttl produces an
// already expired token, which startup validation tests rely on.
func (s *Server) MintToken(username string, ttl time.Duration) string {
	s.mu.Lock()
	acc, ok := s.users[username]
	s.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("authtest: no user %q", username))
	}
	return s.mint(acc, ttl)
}

// LockUser puts an account into the locked state immediately.
func (s *Server) LockUser(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.users[username]; ok {
		acc.failed = s.maxAttempts
		acc.lockedUntil = s.now().Add(s.lockout)
	}
}

func (s *Server) mint(acc *account, ttl time.Duration) string {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   acc.id.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return token
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.users[payload.Username]
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid username or password.", nil)
		return
	}

	now := s.now()
	if acc.lockedUntil.After(now) {
		writeError(w, http.StatusForbidden, "Account locked due to too many failed attempts.", map[string]any{
			"locked_until": acc.lockedUntil.UTC().Format(time.RFC3339),
		})
		return
	}

	if bcrypt.CompareHashAndPassword(acc.hash, []byte(payload.Password)) != nil {
		acc.failed++
		remaining := s.maxAttempts - acc.failed
		if remaining <= 0 {
			acc.lockedUntil = now.Add(s.lockout)
			writeError(w, http.StatusForbidden, "Account locked due to too many failed attempts.", map[string]any{
				"locked_until": acc.lockedUntil.UTC().Format(time.RFC3339),
			})
			return
		}
		writeError(w, http.StatusUnauthorized, "Invalid username or password.", map[string]any{
			"remaining_attempts": remaining,
		})
		return
	}

	acc.failed = 0
	acc.lockedUntil = time.Time{}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": s.mint(acc, s.tokenTTL),
		"user":         userPayload(acc),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username        string `json:"username"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.", nil)
		return
	}

	if payload.Username == "" || payload.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required.", nil)
		return
	}
	if payload.Password != payload.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "Passwords do not match.", nil)
		return
	}
	if msg := s.policyViolation(payload.Password); msg != "" {
		writeError(w, http.StatusBadRequest, msg, nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[payload.Username]; exists {
		writeError(w, http.StatusConflict, "Username already exists.", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal error.", nil)
		return
	}

	s.users[payload.Username] = &account{
		id:        uuid.New(),
		username:  payload.Username,
		hash:      hash,
		history:   [][]byte{hash},
		createdAt: s.now().UTC(),
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful! Please log in.",
	})
}

func (s *Server) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token.", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": userPayload(acc),
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token.", nil)
		return
	}

	var payload struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if bcrypt.CompareHashAndPassword(acc.hash, []byte(payload.CurrentPassword)) != nil {
		writeError(w, http.StatusUnauthorized, "Current password is incorrect.", nil)
		return
	}
	if payload.NewPassword != payload.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "Passwords do not match.", nil)
		return
	}
	if msg := s.policyViolation(payload.NewPassword); msg != "" {
		writeError(w, http.StatusBadRequest, msg, nil)
		return
	}

	limit := s.policy.HistoryLimit
	if limit > 0 {
		recent := acc.history
		if len(recent) > limit {
			recent = recent[len(recent)-limit:]
		}
		for _, old := range recent {
			if bcrypt.CompareHashAndPassword(old, []byte(payload.NewPassword)) == nil {
				writeError(w, http.StatusBadRequest,
					fmt.Sprintf("Password must differ from your last %d passwords.", limit), nil)
				return
			}
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal error.", nil)
		return
	}

	acc.hash = hash
	acc.history = append(acc.history, hash)
	// outstanding tokens die with the old password
	acc.tokensValidFrom = s.now()

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Password changed successfully. Please log in with your new password.",
	})
}

func (s *Server) handleRequirements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.policy)
}

// authenticate resolves the bearer token to its account.
func (s *Server) authenticate(r *http.Request) (*account, bool) {
	header := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return nil, false
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	claims := &jwt.RegisteredClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.users {
		if acc.id.String() == claims.Subject {
			if claims.IssuedAt != nil && claims.IssuedAt.Time.Before(acc.tokensValidFrom) {
				return nil, false
			}
			return acc, true
		}
	}
	return nil, false
}

func (s *Server) policyViolation(password string) string {
	if len(password) < s.policy.MinLength {
		return fmt.Sprintf("Password must be at least %d characters long.", s.policy.MinLength)
	}
	if s.policy.RequireMixedCase {
		var hasUpper, hasLower bool
		for _, r := range password {
			hasUpper = hasUpper || unicode.IsUpper(r)
			hasLower = hasLower || unicode.IsLower(r)
		}
		if !hasUpper || !hasLower {
			return "Password must contain upper and lower case letters."
		}
	}
	if s.policy.RequireSpecial {
		hasSpecial := false
		for _, r := range password {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				hasSpecial = true
				break
			}
		}
		if !hasSpecial {
			return "Password must contain at least one special character."
		}
	}
	return ""
}

func userPayload(acc *account) *authclient.User {
	return &authclient.User{
		ID:        acc.id.String(),
		Username:  acc.username,
		CreatedAt: acc.createdAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string, extra map[string]any) {
	payload := map[string]any{"error": message}
	for k, v := range extra {
		payload[k] = v
	}
	writeJSON(w, status, payload)
}
