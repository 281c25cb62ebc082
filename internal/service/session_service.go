// Package service wires the domain to the outbound adapters: durable local
// storage and the backend REST client.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/marketkit/marketkit/internal/api"
	"github.com/marketkit/marketkit/internal/domain/session"
	"github.com/marketkit/marketkit/internal/metrics"
	"github.com/marketkit/marketkit/internal/storage"
)

// SessionService owns the authentication lifecycle: the current user, the
// bearer token, credential persistence, and the single-slot pending
// redirect. It implements api.TokenSource for the outbound client.
//
// Invariant: status is StatusAuthenticated iff both user and token are set.
type SessionService struct {
	mu       sync.Mutex
	status   session.Status
	user     *session.User
	token    string
	redirect *session.RedirectTarget

	store    storage.Store
	client   *api.Client
	metrics  *metrics.Metrics
	logger   *slog.Logger
	validate *validator.Validate
}

// NewSessionService creates a session service in the idle state.
func NewSessionService(store storage.Store, client *api.Client, m *metrics.Metrics, logger *slog.Logger) *SessionService {
	return &SessionService{
		status:   session.StatusIdle,
		store:    store,
		client:   client,
		metrics:  m,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Token returns the current bearer token, or "" for a guest.
func (s *SessionService) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Status returns the current lifecycle state.
func (s *SessionService) Status() session.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// User returns a copy of the signed-in user, or nil for a guest.
func (s *SessionService) User() *session.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Load restores a persisted session from durable storage. It returns the
// user and true when both token and user were present; otherwise nil and
// false. Storage failures are treated as "no session", never returned.
func (s *SessionService) Load(ctx context.Context) (*session.User, bool) {
	tokenRaw, err := s.store.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.noteStorageError("load token", err)
		}
		return nil, false
	}
	userRaw, err := s.store.Get(ctx, storage.KeyAuthUser)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.noteStorageError("load user", err)
		}
		return nil, false
	}

	var token string
	if err := json.Unmarshal(tokenRaw, &token); err != nil || token == "" {
		s.logger.Debug("stored token unreadable, treating as no session")
		return nil, false
	}
	var user session.User
	if err := json.Unmarshal(userRaw, &user); err != nil {
		s.logger.Debug("stored user unreadable, treating as no session")
		return nil, false
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.status = session.StatusAuthenticated
	s.mu.Unlock()

	s.logger.Info("session restored", "email", user.Email)
	u := user
	return &u, true
}

// SignIn authenticates with the backend. On success the token and user are
// persisted atomically and the status becomes authenticated. On any failure
// the status resets to idle, nothing is persisted, and the error satisfies
// errors.Is(err, api.ErrAuthFailed).
func (s *SessionService) SignIn(ctx context.Context, creds session.Credentials) (*session.User, error) {
	if err := s.validate.Struct(creds); err != nil {
		s.metrics.AuthRequestsTotal.WithLabelValues("login", "error").Inc()
		return nil, &api.AuthError{Op: "login", Err: err}
	}

	s.setStatus(session.StatusLoading)

	resp, err := s.client.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		s.setStatus(session.StatusIdle)
		s.metrics.AuthRequestsTotal.WithLabelValues("login", "error").Inc()
		return nil, err
	}

	user := session.User{Name: resp.Name, Email: creds.Email}
	s.establish(ctx, resp.Token, user)
	s.metrics.AuthRequestsTotal.WithLabelValues("login", "ok").Inc()
	u := user
	return &u, nil
}

// SignUp registers an account. Contract matches SignIn; the server-returned
// display name is preferred, falling back to the supplied name.
func (s *SessionService) SignUp(ctx context.Context, reg session.Registration) (*session.User, error) {
	if err := s.validate.Struct(reg); err != nil {
		s.metrics.AuthRequestsTotal.WithLabelValues("signup", "error").Inc()
		return nil, &api.AuthError{Op: "signup", Err: err}
	}

	s.setStatus(session.StatusLoading)

	resp, err := s.client.Signup(ctx, reg.Name, reg.Email, reg.Password)
	if err != nil {
		s.setStatus(session.StatusIdle)
		s.metrics.AuthRequestsTotal.WithLabelValues("signup", "error").Inc()
		return nil, err
	}

	name := resp.Name
	if name == "" {
		name = reg.Name
	}
	user := session.User{Name: name, Email: reg.Email}
	s.establish(ctx, resp.Token, user)
	s.metrics.AuthRequestsTotal.WithLabelValues("signup", "ok").Inc()
	u := user
	return &u, nil
}

// RequestPasswordReset asks the backend to send a reset OTP. No local state
// changes.
func (s *SessionService) RequestPasswordReset(ctx context.Context, email string) error {
	err := s.client.ForgotPassword(ctx, email)
	s.countAuth("forgot-password", err)
	return err
}

// VerifyOTP checks a password-reset OTP. No local state changes.
func (s *SessionService) VerifyOTP(ctx context.Context, email, otp string) error {
	err := s.client.VerifyOTP(ctx, email, otp)
	s.countAuth("verify-otp", err)
	return err
}

// ResetPassword sets a new password using a verified OTP. No local state
// changes.
func (s *SessionService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	err := s.client.ResetPassword(ctx, email, otp, newPassword)
	s.countAuth("reset-password", err)
	return err
}

// SetRedirectTarget stores the pending post-auth navigation target,
// overwriting any previous one. Passing nil clears the slot.
func (s *SessionService) SetRedirectTarget(t *session.RedirectTarget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirect = t
}

// ConsumeRedirectTarget returns the pending target and clears the slot, so
// a target is used at most once. Returns nil when the slot is empty.
func (s *SessionService) ConsumeRedirectTarget() *session.RedirectTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.redirect
	s.redirect = nil
	return t
}

// SignOut clears the persisted credentials and resets in-memory state. The
// in-memory reset happens unconditionally, even when the durable clear
// fails.
func (s *SessionService) SignOut(ctx context.Context) {
	if err := s.store.MultiRemove(ctx, []string{storage.KeyAuthToken, storage.KeyAuthUser}); err != nil {
		s.noteStorageError("sign-out clear", err)
	}

	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.status = session.StatusIdle
	s.redirect = nil
	s.mu.Unlock()

	s.logger.Info("signed out")
}

// establish persists the credentials and flips the session to
// authenticated. Persistence failures are swallowed: the session is still
// valid for this process, it just won't survive a restart.
func (s *SessionService) establish(ctx context.Context, token string, user session.User) {
	tokenRaw, _ := json.Marshal(token)
	userRaw, _ := json.Marshal(user)
	if err := s.store.MultiSet(ctx, map[string][]byte{
		storage.KeyAuthToken: tokenRaw,
		storage.KeyAuthUser:  userRaw,
	}); err != nil {
		s.noteStorageError("persist session", err)
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.status = session.StatusAuthenticated
	s.mu.Unlock()

	s.logger.Info("signed in", "email", user.Email)
}

func (s *SessionService) setStatus(st session.Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *SessionService) countAuth(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.AuthRequestsTotal.WithLabelValues(op, result).Inc()
}

func (s *SessionService) noteStorageError(op string, err error) {
	s.metrics.StorageErrorsTotal.Inc()
	s.logger.Warn("storage failure", "op", op, "error", err)
}
