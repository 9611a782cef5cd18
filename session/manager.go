// Package session owns the authentication state machine: the access/refresh
// token pair, the authenticated user record, and the operations that move
// between them — login, logout, refresh and the one-shot user hydration.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/voltgrid/go-admin-session/storage"
	"github.com/voltgrid/go-admin-session/tenant"
	"github.com/voltgrid/go-admin-session/transport"
)

const (
	loginPath          = "/users/login_with_password/"
	refreshPath        = "/users/refresh_token/"
	logoutPath         = "/users/logout/"
	profilePath        = "/users/users/me/"
	forgotPasswordPath = "/users/forgot_password/"
)

// Notifier surfaces transient user-facing notifications (the toasts of the
// original UI). Never consulted for control flow.
type Notifier interface {
	Success(message string)
	Error(message string)
}

type logNotifier struct {
	log zerolog.Logger
}

func (n logNotifier) Success(message string) { n.log.Info().Msg(message) }
func (n logNotifier) Error(message string)   { n.log.Warn().Msg(message) }

// LoginResult is the raw login payload, returned to the caller as-is.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Manager owns the session lifecycle. All mutable state is guarded by a
// mutex: the token pair lives in the store shared with the transport, the
// user record and in-flight flags live here.
type Manager struct {
	router   *transport.Router
	tenants  *tenant.Resolver
	store    storage.Store
	client   *http.Client
	notifier Notifier
	log      zerolog.Logger
	nowTime  func() time.Time

	mu             sync.Mutex
	user           *User
	authenticating bool
	hydration      hydrationPhase
	closed         bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithNotifier sets the notification sink.
func WithNotifier(notifier Notifier) ManagerOption {
	return func(m *Manager) {
		m.notifier = notifier
	}
}

// WithLogger sets the manager's logger.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
		m.notifier = logNotifier{log: log}
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager creates a session manager. The resolver gates user hydration:
// no profile fetch happens until a tenant is resolved.
func NewManager(router *transport.Router, tenants *tenant.Resolver, store storage.Store, options ...ManagerOption) (*Manager, error) {
	if router == nil {
		return nil, errors.New("[NewManager] router is required")
	}
	if tenants == nil {
		return nil, errors.New("[NewManager] tenant resolver is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}

	manager := &Manager{
		router:  router,
		tenants: tenants,
		store:   store,
		log:     zerolog.Nop(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(manager)
	}
	if manager.client == nil {
		manager.client = router.Client()
	}
	if manager.notifier == nil {
		manager.notifier = logNotifier{log: manager.log}
	}
	return manager, nil
}

// IsAuthenticated reports whether an access token is present. Deliberately
// optimistic: the token is not validated against the server, so this stays
// true until an explicit logout or a failed refresh.
func (m *Manager) IsAuthenticated() bool {
	token, ok := m.store.Get(storage.AccessTokenKey)
	return ok && token != ""
}

// CurrentUser returns the authenticated user, or nil before hydration and
// after logout.
func (m *Manager) CurrentUser() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// State derives the lifecycle state from tokens, user and in-flight flags.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.authenticating {
		return StateAuthenticating
	}
	if !m.IsAuthenticated() {
		return StateAnonymous
	}
	if m.user != nil {
		return StateReady
	}
	if m.hydration == hydrationFetching {
		return StateHydratingUser
	}
	return StateAuthenticated
}

// Login posts the credentials and, on success, persists both tokens and the
// user from the payload. On failure nothing is mutated and the error is
// returned for the login page to display.
func (m *Manager) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, SessionClosedErr
	}
	m.authenticating = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.authenticating = false
		m.mu.Unlock()
	}()

	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Login] json.Marshal")
	}

	payload, err := m.post(ctx, loginPath, body)
	if err != nil {
		m.log.Warn().Err(err).Str("username", username).Msg("login failed")
		return nil, errors.Wrap(err, LoginFailedErr.Error())
	}

	var result LoginResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, errors.Wrap(err, "[Manager.Login] decoding response")
	}

	if err := m.store.Set(storage.AccessTokenKey, result.AccessToken); err != nil {
		return nil, errors.Wrap(err, "[Manager.Login] persisting access token")
	}
	if err := m.store.Set(storage.RefreshTokenKey, result.RefreshToken); err != nil {
		return nil, errors.Wrap(err, "[Manager.Login] persisting refresh token")
	}

	m.mu.Lock()
	m.user = result.User
	m.mu.Unlock()

	m.log.Info().Str("username", username).Msg("logged in")
	return &result, nil
}

// Logout destroys the session unconditionally: user record, both tokens and
// the hydration latch are reset. The server-side logout call is best effort
// and its outcome is ignored; the local transition always succeeds.
func (m *Manager) Logout(ctx context.Context) {
	if m.IsAuthenticated() {
		if _, err := m.post(ctx, logoutPath, nil); err != nil {
			m.log.Debug().Err(err).Msg("server logout call failed, ignoring")
		}
	}

	m.mu.Lock()
	m.user = nil
	m.hydration = hydrationIdle
	m.mu.Unlock()

	storage.ClearTokens(m.store)
	m.notifier.Success("Signed out")
	m.log.Info().Msg("logged out")
}

// RefreshAccessToken mints a new access token from the refresh token.
// Returns false with zero network calls when no refresh token is present.
// A failed refresh is unrecoverable and logs the session out; callers must
// branch on the boolean.
func (m *Manager) RefreshAccessToken(ctx context.Context) bool {
	refreshToken, ok := m.store.Get(storage.RefreshTokenKey)
	if !ok || refreshToken == "" {
		return false
	}

	body, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return false
	}

	payload, err := m.post(ctx, refreshPath, body)
	if err != nil {
		m.log.Warn().Err(err).Msg("token refresh failed, destroying session")
		m.Logout(ctx)
		return false
	}

	var refreshed struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(payload, &refreshed); err != nil || refreshed.Access == "" {
		m.log.Warn().Err(err).Msg("token refresh returned no access token")
		m.Logout(ctx)
		return false
	}

	if err := m.store.Set(storage.AccessTokenKey, refreshed.Access); err != nil {
		m.log.Error().Err(err).Msg("persisting refreshed access token")
		return false
	}
	m.log.Debug().Msg("access token refreshed")
	return true
}

// ForgotPassword requests a reset email. Fire and forget: the outcome is
// surfaced only through the notifier, never stored.
func (m *Manager) ForgotPassword(ctx context.Context, email string) {
	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		m.notifier.Error("Could not request a password reset")
		return
	}
	if _, err := m.post(ctx, forgotPasswordPath, body); err != nil {
		m.log.Warn().Err(err).Msg("forgot password request failed")
		m.notifier.Error("Could not request a password reset")
		return
	}
	m.notifier.Success("Password reset email sent")
}

// Close tears the manager down. An in-flight hydration response arriving
// afterwards is ignored; the manager is unusable from here on.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// post sends a JSON POST through the router and returns the body on 2xx.
func (m *Manager) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := m.router.NewRequest(ctx, http.MethodPost, path, reader)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "[Manager.post] %s", path)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "[Manager.post] reading %s response", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("[Manager.post] %s returned %d: %s", path, resp.StatusCode, serverMessage(payload))
	}
	return payload, nil
}

// serverMessage extracts a human-readable message from an error payload.
func serverMessage(payload []byte) string {
	var body struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.Detail != "" {
			return body.Detail
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(payload))
}
