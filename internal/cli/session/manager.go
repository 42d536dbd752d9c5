package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/transitly/transitly/internal/cli/client"
	"github.com/transitly/transitly/internal/cli/credstore"
)

// API is the subset of the API client the session manager calls
type API interface {
	Login(ctx context.Context, email, password string) (*client.LoginResponse, error)
	Register(ctx context.Context, req client.RegisterRequest) (json.RawMessage, error)
	Logout(ctx context.Context, accessToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (*client.RefreshResponse, error)
	ForgotPassword(ctx context.Context, email string) (json.RawMessage, error)
	ResetPassword(ctx context.Context, req client.ResetPasswordRequest) (json.RawMessage, error)
}

// Manager owns the session. It is the only writer of the credential store.
type Manager struct {
	store    credstore.Store
	api      API
	notifier Notifier
	logger   zerolog.Logger

	mu      sync.RWMutex
	session Session
	state   State

	loading  atomic.Int32
	bootOnce sync.Once
	refresh  singleflight.Group

	subMu   sync.Mutex
	subs    map[int]func(Session)
	nextSub int
}

// Option configures a Manager
type Option func(*Manager)

// WithNotifier sets where user notifications go
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithLogger sets the manager's logger
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates an empty, uninitialized session manager
func NewManager(store credstore.Store, api API, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		api:      api,
		notifier: nopNotifier{},
		logger:   zerolog.Nop(),
		state:    StateUninitialized,
		subs:     map[int]func(Session){},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns the current session
func (m *Manager) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsAuthenticated reports whether the session holds a token and a profile
func (m *Manager) IsAuthenticated() bool {
	return m.Snapshot().IsAuthenticated()
}

// Loading is true while any operation is in progress
func (m *Manager) Loading() bool {
	return m.loading.Load() > 0
}

func (m *Manager) begin() {
	m.loading.Add(1)
}

func (m *Manager) end() {
	m.loading.Add(-1)
}

// Subscribe registers fn to receive every session change. The returned
// function unregisters it.
func (m *Manager) Subscribe(fn func(Session)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

// update mutates the session under the lock, derives the state and
// publishes the new snapshot
func (m *Manager) update(mutate func(s *Session)) {
	m.mu.Lock()
	mutate(&m.session)
	switch {
	case m.session.IsBootstrapping:
		m.state = StateBootstrapping
	case m.session.IsAuthenticated():
		m.state = StateAuthenticated
	default:
		m.state = StateUnauthenticated
	}
	snapshot := m.session
	m.mu.Unlock()

	m.subMu.Lock()
	subs := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subMu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// clear wipes the store and resets memory. Memory is reset even when the
// store fails; the store error is returned.
func (m *Manager) clear(ctx context.Context) error {
	err := m.store.MultiRemove(context.WithoutCancel(ctx), credstore.SessionKeys...)
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to clear stored credentials")
	}
	m.update(func(s *Session) {
		*s = Session{}
	})
	return err
}

func (m *Manager) fail(title, fallback string, err error) error {
	userErr := newUserError(title, fallback, err)
	m.logger.Warn().Err(err).Str("title", userErr.Title).Msg(userErr.Message)
	m.notifier.Notify(Notice{Kind: NoticeError, Title: userErr.Title, Message: userErr.Message})
	return userErr
}

// Bootstrap restores the session from the credential store. Stored tokens are
// trusted without a server round trip; an expired token surfaces on the next
// API call. It runs once per Manager and never fails: any storage problem
// leaves an empty, unauthenticated session.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.bootOnce.Do(func() {
		m.bootstrap(ctx)
	})
}

func (m *Manager) bootstrap(ctx context.Context) {
	m.begin()
	defer m.end()

	m.update(func(s *Session) {
		s.IsBootstrapping = true
	})

	stored, err := m.readStored(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Could not restore session, clearing stored credentials")
		if err := m.store.MultiRemove(context.WithoutCancel(ctx), credstore.SessionKeys...); err != nil {
			m.logger.Error().Err(err).Msg("Failed to clear stored credentials")
		}
		stored = Session{}
	}

	m.update(func(s *Session) {
		*s = stored
		s.IsBootstrapping = false
	})

	if stored.IsAuthenticated() {
		m.logger.Debug().Str("user_id", stored.User.ID).Str("role", string(stored.User.Role)).Msg("Session restored")
	}
}

func (m *Manager) readStored(ctx context.Context) (Session, error) {
	access, err := credstore.Lookup(ctx, m.store, credstore.KeyAccessToken)
	if err != nil {
		return Session{}, err
	}
	refresh, err := credstore.Lookup(ctx, m.store, credstore.KeyRefreshToken)
	if err != nil {
		return Session{}, err
	}
	info, err := credstore.Lookup(ctx, m.store, credstore.KeyUserInfo)
	if err != nil {
		return Session{}, err
	}

	if access == "" && refresh == "" && info == "" {
		return Session{}, nil
	}
	if access == "" || info == "" {
		return Session{}, errIncompleteSession
	}

	user, err := ParseUserProfile([]byte(info))
	if err != nil {
		return Session{}, err
	}

	return Session{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// persist writes a full session to the store
func (m *Manager) persist(ctx context.Context, s Session) error {
	info, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("failed to encode user profile: %w", err)
	}

	if err := m.store.Set(ctx, credstore.KeyAccessToken, s.AccessToken); err != nil {
		return err
	}
	if s.RefreshToken != "" {
		if err := m.store.Set(ctx, credstore.KeyRefreshToken, s.RefreshToken); err != nil {
			return err
		}
	} else if err := m.store.MultiRemove(ctx, credstore.KeyRefreshToken); err != nil {
		return err
	}
	return m.store.Set(ctx, credstore.KeyUserInfo, string(info))
}

// Login authenticates and stores the new session. The session is marked
// authenticated only after it has been persisted.
func (m *Manager) Login(ctx context.Context, email, password string) (*UserProfile, error) {
	m.begin()
	defer m.end()

	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		return nil, m.fail("Login Failed", "Invalid email or password", err)
	}

	if resp.AccessToken == "" {
		return nil, m.fail("Login Failed", "Unexpected response from server", ErrMalformedLogin)
	}
	user, err := ParseUserProfile(resp.User)
	if err != nil {
		return nil, m.fail("Login Failed", "Unexpected response from server", fmt.Errorf("%w: %w", ErrMalformedLogin, err))
	}

	next := Session{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken, User: user}
	if err := m.persist(ctx, next); err != nil {
		err = errors.Join(fmt.Errorf("failed to persist session: %w", err), m.clear(ctx))
		return nil, m.fail("Login Failed", "Could not save your session", err)
	}

	m.update(func(s *Session) {
		*s = next
	})

	m.logger.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("User logged in")
	m.notifier.Notify(Notice{
		Kind:    NoticeSuccess,
		Title:   "Login Successful",
		Message: fmt.Sprintf("Welcome, %s", user.DisplayName()),
	})

	return user, nil
}

// Register creates an account. It does not log in.
func (m *Manager) Register(ctx context.Context, req client.RegisterRequest) (json.RawMessage, error) {
	m.begin()
	defer m.end()

	resp, err := m.api.Register(ctx, req)
	if err != nil {
		return nil, m.fail("Registration Failed", "Registration failed. Please try again.", err)
	}

	m.notifier.Notify(Notice{
		Kind:    NoticeSuccess,
		Title:   "Registration Successful",
		Message: "Your account has been created. Please log in.",
	})
	return resp, nil
}

// Logout tells the server (best effort) and always clears the local session.
// The only error returned is a failure to wipe the credential store; memory
// is reset regardless.
func (m *Manager) Logout(ctx context.Context) error {
	m.begin()
	defer m.end()

	token := m.Snapshot().AccessToken
	if token == "" {
		stored, err := credstore.Lookup(ctx, m.store, credstore.KeyAccessToken)
		if err != nil {
			m.logger.Warn().Err(err).Msg("Failed to read access token for logout")
		}
		token = stored
	}

	if token != "" {
		if err := m.api.Logout(ctx, token); err != nil {
			m.logger.Warn().Err(err).Msg("Server logout failed, clearing local session anyway")
		}
	}

	err := m.clear(ctx)

	m.logger.Info().Msg("User logged out")
	m.notifier.Notify(Notice{Kind: NoticeSuccess, Title: "Logged Out", Message: "You have been logged out."})

	return err
}

// ForgotPassword asks the server to send a reset email
func (m *Manager) ForgotPassword(ctx context.Context, email string) (json.RawMessage, error) {
	m.begin()
	defer m.end()

	resp, err := m.api.ForgotPassword(ctx, email)
	if err != nil {
		return nil, m.fail("Request Failed", "Failed to send password reset email", err)
	}

	m.notifier.Notify(Notice{
		Kind:    NoticeSuccess,
		Title:   "Check Your Email",
		Message: fmt.Sprintf("Password reset instructions were sent to %s", email),
	})
	return resp, nil
}

// ResetPassword sets a new password with a reset token
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) (json.RawMessage, error) {
	m.begin()
	defer m.end()

	resp, err := m.api.ResetPassword(ctx, client.ResetPasswordRequest{Token: token, NewPassword: newPassword})
	if err != nil {
		return nil, m.fail("Reset Failed", "Failed to reset password", err)
	}

	m.notifier.Notify(Notice{
		Kind:    NoticeSuccess,
		Title:   "Password Reset",
		Message: "Your password has been reset. Please log in.",
	})
	return resp, nil
}

// RefreshAccessToken exchanges the stored refresh token for a new access
// token. Concurrent callers share one refresh, which runs detached from any
// single caller's cancellation; a caller whose context ends stops waiting and
// the session is left as it was. A rejected or impossible refresh clears the
// session and the error wraps ErrSessionExpired.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	ch := m.refresh.DoChan("refresh", func() (any, error) {
		return m.refreshAccessToken(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("token refresh abandoned: %w", ctx.Err())
	}
}

func (m *Manager) refreshAccessToken(ctx context.Context) (string, error) {
	m.begin()
	defer m.end()

	token, err := m.exchangeRefreshToken(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		m.logger.Warn().Err(err).Msg("Token refresh interrupted, session kept")
		return "", err
	}
	if err != nil {
		clearErr := m.clear(ctx)
		m.logger.Warn().Err(err).Msg("Token refresh failed, session cleared")
		m.notifier.Notify(Notice{Kind: NoticeError, Title: "Session Expired", Message: "Please log in again."})
		return "", errors.Join(fmt.Errorf("%w: %w", ErrSessionExpired, err), clearErr)
	}

	m.update(func(s *Session) {
		s.AccessToken = token
	})
	m.logger.Debug().Msg("Access token refreshed")

	return token, nil
}

// Expire ends the session after the server rejected a token that was just
// refreshed. The returned error wraps ErrSessionExpired and cause.
func (m *Manager) Expire(ctx context.Context, cause error) error {
	m.begin()
	defer m.end()

	clearErr := m.clear(ctx)
	m.logger.Warn().Err(cause).Msg("Refreshed token rejected, session cleared")
	m.notifier.Notify(Notice{Kind: NoticeError, Title: "Session Expired", Message: "Please log in again."})

	return errors.Join(fmt.Errorf("%w: %w", ErrSessionExpired, cause), clearErr)
}

func (m *Manager) exchangeRefreshToken(ctx context.Context) (string, error) {
	refreshToken, err := credstore.Lookup(ctx, m.store, credstore.KeyRefreshToken)
	if err != nil {
		return "", err
	}
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	resp, err := m.api.RefreshToken(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", errors.New("refresh response is missing the access token")
	}

	if err := m.store.Set(ctx, credstore.KeyAccessToken, resp.AccessToken); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	return resp.AccessToken, nil
}
