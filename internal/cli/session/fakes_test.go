package session

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/transitly/transitly/internal/cli/client"
	"github.com/transitly/transitly/internal/cli/credstore"
)

// fakeStore is an in-memory credential store with error injection
type fakeStore struct {
	mu        sync.Mutex
	values    map[string]string
	getErr    error
	setErr    error
	removeErr error
	removes   int
}

func newFakeStore(kv ...string) *fakeStore {
	s := &fakeStore{values: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		s.values[kv[i]] = kv[i+1]
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.values[key]
	if !ok {
		return "", credstore.ErrNotFound
	}
	return v, nil
}

func (s *fakeStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	return nil
}

func (s *fakeStore) MultiRemove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removes++
	if s.removeErr != nil {
		return s.removeErr
	}
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func (s *fakeStore) value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *fakeStore) empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range credstore.SessionKeys {
		if _, ok := s.values[k]; ok {
			return false
		}
	}
	return true
}

// fakeAPI scripts server responses and counts calls
type fakeAPI struct {
	loginResp  *client.LoginResponse
	loginErr   error
	onLogin    func()
	registered json.RawMessage
	regErr     error
	logoutErr  error
	refreshTok string
	refreshErr error
	// refreshGate, when set, blocks RefreshToken until closed
	refreshGate chan struct{}
	forgotErr   error
	resetErr    error

	calls        atomic.Int32
	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32

	mu            sync.Mutex
	logoutToken   string
	refreshBearer string
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (*client.LoginResponse, error) {
	f.calls.Add(1)
	if f.onLogin != nil {
		f.onLogin()
	}
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginResp, nil
}

func (f *fakeAPI) Register(_ context.Context, req client.RegisterRequest) (json.RawMessage, error) {
	f.calls.Add(1)
	if f.regErr != nil {
		return nil, f.regErr
	}
	return f.registered, nil
}

func (f *fakeAPI) Logout(_ context.Context, accessToken string) error {
	f.calls.Add(1)
	f.logoutCalls.Add(1)
	f.mu.Lock()
	f.logoutToken = accessToken
	f.mu.Unlock()
	return f.logoutErr
}

func (f *fakeAPI) RefreshToken(_ context.Context, refreshToken string) (*client.RefreshResponse, error) {
	f.calls.Add(1)
	f.refreshCalls.Add(1)
	f.mu.Lock()
	f.refreshBearer = refreshToken
	f.mu.Unlock()
	if f.refreshGate != nil {
		<-f.refreshGate
	}
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &client.RefreshResponse{AccessToken: f.refreshTok}, nil
}

func (f *fakeAPI) ForgotPassword(_ context.Context, email string) (json.RawMessage, error) {
	f.calls.Add(1)
	if f.forgotErr != nil {
		return nil, f.forgotErr
	}
	return json.RawMessage(`{"message":"sent"}`), nil
}

func (f *fakeAPI) ResetPassword(_ context.Context, req client.ResetPasswordRequest) (json.RawMessage, error) {
	f.calls.Add(1)
	if f.resetErr != nil {
		return nil, f.resetErr
	}
	return json.RawMessage(`{"message":"reset"}`), nil
}

// recordingNotifier keeps every notice
type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}
