package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/transitly/transitly/internal/auth"
	"github.com/transitly/transitly/internal/config"
	"github.com/transitly/transitly/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{Port: "0"},
		Database: config.DatabaseConfig{URL: filepath.Join(t.TempDir(), "test.sqlite")},
		Auth: config.AuthConfig{
			JWTSecret:       testSecret,
			AccessTokenTTL:  time.Minute,
			RefreshTokenTTL: time.Hour,
		},
	}

	srv, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	return srv, ts
}

type response struct {
	Status int
	Body   []byte
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, v), "body: %s", r.Body)
}

func (r response) message(t *testing.T) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	r.decode(t, &body)
	return body.Message
}

func call(t *testing.T, ts *httptest.Server, method, path, token string, body any) response {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	return response{Status: resp.StatusCode, Body: buf.Bytes()}
}

func register(t *testing.T, ts *httptest.Server, name, email, password string) {
	t.Helper()
	resp := call(t, ts, http.MethodPost, "/api/users/register", "", RegisterRequest{
		Name: name, Email: email, Password: password, Phone: "+15551234567",
	})
	require.Equal(t, http.StatusCreated, resp.Status, string(resp.Body))
}

func login(t *testing.T, ts *httptest.Server, email, password string) LoginResponse {
	t.Helper()
	resp := call(t, ts, http.MethodPost, "/api/users/login", "", LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

	var out LoginResponse
	resp.decode(t, &out)
	return out
}

// seedUsers registers an admin (first account), a driver and a passenger and
// returns their access tokens
func seedUsers(t *testing.T, srv *Server, ts *httptest.Server) (admin, driver, passenger LoginResponse) {
	t.Helper()

	register(t, ts, "Ada Admin", "admin@transit.example", "secret1")
	register(t, ts, "Dan Driver", "driver@transit.example", "secret2")
	register(t, ts, "Pat Passenger", "pat@transit.example", "secret3")

	require.NoError(t, srv.db.Model(&models.User{}).
		Where("email = ?", "driver@transit.example").
		Update("role", auth.RoleDriver).Error)

	admin = login(t, ts, "admin@transit.example", "secret1")
	driver = login(t, ts, "driver@transit.example", "secret2")
	passenger = login(t, ts, "pat@transit.example", "secret3")
	return admin, driver, passenger
}
