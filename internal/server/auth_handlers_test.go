package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitly/transitly/internal/auth"
	"github.com/transitly/transitly/internal/models"
)

func TestHealthCheck(t *testing.T) {
	_, ts := newTestServer(t)

	resp := call(t, ts, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.Status)

	var body map[string]any
	resp.decode(t, &body)
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestRegister_FirstUserIsAdmin(t *testing.T) {
	_, ts := newTestServer(t)

	register(t, ts, "Ada", "Ada@Transit.example", "secret1")
	register(t, ts, "Bob", "bob@transit.example", "secret2")

	ada := login(t, ts, "ada@transit.example", "secret1")
	bob := login(t, ts, "bob@transit.example", "secret2")

	assert.Equal(t, auth.RoleAdmin, ada.User.Role)
	assert.Equal(t, "ada@transit.example", ada.User.Email)
	assert.Equal(t, auth.RoleUser, bob.User.Role)
	assert.NotEmpty(t, ada.AccessToken)
	assert.NotEmpty(t, ada.RefreshToken)
}

func TestRegister_Rejects(t *testing.T) {
	_, ts := newTestServer(t)
	register(t, ts, "Ada", "ada@transit.example", "secret1")

	resp := call(t, ts, http.MethodPost, "/api/users/register", "", RegisterRequest{
		Name: "Ada Again", Email: "ADA@transit.example", Password: "secret1", Phone: "+15145550123",
	})
	assert.Equal(t, http.StatusConflict, resp.Status)
	assert.Equal(t, "Email is already registered", resp.message(t))

	resp = call(t, ts, http.MethodPost, "/api/users/register", "", RegisterRequest{
		Name: "", Email: "not-an-email", Password: "123", Phone: "12",
	})
	require.Equal(t, http.StatusBadRequest, resp.Status)

	var body struct {
		Message string       `json:"message"`
		Errors  []FieldError `json:"errors"`
	}
	resp.decode(t, &body)
	fields := map[string]bool{}
	for _, fe := range body.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["email"])
	assert.True(t, fields["password"])
	assert.True(t, fields["phone"])
	assert.Contains(t, body.Message, "Validation failed")

	resp = call(t, ts, http.MethodPost, "/api/users/register", "", RegisterRequest{
		Name: "Cy", Email: "cy@transit.example", Password: "secret1",
	})
	require.Equal(t, http.StatusBadRequest, resp.Status)
	resp.decode(t, &body)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, FieldError{Field: "phone", Message: "is required"}, body.Errors[0])

	resp = call(t, ts, http.MethodPost, "/api/users/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	_, ts := newTestServer(t)
	register(t, ts, "Ada", "ada@transit.example", "secret1")

	for _, req := range []LoginRequest{
		{Email: "ada@transit.example", Password: "wrong"},
		{Email: "nobody@transit.example", Password: "secret1"},
	} {
		resp := call(t, ts, http.MethodPost, "/api/users/login", "", req)
		assert.Equal(t, http.StatusUnauthorized, resp.Status)
		assert.Equal(t, "Invalid email or password", resp.message(t))
	}
}

func TestCurrentUser(t *testing.T) {
	_, ts := newTestServer(t)
	register(t, ts, "Ada", "ada@transit.example", "secret1")
	session := login(t, ts, "ada@transit.example", "secret1")

	resp := call(t, ts, http.MethodGet, "/api/users/me", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.Status)

	var user UserDetail
	resp.decode(t, &user)
	assert.Equal(t, session.User.ID, user.ID)
	assert.Equal(t, "+15551234567", user.Phone)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	_, ts := newTestServer(t)
	register(t, ts, "Ada", "ada@transit.example", "secret1")
	session := login(t, ts, "ada@transit.example", "secret1")

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.JWTClaims{
		UserID: session.User.ID,
		Role:   auth.RoleAdmin,
		Type:   auth.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]string{
		"no token":               "",
		"garbage":                "garbage",
		"expired":                expired,
		"refresh used as access": session.RefreshToken,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			resp := call(t, ts, http.MethodGet, "/api/bus", token, nil)
			assert.Equal(t, http.StatusUnauthorized, resp.Status)
			assert.NotEmpty(t, resp.message(t))
		})
	}
}

func TestRefreshToken(t *testing.T) {
	_, ts := newTestServer(t)
	register(t, ts, "Ada", "ada@transit.example", "secret1")
	session := login(t, ts, "ada@transit.example", "secret1")

	resp := call(t, ts, http.MethodPost, "/api/users/refresh-token", session.RefreshToken, nil)
	require.Equal(t, http.StatusOK, resp.Status)

	var refreshed RefreshResponse
	resp.decode(t, &refreshed)
	require.NotEmpty(t, refreshed.AccessToken)

	resp = call(t, ts, http.MethodGet, "/api/bus", refreshed.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.Status)

	// an access token cannot be used to refresh
	resp = call(t, ts, http.MethodPost, "/api/users/refresh-token", session.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = call(t, ts, http.MethodPost, "/api/users/refresh-token", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestLogout_RevokesRefreshTokens(t *testing.T) {
	_, ts := newTestServer(t)
	register(t, ts, "Ada", "ada@transit.example", "secret1")
	session := login(t, ts, "ada@transit.example", "secret1")

	resp := call(t, ts, http.MethodPost, "/api/users/logout", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.Status)

	resp = call(t, ts, http.MethodPost, "/api/users/refresh-token", session.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = call(t, ts, http.MethodPost, "/api/users/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestPasswordResetFlow(t *testing.T) {
	srv, ts := newTestServer(t)
	register(t, ts, "Ada", "ada@transit.example", "secret1")
	session := login(t, ts, "ada@transit.example", "secret1")

	unknown := call(t, ts, http.MethodPost, "/api/users/forgot-password", "", ForgotPasswordRequest{Email: "nobody@transit.example"})
	known := call(t, ts, http.MethodPost, "/api/users/forgot-password", "", ForgotPasswordRequest{Email: "ada@transit.example"})
	require.Equal(t, http.StatusOK, unknown.Status)
	require.Equal(t, http.StatusOK, known.Status)
	assert.Equal(t, unknown.message(t), known.message(t))

	var reset models.PasswordReset
	require.NoError(t, srv.db.Where("user_id = ?", session.User.ID).First(&reset).Error)

	resp := call(t, ts, http.MethodPost, "/api/users/reset-password", "", ResetPasswordRequest{Token: reset.ID, NewPassword: "short"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = call(t, ts, http.MethodPost, "/api/users/reset-password", "", ResetPasswordRequest{Token: reset.ID, NewPassword: "newsecret"})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

	// the token is single use
	resp = call(t, ts, http.MethodPost, "/api/users/reset-password", "", ResetPasswordRequest{Token: reset.ID, NewPassword: "another1"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Invalid or expired reset token", resp.message(t))

	resp = call(t, ts, http.MethodPost, "/api/users/login", "", LoginRequest{Email: "ada@transit.example", Password: "secret1"})
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	login(t, ts, "ada@transit.example", "newsecret")

	// sessions from before the reset cannot refresh
	resp = call(t, ts, http.MethodPost, "/api/users/refresh-token", session.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	srv, ts := newTestServer(t)
	register(t, ts, "Ada", "ada@transit.example", "secret1")
	session := login(t, ts, "ada@transit.example", "secret1")

	reset := &models.PasswordReset{UserID: session.User.ID, ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, srv.db.Create(reset).Error)

	resp := call(t, ts, http.MethodPost, "/api/users/reset-password", "", ResetPasswordRequest{Token: reset.ID, NewPassword: "newsecret"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}
