package client

import (
	"context"
	"encoding/json"
	"net/http"
)

// Auth endpoint paths
const (
	loginPath          = "/api/users/login"
	registerPath       = "/api/users/register"
	logoutPath         = "/api/users/logout"
	refreshTokenPath   = "/api/users/refresh-token"
	forgotPasswordPath = "/api/users/forgot-password"
	resetPasswordPath  = "/api/users/reset-password"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login response. User is kept raw so the
// session can preserve fields it does not know about.
type LoginResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	User         json.RawMessage `json:"user"`
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"required,phone"`
}

// RefreshResponse is returned by the refresh endpoint
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// ResetPasswordRequest represents the reset-confirm request body
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// Auth endpoints never take the refresh-and-replay path: a 401 there means
// bad credentials or a dead refresh token, not an expired access token.

// Login authenticates the user
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.Do(ctx, http.MethodPost, loginPath, LoginRequest{Email: email, Password: password}, &resp, WithoutRefresh())
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and returns the raw server response
func (c *Client) Register(ctx context.Context, req RegisterRequest) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.Do(ctx, http.MethodPost, registerPath, req, &resp, WithoutRefresh()); err != nil {
		return nil, err
	}
	return resp, nil
}

// Logout notifies the server. An empty accessToken falls back to the stored one.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.Do(ctx, http.MethodPost, logoutPath, nil, nil, WithBearer(accessToken), WithoutRefresh())
}

// RefreshToken exchanges a refresh token for a new access token.
// The refresh token is the bearer credential for this call.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	var resp RefreshResponse
	err := c.Do(ctx, http.MethodPost, refreshTokenPath, nil, &resp, WithBearer(refreshToken), WithoutRefresh())
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForgotPassword requests a password reset email
func (c *Client) ForgotPassword(ctx context.Context, email string) (json.RawMessage, error) {
	var resp json.RawMessage
	body := map[string]string{"email": email}
	if err := c.Do(ctx, http.MethodPost, forgotPasswordPath, body, &resp, WithoutRefresh()); err != nil {
		return nil, err
	}
	return resp, nil
}

// ResetPassword sets a new password using a reset token
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.Do(ctx, http.MethodPost, resetPasswordPath, req, &resp, WithoutRefresh()); err != nil {
		return nil, err
	}
	return resp, nil
}
