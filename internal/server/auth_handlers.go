package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/transitly/transitly/internal/auth"
	"github.com/transitly/transitly/internal/models"
)

const passwordResetTTL = time.Hour

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"required,phone"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries both tokens and the user profile
type LoginResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         *UserDetail `json:"user"`
}

// RefreshResponse carries a new access token
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes a password reset
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserDetail(user *models.User) *UserDetail {
	return &UserDetail{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Phone:     user.Phone,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// @Summary Register
// @Description Create an account. The first account becomes the admin.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Register request"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/users/register [post]
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if !s.bind(c, &req) {
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.internalError(c, err, "Failed to hash password")
		return
	}

	user := &models.User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.ReplaceAll(req.Phone, " ", ""),
		Role:         auth.RoleUser,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return errEmailTaken
		}

		var count int64
		if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			user.Role = auth.RoleAdmin
		}

		return tx.Create(user).Error
	})
	if errors.Is(err, errEmailTaken) {
		respondMessage(c, http.StatusConflict, "Email is already registered")
		return
	}
	if err != nil {
		s.internalError(c, err, "Failed to create user")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("User registered")

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"user":    newUserDetail(user),
	})
}

var errEmailTaken = errors.New("email taken")

// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/users/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if !s.bind(c, &req) {
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondMessage(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		s.internalError(c, err, "Failed to find user")
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		respondMessage(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	access, err := auth.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.internalError(c, err, "Failed to generate access token")
		return
	}
	refresh, err := auth.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.internalError(c, err, "Failed to generate refresh token")
		return
	}

	record := &models.RefreshToken{
		BaseModel: models.BaseModel{ID: refresh.ID},
		UserID:    user.ID,
		ExpiresAt: refresh.ExpiresAt,
	}
	if err := s.db.Create(record).Error; err != nil {
		s.internalError(c, err, "Failed to record refresh token")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("User logged in")

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		User:         newUserDetail(&user),
	})
}

// @Summary Refresh access token
// @Description Exchange a refresh token (sent as the bearer token) for a new access token
// @Tags auth
// @Produce json
// @Success 200 {object} RefreshResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/users/refresh-token [post]
func (s *Server) refreshToken(c *gin.Context) {
	token, err := extractBearerToken(c.GetHeader("Authorization"))
	if err != nil {
		respondWithError(c, s.logger, http.StatusUnauthorized, err, bearerError(err))
		return
	}

	claims, err := auth.ValidateToken(token, auth.TokenTypeRefresh)
	if err != nil {
		respondWithError(c, s.logger, http.StatusUnauthorized, err, "Invalid or expired refresh token")
		return
	}

	var record models.RefreshToken
	if err := models.FindByID(s.db, claims.ID, &record); err != nil || !record.Active(time.Now()) || record.UserID != claims.UserID {
		respondWithError(c, s.logger, http.StatusUnauthorized, ErrInvalidToken, "Invalid or expired refresh token")
		return
	}

	var user models.User
	if err := models.FindByID(s.db, record.UserID, &user); err != nil {
		respondWithError(c, s.logger, http.StatusUnauthorized, ErrUserNotFound, "User not found")
		return
	}

	access, err := auth.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.internalError(c, err, "Failed to generate access token")
		return
	}

	s.logger.Debug().Str("user_id", user.ID).Msg("Access token refreshed")

	c.JSON(http.StatusOK, RefreshResponse{AccessToken: access.Token})
}

// revokeRefreshTokens revokes every active refresh token of a user
func revokeRefreshTokens(tx *gorm.DB, userID string, now time.Time) error {
	return tx.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now).Error
}

// @Summary Logout
// @Description Revoke the user's refresh tokens
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/users/logout [post]
func (s *Server) logout(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	if err := revokeRefreshTokens(s.db, sessionData.UserID, time.Now()); err != nil {
		s.internalError(c, err, "Failed to revoke refresh tokens")
		return
	}

	s.logger.Info().Str("user_id", sessionData.UserID).Msg("User logged out")
	respondMessage(c, http.StatusOK, "Logged out")
}

// @Summary Get current user
// @Description Get information about the currently authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserDetail
// @Failure 401 {object} map[string]interface{}
// @Router /api/users/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var user models.User
	if err := models.FindByID(s.db, sessionData.UserID, &user); err != nil {
		s.internalError(c, err, "Failed to find user")
		return
	}

	c.JSON(http.StatusOK, newUserDetail(&user))
}

// @Summary Forgot password
// @Description Start a password reset. Always succeeds so accounts cannot be enumerated.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Forgot password request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/users/forgot-password [post]
func (s *Server) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !s.bind(c, &req) {
		return
	}

	const message = "If an account exists for that email, password reset instructions have been sent"

	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.internalError(c, err, "Failed to find user")
			return
		}
		respondMessage(c, http.StatusOK, message)
		return
	}

	reset := &models.PasswordReset{
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(passwordResetTTL),
	}
	if err := s.db.Create(reset).Error; err != nil {
		s.internalError(c, err, "Failed to create password reset")
		return
	}

	// No mail transport: operators hand the token over out of band
	s.logger.Info().
		Str("user_id", user.ID).
		Str("reset_token", reset.ID).
		Time("expires_at", reset.ExpiresAt).
		Msg("Password reset requested")

	respondMessage(c, http.StatusOK, message)
}

// @Summary Reset password
// @Description Set a new password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset password request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/users/reset-password [post]
func (s *Server) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !s.bind(c, &req) {
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.internalError(c, err, "Failed to hash password")
		return
	}

	now := time.Now()
	var userID string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var reset models.PasswordReset
		if err := models.FindByID(tx, req.Token, &reset); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errInvalidReset
			}
			return err
		}
		if !reset.Usable(now) {
			return errInvalidReset
		}
		userID = reset.UserID

		if err := tx.Model(&reset).Update("used_at", now).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", reset.UserID).Update("password_hash", passwordHash).Error; err != nil {
			return err
		}
		return revokeRefreshTokens(tx, reset.UserID, now)
	})
	if errors.Is(err, errInvalidReset) {
		respondMessage(c, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	if err != nil {
		s.internalError(c, err, "Failed to reset password")
		return
	}

	s.logger.Info().Str("user_id", userID).Msg("Password reset")
	respondMessage(c, http.StatusOK, "Password has been reset")
}

var errInvalidReset = errors.New("invalid reset token")
