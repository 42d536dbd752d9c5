package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// Token types carried in the typ claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrNotInitialized = errors.New("JWT secret not initialized")
	ErrWrongTokenType = errors.New("wrong token type")
)

var (
	jwtSecret       []byte
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// InitializeJWT sets the JWT secret key and token lifetimes
func InitializeJWT(secret string, accessTTL, refreshTTL time.Duration) {
	jwtSecret = []byte(secret)
	if accessTTL > 0 {
		accessTokenTTL = accessTTL
	}
	if refreshTTL > 0 {
		refreshTokenTTL = refreshTTL
	}
}

// IssuedToken is a signed token with its identifier and expiry
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

func issue(userID, email, role, typ string, ttl time.Duration) (*IssuedToken, error) {
	if len(jwtSecret) == 0 {
		return nil, ErrNotInitialized
	}

	now := time.Now()
	claims := JWTClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{Token: signed, ID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// GenerateAccessToken creates a short-lived token for API calls
func GenerateAccessToken(userID, email, role string) (*IssuedToken, error) {
	return issue(userID, email, role, TokenTypeAccess, accessTokenTTL)
}

// GenerateRefreshToken creates a long-lived token that can only be exchanged
// for access tokens. Its ID must be recorded so it can be revoked.
func GenerateRefreshToken(userID, email, role string) (*IssuedToken, error) {
	return issue(userID, email, role, TokenTypeRefresh, refreshTokenTTL)
}

// ValidateToken validates a JWT token of the expected type and returns the claims
func ValidateToken(tokenString, expectedType string) (*JWTClaims, error) {
	if len(jwtSecret) == 0 {
		return nil, ErrNotInitialized
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Type != expectedType {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, claims.Type, expectedType)
	}

	return claims, nil
}
