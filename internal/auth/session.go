package auth

// Roles known to the server
const (
	RoleAdmin  = "admin"
	RoleDriver = "driver"
	RoleUser   = "user"
)

// SessionData represents the authenticated session context for a request
type SessionData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the session belongs to an admin
func (s *SessionData) IsAdmin() bool {
	return s.Role == RoleAdmin
}
