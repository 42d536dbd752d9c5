// Package session owns the CLI's authenticated session: the in-memory state,
// its mirror in the credential store, and every credential lifecycle operation.
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Role is the user's role as sent by the server. It is an open set: values
// other than the known ones are kept as-is.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDriver Role = "driver"
	RoleUser   Role = "user"
)

// Home names the landing view for a role
type Home string

const (
	HomeAdmin     Home = "admin"
	HomeDriver    Home = "driver"
	HomePassenger Home = "passenger"
	HomeUnknown   Home = "unknown"
)

// HomeFor returns where a user with the given role lands after login
func HomeFor(role Role) Home {
	switch role {
	case RoleAdmin:
		return HomeAdmin
	case RoleDriver:
		return HomeDriver
	case RoleUser:
		return HomePassenger
	default:
		return HomeUnknown
	}
}

// UserProfile is the server-provided user record. Only the identifier and
// role are required; the original JSON is kept so unknown fields survive a
// save and restore.
type UserProfile struct {
	ID    string
	Role  Role
	Name  string
	Email string

	raw json.RawMessage
}

var errInvalidProfile = errors.New("invalid user profile")

// ParseUserProfile decodes a user object, accepting either "id" or "_id"
func ParseUserProfile(data []byte) (*UserProfile, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%w: empty", errInvalidProfile)
	}

	var fields struct {
		ID      any    `json:"id"`
		MongoID any    `json:"_id"`
		Role    string `json:"role"`
		Name    string `json:"name"`
		Email   string `json:"email"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidProfile, err)
	}

	id := idString(fields.ID)
	if id == "" {
		id = idString(fields.MongoID)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", errInvalidProfile)
	}
	if fields.Role == "" {
		return nil, fmt.Errorf("%w: missing role", errInvalidProfile)
	}

	return &UserProfile{
		ID:    id,
		Role:  Role(fields.Role),
		Name:  fields.Name,
		Email: fields.Email,
		raw:   append(json.RawMessage(nil), data...),
	}, nil
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return ""
	}
}

// MarshalJSON returns the profile exactly as the server sent it
func (u *UserProfile) MarshalJSON() ([]byte, error) {
	if len(u.raw) > 0 {
		return u.raw, nil
	}
	return json.Marshal(map[string]string{
		"id":    u.ID,
		"role":  string(u.Role),
		"name":  u.Name,
		"email": u.Email,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (u *UserProfile) UnmarshalJSON(data []byte) error {
	parsed, err := ParseUserProfile(data)
	if err != nil {
		return err
	}
	*u = *parsed
	return nil
}

// Field returns an arbitrary top-level field of the profile
func (u *UserProfile) Field(name string) (any, bool) {
	var m map[string]any
	if err := json.Unmarshal(u.raw, &m); err != nil {
		return nil, false
	}
	v, ok := m[name]
	return v, ok
}

// DisplayName is the name if known, else the email, else the ID
func (u *UserProfile) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}

// Session is a snapshot of the session state
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *UserProfile
	// IsBootstrapping is true only while the stored session is being read
	IsBootstrapping bool
}

// IsAuthenticated is true iff both an access token and a profile are present
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != "" && s.User != nil
}

// State is the session's lifecycle state
type State int

const (
	StateUninitialized State = iota
	StateBootstrapping
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBootstrapping:
		return "bootstrapping"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
