package session

import (
	"errors"

	"github.com/transitly/transitly/internal/cli/client"
)

var (
	// ErrSessionExpired wraps every unrecoverable refresh failure. The
	// session has been cleared when it is returned.
	ErrSessionExpired = errors.New("session expired, please log in again")

	// ErrNoRefreshToken means there is nothing to refresh with
	ErrNoRefreshToken = errors.New("no refresh token stored")

	// ErrMalformedLogin means the login response lacked a token or a profile
	ErrMalformedLogin = errors.New("login response is missing the access token or user")

	errIncompleteSession = errors.New("stored session is incomplete")
)

const networkMessage = "Network error. Please check your connection."

// UserError is an operation failure phrased for the user
type UserError struct {
	Title   string
	Message string
	// Network is true when no response was received from the server
	Network bool
	Err     error
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// FriendlyMessage picks the message to show for err: a connectivity hint when
// nothing came back, else the server's message, else fallback.
func FriendlyMessage(err error, fallback string) (message string, network bool) {
	if client.IsNetworkError(err) {
		return networkMessage, true
	}
	if msg := client.ServerMessage(err); msg != "" {
		return msg, false
	}
	return fallback, false
}

func newUserError(title, fallback string, err error) *UserError {
	msg, network := FriendlyMessage(err, fallback)
	if network {
		title = "Network Error"
	}
	return &UserError{Title: title, Message: msg, Network: network, Err: err}
}
