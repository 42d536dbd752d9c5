// Package credstore persists the CLI session credentials.
//
// A Store is a flat string key-value store. The session manager is the only
// writer; the API client holds a Reader and never writes.
package credstore

import (
	"context"
	"errors"
)

// Keys used for the persisted session.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserInfo     = "userInfo"
)

// SessionKeys lists every key written by a login.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserInfo}

// ErrNotFound is returned by Get when the key has no value
var ErrNotFound = errors.New("credential not found")

// Reader reads credentials
type Reader interface {
	Get(ctx context.Context, key string) (string, error)
}

// Store reads and writes credentials
type Store interface {
	Reader
	Set(ctx context.Context, key, value string) error
	// MultiRemove deletes the given keys. Missing keys are not an error.
	MultiRemove(ctx context.Context, keys ...string) error
}

// Lookup returns the value for key, or "" when it is not set.
// Errors other than ErrNotFound are returned.
func Lookup(ctx context.Context, r Reader, key string) (string, error) {
	v, err := r.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}
