package credstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/zalando/go-keyring"
)

const keyringService = "transitly-cli"

// KeyringStore keeps credentials in the OS keychain/credential manager.
// Entries are namespaced per server so switching servers does not leak tokens.
type KeyringStore struct {
	service string
	server  string
}

// NewKeyringStore creates a keyring-backed store for the given server URL
func NewKeyringStore(serverURL string) *KeyringStore {
	return &KeyringStore{
		service: keyringService,
		server:  normalizeServer(serverURL),
	}
}

func (s *KeyringStore) entry(key string) string {
	return fmt.Sprintf("%s@%s", key, s.server)
}

// Get retrieves a credential from the keyring
func (s *KeyringStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := keyring.Get(s.service, s.entry(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}
	return v, nil
}

// Set persists a credential in the keyring
func (s *KeyringStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := keyring.Set(s.service, s.entry(key), value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// MultiRemove deletes every given key, attempting all of them even if one fails
func (s *KeyringStore) MultiRemove(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := keyring.Delete(s.service, s.entry(key)); err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// normalizeServer reduces a server URL to scheme://host so trailing paths
// and slashes map to the same keyring namespace
func normalizeServer(serverURL string) string {
	u, err := url.Parse(serverURL)
	if err != nil || u.Host == "" {
		return serverURL
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host)
}
