package credstore

import "fmt"

// Backend names accepted by Open
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
)

// Open returns the store for the named backend
func Open(backend, serverURL, path string) (Store, error) {
	switch backend {
	case "", BackendKeyring:
		return NewKeyringStore(serverURL), nil
	case BackendFile:
		return NewFileStore(path, serverURL)
	default:
		return nil, fmt.Errorf("unknown credential backend %q (expected %q or %q)", backend, BackendKeyring, BackendFile)
	}
}
