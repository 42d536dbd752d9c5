package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore stores credentials as a JSON file, for machines without a keyring
// (CI runners, containers). The file is written with owner-only permissions.
type FileStore struct {
	mu     sync.Mutex
	path   string
	server string
}

// credentialFile is the JSON structure stored on disk
type credentialFile struct {
	Servers map[string]map[string]string `json:"servers"`
}

// NewFileStore creates a file-backed store for serverURL.
// If path is empty it defaults to ~/.config/transitly/credentials.json
func NewFileStore(path, serverURL string) (*FileStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		path = filepath.Join(configDir, "transitly", "credentials.json")
	}

	return &FileStore{
		path:   path,
		server: normalizeServer(serverURL),
	}, nil
}

// Path returns the path to the credentials file
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() (*credentialFile, error) {
	file := &credentialFile{Servers: map[string]map[string]string{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return file, nil
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if err := json.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if file.Servers == nil {
		file.Servers = map[string]map[string]string{}
	}
	return file, nil
}

func (s *FileStore) save(file *credentialFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// Get retrieves a credential
func (s *FileStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := file.Servers[s.server][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores a credential and flushes the file
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	entries := file.Servers[s.server]
	if entries == nil {
		entries = map[string]string{}
		file.Servers[s.server] = entries
	}
	entries[key] = value
	return s.save(file)
}

// MultiRemove deletes the given keys in a single write
func (s *FileStore) MultiRemove(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	entries := file.Servers[s.server]
	if entries == nil {
		return nil
	}
	for _, key := range keys {
		delete(entries, key)
	}
	if len(entries) == 0 {
		delete(file.Servers, s.server)
	}
	return s.save(file)
}
