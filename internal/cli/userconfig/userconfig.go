package userconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// PathEnv points the CLI at an alternate preferences file.
const PathEnv = "TRANSITLY_CONFIG"

// UserConfig holds non-secret CLI preferences. Tokens never land here.
type UserConfig struct {
	SelectedServerURL string `json:"selected_server_url"`
	// LastEmail prefills the login prompt.
	LastEmail string `json:"last_email,omitempty"`
}

// GetConfigPath resolves $TRANSITLY_CONFIG, falling back to
// ~/.config/transitly/config.json.
func GetConfigPath() (string, error) {
	if p := os.Getenv(PathEnv); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "transitly", "config.json"), nil
}

// Load returns the stored preferences; a missing file yields zero values.
func Load() (*UserConfig, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := &UserConfig{}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read preferences %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("preferences %s are corrupt: %w", path, err)
	}
	return cfg, nil
}

// Save replaces the preferences file via a temp file and rename so a crash
// mid-write never leaves half a document behind.
func Save(cfg *UserConfig) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to stage preferences: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to stage preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to stage preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func update(mutate func(cfg *UserConfig)) error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	mutate(cfg)
	return Save(cfg)
}

// SetSelectedServer records the API base URL later commands talk to.
func SetSelectedServer(serverURL string) error {
	return update(func(cfg *UserConfig) { cfg.SelectedServerURL = serverURL })
}

// GetSelectedServer returns "" until a server has been picked.
func GetSelectedServer() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}
	return cfg.SelectedServerURL, nil
}

// SetLastEmail remembers who logged in last.
func SetLastEmail(email string) error {
	return update(func(cfg *UserConfig) { cfg.LastEmail = email })
}
