package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const ConfigFileName = "transitly.yaml"

// ErrNotFound is returned when no transitly.yaml exists in the working
// directory or any of its parents
var ErrNotFound = errors.New("transitly.yaml not found")

// Server is a transit API deployment the CLI can talk to
type Server struct {
	Alias string `yaml:"alias"`
	URL   string `yaml:"url"`
}

// Config represents the CLI project configuration file
type Config struct {
	Servers []Server `yaml:"servers"`
	// Credentials selects the credential backend: "keyring" or "file"
	Credentials string `yaml:"credentials,omitempty"`
	// LogLevel overrides the CLI's default warn level
	LogLevel string `yaml:"logLevel,omitempty"`
}

// DefaultConfig returns a configuration with a single local server
func DefaultConfig() *Config {
	return &Config{
		Servers: []Server{
			{
				Alias: "local",
				URL:   "http://localhost:8080",
			},
		},
	}
}

// NormalizeURL validates a server URL and strips any trailing slash. A bare
// host is assumed to be https.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("server URL is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid server URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", raw)
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// FindConfigFile searches for transitly.yaml in current directory and parent directories
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w in %s or any parent directory", ErrNotFound, currentDir)
}

// Load reads and validates the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadFromCurrentDir loads config from current directory or parent directories
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that aliases are unique and every URL is usable
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Servers))
	for i, server := range c.Servers {
		if server.Alias == "" {
			return fmt.Errorf("server %d has no alias", i+1)
		}
		if seen[server.Alias] {
			return fmt.Errorf("duplicate server alias %q", server.Alias)
		}
		seen[server.Alias] = true

		if _, err := NormalizeURL(server.URL); err != nil {
			return fmt.Errorf("server %q: %w", server.Alias, err)
		}
	}

	switch c.Credentials {
	case "", "keyring", "file":
	default:
		return fmt.Errorf("unknown credentials backend %q (use keyring or file)", c.Credentials)
	}

	return nil
}

// GetServerByAlias returns a server by its alias
func (c *Config) GetServerByAlias(alias string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].Alias == alias {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with alias '%s' not found", alias)
}

// GetServerByURL returns a server by URL, ignoring a trailing slash
func (c *Config) GetServerByURL(rawURL string) (*Server, error) {
	want, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	for i := range c.Servers {
		if got, err := NormalizeURL(c.Servers[i].URL); err == nil && got == want {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with URL '%s' not found", rawURL)
}

// GetServerByURLOrAlias finds a server by alias first, then by URL
func (c *Config) GetServerByURLOrAlias(urlOrAlias string) (*Server, error) {
	if server, err := c.GetServerByAlias(urlOrAlias); err == nil {
		return server, nil
	}
	if server, err := c.GetServerByURL(urlOrAlias); err == nil {
		return server, nil
	}
	return nil, fmt.Errorf("server with URL or alias '%s' not found", urlOrAlias)
}

// AddServer appends a server unless its URL is already configured. It
// reports whether the config changed.
func (c *Config) AddServer(rawURL, alias string) (*Server, bool, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, false, err
	}
	if existing, err := c.GetServerByURL(normalized); err == nil {
		return existing, false, nil
	}

	if alias == "" {
		alias = fmt.Sprintf("server-%d", len(c.Servers)+1)
	}
	if _, err := c.GetServerByAlias(alias); err == nil {
		return nil, false, fmt.Errorf("server alias %q is already in use", alias)
	}

	c.Servers = append(c.Servers, Server{Alias: alias, URL: normalized})
	return &c.Servers[len(c.Servers)-1], true, nil
}
