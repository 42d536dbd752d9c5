package serverselect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transitly/transitly/internal/cli/config"
	"github.com/transitly/transitly/internal/cli/userconfig"
)

func twoServers() *config.Config {
	return &config.Config{Servers: []config.Server{
		{Alias: "production", URL: "https://api.transit.example"},
		{Alias: "local", URL: "http://localhost:8080"},
	}}
}

func stubPrompt(t *testing.T, pick int, err error) *int {
	t.Helper()
	calls := 0
	orig := prompt
	prompt = func(cfg *config.Config) (*config.Server, error) {
		calls++
		if err != nil {
			return nil, err
		}
		return &cfg.Servers[pick], nil
	}
	t.Cleanup(func() { prompt = orig })
	return &calls
}

func TestResolveServer_FlagAlias(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	calls := stubPrompt(t, 0, nil)

	server, err := ResolveServer(twoServers(), "local")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", server.URL)
	assert.Zero(t, *calls)
}

func TestResolveServer_FlagAdHocURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	server, err := ResolveServer(nil, "http://10.0.0.5:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8080", server.URL)
}

func TestResolveServer_FlagUnknownAlias(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := ResolveServer(twoServers(), "staging")
	assert.Error(t, err)
}

func TestResolveServer_RememberedSelection(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, userconfig.SetSelectedServer("http://localhost:8080"))
	calls := stubPrompt(t, 0, nil)

	server, err := ResolveServer(twoServers(), "")
	require.NoError(t, err)
	assert.Equal(t, "local", server.Alias)
	assert.Zero(t, *calls)
}

func TestResolveServer_StaleSelectionCleared(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, userconfig.SetSelectedServer("https://gone.example"))
	stubPrompt(t, 1, nil)

	server, err := ResolveServer(twoServers(), "")
	require.NoError(t, err)
	assert.Equal(t, "local", server.Alias)

	selected, err := userconfig.GetSelectedServer()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", selected)
}

func TestResolveServer_SingleServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	calls := stubPrompt(t, 0, nil)

	server, err := ResolveServer(config.DefaultConfig(), "")
	require.NoError(t, err)
	assert.Equal(t, "local", server.Alias)
	assert.Zero(t, *calls)

	selected, _ := userconfig.GetSelectedServer()
	assert.Equal(t, "http://localhost:8080", selected)
}

func TestResolveServer_PromptCancelled(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	stubPrompt(t, 0, errors.New("^C"))

	_, err := ResolveServer(twoServers(), "")
	assert.Error(t, err)

	selected, _ := userconfig.GetSelectedServer()
	assert.Empty(t, selected)
}

func TestResolveServer_NothingConfigured(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := ResolveServer(nil, "")
	assert.Error(t, err)
}
