package serverselect

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/transitly/transitly/internal/cli/config"
	"github.com/transitly/transitly/internal/cli/userconfig"
)

// prompt is swapped out in tests
var prompt = PromptServerSelection

// ResolveServer determines which server to use based on the following priority:
// 1. If the --server flag (or TRANSITLY_SERVER) is set, use that alias or URL
// 2. If user has a selected server in their local config, use that
// 3. If only one server in project config, use that
// 4. Otherwise, prompt user to select a server interactively
//
// projectConfig may be nil when no transitly.yaml exists; only an explicit
// URL can be used then.
func ResolveServer(projectConfig *config.Config, urlOrAlias string) (*config.Server, error) {
	if projectConfig == nil {
		projectConfig = &config.Config{}
	}

	// Priority 1
	if urlOrAlias != "" {
		if server, err := projectConfig.GetServerByURLOrAlias(urlOrAlias); err == nil {
			return server, nil
		}
		if !looksLikeURL(urlOrAlias) {
			return nil, fmt.Errorf("server with alias '%s' not found in %s", urlOrAlias, config.ConfigFileName)
		}
		normalized, err := config.NormalizeURL(urlOrAlias)
		if err != nil {
			return nil, err
		}
		return &config.Server{Alias: normalized, URL: normalized}, nil
	}

	// Priority 2
	selectedURL, err := userconfig.GetSelectedServer()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if selectedURL != "" {
		server, err := projectConfig.GetServerByURL(selectedURL)
		if err == nil {
			return server, nil
		}
		// Selected server no longer exists in project config
		_ = userconfig.SetSelectedServer("")
	}

	if len(projectConfig.Servers) == 0 {
		return nil, errors.New("no server configured. Run 'transitly init <url>' or pass --server")
	}

	// Priority 3
	if len(projectConfig.Servers) == 1 {
		server := &projectConfig.Servers[0]
		remember(server)
		return server, nil
	}

	// Priority 4
	server, err := prompt(projectConfig)
	if err != nil {
		return nil, err
	}
	remember(server)

	return server, nil
}

func remember(server *config.Server) {
	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save selected server: %v\n", err)
	}
}

func looksLikeURL(s string) bool {
	return strings.Contains(s, "://") || strings.ContainsAny(s, ".:")
}

// PromptServerSelection shows an interactive prompt for the user to select a server
func PromptServerSelection(projectConfig *config.Config) (*config.Server, error) {
	if len(projectConfig.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", config.ConfigFileName)
	}

	type serverOption struct {
		Label  string
		Server *config.Server
	}

	options := make([]serverOption, len(projectConfig.Servers))
	for i := range projectConfig.Servers {
		server := &projectConfig.Servers[i]
		options[i] = serverOption{
			Label:  fmt.Sprintf("%s (%s)", server.Alias, server.URL),
			Server: server,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	sel := promptui.Select{
		Label:     "Select a server",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := sel.Run()
	if err != nil {
		return nil, fmt.Errorf("server selection cancelled: %w", err)
	}

	return options[index].Server, nil
}
