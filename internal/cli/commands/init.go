package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/transitly/transitly/internal/cli/client"
	"github.com/transitly/transitly/internal/cli/config"
	"github.com/transitly/transitly/internal/cli/userconfig"
)

type initOptions struct {
	alias     string
	skipCheck bool
}

// NewInitCmd creates the init command
func NewInitCmd(opts *GlobalOptions) *cobra.Command {
	var flags initOptions

	cmd := &cobra.Command{
		Use:   "init <server-url>",
		Short: "Add a transit server to ./transitly.yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.alias, "alias", "", "Name for the server (default server-N)")
	cmd.Flags().BoolVar(&flags.skipCheck, "skip-check", false, "Do not contact the server")

	return cmd
}

func runInit(cmd *cobra.Command, opts *GlobalOptions, serverURL string, flags initOptions) error {
	out := opts.stdout()

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	configPath := filepath.Join(currentDir, config.ConfigFileName)

	cfg, err := config.Load(configPath)
	isNewConfig := false
	if errors.Is(err, os.ErrNotExist) {
		cfg = &config.Config{}
		isNewConfig = true
	} else if err != nil {
		return fmt.Errorf("failed to load existing config: %w", err)
	} else {
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)
	}

	server, added, err := cfg.AddServer(serverURL, flags.alias)
	if err != nil {
		return err
	}

	if !flags.skipCheck {
		health, err := client.New(server.URL, nil, client.WithLogger(opts.Logger)).Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("server %s did not answer its health check: %w\nUse --skip-check to add it anyway", server.URL, err)
		}
		fmt.Fprintf(out, "Server %s is %s\n", server.URL, health.Status)
	}

	if !added {
		fmt.Fprintf(out, "Server %s already exists in %s as %s\n", server.URL, config.ConfigFileName, server.Alias)
	} else {
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}
		if isNewConfig {
			fmt.Fprintf(out, "✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, server.URL, server.Alias)
		} else {
			fmt.Fprintf(out, "✓ Added server %s (%s) to ./%s\n", server.URL, server.Alias, config.ConfigFileName)
		}
	}

	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		opts.Logger.Warn().Err(err).Msg("Failed to remember selected server")
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'transitly register' to create an account")
	fmt.Fprintln(out, "  2. Run 'transitly login' to authenticate")

	return nil
}
