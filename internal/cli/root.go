package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/transitly/transitly/internal/cli/commands"
	"github.com/transitly/transitly/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree around opts
func NewRootCmd(opts *commands.GlobalOptions) *cobra.Command {
	var verbose bool
	var logFormat string

	rootCmd := &cobra.Command{
		Use:   "transitly",
		Short: "Transitly - transit management from the terminal",
		Long: `Transitly CLI - manage buses, routes and stops on a transit server.

Admins manage the fleet and network, drivers record arrivals and passengers
browse routes. Credentials are kept in the system keyring and refreshed
automatically when they expire.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if lvl := os.Getenv("TRANSITLY_LOG_LEVEL"); lvl != "" {
				level = lvl
			}
			if verbose {
				level = "debug"
			}
			logger.InitWithWriter(level, logFormat, cmd.ErrOrStderr())
			opts.Logger = logger.GetLogger()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.Server, "server", "s", "", "Server alias or URL (or set TRANSITLY_SERVER)")
	flags.StringVar(&opts.Credentials, "credentials", "", "Credential backend: keyring or file (default keyring)")
	flags.StringVar(&opts.CredentialsFile, "credentials-file", "", "Path of the file backend (default in the user config dir)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log API traffic to stderr")
	flags.StringVar(&logFormat, "log-format", "console", "Log format: console or json")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "transitly version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewInitCmd(opts))
	rootCmd.AddCommand(commands.NewSelectServerCmd(opts))
	rootCmd.AddCommand(commands.NewLoginCmd(opts))
	rootCmd.AddCommand(commands.NewRegisterCmd(opts))
	rootCmd.AddCommand(commands.NewLogoutCmd(opts))
	rootCmd.AddCommand(commands.NewForgotPasswordCmd(opts))
	rootCmd.AddCommand(commands.NewResetPasswordCmd(opts))
	rootCmd.AddCommand(commands.NewStatusCmd(opts))
	rootCmd.AddCommand(commands.NewRefreshCmd(opts))
	rootCmd.AddCommand(commands.NewBusCmd(opts))
	rootCmd.AddCommand(commands.NewRouteCmd(opts))
	rootCmd.AddCommand(commands.NewStopCmd(opts))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(&commands.GlobalOptions{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
