package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/transitly/transitly/internal/cli/session"
	"github.com/transitly/transitly/internal/cli/userconfig"
	"github.com/transitly/transitly/internal/cli/validate"
)

// NewLoginCmd creates the login command
func NewLoginCmd(opts *GlobalOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to a transit server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set TRANSITLY_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set TRANSITLY_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *GlobalOptions, email, password string) error {
	// Environment variables are useful for CI
	if email == "" {
		email = os.Getenv("TRANSITLY_EMAIL")
	}
	if password == "" {
		password = os.Getenv("TRANSITLY_PASSWORD")
	}

	if email == "" {
		last := ""
		if cfg, err := userconfig.Load(); err == nil {
			last = cfg.LastEmail
		}
		var err error
		email, err = opts.promptText("Email", last, validate.Email)
		if err != nil {
			if errors.Is(err, errNonInteractive) {
				return fmt.Errorf("email is required (use --email flag or TRANSITLY_EMAIL env var)")
			}
			return err
		}
	}
	if err := validate.Email(email); err != nil {
		return err
	}

	if password == "" {
		var err error
		password, err = opts.readSecret("Password")
		if err != nil {
			if errors.Is(err, errNonInteractive) {
				return fmt.Errorf("password is required in non-interactive mode (use --password flag or TRANSITLY_PASSWORD env var)")
			}
			return err
		}
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	rt, err := opts.open(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(rt.out, "Logging in to %s (%s)...\n", rt.server.Alias, rt.client.BaseURL())

	user, err := rt.session.Login(cmd.Context(), email, password)
	if err != nil {
		return err
	}

	if err := userconfig.SetLastEmail(email); err != nil {
		opts.Logger.Warn().Err(err).Msg("Failed to remember login email")
	}

	fmt.Fprintf(rt.out, "  User: %s\n", user.DisplayName())
	fmt.Fprintf(rt.out, "  Role: %s\n", user.Role)
	if home := session.HomeFor(user.Role); home != session.HomeUnknown {
		fmt.Fprintf(rt.out, "  Home: %s\n", home)
	} else {
		fmt.Fprintf(rt.out, "  Warning: role %q is not recognised by this CLI\n", user.Role)
	}

	return nil
}
