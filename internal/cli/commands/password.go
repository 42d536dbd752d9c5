package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/transitly/transitly/internal/cli/client"
	"github.com/transitly/transitly/internal/cli/validate"
)

// NewForgotPasswordCmd creates the forgot-password command
func NewForgotPasswordCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Request a password reset email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := args[0]
			if err := validate.Email(email); err != nil {
				return err
			}

			rt, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			_, err = rt.session.ForgotPassword(cmd.Context(), email)
			return err
		},
	}
}

// NewResetPasswordCmd creates the reset-password command
func NewResetPasswordCmd(opts *GlobalOptions) *cobra.Command {
	var newPassword string

	cmd := &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password using a reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResetPassword(cmd, opts, args[0], newPassword)
		},
	}

	cmd.Flags().StringVar(&newPassword, "password", "", "New password (will prompt if not provided)")

	return cmd
}

func runResetPassword(cmd *cobra.Command, opts *GlobalOptions, token, newPassword string) error {
	if newPassword == "" {
		var err error
		newPassword, err = opts.readSecret("New password")
		if err != nil {
			return fmt.Errorf("new password is required: %w", err)
		}
	}

	req := client.ResetPasswordRequest{Token: token, NewPassword: newPassword}
	if err := validate.ResetPassword(req); err != nil {
		return err
	}

	rt, err := opts.open(cmd.Context())
	if err != nil {
		return err
	}
	_, err = rt.session.ResetPassword(cmd.Context(), req.Token, req.NewPassword)
	return err
}
