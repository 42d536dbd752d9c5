package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/transitly/transitly/internal/cli/client"
	"github.com/transitly/transitly/internal/cli/validate"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd(opts *GlobalOptions) *cobra.Command {
	var req client.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		Long: `Create a new account on the selected server.

Registration does not log you in; run 'transitly login' afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, opts, req)
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number, 10-15 digits")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (will prompt if not provided)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("phone")

	return cmd
}

func runRegister(cmd *cobra.Command, opts *GlobalOptions, req client.RegisterRequest) error {
	if req.Password == "" {
		password, err := opts.readSecret("Password")
		if err != nil {
			return fmt.Errorf("password is required: %w", err)
		}
		confirm, err := opts.readSecret("Confirm password")
		if err != nil {
			return fmt.Errorf("password confirmation is required: %w", err)
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}
		req.Password = password
	}

	if err := validate.Register(req); err != nil {
		return err
	}

	rt, err := opts.open(cmd.Context())
	if err != nil {
		return err
	}

	if _, err := rt.session.Register(cmd.Context(), req); err != nil {
		return err
	}
	return nil
}
