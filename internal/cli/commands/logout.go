package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := rt.session.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logged out, but stored credentials could not be removed: %w", err)
			}
			return nil
		},
	}
}
