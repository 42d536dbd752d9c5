package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRefreshCmd creates the refresh command
func NewRefreshCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored refresh token for a new access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := rt.requireLogin(); err != nil {
				return err
			}
			if _, err := rt.session.RefreshAccessToken(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(rt.out, "✓ Access token refreshed")
			return nil
		},
	}
}
