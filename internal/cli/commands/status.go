package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/transitly/transitly/internal/cli/session"
)

// NewStatusCmd creates the status command
func NewStatusCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			printStatus(rt, time.Now())
			return nil
		},
	}
}

func printStatus(rt *runtime, now time.Time) {
	snap := rt.session.Snapshot()

	fmt.Fprintf(rt.out, "Server: %s (%s)\n", rt.server.Alias, rt.client.BaseURL())
	if !snap.IsAuthenticated() {
		fmt.Fprintln(rt.out, "Not logged in")
		return
	}

	fmt.Fprintf(rt.out, "User:   %s\n", snap.User.DisplayName())
	fmt.Fprintf(rt.out, "Role:   %s (%s)\n", snap.User.Role, session.HomeFor(snap.User.Role))

	if exp, ok := session.TokenExpiry(snap.AccessToken); ok {
		if exp.After(now) {
			fmt.Fprintf(rt.out, "Access token expires in %s\n", exp.Sub(now).Round(time.Second))
		} else {
			fmt.Fprintln(rt.out, "Access token expired; it will be refreshed on the next request")
		}
	}
	if snap.RefreshToken == "" {
		fmt.Fprintln(rt.out, "No refresh token stored")
	}
}
