package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/transitly/transitly/internal/cli/client"
	"github.com/transitly/transitly/internal/cli/validate"
)

// NewStopCmd creates the stop command group, including the driver-facing
// arrive subcommand
func NewStopCmd(opts *GlobalOptions) *cobra.Command {
	cmd := newResourceCmd(opts, resourceSpec[client.Stop]{
		use:        "stop",
		noun:       "stop",
		plural:     "stops",
		collection: (*client.Client).Stops,
		id:         func(s *client.Stop) string { return s.ID },
		setID:      func(s *client.Stop, id string) { s.ID = id },
		label:      func(s *client.Stop) string { return "Stop " + s.StopName },
		validate:   validate.Stop,
		header:     "ID\tNAME\tROUTE\tSEQ\tLAT\tLNG\tSCHEDULED\tARRIVED",
		row: func(s *client.Stop) string {
			arrived := "-"
			if s.ActualArrivalTime != nil {
				arrived = s.ActualArrivalTime.Local().Format("15:04")
			}
			return fmt.Sprintf("%s\t%s\t%s\t%d\t%.5f\t%.5f\t%s\t%s",
				s.ID, s.StopName, s.RouteID, s.Sequence, s.Latitude, s.Longitude, orDash(s.ScheduledArrivalTime), arrived)
		},
		bind: func(cmd *cobra.Command, form *client.Stop) {
			cmd.Flags().StringVar(&form.StopName, "name", "", "Stop name")
			cmd.Flags().StringVar(&form.RouteID, "route", "", "Route ID the stop belongs to")
			cmd.Flags().Float64Var(&form.Latitude, "lat", 0, "Latitude, -90 to 90")
			cmd.Flags().Float64Var(&form.Longitude, "lng", 0, "Longitude, -180 to 180")
			cmd.Flags().IntVar(&form.Sequence, "sequence", 0, "Position along the route")
			cmd.Flags().StringVar(&form.ScheduledArrivalTime, "scheduled", "", "Scheduled arrival, HH:MM")
		},
		required: []string{"name", "route", "lat", "lng"},
		merge: func(cmd *cobra.Command, dst, form *client.Stop) {
			changed := cmd.Flags().Changed
			if changed("name") {
				dst.StopName = form.StopName
			}
			if changed("route") {
				dst.RouteID = form.RouteID
			}
			if changed("lat") {
				dst.Latitude = form.Latitude
			}
			if changed("lng") {
				dst.Longitude = form.Longitude
			}
			if changed("sequence") {
				dst.Sequence = form.Sequence
			}
			if changed("scheduled") {
				dst.ScheduledArrivalTime = form.ScheduledArrivalTime
			}
		},
	})

	cmd.AddCommand(newStopArriveCmd(opts))

	return cmd
}

func newStopArriveCmd(opts *GlobalOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "arrive <id>",
		Short: "Record that a bus has reached a stop",
		Long: `Record the actual arrival time at a stop. Drivers and admins may do this.

--at accepts an RFC 3339 timestamp or HH:MM for today; the default is now.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arrival, err := parseArrival(at, time.Now())
			if err != nil {
				return err
			}

			rt, err := openAuthenticated(cmd, opts)
			if err != nil {
				return err
			}

			stop, err := rt.client.UpdateStopArrival(cmd.Context(), args[0], arrival)
			if err != nil {
				return friendly(err, "Failed to record arrival")
			}

			name := stop.StopName
			if name == "" {
				name = args[0]
			}
			rt.success("Arrival Recorded", "%s at %s", name, arrival.Local().Format("15:04"))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Arrival time (RFC 3339 or HH:MM, default now)")

	return cmd
}

// parseArrival reads an RFC 3339 timestamp or an HH:MM clock time on the
// day of now
func parseArrival(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	clock, err := time.ParseInLocation("15:04", value, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: use RFC 3339 or HH:MM", value)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location()), nil
}
