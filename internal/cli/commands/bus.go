package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/transitly/transitly/internal/cli/client"
	"github.com/transitly/transitly/internal/cli/validate"
)

// NewBusCmd creates the bus command group
func NewBusCmd(opts *GlobalOptions) *cobra.Command {
	return newResourceCmd(opts, resourceSpec[client.Bus]{
		use:        "bus",
		noun:       "bus",
		plural:     "buses",
		collection: (*client.Client).Buses,
		id:         func(b *client.Bus) string { return b.ID },
		setID:      func(b *client.Bus, id string) { b.ID = id },
		label:      func(b *client.Bus) string { return "Bus " + b.BusNumber },
		validate:   validate.Bus,
		header:     "ID\tNUMBER\tCAPACITY\tSTATUS\tROUTE\tDRIVER",
		row: func(b *client.Bus) string {
			return fmt.Sprintf("%s\t%s\t%d\t%s\t%s\t%s",
				b.ID, b.BusNumber, b.Capacity, orDash(b.Status), orDash(b.RouteID), orDash(b.DriverID))
		},
		bind: func(cmd *cobra.Command, form *client.Bus) {
			form.Status = "active"
			cmd.Flags().StringVar(&form.BusNumber, "number", "", "Bus number")
			cmd.Flags().IntVar(&form.Capacity, "capacity", 0, "Seats, 1-200")
			cmd.Flags().StringVar(&form.Status, "status", form.Status, "active, inactive or maintenance")
			cmd.Flags().StringVar(&form.RouteID, "route", "", "Assigned route ID")
			cmd.Flags().StringVar(&form.DriverID, "driver", "", "Assigned driver's user ID")
		},
		required: []string{"number", "capacity"},
		merge: func(cmd *cobra.Command, dst, form *client.Bus) {
			changed := cmd.Flags().Changed
			if changed("number") {
				dst.BusNumber = form.BusNumber
			}
			if changed("capacity") {
				dst.Capacity = form.Capacity
			}
			if changed("status") {
				dst.Status = form.Status
			}
			if changed("route") {
				dst.RouteID = form.RouteID
			}
			if changed("driver") {
				dst.DriverID = form.DriverID
			}
		},
	})
}
