package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/transitly/transitly/internal/cli/client"
	"github.com/transitly/transitly/internal/cli/validate"
)

// NewRouteCmd creates the route command group
func NewRouteCmd(opts *GlobalOptions) *cobra.Command {
	return newResourceCmd(opts, resourceSpec[client.Route]{
		use:        "route",
		noun:       "route",
		plural:     "routes",
		collection: (*client.Client).Routes,
		id:         func(r *client.Route) string { return r.ID },
		setID:      func(r *client.Route, id string) { r.ID = id },
		label:      func(r *client.Route) string { return fmt.Sprintf("Route %s (%s)", r.RouteNumber, r.RouteName) },
		validate:   validate.Route,
		header:     "ID\tNUMBER\tNAME\tFROM\tTO\tKM",
		row: func(r *client.Route) string {
			return fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%.1f",
				r.ID, r.RouteNumber, r.RouteName, r.StartPoint, r.EndPoint, r.DistanceKm)
		},
		bind: func(cmd *cobra.Command, form *client.Route) {
			cmd.Flags().StringVar(&form.RouteNumber, "number", "", "Route number")
			cmd.Flags().StringVar(&form.RouteName, "name", "", "Route name")
			cmd.Flags().StringVar(&form.StartPoint, "start", "", "Start point")
			cmd.Flags().StringVar(&form.EndPoint, "end", "", "End point")
			cmd.Flags().Float64Var(&form.DistanceKm, "distance", 0, "Length in kilometres")
		},
		required: []string{"number", "name", "start", "end"},
		merge: func(cmd *cobra.Command, dst, form *client.Route) {
			changed := cmd.Flags().Changed
			if changed("number") {
				dst.RouteNumber = form.RouteNumber
			}
			if changed("name") {
				dst.RouteName = form.RouteName
			}
			if changed("start") {
				dst.StartPoint = form.StartPoint
			}
			if changed("end") {
				dst.EndPoint = form.EndPoint
			}
			if changed("distance") {
				dst.DistanceKm = form.DistanceKm
			}
		},
	})
}
