package validate

import (
	"github.com/transitly/transitly/internal/cli/client"
)

// Bus validates a bus form. existing is the current fleet; the bus being
// edited (same ID) is skipped in the uniqueness check.
func Bus(bus client.Bus, existing []client.Bus) error {
	errs := structErrors(bus)

	for _, other := range existing {
		if bus.ID != "" && other.ID == bus.ID {
			continue
		}
		if bus.BusNumber != "" && sameText(other.BusNumber, bus.BusNumber) {
			errs = append(errs, FieldError{Field: "busNumber", Message: "is already in use"})
			break
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Route validates a route form. Start and end must differ and the route
// number must be unique.
func Route(route client.Route, existing []client.Route) error {
	errs := structErrors(route)

	if route.StartPoint != "" && sameText(route.StartPoint, route.EndPoint) {
		errs = append(errs, FieldError{Field: "endPoint", Message: "must differ from startPoint"})
	}

	for _, other := range existing {
		if route.ID != "" && other.ID == route.ID {
			continue
		}
		if route.RouteNumber != "" && sameText(other.RouteNumber, route.RouteNumber) {
			errs = append(errs, FieldError{Field: "routeNumber", Message: "is already in use"})
			break
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Stop validates a stop form. Stop names are unique within a route.
func Stop(stop client.Stop, existing []client.Stop) error {
	errs := structErrors(stop)

	for _, other := range existing {
		if stop.ID != "" && other.ID == stop.ID {
			continue
		}
		if other.RouteID == stop.RouteID && stop.StopName != "" && sameText(other.StopName, stop.StopName) {
			errs = append(errs, FieldError{Field: "stopName", Message: "already exists on this route"})
			break
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Register validates the sign-up form
func Register(req client.RegisterRequest) error {
	return Struct(req)
}

// ResetPassword validates the reset-confirm form
func ResetPassword(req client.ResetPasswordRequest) error {
	return Struct(req)
}
