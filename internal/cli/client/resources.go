package client

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Bus is a vehicle in the fleet
type Bus struct {
	ID        string    `json:"id,omitempty"`
	BusNumber string    `json:"busNumber" validate:"required,max=20"`
	Capacity  int       `json:"capacity" validate:"gte=1,lte=200"`
	Status    string    `json:"status,omitempty" validate:"omitempty,oneof=active inactive maintenance"`
	RouteID   string    `json:"routeId,omitempty"`
	DriverID  string    `json:"driverId,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Route is a named line between two end points
type Route struct {
	ID          string    `json:"id,omitempty"`
	RouteNumber string    `json:"routeNumber" validate:"required,max=20"`
	RouteName   string    `json:"routeName" validate:"required,max=100"`
	StartPoint  string    `json:"startPoint" validate:"required"`
	EndPoint    string    `json:"endPoint" validate:"required"`
	DistanceKm  float64   `json:"distanceKm,omitempty" validate:"gte=0"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// Stop is a point on a route
type Stop struct {
	ID                   string     `json:"id,omitempty"`
	StopName             string     `json:"stopName" validate:"required,max=100"`
	RouteID              string     `json:"routeId" validate:"required"`
	Latitude             float64    `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude            float64    `json:"longitude" validate:"gte=-180,lte=180"`
	Sequence             int        `json:"sequence,omitempty" validate:"gte=0"`
	ScheduledArrivalTime string     `json:"scheduledArrivalTime,omitempty" validate:"omitempty,hhmm"`
	ActualArrivalTime    *time.Time `json:"actualArrivalTime,omitempty"`
	CreatedAt            time.Time  `json:"createdAt,omitzero"`
	UpdatedAt            time.Time  `json:"updatedAt,omitzero"`
}

// Collection is the CRUD surface shared by the bus, route and stop resources
type Collection[T any] struct {
	client *Client
	path   string
}

// Buses returns the bus collection
func (c *Client) Buses() Collection[Bus] {
	return Collection[Bus]{client: c, path: "/api/bus"}
}

// Routes returns the route collection
func (c *Client) Routes() Collection[Route] {
	return Collection[Route]{client: c, path: "/api/route"}
}

// Stops returns the stop collection
func (c *Client) Stops() Collection[Stop] {
	return Collection[Stop]{client: c, path: "/api/stop"}
}

func (r Collection[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// List returns every item
func (r Collection[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.client.Do(ctx, http.MethodGet, r.path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get returns one item by ID
func (r Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	var item T
	if err := r.client.Do(ctx, http.MethodGet, r.itemPath(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create adds an item and returns the server's copy
func (r Collection[T]) Create(ctx context.Context, item T) (*T, error) {
	var created T
	if err := r.client.Do(ctx, http.MethodPost, r.path, item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update replaces an item and returns the server's copy
func (r Collection[T]) Update(ctx context.Context, id string, item T) (*T, error) {
	var updated T
	if err := r.client.Do(ctx, http.MethodPut, r.itemPath(id), item, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an item
func (r Collection[T]) Delete(ctx context.Context, id string) error {
	return r.client.Do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

// StopArrivalUpdate is the body of the arrival-only stop update
type StopArrivalUpdate struct {
	ActualArrivalTime time.Time `json:"actualArrivalTime"`
}

// UpdateStopArrival records when a bus actually reached a stop
func (c *Client) UpdateStopArrival(ctx context.Context, stopID string, at time.Time) (*Stop, error) {
	stops := c.Stops()
	var updated Stop
	err := c.Do(ctx, http.MethodPut, stops.itemPath(stopID), StopArrivalUpdate{ActualArrivalTime: at.UTC()}, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
