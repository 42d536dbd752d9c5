package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitly/transitly/internal/models"
)

func createRoute(t *testing.T, ts *httptest.Server, token, number string) models.Route {
	t.Helper()
	resp := call(t, ts, http.MethodPost, "/api/route", token, RouteRequest{
		RouteNumber: number,
		RouteName:   "Route " + number,
		StartPoint:  "Depot",
		EndPoint:    "Harbour",
		DistanceKm:  12.5,
	})
	require.Equal(t, http.StatusCreated, resp.Status, string(resp.Body))

	var route models.Route
	resp.decode(t, &route)
	return route
}

func createStop(t *testing.T, ts *httptest.Server, token, routeID, name string, seq int) models.Stop {
	t.Helper()
	resp := call(t, ts, http.MethodPost, "/api/stop", token, StopRequest{
		StopName:             name,
		RouteID:              routeID,
		Latitude:             51.5,
		Longitude:            -0.12,
		Sequence:             seq,
		ScheduledArrivalTime: "08:15",
	})
	require.Equal(t, http.StatusCreated, resp.Status, string(resp.Body))

	var stop models.Stop
	resp.decode(t, &stop)
	return stop
}

func TestBusCRUD(t *testing.T) {
	srv, ts := newTestServer(t)
	admin, driver, passenger := seedUsers(t, srv, ts)
	route := createRoute(t, ts, admin.AccessToken, "12A")

	resp := call(t, ts, http.MethodPost, "/api/bus", admin.AccessToken, BusRequest{
		BusNumber: "KA-01",
		Capacity:  40,
		RouteID:   &route.ID,
		DriverID:  &driver.User.ID,
	})
	require.Equal(t, http.StatusCreated, resp.Status, string(resp.Body))

	var bus models.Bus
	resp.decode(t, &bus)
	assert.NotEmpty(t, bus.ID)
	assert.Equal(t, "active", bus.Status)
	require.NotNil(t, bus.RouteID)
	assert.Equal(t, route.ID, *bus.RouteID)

	// passengers can read
	resp = call(t, ts, http.MethodGet, "/api/bus", passenger.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var buses []models.Bus
	resp.decode(t, &buses)
	require.Len(t, buses, 1)
	assert.Equal(t, "KA-01", buses[0].BusNumber)

	resp = call(t, ts, http.MethodPut, "/api/bus/"+bus.ID, admin.AccessToken, BusRequest{
		BusNumber: "KA-01",
		Capacity:  55,
		Status:    "maintenance",
	})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

	resp = call(t, ts, http.MethodGet, "/api/bus/"+bus.ID, driver.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	resp.decode(t, &bus)
	assert.Equal(t, 55, bus.Capacity)
	assert.Equal(t, "maintenance", bus.Status)
	assert.Nil(t, bus.RouteID)

	resp = call(t, ts, http.MethodDelete, "/api/bus/"+bus.ID, admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.Status)

	resp = call(t, ts, http.MethodGet, "/api/bus/"+bus.ID, admin.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "Bus not found", resp.message(t))

	resp = call(t, ts, http.MethodDelete, "/api/bus/"+bus.ID, admin.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestBus_Rejects(t *testing.T) {
	srv, ts := newTestServer(t)
	admin, driver, passenger := seedUsers(t, srv, ts)

	resp := call(t, ts, http.MethodPost, "/api/bus", admin.AccessToken, BusRequest{BusNumber: "KA-01", Capacity: 40})
	require.Equal(t, http.StatusCreated, resp.Status)

	missing := "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	tests := []struct {
		name   string
		token  string
		req    BusRequest
		status int
	}{
		{"passenger cannot create", passenger.AccessToken, BusRequest{BusNumber: "KA-02", Capacity: 40}, http.StatusForbidden},
		{"driver cannot create", driver.AccessToken, BusRequest{BusNumber: "KA-02", Capacity: 40}, http.StatusForbidden},
		{"duplicate number", admin.AccessToken, BusRequest{BusNumber: " ka-01 ", Capacity: 40}, http.StatusConflict},
		{"capacity out of range", admin.AccessToken, BusRequest{BusNumber: "KA-02", Capacity: 0}, http.StatusBadRequest},
		{"unknown status", admin.AccessToken, BusRequest{BusNumber: "KA-02", Capacity: 10, Status: "parked"}, http.StatusBadRequest},
		{"unknown route", admin.AccessToken, BusRequest{BusNumber: "KA-02", Capacity: 10, RouteID: &missing}, http.StatusBadRequest},
		{"driver is not a driver", admin.AccessToken, BusRequest{BusNumber: "KA-02", Capacity: 10, DriverID: &passenger.User.ID}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, ts, http.MethodPost, "/api/bus", tt.token, tt.req)
			assert.Equal(t, tt.status, resp.Status, string(resp.Body))
			assert.NotEmpty(t, resp.message(t))
		})
	}
}

func TestRoute_Rules(t *testing.T) {
	srv, ts := newTestServer(t)
	admin, _, _ := seedUsers(t, srv, ts)
	route := createRoute(t, ts, admin.AccessToken, "12A")

	resp := call(t, ts, http.MethodPost, "/api/route", admin.AccessToken, RouteRequest{
		RouteNumber: "7", RouteName: "Loop", StartPoint: "Depot", EndPoint: " depot ",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Start point and end point must be different", resp.message(t))

	resp = call(t, ts, http.MethodPost, "/api/route", admin.AccessToken, RouteRequest{
		RouteNumber: "12a", RouteName: "Copy", StartPoint: "A", EndPoint: "B",
	})
	assert.Equal(t, http.StatusConflict, resp.Status)

	// keeping its own number is not a conflict
	resp = call(t, ts, http.MethodPut, "/api/route/"+route.ID, admin.AccessToken, RouteRequest{
		RouteNumber: "12A", RouteName: "Renamed", StartPoint: "Depot", EndPoint: "Airport", DistanceKm: 30,
	})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	resp.decode(t, &route)
	assert.Equal(t, "Renamed", route.RouteName)
	assert.Equal(t, "Airport", route.EndPoint)
}

func TestRouteDelete_CascadesStopsAndDetachesBuses(t *testing.T) {
	srv, ts := newTestServer(t)
	admin, _, _ := seedUsers(t, srv, ts)
	route := createRoute(t, ts, admin.AccessToken, "12A")
	createStop(t, ts, admin.AccessToken, route.ID, "Market", 1)
	createStop(t, ts, admin.AccessToken, route.ID, "Station", 2)

	resp := call(t, ts, http.MethodPost, "/api/bus", admin.AccessToken, BusRequest{BusNumber: "KA-01", Capacity: 40, RouteID: &route.ID})
	require.Equal(t, http.StatusCreated, resp.Status)
	var bus models.Bus
	resp.decode(t, &bus)

	resp = call(t, ts, http.MethodDelete, "/api/route/"+route.ID, admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.Status)

	var stops int64
	require.NoError(t, srv.db.Model(&models.Stop{}).Where("route_id = ?", route.ID).Count(&stops).Error)
	assert.Zero(t, stops)

	resp = call(t, ts, http.MethodGet, "/api/bus/"+bus.ID, admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	resp.decode(t, &bus)
	assert.Nil(t, bus.RouteID)
}

func TestStops_ListFilterAndUniqueName(t *testing.T) {
	srv, ts := newTestServer(t)
	admin, _, passenger := seedUsers(t, srv, ts)
	north := createRoute(t, ts, admin.AccessToken, "N1")
	south := createRoute(t, ts, admin.AccessToken, "S1")

	createStop(t, ts, admin.AccessToken, north.ID, "Station", 2)
	createStop(t, ts, admin.AccessToken, north.ID, "Market", 1)
	// the same name on another route is fine
	createStop(t, ts, admin.AccessToken, south.ID, "Market", 1)

	resp := call(t, ts, http.MethodPost, "/api/stop", admin.AccessToken, StopRequest{StopName: "market", RouteID: north.ID})
	assert.Equal(t, http.StatusConflict, resp.Status)

	resp = call(t, ts, http.MethodPost, "/api/stop", admin.AccessToken, StopRequest{StopName: "Pier", RouteID: north.ID, ScheduledArrivalTime: "25:00"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = call(t, ts, http.MethodGet, "/api/stop?routeId="+north.ID, passenger.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var stops []models.Stop
	resp.decode(t, &stops)
	require.Len(t, stops, 2)
	assert.Equal(t, "Market", stops[0].StopName)
	assert.Equal(t, "Station", stops[1].StopName)

	resp = call(t, ts, http.MethodGet, "/api/stop", passenger.AccessToken, nil)
	resp.decode(t, &stops)
	assert.Len(t, stops, 3)
}

func TestStopUpdate_Roles(t *testing.T) {
	srv, ts := newTestServer(t)
	admin, driver, passenger := seedUsers(t, srv, ts)
	route := createRoute(t, ts, admin.AccessToken, "12A")
	stop := createStop(t, ts, admin.AccessToken, route.ID, "Market", 1)

	arrival := map[string]any{"actualArrivalTime": "2026-10-19T08:17:00+02:00"}

	resp := call(t, ts, http.MethodPut, "/api/stop/"+stop.ID, passenger.AccessToken, arrival)
	assert.Equal(t, http.StatusForbidden, resp.Status)

	resp = call(t, ts, http.MethodPut, "/api/stop/"+stop.ID, driver.AccessToken, arrival)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

	var updated models.Stop
	resp.decode(t, &updated)
	require.NotNil(t, updated.ActualArrivalTime)
	assert.True(t, updated.ActualArrivalTime.Equal(time.Date(2026, 10, 19, 6, 17, 0, 0, time.UTC)))
	assert.Equal(t, "Market", updated.StopName)

	full := StopRequest{StopName: "Old Market", RouteID: route.ID, Sequence: 3, ScheduledArrivalTime: "09:00"}
	resp = call(t, ts, http.MethodPut, "/api/stop/"+stop.ID, driver.AccessToken, full)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "Drivers may only update the arrival time", resp.message(t))

	resp = call(t, ts, http.MethodPut, "/api/stop/"+stop.ID, driver.AccessToken, map[string]any{"actualArrivalTime": nil})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = call(t, ts, http.MethodPut, "/api/stop/"+stop.ID, admin.AccessToken, full)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	resp.decode(t, &updated)
	assert.Equal(t, "Old Market", updated.StopName)
	assert.Equal(t, 3, updated.Sequence)
	// a full update without an arrival keeps the recorded one
	assert.NotNil(t, updated.ActualArrivalTime)

	resp = call(t, ts, http.MethodPut, "/api/stop/missing", admin.AccessToken, full)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}
