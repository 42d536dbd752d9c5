package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/transitly/transitly/internal/auth"
	"github.com/transitly/transitly/internal/models"
)

// BusRequest is the body of bus create and update
type BusRequest struct {
	BusNumber string  `json:"busNumber" validate:"required,max=20"`
	Capacity  int     `json:"capacity" validate:"gte=1,lte=200"`
	Status    string  `json:"status" validate:"omitempty,oneof=active inactive maintenance"`
	RouteID   *string `json:"routeId"`
	DriverID  *string `json:"driverId"`
}

// RouteRequest is the body of route create and update
type RouteRequest struct {
	RouteNumber string  `json:"routeNumber" validate:"required,max=20"`
	RouteName   string  `json:"routeName" validate:"required,max=100"`
	StartPoint  string  `json:"startPoint" validate:"required"`
	EndPoint    string  `json:"endPoint" validate:"required"`
	DistanceKm  float64 `json:"distanceKm" validate:"gte=0"`
}

// StopRequest is the body of stop create and full update
type StopRequest struct {
	StopName             string     `json:"stopName" validate:"required,max=100"`
	RouteID              string     `json:"routeId" validate:"required"`
	Latitude             float64    `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude            float64    `json:"longitude" validate:"gte=-180,lte=180"`
	Sequence             int        `json:"sequence" validate:"gte=0"`
	ScheduledArrivalTime string     `json:"scheduledArrivalTime" validate:"omitempty,hhmm"`
	ActualArrivalTime    *time.Time `json:"actualArrivalTime"`
}

// StopArrivalRequest is the arrival-only stop update drivers may send
type StopArrivalRequest struct {
	ActualArrivalTime *time.Time `json:"actualArrivalTime" validate:"required"`
}

// findOr404 loads a record by the :id path parameter
func findOr404[T any](s *Server, c *gin.Context, what string) (*T, bool) {
	var record T
	if err := models.FindByID(s.db, c.Param("id"), &record); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondMessage(c, http.StatusNotFound, what+" not found")
			return nil, false
		}
		s.internalError(c, err, "Failed to load "+strings.ToLower(what))
		return nil, false
	}
	return &record, true
}

// taken reports whether another row (id != excludeID) matches column
// case-insensitively
func taken(db *gorm.DB, model any, column, value, excludeID string, scope ...any) (bool, error) {
	q := db.Model(model).Where("LOWER(TRIM("+column+")) = LOWER(TRIM(?))", value)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if len(scope) > 0 {
		q = q.Where(scope[0], scope[1:]...)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (s *Server) deleteByID(c *gin.Context, model any, what string) {
	result := s.db.Where("id = ?", c.Param("id")).Delete(model)
	if result.Error != nil {
		s.internalError(c, result.Error, "Failed to delete "+strings.ToLower(what))
		return
	}
	if result.RowsAffected == 0 {
		respondMessage(c, http.StatusNotFound, what+" not found")
		return
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().Str("id", c.Param("id")).Str("deleted_by", sessionData.UserID).Msg(what + " deleted")
	respondMessage(c, http.StatusOK, what+" deleted")
}

// Buses

// @Router /api/bus [get]
// @Success 200 {array} models.Bus
func (s *Server) listBuses(c *gin.Context) {
	var buses []models.Bus
	if err := s.db.Order("bus_number").Find(&buses).Error; err != nil {
		s.internalError(c, err, "Failed to list buses")
		return
	}
	c.JSON(http.StatusOK, buses)
}

// @Router /api/bus/{id} [get]
// @Success 200 {object} models.Bus
func (s *Server) getBus(c *gin.Context) {
	if bus, ok := findOr404[models.Bus](s, c, "Bus"); ok {
		c.JSON(http.StatusOK, bus)
	}
}

// @Router /api/bus [post]
// @Param body body BusRequest true "Bus"
// @Success 201 {object} models.Bus
func (s *Server) createBus(c *gin.Context) {
	var req BusRequest
	if !s.bind(c, &req) {
		return
	}

	bus := &models.Bus{}
	if !s.applyBus(c, bus, req) {
		return
	}

	if err := s.db.Create(bus).Error; err != nil {
		s.internalError(c, err, "Failed to create bus")
		return
	}

	s.logger.Info().Str("bus_id", bus.ID).Str("bus_number", bus.BusNumber).Msg("Bus created")
	c.JSON(http.StatusCreated, bus)
}

// @Router /api/bus/{id} [put]
// @Param body body BusRequest true "Bus"
// @Success 200 {object} models.Bus
func (s *Server) updateBus(c *gin.Context) {
	bus, ok := findOr404[models.Bus](s, c, "Bus")
	if !ok {
		return
	}

	var req BusRequest
	if !s.bind(c, &req) {
		return
	}
	if !s.applyBus(c, bus, req) {
		return
	}

	if err := s.db.Save(bus).Error; err != nil {
		s.internalError(c, err, "Failed to update bus")
		return
	}

	s.logger.Info().Str("bus_id", bus.ID).Msg("Bus updated")
	c.JSON(http.StatusOK, bus)
}

// applyBus checks references and uniqueness, then copies req into bus
func (s *Server) applyBus(c *gin.Context, bus *models.Bus, req BusRequest) bool {
	dup, err := taken(s.db, &models.Bus{}, "bus_number", req.BusNumber, bus.ID)
	if err != nil {
		s.internalError(c, err, "Failed to check bus number")
		return false
	}
	if dup {
		respondMessage(c, http.StatusConflict, "Bus number already exists")
		return false
	}

	routeID := emptyToNil(req.RouteID)
	if routeID != nil {
		if _, err := s.findRoute(*routeID); err != nil {
			respondMessage(c, http.StatusBadRequest, "Route not found")
			return false
		}
	}

	driverID := emptyToNil(req.DriverID)
	if driverID != nil {
		var driver models.User
		if err := models.FindByID(s.db, *driverID, &driver); err != nil || driver.Role != auth.RoleDriver {
			respondMessage(c, http.StatusBadRequest, "Driver not found")
			return false
		}
	}

	bus.BusNumber = strings.TrimSpace(req.BusNumber)
	bus.Capacity = req.Capacity
	bus.Status = req.Status
	if bus.Status == "" {
		bus.Status = "active"
	}
	bus.RouteID = routeID
	bus.DriverID = driverID
	return true
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// @Router /api/bus/{id} [delete]
func (s *Server) deleteBus(c *gin.Context) {
	s.deleteByID(c, &models.Bus{}, "Bus")
}

// Routes

func (s *Server) findRoute(id string) (*models.Route, error) {
	var route models.Route
	if err := models.FindByID(s.db, id, &route); err != nil {
		return nil, err
	}
	return &route, nil
}

// @Router /api/route [get]
// @Success 200 {array} models.Route
func (s *Server) listRoutes(c *gin.Context) {
	var routes []models.Route
	if err := s.db.Order("route_number").Find(&routes).Error; err != nil {
		s.internalError(c, err, "Failed to list routes")
		return
	}
	c.JSON(http.StatusOK, routes)
}

// @Router /api/route/{id} [get]
// @Success 200 {object} models.Route
func (s *Server) getRoute(c *gin.Context) {
	if route, ok := findOr404[models.Route](s, c, "Route"); ok {
		c.JSON(http.StatusOK, route)
	}
}

// @Router /api/route [post]
// @Param body body RouteRequest true "Route"
// @Success 201 {object} models.Route
func (s *Server) createRoute(c *gin.Context) {
	var req RouteRequest
	if !s.bind(c, &req) {
		return
	}

	route := &models.Route{}
	if !s.applyRoute(c, route, req) {
		return
	}

	if err := s.db.Create(route).Error; err != nil {
		s.internalError(c, err, "Failed to create route")
		return
	}

	s.logger.Info().Str("route_id", route.ID).Str("route_number", route.RouteNumber).Msg("Route created")
	c.JSON(http.StatusCreated, route)
}

// @Router /api/route/{id} [put]
// @Param body body RouteRequest true "Route"
// @Success 200 {object} models.Route
func (s *Server) updateRoute(c *gin.Context) {
	route, ok := findOr404[models.Route](s, c, "Route")
	if !ok {
		return
	}

	var req RouteRequest
	if !s.bind(c, &req) {
		return
	}
	if !s.applyRoute(c, route, req) {
		return
	}

	if err := s.db.Save(route).Error; err != nil {
		s.internalError(c, err, "Failed to update route")
		return
	}

	s.logger.Info().Str("route_id", route.ID).Msg("Route updated")
	c.JSON(http.StatusOK, route)
}

func (s *Server) applyRoute(c *gin.Context, route *models.Route, req RouteRequest) bool {
	if strings.EqualFold(strings.TrimSpace(req.StartPoint), strings.TrimSpace(req.EndPoint)) {
		respondMessage(c, http.StatusBadRequest, "Start point and end point must be different")
		return false
	}

	dup, err := taken(s.db, &models.Route{}, "route_number", req.RouteNumber, route.ID)
	if err != nil {
		s.internalError(c, err, "Failed to check route number")
		return false
	}
	if dup {
		respondMessage(c, http.StatusConflict, "Route number already exists")
		return false
	}

	route.RouteNumber = strings.TrimSpace(req.RouteNumber)
	route.RouteName = strings.TrimSpace(req.RouteName)
	route.StartPoint = strings.TrimSpace(req.StartPoint)
	route.EndPoint = strings.TrimSpace(req.EndPoint)
	route.DistanceKm = req.DistanceKm
	return true
}

// @Router /api/route/{id} [delete]
func (s *Server) deleteRoute(c *gin.Context) {
	id := c.Param("id")

	// Stops go with their route; buses stay in the fleet unassigned
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("route_id = ?", id).Delete(&models.Stop{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Bus{}).Where("route_id = ?", id).Update("route_id", nil).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Route{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondMessage(c, http.StatusNotFound, "Route not found")
		return
	}
	if err != nil {
		s.internalError(c, err, "Failed to delete route")
		return
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().Str("id", id).Str("deleted_by", sessionData.UserID).Msg("Route deleted")
	respondMessage(c, http.StatusOK, "Route deleted")
}

// Stops

// @Router /api/stop [get]
// @Param routeId query string false "Only stops on this route"
// @Success 200 {array} models.Stop
func (s *Server) listStops(c *gin.Context) {
	q := s.db.Order("route_id").Order("sequence").Order("stop_name")
	if routeID := c.Query("routeId"); routeID != "" {
		q = q.Where("route_id = ?", routeID)
	}

	var stops []models.Stop
	if err := q.Find(&stops).Error; err != nil {
		s.internalError(c, err, "Failed to list stops")
		return
	}
	c.JSON(http.StatusOK, stops)
}

// @Router /api/stop/{id} [get]
// @Success 200 {object} models.Stop
func (s *Server) getStop(c *gin.Context) {
	if stop, ok := findOr404[models.Stop](s, c, "Stop"); ok {
		c.JSON(http.StatusOK, stop)
	}
}

// @Router /api/stop [post]
// @Param body body StopRequest true "Stop"
// @Success 201 {object} models.Stop
func (s *Server) createStop(c *gin.Context) {
	var req StopRequest
	if !s.bind(c, &req) {
		return
	}

	stop := &models.Stop{}
	if !s.applyStop(c, stop, req) {
		return
	}

	if err := s.db.Create(stop).Error; err != nil {
		s.internalError(c, err, "Failed to create stop")
		return
	}

	s.logger.Info().Str("stop_id", stop.ID).Str("route_id", stop.RouteID).Msg("Stop created")
	c.JSON(http.StatusCreated, stop)
}

// @Summary Update stop
// @Description Admins may replace a stop. Drivers may only send actualArrivalTime.
// @Router /api/stop/{id} [put]
// @Param body body StopRequest true "Stop, or only actualArrivalTime"
// @Success 200 {object} models.Stop
func (s *Server) updateStop(c *gin.Context) {
	stop, ok := findOr404[models.Stop](s, c, "Stop")
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	sessionData, _ := GetSessionData(c)

	if isArrivalOnly(fields) {
		var req StopArrivalRequest
		if err := json.Unmarshal(body, &req); err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !s.check(c, &req) {
			return
		}

		arrival := req.ActualArrivalTime.UTC()
		stop.ActualArrivalTime = &arrival
		if err := s.db.Model(stop).Update("actual_arrival_time", stop.ActualArrivalTime).Error; err != nil {
			s.internalError(c, err, "Failed to record arrival")
			return
		}

		s.logger.Info().
			Str("stop_id", stop.ID).
			Str("recorded_by", sessionData.UserID).
			Time("arrived_at", arrival).
			Msg("Stop arrival recorded")
		c.JSON(http.StatusOK, stop)
		return
	}

	if !sessionData.IsAdmin() {
		respondWithError(c, s.logger, http.StatusForbidden, errors.New("driver full stop update"), "Drivers may only update the arrival time")
		return
	}

	var req StopRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !s.check(c, &req) {
		return
	}
	if !s.applyStop(c, stop, req) {
		return
	}

	if err := s.db.Save(stop).Error; err != nil {
		s.internalError(c, err, "Failed to update stop")
		return
	}

	s.logger.Info().Str("stop_id", stop.ID).Msg("Stop updated")
	c.JSON(http.StatusOK, stop)
}

func isArrivalOnly(fields map[string]json.RawMessage) bool {
	if len(fields) == 0 {
		return false
	}
	for key := range fields {
		if key != "actualArrivalTime" {
			return false
		}
	}
	return true
}

func (s *Server) applyStop(c *gin.Context, stop *models.Stop, req StopRequest) bool {
	if _, err := s.findRoute(req.RouteID); err != nil {
		respondMessage(c, http.StatusBadRequest, "Route not found")
		return false
	}

	dup, err := taken(s.db, &models.Stop{}, "stop_name", req.StopName, stop.ID, "route_id = ?", req.RouteID)
	if err != nil {
		s.internalError(c, err, "Failed to check stop name")
		return false
	}
	if dup {
		respondMessage(c, http.StatusConflict, "A stop with this name already exists on the route")
		return false
	}

	stop.StopName = strings.TrimSpace(req.StopName)
	stop.RouteID = req.RouteID
	stop.Latitude = req.Latitude
	stop.Longitude = req.Longitude
	stop.Sequence = req.Sequence
	stop.ScheduledArrivalTime = req.ScheduledArrivalTime
	if req.ActualArrivalTime != nil {
		arrival := req.ActualArrivalTime.UTC()
		stop.ActualArrivalTime = &arrival
	}
	return true
}

// @Router /api/stop/{id} [delete]
func (s *Server) deleteStop(c *gin.Context) {
	s.deleteByID(c, &models.Stop{}, "Stop")
}
