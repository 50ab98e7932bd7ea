package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/fleetwatch/internal/model"
)

func (h *Handler) listStops(c *gin.Context) {
	principal, filter, ok := h.vehicleFilter(c)
	if !ok {
		return
	}
	stops, err := h.queries.Stops(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, stops)
}

func (h *Handler) stopStats(c *gin.Context) {
	principal, filter, ok := h.vehicleFilter(c)
	if !ok {
		return
	}
	if !filter.Window.Bounded() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startDate and endDate required"})
		return
	}
	stats, err := h.queries.StopStats(c.Request.Context(), principal, filter.VehicleID, filter.Window)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func (h *Handler) listTrips(c *gin.Context) {
	principal, filter, ok := h.vehicleFilter(c)
	if !ok {
		return
	}
	trips, err := h.queries.Trips(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, trips)
}

func (h *Handler) listScores(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	userID, ok := parseUUIDParam(c, "userId")
	if !ok {
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	period := model.ScorePeriod(strings.ToLower(c.DefaultQuery("period", string(model.PeriodDaily))))

	scores, err := h.queries.Scores(c.Request.Context(), principal, userID, period, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, scores)
}

func (h *Handler) latestScore(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	vehicleID, ok := parseUUIDParam(c, "vehicleId")
	if !ok {
		return
	}
	score, err := h.queries.LatestScore(c.Request.Context(), principal, vehicleID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, score)
}

// fuel routes take the vehicle as a query parameter

func (h *Handler) fuelVehicle(c *gin.Context) (model.Principal, uuid.UUID, bool) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return principal, uuid.Nil, false
	}
	vehicleID, err := uuid.Parse(strings.TrimSpace(c.Query("vehicleId")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicleId"})
		return principal, uuid.Nil, false
	}
	return principal, vehicleID, true
}

func (h *Handler) listFuelLogs(c *gin.Context) {
	principal, vehicleID, ok := h.fuelVehicle(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	logs, err := h.queries.FuelLogs(c.Request.Context(), principal, vehicleID, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, logs)
}

func (h *Handler) fuelReport(c *gin.Context) {
	principal, vehicleID, ok := h.fuelVehicle(c)
	if !ok {
		return
	}
	summary, err := h.queries.FuelSummary(c.Request.Context(), principal, vehicleID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, summary)
}
