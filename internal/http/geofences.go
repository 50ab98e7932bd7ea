package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/service"
)

type createGeofenceRequest struct {
	Name        string          `json:"name" binding:"required"`
	Type        string          `json:"type"`
	CenterLat   *float64        `json:"center_lat"`
	CenterLng   *float64        `json:"center_lng"`
	Radius      *float64        `json:"radius"`
	Polygon     json.RawMessage `json:"polygon"`
	ScheduledAt *string         `json:"scheduled_at"`
}

func (h *Handler) createGeofence(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req createGeofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.CreateGeofenceInput{
		Name:      req.Name,
		Type:      model.GeofenceType(strings.ToLower(strings.TrimSpace(req.Type))),
		CenterLat: req.CenterLat,
		CenterLng: req.CenterLng,
		Radius:    req.Radius,
		Polygon:   req.Polygon,
		Principal: principal,
	}
	if req.ScheduledAt != nil && strings.TrimSpace(*req.ScheduledAt) != "" {
		scheduledAt, err := parseDate(*req.ScheduledAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scheduled_at"})
			return
		}
		input.ScheduledAt = &scheduledAt
	}

	geofence, err := h.geofences.Create(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, geofence)
}

func (h *Handler) listGeofences(c *gin.Context) {
	if _, ok := mustPrincipal(c); !ok {
		return
	}
	geofences, err := h.geofences.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, geofences)
}

func (h *Handler) listAlerts(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	window, ok := parseWindow(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	filter := model.AlertFilter{Window: window, Limit: limit}
	if raw := strings.TrimSpace(c.Query("vehicleId")); raw != "" {
		vehicleID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicleId"})
			return
		}
		filter.VehicleID = &vehicleID
	}

	alerts, err := h.geofences.Alerts(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, alerts)
}
