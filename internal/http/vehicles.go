package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/fleetwatch/internal/service"
)

type createVehicleRequest struct {
	IMEI           string   `json:"imei" binding:"required"`
	RegistrationNo *string  `json:"registration_no"`
	Make           *string  `json:"make"`
	Model          *string  `json:"model"`
	Year           *int     `json:"year"`
	FuelCapacity   *float64 `json:"fuel_capacity"`
	Odometer       *float64 `json:"odometer"`
}

func (h *Handler) createVehicle(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req createVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vehicle, err := h.vehicles.Create(c.Request.Context(), service.CreateVehicleInput{
		IMEI:           strings.TrimSpace(req.IMEI),
		RegistrationNo: req.RegistrationNo,
		Make:           req.Make,
		Model:          req.Model,
		Year:           req.Year,
		FuelCapacity:   req.FuelCapacity,
		Odometer:       req.Odometer,
		Principal:      principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, vehicle)
}

func (h *Handler) listVehicles(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	vehicles, err := h.vehicles.List(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, vehicles)
}

func (h *Handler) getVehicle(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	vehicle, err := h.vehicles.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, vehicle)
}

func (h *Handler) livePosition(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	position, err := h.vehicles.Live(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, position)
}

type updateOdometerRequest struct {
	Odometer *float64 `json:"odometer" binding:"required"`
}

func (h *Handler) updateOdometer(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req updateOdometerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vehicle, err := h.vehicles.UpdateOdometer(c.Request.Context(), principal, id, *req.Odometer)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, vehicle)
}

func (h *Handler) odometerHistory(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	history, err := h.vehicles.OdometerHistory(c.Request.Context(), principal, id, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, history)
}
