package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/service"
	"github.com/nurpe/fleetwatch/internal/vendor"
)

const maxIngestBody = 4 << 20

// ingest accepts one packet or an array of packets, in the canonical shape or in a vendor
// format selected by ?vendor=. Packets are stored in order; when one fails after others were
// stored, the response carries the stored results and the index of the failing packet.
func (h *Handler) ingest(c *gin.Context) {
	parser, err := vendor.ParserFor(c.Query("vendor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIngestBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	packets, err := parser.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(packets) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no packets in payload"})
		return
	}

	results := make([]model.IngestResult, 0, len(packets))
	ignored := 0
	for i, packet := range packets {
		res, err := h.gateway.Ingest(c.Request.Context(), packet)
		if errors.Is(err, service.ErrUnknownVehicle) {
			ignored++
			continue
		}
		if err != nil {
			if i == 0 {
				h.handleError(c, err)
				return
			}
			// earlier packets are already stored and cannot be rolled back
			status := statusFor(err)
			c.JSON(status, gin.H{
				"success":      false,
				"error":        h.errorMessage(c, status, err),
				"failed_index": i,
				"data":         results,
				"ignored":      ignored,
			})
			return
		}
		results = append(results, *res)
	}

	if len(results) == 0 {
		h.handleError(c, service.ErrUnknownVehicle)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": results, "ignored": ignored})
}

func (h *Handler) latestTelemetry(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	vehicleID, ok := parseUUIDParam(c, "vehicleId")
	if !ok {
		return
	}
	event, err := h.queries.LatestTelemetry(c.Request.Context(), principal, vehicleID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, event)
}

func (h *Handler) telemetryHistory(c *gin.Context) {
	principal, filter, ok := h.vehicleFilter(c)
	if !ok {
		return
	}
	events, err := h.queries.History(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, events)
}

func (h *Handler) replay(c *gin.Context) {
	principal, filter, ok := h.vehicleFilter(c)
	if !ok {
		return
	}
	points, err := h.queries.Replay(c.Request.Context(), principal, filter.VehicleID, filter.Window)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, points)
}

// vehicleFilter reads the :vehicleId param with the optional window and limit.
func (h *Handler) vehicleFilter(c *gin.Context) (model.Principal, model.VehicleFilter, bool) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return principal, model.VehicleFilter{}, false
	}
	vehicleID, ok := parseUUIDParam(c, "vehicleId")
	if !ok {
		return principal, model.VehicleFilter{}, false
	}
	window, ok := parseWindow(c)
	if !ok {
		return principal, model.VehicleFilter{}, false
	}
	limit, ok := parseLimit(c)
	if !ok {
		return principal, model.VehicleFilter{}, false
	}
	return principal, model.VehicleFilter{VehicleID: vehicleID, Window: window, Limit: limit}, true
}
