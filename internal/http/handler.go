package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nurpe/fleetwatch/internal/http/middleware"
	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/service"
)

type Ingester interface {
	Ingest(ctx context.Context, packet model.Packet) (*model.IngestResult, error)
}

type Services struct {
	Gateway   Ingester
	Vehicles  *service.VehicleService
	Queries   *service.QueryService
	Geofences *service.GeofenceService
	Reports   *service.ReportService
	// Feed is optional; stream routes answer 503 without it.
	Feed LiveFeed
}

type Handler struct {
	gateway   Ingester
	vehicles  *service.VehicleService
	queries   *service.QueryService
	geofences *service.GeofenceService
	reports   *service.ReportService
	feed      LiveFeed
	// same-origin only until NewRouter applies the configured origins
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewHandler(svc Services, log zerolog.Logger) *Handler {
	return &Handler{
		gateway:   svc.Gateway,
		vehicles:  svc.Vehicles,
		queries:   svc.Queries,
		geofences: svc.Geofences,
		reports:   svc.Reports,
		feed:      svc.Feed,
		log:       log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	telemetry := protected.Group("/telemetry")
	telemetry.POST("", h.ingest)
	telemetry.GET("/latest/:vehicleId", h.latestTelemetry)
	telemetry.GET("/history/:vehicleId", h.telemetryHistory)
	telemetry.GET("/replay/:vehicleId", h.replay)
	telemetry.GET("/stops/:vehicleId", h.listStops)
	telemetry.GET("/stops/:vehicleId/stats", h.stopStats)
	telemetry.GET("/trips/:vehicleId", h.listTrips)
	telemetry.GET("/scores/user/:userId", h.listScores)
	telemetry.GET("/scores/vehicle/:vehicleId", h.latestScore)

	vehicles := protected.Group("/vehicles")
	vehicles.GET("", h.listVehicles)
	vehicles.POST("", h.createVehicle)
	vehicles.GET("/:id", h.getVehicle)
	vehicles.GET("/:id/live", h.livePosition)
	vehicles.PUT("/:id/odometer", h.updateOdometer)
	vehicles.GET("/:id/odometer/history", h.odometerHistory)

	fuel := protected.Group("/fuel")
	fuel.GET("/logs", h.listFuelLogs)
	fuel.GET("/report", h.fuelReport)

	geofences := protected.Group("/geofences")
	geofences.GET("", h.listGeofences)
	geofences.POST("", h.createGeofence)
	geofences.GET("/alerts", h.listAlerts)

	reports := protected.Group("/reports")
	reports.POST("/vehicle/export", h.exportVehicleReport)
	reports.POST("/vehicle/export/pdf", h.exportVehicleReportPDF)

	stream := protected.Group("/stream")
	stream.GET("/alerts", h.streamAlerts)
	stream.GET("/telemetry", h.streamTelemetry)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusAccepted:
		c.JSON(status, gin.H{"status": "ignored", "reason": err.Error()})
	default:
		c.JSON(status, gin.H{"error": h.errorMessage(c, status, err)})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownVehicle):
		return http.StatusAccepted
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrLiveUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage hides internal failures from clients and logs them instead.
func (h *Handler) errorMessage(c *gin.Context, status int, err error) string {
	if status != http.StatusInternalServerError {
		return err.Error()
	}
	h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	return "internal error"
}

func mustPrincipal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
	}
	return principal, ok
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// parseWindow reads the optional startDate/endDate query pair.
func parseWindow(c *gin.Context) (model.TimeWindow, bool) {
	var w model.TimeWindow
	if raw := c.Query("startDate"); raw != "" {
		from, err := parseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startDate"})
			return w, false
		}
		w.From = from
	}
	if raw := c.Query("endDate"); raw != "" {
		to, err := parseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endDate"})
			return w, false
		}
		w.To = to
	}
	return w, true
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return 0, false
	}
	return limit, true
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}
