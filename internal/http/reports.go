package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/fleetwatch/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type exportReportRequest struct {
	VehicleID   string `json:"vehicle_id" binding:"required"`
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
}

func (h *Handler) exportVehicleReport(c *gin.Context) {
	h.exportReport(c, service.FormatXLSX, xlsxContentType)
}

func (h *Handler) exportVehicleReportPDF(c *gin.Context) {
	h.exportReport(c, service.FormatPDF, "application/pdf")
}

func (h *Handler) exportReport(c *gin.Context, format service.ReportFormat, contentType string) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req exportReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vehicleID, err := uuid.Parse(strings.TrimSpace(req.VehicleID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle_id"})
		return
	}

	start, err := parseDate(req.PeriodStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_start"})
		return
	}

	end, err := parseDate(req.PeriodEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_end"})
		return
	}

	result, err := h.reports.GenerateReport(c.Request.Context(), service.GenerateReportInput{
		VehicleID:   vehicleID,
		PeriodStart: start,
		PeriodEnd:   end,
		Format:      format,
		Principal:   principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentType, result.Content)
}
