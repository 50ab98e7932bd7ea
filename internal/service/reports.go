package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/analytics"
	"github.com/nurpe/fleetwatch/internal/model"
)

type ReportGenerator interface {
	Generate(report model.VehicleReport) ([]byte, error)
}

type ReportFormat string

const (
	FormatXLSX ReportFormat = "xlsx"
	FormatPDF  ReportFormat = "pdf"
)

type ReportService struct {
	stores Stores
	excel  ReportGenerator
	pdf    ReportGenerator
}

type GenerateReportInput struct {
	VehicleID   uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	Format      ReportFormat
	Principal   model.Principal
}

type GenerateReportResult struct {
	FileName string
	Content  []byte
}

func NewReportService(stores Stores, excel, pdf ReportGenerator) *ReportService {
	return &ReportService{stores: stores, excel: excel, pdf: pdf}
}

func (s *ReportService) GenerateReport(ctx context.Context, input GenerateReportInput) (*GenerateReportResult, error) {
	if input.VehicleID == uuid.Nil {
		return nil, fmt.Errorf("%w: vehicle_id is required", ErrInvalidInput)
	}
	if input.PeriodStart.IsZero() || input.PeriodEnd.IsZero() {
		return nil, fmt.Errorf("%w: period dates are required", ErrInvalidInput)
	}

	periodStart := dateOnly(input.PeriodStart)
	periodEnd := dateOnly(input.PeriodEnd)
	if periodStart.After(periodEnd) {
		return nil, fmt.Errorf("%w: period_start must be before or equal to period_end", ErrInvalidInput)
	}

	generator := s.excel
	if input.Format == FormatPDF {
		generator = s.pdf
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidInput, input.Format)
	}

	report, err := s.BuildReport(ctx, input.Principal, input.VehicleID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	content, err := generator.Generate(*report)
	if err != nil {
		return nil, err
	}

	return &GenerateReportResult{
		FileName: buildFileName(*report, input.Format),
		Content:  content,
	}, nil
}

// BuildReport collects vehicle activity for whole days [periodStart, periodEnd].
func (s *ReportService) BuildReport(ctx context.Context, p model.Principal, vehicleID uuid.UUID, periodStart, periodEnd time.Time) (*model.VehicleReport, error) {
	vehicle, err := loadVehicle(ctx, s.stores.Vehicles, p, vehicleID)
	if err != nil {
		return nil, err
	}

	endExclusive := periodEnd.Add(24 * time.Hour)
	window := model.TimeWindow{From: periodStart, To: endExclusive.Add(-time.Nanosecond)}
	filter := model.VehicleFilter{VehicleID: vehicleID, Window: window, Limit: maxLimit}

	trips, err := s.stores.Trips.ListTrips(ctx, filter)
	if err != nil {
		return nil, err
	}
	stops, err := s.stores.Stops.ListStops(ctx, filter)
	if err != nil {
		return nil, err
	}
	closed, err := s.stores.Stops.ListClosedStops(ctx, vehicleID, window)
	if err != nil {
		return nil, err
	}
	fuelLogs, err := s.stores.Fuel.ListFuelLogs(ctx, filter)
	if err != nil {
		return nil, err
	}
	alerts, err := s.stores.Geofences.ListAlerts(ctx, model.AlertFilter{VehicleID: &vehicleID, Window: window, Limit: maxLimit})
	if err != nil {
		return nil, err
	}

	var score *model.DriverScore
	if latest, err := s.stores.Scores.LatestScore(ctx, vehicleID); err == nil {
		score = latest
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return &model.VehicleReport{
		Vehicle:     *vehicle,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Trips:       trips,
		Stops:       stops,
		StopStats:   analytics.SummarizeStops(closed),
		FuelLogs:    fuelLogs,
		Alerts:      alerts,
		Score:       score,
	}, nil
}

func buildFileName(report model.VehicleReport, format ReportFormat) string {
	if format == "" {
		format = FormatXLSX
	}
	target := sanitizeFileName(report.Vehicle.IMEI)
	if report.Vehicle.RegistrationNo != nil {
		if reg := sanitizeFileName(*report.Vehicle.RegistrationNo); reg != "" {
			target = reg
		}
	}
	if target == "" {
		target = report.Vehicle.ID.String()
	}
	period := fmt.Sprintf("%s-%s", report.PeriodStart.Format("20060102"), report.PeriodEnd.Format("20060102"))
	return fmt.Sprintf("vehicle-%s-%s.%s", target, period, format)
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
