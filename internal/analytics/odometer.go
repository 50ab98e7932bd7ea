package analytics

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/nurpe/fleetwatch/internal/geo"
	"github.com/nurpe/fleetwatch/internal/model"
)

type TamperType string

const (
	TamperNone     TamperType = ""
	TamperRollback TamperType = "rollback"
	TamperFrozen   TamperType = "frozen"
	TamperJump     TamperType = "jump"
)

const minGPSDistanceKm = 0.1

type OdometerCheck struct {
	Tampered           bool       `json:"tampered"`
	Type               TamperType `json:"type,omitempty"`
	GPSDistanceKm      float64    `json:"gps_distance_km"`
	OdometerDelta      float64    `json:"odometer_delta"`
	CurrentOdometer    float64    `json:"current_odometer"`
	LastOdometer       float64    `json:"last_odometer"`
	Discrepancy        *float64   `json:"discrepancy,omitempty"`
	DiscrepancyPercent *float64   `json:"discrepancy_percent,omitempty"`
	Skipped            bool       `json:"skipped"`
}

// Severity is the alert severity raised for a tampered check.
func (c OdometerCheck) Severity() model.Severity {
	if c.Type == TamperRollback {
		return model.SeverityCritical
	}
	return model.SeverityWarning
}

// EvaluateOdometer compares GPS distance with the odometer delta. Checks run in order and the
// first match wins: rollback, frozen, jump.
func EvaluateOdometer(gpsKm, lastOdometer, currentOdometer float64) OdometerCheck {
	check := OdometerCheck{
		GPSDistanceKm:   gpsKm,
		OdometerDelta:   currentOdometer - lastOdometer,
		CurrentOdometer: currentOdometer,
		LastOdometer:    lastOdometer,
	}
	if gpsKm < minGPSDistanceKm {
		check.Skipped = true
		return check
	}

	delta := check.OdometerDelta
	switch {
	case delta < 0:
		check.Tampered, check.Type = true, TamperRollback
		check.Discrepancy = &delta
	case gpsKm > 1 && delta < gpsKm*0.5:
		check.Tampered, check.Type = true, TamperFrozen
		check.setDiscrepancy(gpsKm - delta)
	case gpsKm > 1 && delta > gpsKm*1.5:
		check.Tampered, check.Type = true, TamperJump
		check.setDiscrepancy(delta - gpsKm)
	}
	return check
}

func (c *OdometerCheck) setDiscrepancy(value float64) {
	pct := value / c.GPSDistanceKm * 100
	c.Discrepancy = &value
	c.DiscrepancyPercent = &pct
}

// OdometerDetector flags rollback, frozen and jumping odometers.
type OdometerDetector struct {
	store  OdometerStore
	alerts *AlertRecorder
}

func NewOdometerDetector(store OdometerStore, alerts *AlertRecorder) *OdometerDetector {
	return &OdometerDetector{store: store, alerts: alerts}
}

func (d *OdometerDetector) Kind() Kind { return KindOdometer }

func (d *OdometerDetector) Analyze(ctx context.Context, sample Sample) error {
	_, err := d.Check(ctx, sample)
	return err
}

func (d *OdometerDetector) Check(ctx context.Context, sample Sample) (OdometerCheck, error) {
	if sample.Previous == nil {
		return OdometerCheck{Skipped: true}, nil
	}
	prev, cur := sample.Previous, sample.Current

	gpsKm := geo.DistanceKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
	check := EvaluateOdometer(gpsKm, floatOrZero(prev.TotalDistance), floatOrZero(cur.TotalDistance))
	if !check.Tampered {
		return check, nil
	}

	_, err := d.alerts.Record(ctx, model.GeofenceAlert{
		VehicleID: sample.Vehicle.ID,
		Kind:      tamperAlertKind(check.Type),
		Severity:  check.Severity(),
		Message:   tamperMessage(sample.Vehicle, check),
	})
	return check, err
}

// UpdateOdometer stores a new reading, keeping the old one as the previous snapshot.
func (d *OdometerDetector) UpdateOdometer(ctx context.Context, vehicleID uuid.UUID, reading float64) (*model.Vehicle, error) {
	return d.store.UpdateOdometer(ctx, vehicleID, reading)
}

func (d *OdometerDetector) History(ctx context.Context, vehicleID uuid.UUID, limit int) ([]model.OdometerSample, error) {
	if limit <= 0 {
		limit = 50
	}
	return d.store.ListOdometerHistory(ctx, vehicleID, limit)
}

func tamperAlertKind(t TamperType) model.AlertKind {
	switch t {
	case TamperRollback:
		return model.AlertOdometerRollback
	case TamperFrozen:
		return model.AlertOdometerFrozen
	default:
		return model.AlertOdometerJump
	}
}

func tamperMessage(vehicle model.Vehicle, check OdometerCheck) string {
	switch check.Type {
	case TamperRollback:
		return fmt.Sprintf("Odometer rollback detected for %s: %.1f km", vehicle.Label(), math.Abs(check.OdometerDelta))
	case TamperFrozen:
		return fmt.Sprintf("Possible odometer freeze for %s: GPS %.1fkm vs ODO %.1fkm", vehicle.Label(), check.GPSDistanceKm, check.OdometerDelta)
	default:
		return fmt.Sprintf("Unusual odometer jump for %s: GPS %.1fkm vs ODO %.1fkm", vehicle.Label(), check.GPSDistanceKm, check.OdometerDelta)
	}
}
