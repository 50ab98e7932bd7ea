package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/model"
)

const telemetryColumns = `
	id,
	seq,
	vehicle_id,
	imei,
	"timestamp",
	latitude,
	longitude,
	speed,
	ignition,
	motion,
	power,
	charge,
	fuel_level,
	total_distance,
	today_distance,
	raw,
	created_at`

type TelemetryRepository struct {
	db *gorm.DB
}

func NewTelemetryRepository(db *gorm.DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

func (r *TelemetryRepository) InsertTelemetry(ctx context.Context, e model.TelemetryEvent) (*model.TelemetryEvent, error) {
	var saved model.TelemetryEvent
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO telemetry (
			vehicle_id,
			imei,
			"timestamp",
			latitude,
			longitude,
			speed,
			ignition,
			motion,
			power,
			charge,
			fuel_level,
			total_distance,
			today_distance,
			raw
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING`+telemetryColumns,
		e.VehicleID,
		e.IMEI,
		e.Timestamp,
		e.Latitude,
		e.Longitude,
		e.Speed,
		e.Ignition,
		e.Motion,
		e.Power,
		e.Charge,
		e.FuelLevel,
		e.TotalDistance,
		e.TodayDistance,
		e.Raw,
	).Scan(&saved).Error
	if err != nil {
		return nil, translate(err)
	}
	return &saved, nil
}

// LatestTelemetry returns the newest sample by timestamp, ties going to the later insert.
func (r *TelemetryRepository) LatestTelemetry(ctx context.Context, vehicleID uuid.UUID) (*model.TelemetryEvent, error) {
	var e model.TelemetryEvent
	err := r.db.WithContext(ctx).Raw(`SELECT`+telemetryColumns+`
		FROM telemetry
		WHERE vehicle_id = ?
		ORDER BY "timestamp" DESC, seq DESC
		LIMIT 1
	`, vehicleID).Scan(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (r *TelemetryRepository) ListTelemetry(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]model.TelemetryEvent, error) {
	var rows []model.TelemetryEvent
	if err := r.db.WithContext(ctx).Raw(`SELECT`+telemetryColumns+`
		FROM telemetry
		WHERE vehicle_id = ?
			AND "timestamp" >= ?
			AND "timestamp" <= ?
		ORDER BY "timestamp" ASC, seq ASC
	`, vehicleID, from, to).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListTelemetryHistory returns samples newest first.
func (r *TelemetryRepository) ListTelemetryHistory(ctx context.Context, filter model.VehicleFilter) ([]model.TelemetryEvent, error) {
	filters := []string{"vehicle_id = ?"}
	args := []interface{}{filter.VehicleID}
	filters, args = whereWindow(`"timestamp"`, filter.Window, filters, args)
	query, args := buildQuery(`SELECT`+telemetryColumns+` FROM telemetry`, filters, `"timestamp" DESC, seq DESC`, filter.Limit, args)

	var rows []model.TelemetryEvent
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *TelemetryRepository) ListReplay(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]model.ReplayPoint, error) {
	var rows []model.ReplayPoint
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, "timestamp", latitude, longitude, speed, ignition, motion
		FROM telemetry
		WHERE vehicle_id = ?
			AND "timestamp" >= ?
			AND "timestamp" <= ?
		ORDER BY "timestamp" ASC, seq ASC
	`, vehicleID, from, to).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
