package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/model"
)

const vehicleColumns = `
	id,
	imei,
	registration_no,
	make,
	model,
	year,
	fuel_capacity,
	owner_id,
	last_lat,
	last_lng,
	last_seen,
	odometer,
	last_odometer,
	created_at`

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

func (r *VehicleRepository) CreateVehicle(ctx context.Context, v model.Vehicle) (*model.Vehicle, error) {
	var saved model.Vehicle
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO vehicles (
			imei,
			registration_no,
			make,
			model,
			year,
			fuel_capacity,
			owner_id,
			odometer
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING`+vehicleColumns,
		v.IMEI,
		v.RegistrationNo,
		v.Make,
		v.Model,
		v.Year,
		v.FuelCapacity,
		v.OwnerID,
		v.Odometer,
	).Scan(&saved).Error
	if err != nil {
		return nil, translate(err)
	}
	return &saved, nil
}

func (r *VehicleRepository) GetVehicle(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	return r.getBy(ctx, "id = ?", id)
}

func (r *VehicleRepository) GetVehicleByIMEI(ctx context.Context, imei string) (*model.Vehicle, error) {
	return r.getBy(ctx, "imei = ?", imei)
}

func (r *VehicleRepository) getBy(ctx context.Context, cond string, arg interface{}) (*model.Vehicle, error) {
	var v model.Vehicle
	err := r.db.WithContext(ctx).Raw(`SELECT`+vehicleColumns+`
		FROM vehicles
		WHERE `+cond+`
		LIMIT 1
	`, arg).Scan(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}

func (r *VehicleRepository) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	var rows []model.Vehicle
	if err := r.db.WithContext(ctx).Raw(`SELECT` + vehicleColumns + `
		FROM vehicles
		ORDER BY created_at ASC
	`).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdatePosition refreshes the last-known position cache.
func (r *VehicleRepository) UpdatePosition(ctx context.Context, id uuid.UUID, lat, lng float64, seenAt time.Time) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE vehicles
		SET
			last_lat = ?,
			last_lng = ?,
			last_seen = ?
		WHERE id = ?
	`, lat, lng, seenAt, id).Error
}

// UpdateOdometer moves the current odometer into last_odometer and stores reading in one statement.
func (r *VehicleRepository) UpdateOdometer(ctx context.Context, id uuid.UUID, reading float64) (*model.Vehicle, error) {
	var v model.Vehicle
	err := r.db.WithContext(ctx).Raw(`
		UPDATE vehicles
		SET
			last_odometer = COALESCE(odometer, 0),
			odometer = ?
		WHERE id = ?
		RETURNING`+vehicleColumns,
		reading, id,
	).Scan(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}

func (r *VehicleRepository) ListOdometerHistory(ctx context.Context, vehicleID uuid.UUID, limit int) ([]model.OdometerSample, error) {
	var rows []model.OdometerSample
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, "timestamp", total_distance, today_distance
		FROM telemetry
		WHERE vehicle_id = ?
			AND total_distance IS NOT NULL
		ORDER BY "timestamp" DESC, seq DESC
		LIMIT ?
	`, vehicleID, limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
