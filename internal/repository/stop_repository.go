package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/model"
)

const stopColumns = `
	id,
	vehicle_id,
	latitude,
	longitude,
	start_time,
	end_time,
	duration,
	created_at`

type StopRepository struct {
	db *gorm.DB
}

func NewStopRepository(db *gorm.DB) *StopRepository {
	return &StopRepository{db: db}
}

func (r *StopRepository) FindOpenStop(ctx context.Context, vehicleID uuid.UUID) (*model.Stop, error) {
	var stop model.Stop
	err := r.db.WithContext(ctx).Raw(`SELECT`+stopColumns+`
		FROM stops
		WHERE vehicle_id = ?
			AND end_time IS NULL
		LIMIT 1
	`, vehicleID).Scan(&stop).Error
	if err != nil {
		return nil, err
	}
	if stop.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &stop, nil
}

// CreateStop returns ErrDuplicate when the vehicle already has an open stop.
func (r *StopRepository) CreateStop(ctx context.Context, stop model.Stop) (*model.Stop, error) {
	var saved model.Stop
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO stops (vehicle_id, latitude, longitude, start_time)
		VALUES (?, ?, ?, ?)
		RETURNING`+stopColumns,
		stop.VehicleID, stop.Latitude, stop.Longitude, stop.StartTime,
	).Scan(&saved).Error
	if err != nil {
		return nil, translate(err)
	}
	return &saved, nil
}

func (r *StopRepository) CloseStop(ctx context.Context, id uuid.UUID, endTime time.Time, durationSec int64) (*model.Stop, error) {
	var saved model.Stop
	err := r.db.WithContext(ctx).Raw(`
		UPDATE stops
		SET
			end_time = ?,
			duration = ?
		WHERE id = ?
		RETURNING`+stopColumns,
		endTime, durationSec, id,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	if saved.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &saved, nil
}

func (r *StopRepository) DeleteStop(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`DELETE FROM stops WHERE id = ?`, id).Error
}

// ListStops returns stops starting inside the window, newest first.
func (r *StopRepository) ListStops(ctx context.Context, filter model.VehicleFilter) ([]model.Stop, error) {
	filters := []string{"vehicle_id = ?"}
	args := []interface{}{filter.VehicleID}
	filters, args = whereWindow("start_time", filter.Window, filters, args)
	query, args := buildQuery(`SELECT`+stopColumns+` FROM stops`, filters, "start_time DESC", filter.Limit, args)

	var rows []model.Stop
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *StopRepository) ListClosedStops(ctx context.Context, vehicleID uuid.UUID, window model.TimeWindow) ([]model.Stop, error) {
	filters := []string{"vehicle_id = ?", "end_time IS NOT NULL"}
	args := []interface{}{vehicleID}
	filters, args = whereWindow("start_time", window, filters, args)
	query, args := buildQuery(`SELECT`+stopColumns+` FROM stops`, filters, "start_time ASC", 0, args)

	var rows []model.Stop
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
