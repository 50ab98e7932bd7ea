package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/model"
)

const tripColumns = `
	id,
	vehicle_id,
	start_time,
	end_time,
	distance_km,
	created_at`

type TripRepository struct {
	db *gorm.DB
}

func NewTripRepository(db *gorm.DB) *TripRepository {
	return &TripRepository{db: db}
}

func (r *TripRepository) FindOpenTrip(ctx context.Context, vehicleID uuid.UUID) (*model.Trip, error) {
	var trip model.Trip
	err := r.db.WithContext(ctx).Raw(`SELECT`+tripColumns+`
		FROM trips
		WHERE vehicle_id = ?
			AND end_time IS NULL
		LIMIT 1
	`, vehicleID).Scan(&trip).Error
	if err != nil {
		return nil, err
	}
	if trip.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &trip, nil
}

// CreateTrip returns ErrDuplicate when the vehicle already has an open trip.
func (r *TripRepository) CreateTrip(ctx context.Context, trip model.Trip) (*model.Trip, error) {
	var saved model.Trip
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO trips (vehicle_id, start_time)
		VALUES (?, ?)
		RETURNING`+tripColumns,
		trip.VehicleID, trip.StartTime,
	).Scan(&saved).Error
	if err != nil {
		return nil, translate(err)
	}
	return &saved, nil
}

func (r *TripRepository) CloseTrip(ctx context.Context, id uuid.UUID, endTime time.Time, distanceKm float64) (*model.Trip, error) {
	var saved model.Trip
	err := r.db.WithContext(ctx).Raw(`
		UPDATE trips
		SET
			end_time = ?,
			distance_km = ?
		WHERE id = ?
		RETURNING`+tripColumns,
		endTime, distanceKm, id,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	if saved.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &saved, nil
}

func (r *TripRepository) ListTrips(ctx context.Context, filter model.VehicleFilter) ([]model.Trip, error) {
	filters := []string{"vehicle_id = ?"}
	args := []interface{}{filter.VehicleID}
	filters, args = whereWindow("start_time", filter.Window, filters, args)
	query, args := buildQuery(`SELECT`+tripColumns+` FROM trips`, filters, "start_time DESC", filter.Limit, args)

	var rows []model.Trip
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
