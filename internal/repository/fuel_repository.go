package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/model"
)

const fuelLogColumns = `
	id,
	vehicle_id,
	previous_fuel,
	current_fuel,
	delta,
	distance_km,
	suspicion,
	notes,
	created_at`

type FuelRepository struct {
	db *gorm.DB
}

func NewFuelRepository(db *gorm.DB) *FuelRepository {
	return &FuelRepository{db: db}
}

func (r *FuelRepository) LatestFuelLog(ctx context.Context, vehicleID uuid.UUID) (*model.FuelLog, error) {
	var log model.FuelLog
	err := r.db.WithContext(ctx).Raw(`SELECT`+fuelLogColumns+`
		FROM fuel_logs
		WHERE vehicle_id = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`, vehicleID).Scan(&log).Error
	if err != nil {
		return nil, err
	}
	if log.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &log, nil
}

func (r *FuelRepository) CreateFuelLog(ctx context.Context, log model.FuelLog) (*model.FuelLog, error) {
	var saved model.FuelLog
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO fuel_logs (
			vehicle_id,
			previous_fuel,
			current_fuel,
			delta,
			distance_km,
			suspicion,
			notes
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING`+fuelLogColumns,
		log.VehicleID,
		log.PreviousFuel,
		log.CurrentFuel,
		log.Delta,
		log.DistanceKm,
		log.Suspicion,
		log.Notes,
	).Scan(&saved).Error
	if err != nil {
		return nil, translate(err)
	}
	return &saved, nil
}

func (r *FuelRepository) ListFuelLogs(ctx context.Context, filter model.VehicleFilter) ([]model.FuelLog, error) {
	filters := []string{"vehicle_id = ?"}
	args := []interface{}{filter.VehicleID}
	filters, args = whereWindow("created_at", filter.Window, filters, args)
	query, args := buildQuery(`SELECT`+fuelLogColumns+` FROM fuel_logs`, filters, "created_at DESC, seq DESC", filter.Limit, args)

	var rows []model.FuelLog
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FuelSummary totals the deltas of the latest limit logs.
func (r *FuelRepository) FuelSummary(ctx context.Context, vehicleID uuid.UUID, limit int) (*model.FuelSummary, error) {
	var row struct {
		TotalDelta float64
		Count      int
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(delta), 0) AS total_delta, COUNT(*) AS count
		FROM (
			SELECT delta
			FROM fuel_logs
			WHERE vehicle_id = ?
			ORDER BY created_at DESC, seq DESC
			LIMIT ?
		) recent
	`, vehicleID, limit).Scan(&row).Error; err != nil {
		return nil, err
	}
	return &model.FuelSummary{VehicleID: vehicleID, TotalDelta: row.TotalDelta, Count: row.Count}, nil
}
