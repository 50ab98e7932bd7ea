package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/model"
)

const (
	geofenceColumns = `
	id,
	name,
	type,
	center_lat,
	center_lng,
	radius,
	polygon,
	scheduled_at,
	created_at`

	alertColumns = `
	id,
	geofence_id,
	vehicle_id,
	kind,
	message,
	severity,
	created_at`
)

type GeofenceRepository struct {
	db *gorm.DB
}

func NewGeofenceRepository(db *gorm.DB) *GeofenceRepository {
	return &GeofenceRepository{db: db}
}

func (r *GeofenceRepository) CreateGeofence(ctx context.Context, g model.Geofence) (*model.Geofence, error) {
	var saved model.Geofence
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO geofences (
			name,
			type,
			center_lat,
			center_lng,
			radius,
			polygon,
			scheduled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING`+geofenceColumns,
		g.Name,
		g.Type,
		g.CenterLat,
		g.CenterLng,
		g.Radius,
		g.Polygon,
		g.ScheduledAt,
	).Scan(&saved).Error
	if err != nil {
		return nil, translate(err)
	}
	return &saved, nil
}

func (r *GeofenceRepository) ListGeofences(ctx context.Context) ([]model.Geofence, error) {
	var rows []model.Geofence
	if err := r.db.WithContext(ctx).Raw(`SELECT` + geofenceColumns + `
		FROM geofences
		ORDER BY name ASC
	`).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GeofenceRepository) CreateAlert(ctx context.Context, alert model.GeofenceAlert) (*model.GeofenceAlert, error) {
	var saved model.GeofenceAlert
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO geofence_alerts (geofence_id, vehicle_id, kind, message, severity)
		VALUES (?, ?, ?, ?, ?::alert_severity)
		RETURNING`+alertColumns,
		alert.GeofenceID,
		alert.VehicleID,
		alert.Kind,
		alert.Message,
		alert.Severity,
	).Scan(&saved).Error
	if err != nil {
		return nil, translate(err)
	}
	return &saved, nil
}

// ListAlerts returns alerts newest first; a nil VehicleID lists every vehicle.
func (r *GeofenceRepository) ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.GeofenceAlert, error) {
	var filters []string
	var args []interface{}
	if filter.VehicleID != nil {
		filters = append(filters, "vehicle_id = ?")
		args = append(args, *filter.VehicleID)
	}
	filters, args = whereWindow("created_at", filter.Window, filters, args)
	query, args := buildQuery(`SELECT`+alertColumns+` FROM geofence_alerts`, filters, "created_at DESC", filter.Limit, args)

	var rows []model.GeofenceAlert
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
