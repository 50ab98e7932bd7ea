package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/analytics"
	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/repository"
	"github.com/nurpe/fleetwatch/internal/repository/memstore"
)

type VehicleStore interface {
	CreateVehicle(ctx context.Context, v model.Vehicle) (*model.Vehicle, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	GetVehicleByIMEI(ctx context.Context, imei string) (*model.Vehicle, error)
	ListVehicles(ctx context.Context) ([]model.Vehicle, error)
	UpdatePosition(ctx context.Context, id uuid.UUID, lat, lng float64, seenAt time.Time) error
	analytics.OdometerStore
}

type TelemetryStore interface {
	InsertTelemetry(ctx context.Context, e model.TelemetryEvent) (*model.TelemetryEvent, error)
	LatestTelemetry(ctx context.Context, vehicleID uuid.UUID) (*model.TelemetryEvent, error)
	ListTelemetryHistory(ctx context.Context, filter model.VehicleFilter) ([]model.TelemetryEvent, error)
	ListReplay(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]model.ReplayPoint, error)
	analytics.TelemetryReader
}

type StopStore interface {
	analytics.StopStore
	ListStops(ctx context.Context, filter model.VehicleFilter) ([]model.Stop, error)
	ListClosedStops(ctx context.Context, vehicleID uuid.UUID, window model.TimeWindow) ([]model.Stop, error)
}

type TripStore interface {
	analytics.TripStore
	ListTrips(ctx context.Context, filter model.VehicleFilter) ([]model.Trip, error)
}

type FuelStore interface {
	analytics.FuelStore
	ListFuelLogs(ctx context.Context, filter model.VehicleFilter) ([]model.FuelLog, error)
	FuelSummary(ctx context.Context, vehicleID uuid.UUID, limit int) (*model.FuelSummary, error)
}

type GeofenceStore interface {
	CreateGeofence(ctx context.Context, g model.Geofence) (*model.Geofence, error)
	analytics.GeofenceLister
	analytics.AlertStore
	ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.GeofenceAlert, error)
}

type ScoreStore interface {
	analytics.ScoreStore
	ListScores(ctx context.Context, userID uuid.UUID, period model.ScorePeriod, limit int) ([]model.DriverScore, error)
	LatestScore(ctx context.Context, vehicleID uuid.UUID) (*model.DriverScore, error)
}

// Stores bundles one backend's repositories.
type Stores struct {
	Vehicles  VehicleStore
	Telemetry TelemetryStore
	Stops     StopStore
	Trips     TripStore
	Fuel      FuelStore
	Geofences GeofenceStore
	Scores    ScoreStore
}

func PostgresStores(db *gorm.DB) Stores {
	return Stores{
		Vehicles:  repository.NewVehicleRepository(db),
		Telemetry: repository.NewTelemetryRepository(db),
		Stops:     repository.NewStopRepository(db),
		Trips:     repository.NewTripRepository(db),
		Fuel:      repository.NewFuelRepository(db),
		Geofences: repository.NewGeofenceRepository(db),
		Scores:    repository.NewScoreRepository(db),
	}
}

func MemoryStores(store *memstore.Store) Stores {
	return Stores{
		Vehicles:  store,
		Telemetry: store,
		Stops:     store,
		Trips:     store,
		Fuel:      store,
		Geofences: store,
		Scores:    store,
	}
}
