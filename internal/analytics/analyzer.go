// Package analytics holds the per-packet analyzers and the driver score engine.
//
// Every analyzer reads only the Sample it is given plus its own persisted state, so the
// analyzers for one packet can run in any order relative to each other. Callers are
// expected to serialize calls for the same (vehicle, Kind) pair.
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/fleetwatch/internal/model"
)

type Kind string

const (
	KindStop     Kind = "stop"
	KindTrip     Kind = "trip"
	KindFuel     Kind = "fuel"
	KindOdometer Kind = "odometer"
	KindGeofence Kind = "geofence"
	KindScore    Kind = "score"
)

// Sample is the input shared by every analyzer for a single packet.
type Sample struct {
	Vehicle    model.Vehicle
	Previous   *model.TelemetryEvent
	Current    model.TelemetryEvent
	DistanceKm float64
	State      model.MotionState
}

type Analyzer interface {
	Kind() Kind
	Analyze(ctx context.Context, sample Sample) error
}

type TelemetryReader interface {
	// ListTelemetry returns samples with from <= timestamp <= to, oldest first.
	ListTelemetry(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]model.TelemetryEvent, error)
}

type StopStore interface {
	FindOpenStop(ctx context.Context, vehicleID uuid.UUID) (*model.Stop, error)
	CreateStop(ctx context.Context, stop model.Stop) (*model.Stop, error)
	CloseStop(ctx context.Context, id uuid.UUID, endTime time.Time, durationSec int64) (*model.Stop, error)
	DeleteStop(ctx context.Context, id uuid.UUID) error
}

type TripStore interface {
	FindOpenTrip(ctx context.Context, vehicleID uuid.UUID) (*model.Trip, error)
	CreateTrip(ctx context.Context, trip model.Trip) (*model.Trip, error)
	CloseTrip(ctx context.Context, id uuid.UUID, endTime time.Time, distanceKm float64) (*model.Trip, error)
}

type FuelStore interface {
	LatestFuelLog(ctx context.Context, vehicleID uuid.UUID) (*model.FuelLog, error)
	CreateFuelLog(ctx context.Context, log model.FuelLog) (*model.FuelLog, error)
}

type GeofenceLister interface {
	ListGeofences(ctx context.Context) ([]model.Geofence, error)
}

type OdometerStore interface {
	UpdateOdometer(ctx context.Context, vehicleID uuid.UUID, reading float64) (*model.Vehicle, error)
	ListOdometerHistory(ctx context.Context, vehicleID uuid.UUID, limit int) ([]model.OdometerSample, error)
}

type ScoreStore interface {
	// UpsertScore inserts or updates the row keyed by (user, vehicle, period, period start).
	UpsertScore(ctx context.Context, score model.DriverScore) (*model.DriverScore, error)
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
