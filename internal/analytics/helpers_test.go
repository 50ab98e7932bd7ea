package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/repository/memstore"
)

var baseTime = time.Date(2024, 5, 6, 10, 30, 0, 0, time.UTC)

func testVehicle() model.Vehicle {
	return model.Vehicle{ID: uuid.New(), IMEI: "359633100000001"}
}

func event(vehicle model.Vehicle, at time.Time, lat, lng, speed float64, motion bool) model.TelemetryEvent {
	return model.TelemetryEvent{
		ID:        uuid.New(),
		VehicleID: vehicle.ID,
		IMEI:      vehicle.IMEI,
		Timestamp: at,
		Latitude:  lat,
		Longitude: lng,
		Speed:     speed,
		Motion:    motion,
	}
}

func sampleOf(vehicle model.Vehicle, prev *model.TelemetryEvent, cur model.TelemetryEvent) Sample {
	s := Sample{Vehicle: vehicle, Previous: prev, Current: cur, State: model.ClassifyMotion(cur.Speed, cur.Motion)}
	if prev != nil {
		s.DistanceKm = TripDistanceKm([]model.TelemetryEvent{*prev, cur})
	}
	return s
}

func newRecorder(store *memstore.Store) *AlertRecorder {
	return NewAlertRecorder(store, nil, zerolog.Nop())
}

func listAlerts(t *testing.T, store *memstore.Store, vehicleID uuid.UUID) []model.GeofenceAlert {
	t.Helper()
	alerts, err := store.ListAlerts(context.Background(), model.AlertFilter{VehicleID: &vehicleID})
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	return alerts
}

func ptr[T any](v T) *T { return &v }
