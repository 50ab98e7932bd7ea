package analytics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/nurpe/fleetwatch/internal/geo"
	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/repository/memstore"
)

func TestTripManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	manager := NewTripManager(store, store)
	vehicle := testVehicle()

	route := []model.TelemetryEvent{
		event(vehicle, baseTime, 12.9716, 77.5946, 30, true),
		event(vehicle, baseTime.Add(1*time.Minute), 12.9750, 77.5990, 42, true),
		event(vehicle, baseTime.Add(2*time.Minute), 12.9801, 77.6032, 3, false),
		event(vehicle, baseTime.Add(3*time.Minute), 12.9844, 77.6101, 0, false),
	}
	for _, e := range route {
		if _, err := store.InsertTelemetry(ctx, e); err != nil {
			t.Fatalf("insert telemetry: %v", err)
		}
	}

	opened, err := manager.Track(ctx, sampleOf(vehicle, nil, route[0]))
	if err != nil || opened == nil {
		t.Fatalf("expected trip to open, got %v, %v", opened, err)
	}
	if !opened.StartTime.Equal(baseTime) {
		t.Fatalf("trip should start at first moving sample, got %v", opened.StartTime)
	}

	again, err := manager.Track(ctx, sampleOf(vehicle, &route[0], route[1]))
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if again.ID != opened.ID {
		t.Fatalf("second moving sample opened another trip")
	}

	idle := sampleOf(vehicle, &route[1], route[2])
	if idle.State != model.StateIdle {
		t.Fatalf("expected idle state, got %s", idle.State)
	}
	if trip, err := manager.Track(ctx, idle); err != nil || trip != nil {
		t.Fatalf("idle sample must not change the trip: %v, %v", trip, err)
	}

	closed, err := manager.Track(ctx, sampleOf(vehicle, &route[2], route[3]))
	if err != nil {
		t.Fatalf("close trip: %v", err)
	}
	if closed.EndTime == nil || !closed.EndTime.Equal(route[3].Timestamp) {
		t.Fatalf("unexpected end time %v", closed.EndTime)
	}

	want := 0.0
	for i := 1; i < len(route); i++ {
		want += geo.DistanceKm(route[i-1].Latitude, route[i-1].Longitude, route[i].Latitude, route[i].Longitude)
	}
	if closed.DistanceKm == nil || math.Abs(*closed.DistanceKm-want) > 1e-9 {
		t.Fatalf("distance = %v, want %v", closed.DistanceKm, want)
	}

	if _, err := store.FindOpenTrip(ctx, vehicle.ID); err == nil {
		t.Fatalf("no trip should remain open")
	}
}

func TestTripManagerStoppedWithoutOpenTrip(t *testing.T) {
	store := memstore.New()
	manager := NewTripManager(store, store)
	vehicle := testVehicle()

	trip, err := manager.Track(context.Background(), sampleOf(vehicle, nil, event(vehicle, baseTime, 12.97, 77.59, 0, false)))
	if err != nil || trip != nil {
		t.Fatalf("expected no-op, got %v, %v", trip, err)
	}
	trips, _ := store.ListTrips(context.Background(), model.VehicleFilter{VehicleID: vehicle.ID})
	if len(trips) != 0 {
		t.Fatalf("expected no trips, got %d", len(trips))
	}
}

func TestTripDistanceKm(t *testing.T) {
	if got := TripDistanceKm(nil); got != 0 {
		t.Fatalf("empty trip distance = %v", got)
	}
	vehicle := testVehicle()
	one := []model.TelemetryEvent{event(vehicle, baseTime, 12.97, 77.59, 0, false)}
	if got := TripDistanceKm(one); got != 0 {
		t.Fatalf("single sample distance = %v", got)
	}
}
