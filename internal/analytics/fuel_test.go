package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/repository/memstore"
)

func TestClassifyFuelDrop(t *testing.T) {
	tests := []struct {
		name     string
		drop     float64
		distance float64
		want     model.Suspicion
	}{
		{"large drop parked", 25, 0.9, model.SuspicionRed},
		{"just under red", 24.9, 0.9, model.SuspicionBlue},
		{"medium drop short hop", 24.9, 1.5, model.SuspicionBlue},
		{"medium drop long drive", 24.9, 2.5, model.SuspicionGreen},
		{"small drop parked", 2, 0.5, model.SuspicionBlue},
		{"small drop driving", 2, 1, model.SuspicionGreen},
		{"normal consumption", 1, 5, model.SuspicionGreen},
		{"no drop", 0, 0, model.SuspicionGreen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyFuelDrop(tt.drop, tt.distance); got != tt.want {
				t.Fatalf("ClassifyFuelDrop(%v, %v) = %s, want %s", tt.drop, tt.distance, got, tt.want)
			}
		})
	}
}

func TestFuelDetectorSkipsWithoutReadings(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	detector := NewFuelDetector(store)
	vehicle := testVehicle()

	cur := event(vehicle, baseTime, 12.97, 77.59, 0, false)
	got, err := detector.Inspect(ctx, sampleOf(vehicle, nil, cur))
	if err != nil || got != model.SuspicionGreen {
		t.Fatalf("no fuel reading: got %s, %v", got, err)
	}

	cur.Charge = ptr(40.0)
	got, err = detector.Inspect(ctx, sampleOf(vehicle, nil, cur))
	if err != nil || got != model.SuspicionGreen {
		t.Fatalf("no baseline: got %s, %v", got, err)
	}

	logs, _ := store.ListFuelLogs(ctx, model.VehicleFilter{VehicleID: vehicle.ID})
	if len(logs) != 0 {
		t.Fatalf("expected no fuel logs, got %d", len(logs))
	}
}

func TestFuelDetectorLogsDrops(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	detector := NewFuelDetector(store)
	vehicle := testVehicle()

	prev := event(vehicle, baseTime, 12.97, 77.59, 0, false)
	prev.FuelLevel = ptr(50.0)
	cur := event(vehicle, baseTime.Add(time.Minute), 12.97, 77.59, 0, false)
	cur.Charge = ptr(25.0)

	got, err := detector.Inspect(ctx, sampleOf(vehicle, &prev, cur))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if got != model.SuspicionRed {
		t.Fatalf("expected Red, got %s", got)
	}

	log, err := store.LatestFuelLog(ctx, vehicle.ID)
	if err != nil {
		t.Fatalf("latest fuel log: %v", err)
	}
	if log.PreviousFuel != 50 || log.CurrentFuel != 25 || log.Delta != -25 {
		t.Fatalf("unexpected log %+v", log)
	}
	if log.Notes != "Detected drop 25.00L" {
		t.Fatalf("unexpected notes %q", log.Notes)
	}

	// the ledger now supplies the baseline, not the previous sample
	next := cur
	next.Charge = nil
	next.FuelLevel = ptr(25.0)
	got, err = detector.Inspect(ctx, sampleOf(vehicle, &prev, next))
	if err != nil || got != model.SuspicionGreen {
		t.Fatalf("refill-free sample: got %s, %v", got, err)
	}
	log, _ = store.LatestFuelLog(ctx, vehicle.ID)
	if log.PreviousFuel != 25 || log.Notes != "No significant drop" {
		t.Fatalf("expected baseline from ledger, got %+v", log)
	}
}
