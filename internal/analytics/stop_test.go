package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/repository/memstore"
)

const (
	depotLat = 12.9716
	depotLng = 77.5946
)

func listStops(t *testing.T, store *memstore.Store, vehicleID uuid.UUID) []model.Stop {
	t.Helper()
	stops, err := store.ListStops(context.Background(), model.VehicleFilter{VehicleID: vehicleID})
	if err != nil {
		t.Fatalf("list stops: %v", err)
	}
	return stops
}

func TestStopDetectorMergesStationarySamples(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	detector := NewStopDetector(store, 0, 0)
	vehicle := testVehicle()

	var first *model.Stop
	for i, offset := range []time.Duration{0, 60 * time.Second, 90 * time.Second, 150 * time.Second} {
		// a few meters of GPS jitter stays within the threshold
		lat := depotLat + float64(i)*0.00001
		stop, err := detector.Detect(ctx, sampleOf(vehicle, nil, event(vehicle, baseTime.Add(offset), lat, depotLng, 0, false)))
		if err != nil {
			t.Fatalf("detect: %v", err)
		}
		if stop == nil {
			t.Fatalf("sample %d: expected an open stop", i)
		}
		if first == nil {
			first = stop
		} else if stop.ID != first.ID {
			t.Fatalf("sample %d: stop changed from %s to %s", i, first.ID, stop.ID)
		}
	}

	stops := listStops(t, store, vehicle.ID)
	if len(stops) != 1 {
		t.Fatalf("expected 1 stop row, got %d", len(stops))
	}
	if stops[0].EndTime != nil {
		t.Fatalf("expected stop to remain open")
	}
	if !stops[0].StartTime.Equal(baseTime) || stops[0].Latitude != depotLat {
		t.Fatalf("stop not anchored at first sample: %+v", stops[0])
	}
}

func TestStopDetectorDiscardsShortStop(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	detector := NewStopDetector(store, 0, 0)
	vehicle := testVehicle()

	if _, err := detector.Detect(ctx, sampleOf(vehicle, nil, event(vehicle, baseTime, depotLat, depotLng, 0, false))); err != nil {
		t.Fatalf("detect: %v", err)
	}
	stop, err := detector.Detect(ctx, sampleOf(vehicle, nil, event(vehicle, baseTime.Add(119*time.Second), depotLat, depotLng, 30, true)))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if stop != nil {
		t.Fatalf("expected no active stop once moving")
	}
	if stops := listStops(t, store, vehicle.ID); len(stops) != 0 {
		t.Fatalf("short stop should be deleted, got %d rows", len(stops))
	}
}

func TestStopDetectorClosesLongStop(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	detector := NewStopDetector(store, 0, 0)
	vehicle := testVehicle()

	if _, err := detector.Detect(ctx, sampleOf(vehicle, nil, event(vehicle, baseTime, depotLat, depotLng, 0, false))); err != nil {
		t.Fatalf("detect: %v", err)
	}
	end := baseTime.Add(5 * time.Minute)
	if _, err := detector.Detect(ctx, sampleOf(vehicle, nil, event(vehicle, end, depotLat, depotLng, 20, false))); err != nil {
		t.Fatalf("detect: %v", err)
	}

	stops := listStops(t, store, vehicle.ID)
	if len(stops) != 1 {
		t.Fatalf("expected 1 stop, got %d", len(stops))
	}
	got := stops[0]
	if got.EndTime == nil || !got.EndTime.Equal(end) {
		t.Fatalf("unexpected end time %v", got.EndTime)
	}
	if got.Duration == nil || *got.Duration != 300 {
		t.Fatalf("unexpected duration %v", got.Duration)
	}
}

func TestStopDetectorReanchorsBeyondThreshold(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	detector := NewStopDetector(store, 0, 0)
	vehicle := testVehicle()

	if _, err := detector.Detect(ctx, sampleOf(vehicle, nil, event(vehicle, baseTime, depotLat, depotLng, 0, false))); err != nil {
		t.Fatalf("detect: %v", err)
	}
	// ~111 m north, crept there without ever counting as moving
	movedLat := depotLat + 0.001
	next, err := detector.Detect(ctx, sampleOf(vehicle, nil, event(vehicle, baseTime.Add(200*time.Second), movedLat, depotLng, 2, false)))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if next == nil || next.Latitude != movedLat {
		t.Fatalf("expected a new stop at the new location, got %+v", next)
	}

	stops := listStops(t, store, vehicle.ID)
	if len(stops) != 2 {
		t.Fatalf("expected closed + open stop, got %d", len(stops))
	}
	open := 0
	for _, s := range stops {
		if s.EndTime == nil {
			open++
		}
	}
	if open != 1 {
		t.Fatalf("expected exactly one open stop, got %d", open)
	}
}

type staleStopStore struct {
	*memstore.Store
	misses int
}

// FindOpenStop misses once, as if a concurrent attempt opened the stop after the read.
func (s *staleStopStore) FindOpenStop(ctx context.Context, vehicleID uuid.UUID) (*model.Stop, error) {
	if s.misses > 0 {
		s.misses--
		return nil, gorm.ErrRecordNotFound
	}
	return s.Store.FindOpenStop(ctx, vehicleID)
}

func TestStopDetectorTreatsDuplicateOpenAsExisting(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	vehicle := testVehicle()
	existing, err := mem.CreateStop(ctx, model.Stop{VehicleID: vehicle.ID, Latitude: depotLat, Longitude: depotLng, StartTime: baseTime})
	if err != nil {
		t.Fatalf("seed stop: %v", err)
	}

	detector := NewStopDetector(&staleStopStore{Store: mem, misses: 1}, 0, 0)
	stop, err := detector.Detect(ctx, sampleOf(vehicle, nil, event(vehicle, baseTime.Add(time.Minute), depotLat, depotLng, 0, false)))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if stop == nil || stop.ID != existing.ID {
		t.Fatalf("expected existing stop %s, got %+v", existing.ID, stop)
	}
	if stops := listStops(t, mem, vehicle.ID); len(stops) != 1 {
		t.Fatalf("expected a single stop row, got %d", len(stops))
	}
}

func TestStopDetectorPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	detector := NewStopDetector(failingStopStore{err: boom}, 0, 0)
	vehicle := testVehicle()
	_, err := detector.Detect(context.Background(), sampleOf(vehicle, nil, event(vehicle, baseTime, depotLat, depotLng, 0, false)))
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

type failingStopStore struct {
	StopStore
	err error
}

func (s failingStopStore) FindOpenStop(context.Context, uuid.UUID) (*model.Stop, error) {
	return nil, s.err
}

func TestIsStationary(t *testing.T) {
	tests := []struct {
		speed  float64
		motion bool
		want   bool
	}{
		{0, false, true},
		{4.9, false, true},
		{5, false, false},
		{0, true, false},
	}
	for _, tt := range tests {
		if got := IsStationary(tt.speed, tt.motion); got != tt.want {
			t.Errorf("IsStationary(%v, %v) = %v, want %v", tt.speed, tt.motion, got, tt.want)
		}
	}
}
