package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/fleetwatch/internal/analytics"
	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/repository/memstore"
)

func admin() model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.RoleAdmin}
}

func driver(id uuid.UUID) model.Principal {
	return model.Principal{UserID: id, Role: model.RoleDriver}
}

func seedVehicle(t *testing.T, mem *memstore.Store, owner uuid.UUID) *model.Vehicle {
	t.Helper()
	v, err := mem.CreateVehicle(context.Background(), model.Vehicle{IMEI: uuid.NewString()[:15], OwnerID: &owner})
	if err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	return v
}

func TestQueryServiceHistoryAndReplay(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	svc := NewQueryService(MemoryStores(mem))
	v := seedVehicle(t, mem, uuid.New())

	for i := 0; i < 5; i++ {
		if _, err := mem.InsertTelemetry(ctx, model.TelemetryEvent{
			VehicleID: v.ID,
			IMEI:      v.IMEI,
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
			Latitude:  12.97 + float64(i)*0.001,
			Longitude: 77.59,
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	history, err := svc.History(ctx, admin(), model.VehicleFilter{VehicleID: v.ID, Limit: 3})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 || !history[0].Timestamp.Equal(t0.Add(4*time.Minute)) {
		t.Fatalf("history should be newest first and limited, got %d rows", len(history))
	}

	window := model.TimeWindow{From: t0.Add(time.Minute), To: t0.Add(3 * time.Minute)}
	replay, err := svc.Replay(ctx, admin(), v.ID, window)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(replay) != 3 || !replay[0].Timestamp.Equal(window.From) || !replay[2].Timestamp.Equal(window.To) {
		t.Fatalf("replay should be ascending and inclusive, got %+v", replay)
	}

	latest, err := svc.LatestTelemetry(ctx, admin(), v.ID)
	if err != nil || !latest.Timestamp.Equal(t0.Add(4*time.Minute)) {
		t.Fatalf("latest = %+v, %v", latest, err)
	}

	if _, err := svc.Replay(ctx, admin(), v.ID, model.TimeWindow{From: t0}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("replay without upper bound should be rejected, got %v", err)
	}
	inverted := model.TimeWindow{From: t0.Add(time.Hour), To: t0}
	if _, err := svc.History(ctx, admin(), model.VehicleFilter{VehicleID: v.ID, Window: inverted}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("inverted window should be rejected, got %v", err)
	}
}

func TestQueryServiceAccessControl(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	svc := NewQueryService(MemoryStores(mem))
	owner := uuid.New()
	v := seedVehicle(t, mem, owner)

	if _, err := svc.Trips(ctx, driver(owner), model.VehicleFilter{VehicleID: v.ID}); err != nil {
		t.Fatalf("owner should read own trips: %v", err)
	}
	if _, err := svc.Trips(ctx, driver(uuid.New()), model.VehicleFilter{VehicleID: v.ID}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if _, err := svc.Stops(ctx, admin(), model.VehicleFilter{VehicleID: uuid.New()}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.LatestTelemetry(ctx, admin(), v.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("vehicle without telemetry should be not found, got %v", err)
	}
	if _, err := svc.Scores(ctx, driver(owner), uuid.New(), model.PeriodDaily, 0); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("drivers read only their own scores, got %v", err)
	}
	if _, err := svc.Scores(ctx, admin(), owner, "monthly", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown period should be rejected, got %v", err)
	}
}

func TestQueryServiceStopStatsAndFuel(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	svc := NewQueryService(MemoryStores(mem))
	v := seedVehicle(t, mem, uuid.New())

	for i, duration := range []int64{200, 400} {
		start := t0.Add(time.Duration(i) * time.Hour)
		stop, err := mem.CreateStop(ctx, model.Stop{VehicleID: v.ID, StartTime: start})
		if err != nil {
			t.Fatalf("create stop: %v", err)
		}
		if _, err := mem.CloseStop(ctx, stop.ID, start.Add(time.Duration(duration)*time.Second), duration); err != nil {
			t.Fatalf("close stop: %v", err)
		}
	}
	if _, err := mem.CreateStop(ctx, model.Stop{VehicleID: v.ID, StartTime: t0.Add(3 * time.Hour)}); err != nil {
		t.Fatalf("open stop: %v", err)
	}

	stats, err := svc.StopStats(ctx, admin(), v.ID, model.TimeWindow{})
	if err != nil {
		t.Fatalf("stop stats: %v", err)
	}
	want := model.StopStats{TotalStops: 2, TotalDuration: 600, AvgDuration: 300, MaxDuration: 400}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}

	detector := analytics.NewFuelDetector(mem)
	for _, levels := range [][2]float64{{60, 55}, {55, 52}} {
		prev := model.TelemetryEvent{FuelLevel: &levels[0]}
		cur := model.TelemetryEvent{VehicleID: v.ID, Charge: &levels[1]}
		if _, err := detector.Inspect(ctx, analytics.Sample{Vehicle: *v, Previous: &prev, Current: cur, DistanceKm: 10}); err != nil {
			t.Fatalf("inspect: %v", err)
		}
	}
	summary, err := svc.FuelSummary(ctx, admin(), v.ID)
	if err != nil {
		t.Fatalf("fuel summary: %v", err)
	}
	if summary.Count != 2 || summary.TotalDelta != -8 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
