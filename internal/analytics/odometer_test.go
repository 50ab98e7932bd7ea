package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/repository/memstore"
)

func TestEvaluateOdometer(t *testing.T) {
	tests := []struct {
		name     string
		gps      float64
		last     float64
		current  float64
		tampered bool
		kind     TamperType
		severity model.Severity
		skipped  bool
	}{
		{"rollback", 3, 1000, 995, true, TamperRollback, model.SeverityCritical, false},
		{"frozen", 10, 1000, 1002, true, TamperFrozen, model.SeverityWarning, false},
		{"jump", 10, 1000, 1020, true, TamperJump, model.SeverityWarning, false},
		{"consistent", 10, 1000, 1010, false, TamperNone, "", false},
		{"short hop frozen odometer", 0.8, 1000, 1000, false, TamperNone, "", false},
		{"too little movement", 0.05, 1000, 900, false, TamperNone, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateOdometer(tt.gps, tt.last, tt.current)
			if got.Tampered != tt.tampered || got.Type != tt.kind || got.Skipped != tt.skipped {
				t.Fatalf("unexpected check %+v", got)
			}
			if tt.tampered && got.Severity() != tt.severity {
				t.Fatalf("severity = %s, want %s", got.Severity(), tt.severity)
			}
		})
	}
}

func TestEvaluateOdometerDiscrepancy(t *testing.T) {
	rollback := EvaluateOdometer(3, 1000, 995)
	if rollback.Discrepancy == nil || *rollback.Discrepancy != -5 {
		t.Fatalf("rollback discrepancy = %v", rollback.Discrepancy)
	}
	if rollback.DiscrepancyPercent != nil {
		t.Fatalf("rollback should carry no percentage")
	}

	frozen := EvaluateOdometer(10, 1000, 1002)
	if *frozen.Discrepancy != 8 || *frozen.DiscrepancyPercent != 80 {
		t.Fatalf("frozen discrepancy = %v (%v%%)", *frozen.Discrepancy, *frozen.DiscrepancyPercent)
	}

	jump := EvaluateOdometer(10, 1000, 1020)
	if *jump.Discrepancy != 10 || *jump.DiscrepancyPercent != 100 {
		t.Fatalf("jump discrepancy = %v (%v%%)", *jump.Discrepancy, *jump.DiscrepancyPercent)
	}
}

func TestOdometerDetectorRaisesRollbackAlert(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	detector := NewOdometerDetector(store, newRecorder(store))
	vehicle := testVehicle()

	prev := event(vehicle, baseTime, 12.9716, 77.5946, 40, true)
	prev.TotalDistance = ptr(1500.0)
	// ~1 km north
	cur := event(vehicle, baseTime.Add(2*time.Minute), 12.9806, 77.5946, 40, true)
	cur.TotalDistance = ptr(1490.0)

	check, err := detector.Check(ctx, sampleOf(vehicle, &prev, cur))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if check.Type != TamperRollback {
		t.Fatalf("expected rollback, got %+v", check)
	}

	alerts := listAlerts(t, store, vehicle.ID)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Kind != model.AlertOdometerRollback || alerts[0].Severity != model.SeverityCritical {
		t.Fatalf("unexpected alert %+v", alerts[0])
	}
	if alerts[0].GeofenceID != nil {
		t.Fatalf("odometer alerts carry no geofence")
	}
}

func TestOdometerDetectorSkipsWithoutPrevious(t *testing.T) {
	store := memstore.New()
	detector := NewOdometerDetector(store, newRecorder(store))
	vehicle := testVehicle()

	check, err := detector.Check(context.Background(), sampleOf(vehicle, nil, event(vehicle, baseTime, 12.97, 77.59, 0, false)))
	if err != nil || !check.Skipped {
		t.Fatalf("expected skipped check, got %+v, %v", check, err)
	}
	if alerts := listAlerts(t, store, vehicle.ID); len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %d", len(alerts))
	}
}

func TestOdometerDetectorUpdateSnapshotsPrevious(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	detector := NewOdometerDetector(store, newRecorder(store))

	vehicle, err := store.CreateVehicle(ctx, model.Vehicle{IMEI: "359633100000009", Odometer: ptr(100.0)})
	if err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	updated, err := detector.UpdateOdometer(ctx, vehicle.ID, 150)
	if err != nil {
		t.Fatalf("update odometer: %v", err)
	}
	if *updated.LastOdometer != 100 || *updated.Odometer != 150 {
		t.Fatalf("unexpected odometer fields %v / %v", *updated.LastOdometer, *updated.Odometer)
	}
}

type recordingPublisher struct {
	published []model.GeofenceAlert
	err       error
}

func (p *recordingPublisher) PublishAlert(_ context.Context, alert model.GeofenceAlert) error {
	p.published = append(p.published, alert)
	return p.err
}

func TestAlertRecorderPublishesBestEffort(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	publisher := &recordingPublisher{err: errors.New("redis down")}
	recorder := NewAlertRecorder(store, publisher, zerolog.Nop())
	vehicle := testVehicle()

	saved, err := recorder.Record(ctx, model.GeofenceAlert{
		VehicleID: vehicle.ID,
		Kind:      model.AlertOdometerJump,
		Severity:  model.SeverityWarning,
		Message:   "jump",
	})
	if err != nil {
		t.Fatalf("publish failure must not fail the record: %v", err)
	}
	if len(publisher.published) != 1 || publisher.published[0].ID != saved.ID {
		t.Fatalf("expected the persisted alert to be published, got %+v", publisher.published)
	}
}
