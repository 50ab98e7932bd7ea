package analytics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/fleetwatch/internal/geo"
	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/repository/memstore"
)

func circle(name string, lat, lng, radiusM float64) model.Geofence {
	return model.Geofence{
		ID:        uuid.New(),
		Name:      name,
		Type:      model.GeofenceCircle,
		CenterLat: ptr(lat),
		CenterLng: ptr(lng),
		Radius:    ptr(radiusM),
	}
}

func TestContainsBoundary(t *testing.T) {
	const pointLat, pointLng = 12.9800, 77.6000
	d := geo.DistanceKm(depotLat, depotLng, pointLat, pointLng)

	radiusM := d * 1000
	for radiusM/1000 < d {
		radiusM = math.Nextafter(radiusM, math.Inf(1))
	}
	if !Contains(circle("edge", depotLat, depotLng, radiusM), pointLat, pointLng) {
		t.Fatalf("point exactly on the radius must be inside")
	}
	if Contains(circle("short", depotLat, depotLng, radiusM-1), pointLat, pointLng) {
		t.Fatalf("point beyond the radius must be outside")
	}
}

func TestContainsIgnoresPolygonsAndIncompleteCircles(t *testing.T) {
	polygon := model.Geofence{ID: uuid.New(), Name: "yard", Type: model.GeofencePolygon}
	if Contains(polygon, depotLat, depotLng) {
		t.Fatalf("polygon containment is not evaluated")
	}
	incomplete := circle("no radius", depotLat, depotLng, 0)
	incomplete.Radius = nil
	if Contains(incomplete, depotLat, depotLng) {
		t.Fatalf("circle without radius cannot contain anything")
	}
}

type geofenceFixture struct {
	store   *memstore.Store
	engine  *GeofenceEngine
	vehicle model.Vehicle
	now     time.Time
}

func newGeofenceFixture(t *testing.T, fences []model.Geofence, opts ...GeofenceOption) geofenceFixture {
	t.Helper()
	store := memstore.New()
	for _, g := range fences {
		if _, err := store.CreateGeofence(context.Background(), g); err != nil {
			t.Fatalf("create geofence: %v", err)
		}
	}
	now := baseTime.Add(time.Hour)
	opts = append([]GeofenceOption{WithClock(func() time.Time { return now })}, opts...)
	return geofenceFixture{
		store:   store,
		engine:  NewGeofenceEngine(store, newRecorder(store), 0, opts...),
		vehicle: testVehicle(),
		now:     now,
	}
}

func (f geofenceFixture) evaluate(t *testing.T, lat, lng, speed float64) []model.Geofence {
	t.Helper()
	inside, err := f.engine.Evaluate(context.Background(), sampleOf(f.vehicle, nil, event(f.vehicle, f.now, lat, lng, speed, speed > 0)))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return inside
}

func TestGeofenceEngineDeadlineMissRepeats(t *testing.T) {
	warehouse := circle("warehouse", depotLat, depotLng, 500)
	warehouse.ScheduledAt = ptr(baseTime)
	f := newGeofenceFixture(t, []model.Geofence{warehouse})

	// ~11 km away, under the off-zone speed
	f.evaluate(t, depotLat+0.1, depotLng, 20)
	f.evaluate(t, depotLat+0.1, depotLng, 20)

	alerts := listAlerts(t, f.store, f.vehicle.ID)
	if len(alerts) != 2 {
		t.Fatalf("expected an alert per packet, got %d", len(alerts))
	}
	for _, a := range alerts {
		if a.Kind != model.AlertDeadlineMissed || a.Severity != model.SeverityWarning || a.GeofenceID == nil {
			t.Fatalf("unexpected alert %+v", a)
		}
	}
}

type mapDeduper map[string]bool

func (m mapDeduper) Acquire(_ context.Context, key string) (bool, error) {
	if m[key] {
		return false, nil
	}
	m[key] = true
	return true, nil
}

func TestGeofenceEngineDeadlineMissDeduplicated(t *testing.T) {
	warehouse := circle("warehouse", depotLat, depotLng, 500)
	warehouse.ScheduledAt = ptr(baseTime)
	f := newGeofenceFixture(t, []model.Geofence{warehouse}, WithDeadlineDeduper(mapDeduper{}))

	for i := 0; i < 3; i++ {
		f.evaluate(t, depotLat+0.1, depotLng, 20)
	}
	if alerts := listAlerts(t, f.store, f.vehicle.ID); len(alerts) != 1 {
		t.Fatalf("expected a single deduplicated alert, got %d", len(alerts))
	}
}

func TestGeofenceEngineNoDeadlineAlert(t *testing.T) {
	arrived := circle("arrived", depotLat, depotLng, 500)
	arrived.ScheduledAt = ptr(baseTime)
	future := circle("future", depotLat+0.1, depotLng, 500)
	future.ScheduledAt = ptr(baseTime.Add(24 * time.Hour))
	f := newGeofenceFixture(t, []model.Geofence{arrived, future})

	inside := f.evaluate(t, depotLat, depotLng, 10)
	if len(inside) != 1 || inside[0].Name != "arrived" {
		t.Fatalf("unexpected containment %+v", inside)
	}
	if alerts := listAlerts(t, f.store, f.vehicle.ID); len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %+v", alerts)
	}
}

func TestGeofenceEngineOffZoneSpeeding(t *testing.T) {
	f := newGeofenceFixture(t, []model.Geofence{circle("depot", depotLat, depotLng, 300)})

	f.evaluate(t, depotLat, depotLng, 60)
	if alerts := listAlerts(t, f.store, f.vehicle.ID); len(alerts) != 0 {
		t.Fatalf("speeding inside a geofence raises nothing, got %d", len(alerts))
	}

	f.evaluate(t, depotLat+0.1, depotLng, 40)
	if alerts := listAlerts(t, f.store, f.vehicle.ID); len(alerts) != 0 {
		t.Fatalf("40 km/h is not above the limit, got %d", len(alerts))
	}

	f.evaluate(t, depotLat+0.1, depotLng, 41)
	alerts := listAlerts(t, f.store, f.vehicle.ID)
	if len(alerts) != 1 {
		t.Fatalf("expected one off-zone alert, got %d", len(alerts))
	}
	if alerts[0].Kind != model.AlertOffZoneSpeeding || alerts[0].Severity != model.SeverityInfo || alerts[0].GeofenceID != nil {
		t.Fatalf("unexpected alert %+v", alerts[0])
	}
}

func TestGeofenceEngineWithoutGeofences(t *testing.T) {
	f := newGeofenceFixture(t, nil)
	if inside := f.evaluate(t, depotLat, depotLng, 90); len(inside) != 0 {
		t.Fatalf("expected empty containment, got %d", len(inside))
	}
	if alerts := listAlerts(t, f.store, f.vehicle.ID); len(alerts) != 0 {
		t.Fatalf("expected no alerts without geofences, got %d", len(alerts))
	}
}

type failingAlertStore struct {
	inner  AlertStore
	failOn int
	calls  int
}

func (s *failingAlertStore) CreateAlert(ctx context.Context, alert model.GeofenceAlert) (*model.GeofenceAlert, error) {
	s.calls++
	if s.calls == s.failOn {
		return nil, errors.New("connection reset")
	}
	return s.inner.CreateAlert(ctx, alert)
}

func TestGeofenceEngineAlertFailureAfterRecording(t *testing.T) {
	north := circle("north", depotLat, depotLng, 500)
	north.ScheduledAt = ptr(baseTime)
	south := circle("south", depotLat-0.2, depotLng, 500)
	south.ScheduledAt = ptr(baseTime)

	tests := []struct {
		name        string
		failOn      int
		wantPartial bool
		wantStored  int
	}{
		{"first alert fails", 1, false, 0},
		{"second alert fails", 2, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGeofenceFixture(t, []model.Geofence{north, south})
			store := &failingAlertStore{inner: f.store, failOn: tt.failOn}
			engine := NewGeofenceEngine(f.store, NewAlertRecorder(store, nil, zerolog.Nop()), 0,
				WithClock(func() time.Time { return f.now }))

			_, err := engine.Evaluate(context.Background(),
				sampleOf(f.vehicle, nil, event(f.vehicle, f.now, depotLat+0.1, depotLng, 20, true)))
			if err == nil {
				t.Fatalf("expected the store failure to surface")
			}
			if got := errors.Is(err, ErrAlertsPartiallyRecorded); got != tt.wantPartial {
				t.Fatalf("partial = %v, want %v (%v)", got, tt.wantPartial, err)
			}
			if alerts := listAlerts(t, f.store, f.vehicle.ID); len(alerts) != tt.wantStored {
				t.Fatalf("expected %d stored alerts, got %d", tt.wantStored, len(alerts))
			}
		})
	}
}
