package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nurpe/fleetwatch/internal/geo"
	"github.com/nurpe/fleetwatch/internal/model"
)

const DefaultOffZoneSpeedKmh = 40

// ErrAlertsPartiallyRecorded marks a failure after some alerts for the sample were already
// stored. Alerts are append-only, so such a task must not be retried.
var ErrAlertsPartiallyRecorded = errors.New("alerts partially recorded")

// AlertDeduper reports whether an alert key is being raised for the first time.
type AlertDeduper interface {
	Acquire(ctx context.Context, key string) (bool, error)
}

type GeofenceEngine struct {
	geofences    GeofenceLister
	alerts       *AlertRecorder
	deduper      AlertDeduper
	offZoneSpeed float64
	now          func() time.Time
}

type GeofenceOption func(*GeofenceEngine)

// WithDeadlineDeduper makes deadline-miss alerts fire once per (vehicle, geofence) key
// instead of on every packet after the deadline.
func WithDeadlineDeduper(d AlertDeduper) GeofenceOption {
	return func(e *GeofenceEngine) { e.deduper = d }
}

func WithClock(now func() time.Time) GeofenceOption {
	return func(e *GeofenceEngine) { e.now = now }
}

func NewGeofenceEngine(geofences GeofenceLister, alerts *AlertRecorder, offZoneSpeed float64, opts ...GeofenceOption) *GeofenceEngine {
	if offZoneSpeed <= 0 {
		offZoneSpeed = DefaultOffZoneSpeedKmh
	}
	e := &GeofenceEngine{
		geofences:    geofences,
		alerts:       alerts,
		offZoneSpeed: offZoneSpeed,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *GeofenceEngine) Kind() Kind { return KindGeofence }

func (e *GeofenceEngine) Analyze(ctx context.Context, sample Sample) error {
	_, err := e.Evaluate(ctx, sample)
	return err
}

// Evaluate raises deadline and off-zone alerts and returns the geofences containing the sample.
// Nothing is raised while no geofences are configured.
func (e *GeofenceEngine) Evaluate(ctx context.Context, sample Sample) ([]model.Geofence, error) {
	fences, err := e.geofences.ListGeofences(ctx)
	if err != nil {
		return nil, err
	}

	inside := make([]model.Geofence, 0)
	if len(fences) == 0 {
		return inside, nil
	}

	cur := sample.Current
	for _, g := range fences {
		if Contains(g, cur.Latitude, cur.Longitude) {
			inside = append(inside, g)
		}
	}

	recorded := 0
	failed := func(err error) error {
		if recorded == 0 {
			return err
		}
		return fmt.Errorf("%w: %d stored before: %w", ErrAlertsPartiallyRecorded, recorded, err)
	}

	now := e.now()
	for _, g := range fences {
		if g.ScheduledAt == nil || g.ScheduledAt.After(now) {
			continue
		}
		if containsID(inside, g) {
			continue
		}
		raised, err := e.raiseDeadline(ctx, sample.Vehicle, g)
		if err != nil {
			return inside, failed(err)
		}
		if raised {
			recorded++
		}
	}

	if cur.Speed > e.offZoneSpeed && len(inside) == 0 {
		if _, err := e.alerts.Record(ctx, model.GeofenceAlert{
			VehicleID: sample.Vehicle.ID,
			Kind:      model.AlertOffZoneSpeeding,
			Severity:  model.SeverityInfo,
			Message:   fmt.Sprintf("Vehicle %s is moving outside geofences at %.0f km/h", sample.Vehicle.Label(), cur.Speed),
		}); err != nil {
			return inside, failed(err)
		}
	}
	return inside, nil
}

func (e *GeofenceEngine) raiseDeadline(ctx context.Context, vehicle model.Vehicle, g model.Geofence) (bool, error) {
	if e.deduper != nil {
		first, err := e.deduper.Acquire(ctx, fmt.Sprintf("deadline:%s:%s", vehicle.ID, g.ID))
		if err != nil {
			return false, err
		}
		if !first {
			return false, nil
		}
	}

	id := g.ID
	_, err := e.alerts.Record(ctx, model.GeofenceAlert{
		GeofenceID: &id,
		VehicleID:  vehicle.ID,
		Kind:       model.AlertDeadlineMissed,
		Severity:   model.SeverityWarning,
		Message:    fmt.Sprintf("Vehicle %s did not reach %s", vehicle.Label(), g.Name),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Contains reports whether the point lies within the geofence. Polygons never match yet.
func Contains(g model.Geofence, lat, lng float64) bool {
	switch g.Type {
	case model.GeofenceCircle:
		if g.CenterLat == nil || g.CenterLng == nil || g.Radius == nil {
			return false
		}
		return geo.DistanceKm(*g.CenterLat, *g.CenterLng, lat, lng) <= *g.Radius/1000
	default:
		return false
	}
}

func containsID(fences []model.Geofence, g model.Geofence) bool {
	for _, f := range fences {
		if f.ID == g.ID {
			return true
		}
	}
	return false
}
