// Package memstore is an in-process backend with the same contracts as the gorm repositories.
// It enforces the same unique keys: vehicle IMEI, geofence name, one open stop and one open
// trip per vehicle, and one driver score per (user, vehicle, period, period start).
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	seq       int64
	vehicles  map[uuid.UUID]*model.Vehicle
	telemetry map[uuid.UUID][]model.TelemetryEvent
	stops     map[uuid.UUID]*model.Stop
	trips     map[uuid.UUID]*model.Trip
	fuelLogs  []fuelRow
	geofences []model.Geofence
	alerts    []model.GeofenceAlert
	scores    map[scoreKey]*model.DriverScore

	now func() time.Time
}

type fuelRow struct {
	seq int64
	log model.FuelLog
}

type scoreKey struct {
	user    uuid.UUID
	vehicle uuid.UUID
	period  model.ScorePeriod
	start   int64
}

func New() *Store {
	return &Store{
		vehicles:  make(map[uuid.UUID]*model.Vehicle),
		telemetry: make(map[uuid.UUID][]model.TelemetryEvent),
		stops:     make(map[uuid.UUID]*model.Stop),
		trips:     make(map[uuid.UUID]*model.Trip),
		scores:    make(map[scoreKey]*model.DriverScore),
		now:       time.Now,
	}
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func inWindow(t time.Time, w model.TimeWindow) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

func limitTo[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

// vehicles

func (s *Store) CreateVehicle(_ context.Context, v model.Vehicle) (*model.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.vehicles {
		if existing.IMEI == v.IMEI {
			return nil, repository.ErrDuplicate
		}
	}
	v.ID = uuid.New()
	v.CreatedAt = s.now()
	v.LastLat, v.LastLng, v.LastSeen, v.LastOdometer = nil, nil, nil, nil
	s.vehicles[v.ID] = &v
	out := v
	return &out, nil
}

func (s *Store) GetVehicle(_ context.Context, id uuid.UUID) (*model.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *v
	return &out, nil
}

func (s *Store) GetVehicleByIMEI(_ context.Context, imei string) (*model.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.vehicles {
		if v.IMEI == imei {
			out := *v
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *Store) ListVehicles(_ context.Context) ([]model.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]model.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		rows = append(rows, *v)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	return rows, nil
}

func (s *Store) UpdatePosition(_ context.Context, id uuid.UUID, lat, lng float64, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.vehicles[id]; ok {
		v.LastLat, v.LastLng, v.LastSeen = &lat, &lng, &seenAt
	}
	return nil
}

func (s *Store) UpdateOdometer(_ context.Context, id uuid.UUID, reading float64) (*model.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	last := 0.0
	if v.Odometer != nil {
		last = *v.Odometer
	}
	v.LastOdometer, v.Odometer = &last, &reading
	out := *v
	return &out, nil
}

func (s *Store) ListOdometerHistory(_ context.Context, vehicleID uuid.UUID, limit int) ([]model.OdometerSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.telemetry[vehicleID]
	rows := make([]model.OdometerSample, 0)
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.TotalDistance == nil {
			continue
		}
		rows = append(rows, model.OdometerSample{
			ID:            e.ID,
			Timestamp:     e.Timestamp,
			TotalDistance: *e.TotalDistance,
			TodayDistance: e.TodayDistance,
		})
	}
	return limitTo(rows, limit), nil
}

// telemetry; each vehicle's slice is kept sorted by (timestamp, seq)

func (s *Store) InsertTelemetry(_ context.Context, e model.TelemetryEvent) (*model.TelemetryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.New()
	e.Seq = s.nextSeq()
	e.CreatedAt = s.now()

	events := s.telemetry[e.VehicleID]
	idx := sort.Search(len(events), func(i int) bool { return events[i].Timestamp.After(e.Timestamp) })
	events = append(events, model.TelemetryEvent{})
	copy(events[idx+1:], events[idx:])
	events[idx] = e
	s.telemetry[e.VehicleID] = events
	return &e, nil
}

func (s *Store) LatestTelemetry(_ context.Context, vehicleID uuid.UUID) (*model.TelemetryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.telemetry[vehicleID]
	if len(events) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	out := events[len(events)-1]
	return &out, nil
}

func (s *Store) ListTelemetry(_ context.Context, vehicleID uuid.UUID, from, to time.Time) ([]model.TelemetryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w := model.TimeWindow{From: from, To: to}
	rows := make([]model.TelemetryEvent, 0)
	for _, e := range s.telemetry[vehicleID] {
		if inWindow(e.Timestamp, w) {
			rows = append(rows, e)
		}
	}
	return rows, nil
}

func (s *Store) ListTelemetryHistory(_ context.Context, filter model.VehicleFilter) ([]model.TelemetryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.telemetry[filter.VehicleID]
	rows := make([]model.TelemetryEvent, 0)
	for i := len(events) - 1; i >= 0; i-- {
		if inWindow(events[i].Timestamp, filter.Window) {
			rows = append(rows, events[i])
		}
	}
	return limitTo(rows, filter.Limit), nil
}

func (s *Store) ListReplay(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]model.ReplayPoint, error) {
	events, err := s.ListTelemetry(ctx, vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	rows := make([]model.ReplayPoint, len(events))
	for i, e := range events {
		rows[i] = model.ReplayPoint{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Latitude:  e.Latitude,
			Longitude: e.Longitude,
			Speed:     e.Speed,
			Ignition:  e.Ignition,
			Motion:    e.Motion,
		}
	}
	return rows, nil
}
