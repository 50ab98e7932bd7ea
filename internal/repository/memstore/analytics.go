package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/repository"
)

// stops

func (s *Store) FindOpenStop(_ context.Context, vehicleID uuid.UUID) (*model.Stop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if stop := s.openStop(vehicleID); stop != nil {
		out := *stop
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *Store) openStop(vehicleID uuid.UUID) *model.Stop {
	for _, stop := range s.stops {
		if stop.VehicleID == vehicleID && stop.EndTime == nil {
			return stop
		}
	}
	return nil
}

func (s *Store) CreateStop(_ context.Context, stop model.Stop) (*model.Stop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openStop(stop.VehicleID) != nil {
		return nil, repository.ErrDuplicate
	}
	stop.ID = uuid.New()
	stop.EndTime, stop.Duration = nil, nil
	stop.CreatedAt = s.now()
	s.stops[stop.ID] = &stop
	out := stop
	return &out, nil
}

func (s *Store) CloseStop(_ context.Context, id uuid.UUID, endTime time.Time, durationSec int64) (*model.Stop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stop, ok := s.stops[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	stop.EndTime, stop.Duration = &endTime, &durationSec
	out := *stop
	return &out, nil
}

func (s *Store) DeleteStop(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stops, id)
	return nil
}

func (s *Store) ListStops(_ context.Context, filter model.VehicleFilter) ([]model.Stop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.stopsWhere(filter.VehicleID, filter.Window, false)
	sort.Slice(rows, func(i, j int) bool { return rows[i].StartTime.After(rows[j].StartTime) })
	return limitTo(rows, filter.Limit), nil
}

func (s *Store) ListClosedStops(_ context.Context, vehicleID uuid.UUID, window model.TimeWindow) ([]model.Stop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.stopsWhere(vehicleID, window, true)
	sort.Slice(rows, func(i, j int) bool { return rows[i].StartTime.Before(rows[j].StartTime) })
	return rows, nil
}

func (s *Store) stopsWhere(vehicleID uuid.UUID, window model.TimeWindow, closedOnly bool) []model.Stop {
	rows := make([]model.Stop, 0)
	for _, stop := range s.stops {
		if stop.VehicleID != vehicleID || !inWindow(stop.StartTime, window) {
			continue
		}
		if closedOnly && stop.EndTime == nil {
			continue
		}
		rows = append(rows, *stop)
	}
	return rows
}

// trips

func (s *Store) FindOpenTrip(_ context.Context, vehicleID uuid.UUID) (*model.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if trip := s.openTrip(vehicleID); trip != nil {
		out := *trip
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *Store) openTrip(vehicleID uuid.UUID) *model.Trip {
	for _, trip := range s.trips {
		if trip.VehicleID == vehicleID && trip.EndTime == nil {
			return trip
		}
	}
	return nil
}

func (s *Store) CreateTrip(_ context.Context, trip model.Trip) (*model.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openTrip(trip.VehicleID) != nil {
		return nil, repository.ErrDuplicate
	}
	trip.ID = uuid.New()
	trip.EndTime, trip.DistanceKm = nil, nil
	trip.CreatedAt = s.now()
	s.trips[trip.ID] = &trip
	out := trip
	return &out, nil
}

func (s *Store) CloseTrip(_ context.Context, id uuid.UUID, endTime time.Time, distanceKm float64) (*model.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, ok := s.trips[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	trip.EndTime, trip.DistanceKm = &endTime, &distanceKm
	out := *trip
	return &out, nil
}

func (s *Store) ListTrips(_ context.Context, filter model.VehicleFilter) ([]model.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]model.Trip, 0)
	for _, trip := range s.trips {
		if trip.VehicleID == filter.VehicleID && inWindow(trip.StartTime, filter.Window) {
			rows = append(rows, *trip)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].StartTime.After(rows[j].StartTime) })
	return limitTo(rows, filter.Limit), nil
}

// fuel logs are appended in creation order, so newest-first is reverse order

func (s *Store) LatestFuelLog(_ context.Context, vehicleID uuid.UUID) (*model.FuelLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.fuelLogs) - 1; i >= 0; i-- {
		if s.fuelLogs[i].log.VehicleID == vehicleID {
			out := s.fuelLogs[i].log
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *Store) CreateFuelLog(_ context.Context, log model.FuelLog) (*model.FuelLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.ID = uuid.New()
	log.CreatedAt = s.now()
	s.fuelLogs = append(s.fuelLogs, fuelRow{seq: s.nextSeq(), log: log})
	return &log, nil
}

func (s *Store) ListFuelLogs(_ context.Context, filter model.VehicleFilter) ([]model.FuelLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]model.FuelLog, 0)
	for i := len(s.fuelLogs) - 1; i >= 0; i-- {
		log := s.fuelLogs[i].log
		if log.VehicleID == filter.VehicleID && inWindow(log.CreatedAt, filter.Window) {
			rows = append(rows, log)
		}
	}
	return limitTo(rows, filter.Limit), nil
}

func (s *Store) FuelSummary(ctx context.Context, vehicleID uuid.UUID, limit int) (*model.FuelSummary, error) {
	logs, err := s.ListFuelLogs(ctx, model.VehicleFilter{VehicleID: vehicleID, Limit: limit})
	if err != nil {
		return nil, err
	}
	summary := &model.FuelSummary{VehicleID: vehicleID, Count: len(logs)}
	for _, log := range logs {
		summary.TotalDelta += log.Delta
	}
	return summary, nil
}

// geofences and alerts

func (s *Store) CreateGeofence(_ context.Context, g model.Geofence) (*model.Geofence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.geofences {
		if existing.Name == g.Name {
			return nil, repository.ErrDuplicate
		}
	}
	g.ID = uuid.New()
	g.CreatedAt = s.now()
	s.geofences = append(s.geofences, g)
	return &g, nil
}

func (s *Store) ListGeofences(_ context.Context) ([]model.Geofence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := append([]model.Geofence(nil), s.geofences...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

func (s *Store) CreateAlert(_ context.Context, alert model.GeofenceAlert) (*model.GeofenceAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert.ID = uuid.New()
	alert.CreatedAt = s.now()
	s.alerts = append(s.alerts, alert)
	return &alert, nil
}

func (s *Store) ListAlerts(_ context.Context, filter model.AlertFilter) ([]model.GeofenceAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]model.GeofenceAlert, 0)
	for i := len(s.alerts) - 1; i >= 0; i-- {
		a := s.alerts[i]
		if filter.VehicleID != nil && a.VehicleID != *filter.VehicleID {
			continue
		}
		if inWindow(a.CreatedAt, filter.Window) {
			rows = append(rows, a)
		}
	}
	return limitTo(rows, filter.Limit), nil
}

// driver scores

func (s *Store) UpsertScore(_ context.Context, score model.DriverScore) (*model.DriverScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := scoreKey{user: score.UserID, vehicle: score.VehicleID, period: score.Period, start: score.PeriodStart.UnixNano()}
	now := s.now()
	if existing, ok := s.scores[key]; ok {
		score.ID, score.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		score.ID, score.CreatedAt = uuid.New(), now
	}
	score.UpdatedAt = now
	s.scores[key] = &score
	out := score
	return &out, nil
}

func (s *Store) ListScores(_ context.Context, userID uuid.UUID, period model.ScorePeriod, limit int) ([]model.DriverScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]model.DriverScore, 0)
	for _, score := range s.scores {
		if score.UserID == userID && score.Period == period {
			rows = append(rows, *score)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PeriodStart.After(rows[j].PeriodStart) })
	return limitTo(rows, limit), nil
}

func (s *Store) LatestScore(_ context.Context, vehicleID uuid.UUID) (*model.DriverScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *model.DriverScore
	for _, score := range s.scores {
		if score.VehicleID != vehicleID {
			continue
		}
		if latest == nil || score.PeriodEnd.After(latest.PeriodEnd) ||
			(score.PeriodEnd.Equal(latest.PeriodEnd) && score.UpdatedAt.After(latest.UpdatedAt)) {
			latest = score
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	out := *latest
	return &out, nil
}
