package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nurpe/fleetwatch/internal/analytics"
	"github.com/nurpe/fleetwatch/internal/model"
)

// QueryService serves the read contracts over telemetry and analyzer output.
type QueryService struct {
	stores Stores
}

func NewQueryService(stores Stores) *QueryService {
	return &QueryService{stores: stores}
}

func (s *QueryService) LatestTelemetry(ctx context.Context, p model.Principal, vehicleID uuid.UUID) (*model.TelemetryEvent, error) {
	if _, err := loadVehicle(ctx, s.stores.Vehicles, p, vehicleID); err != nil {
		return nil, err
	}
	event, err := s.stores.Telemetry.LatestTelemetry(ctx, vehicleID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return event, nil
}

func (s *QueryService) History(ctx context.Context, p model.Principal, filter model.VehicleFilter) ([]model.TelemetryEvent, error) {
	if err := s.authorize(ctx, p, filter); err != nil {
		return nil, err
	}
	filter.Limit = limitOr(filter.Limit, defaultHistoryLimit)
	return s.stores.Telemetry.ListTelemetryHistory(ctx, filter)
}

// Replay returns the route in ascending time order; both bounds are required.
func (s *QueryService) Replay(ctx context.Context, p model.Principal, vehicleID uuid.UUID, window model.TimeWindow) ([]model.ReplayPoint, error) {
	if !window.Bounded() {
		return nil, fmt.Errorf("%w: from and to are required", ErrInvalidInput)
	}
	if err := s.authorize(ctx, p, model.VehicleFilter{VehicleID: vehicleID, Window: window}); err != nil {
		return nil, err
	}
	return s.stores.Telemetry.ListReplay(ctx, vehicleID, window.From, window.To)
}

func (s *QueryService) Stops(ctx context.Context, p model.Principal, filter model.VehicleFilter) ([]model.Stop, error) {
	if err := s.authorize(ctx, p, filter); err != nil {
		return nil, err
	}
	filter.Limit = limitOr(filter.Limit, defaultStopLimit)
	return s.stores.Stops.ListStops(ctx, filter)
}

func (s *QueryService) StopStats(ctx context.Context, p model.Principal, vehicleID uuid.UUID, window model.TimeWindow) (model.StopStats, error) {
	if err := s.authorize(ctx, p, model.VehicleFilter{VehicleID: vehicleID, Window: window}); err != nil {
		return model.StopStats{}, err
	}
	stops, err := s.stores.Stops.ListClosedStops(ctx, vehicleID, window)
	if err != nil {
		return model.StopStats{}, err
	}
	return analytics.SummarizeStops(stops), nil
}

func (s *QueryService) Trips(ctx context.Context, p model.Principal, filter model.VehicleFilter) ([]model.Trip, error) {
	if err := s.authorize(ctx, p, filter); err != nil {
		return nil, err
	}
	filter.Limit = limitOr(filter.Limit, defaultTripLimit)
	return s.stores.Trips.ListTrips(ctx, filter)
}

func (s *QueryService) FuelLogs(ctx context.Context, p model.Principal, vehicleID uuid.UUID, limit int) ([]model.FuelLog, error) {
	filter := model.VehicleFilter{VehicleID: vehicleID, Limit: limitOr(limit, defaultFuelLogLimit)}
	if err := s.authorize(ctx, p, filter); err != nil {
		return nil, err
	}
	return s.stores.Fuel.ListFuelLogs(ctx, filter)
}

func (s *QueryService) FuelSummary(ctx context.Context, p model.Principal, vehicleID uuid.UUID) (*model.FuelSummary, error) {
	if _, err := loadVehicle(ctx, s.stores.Vehicles, p, vehicleID); err != nil {
		return nil, err
	}
	return s.stores.Fuel.FuelSummary(ctx, vehicleID, fuelSummaryWindow)
}

// Scores lists a user's scores for one period kind. Drivers may only read their own.
func (s *QueryService) Scores(ctx context.Context, p model.Principal, userID uuid.UUID, period model.ScorePeriod, limit int) ([]model.DriverScore, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if period != model.PeriodDaily && period != model.PeriodWeekly {
		return nil, fmt.Errorf("%w: unknown period %q", ErrInvalidInput, period)
	}
	if p.IsDriver() && p.UserID != userID {
		return nil, ErrPermissionDenied
	}
	return s.stores.Scores.ListScores(ctx, userID, period, limitOr(limit, defaultScoreLimit))
}

func (s *QueryService) LatestScore(ctx context.Context, p model.Principal, vehicleID uuid.UUID) (*model.DriverScore, error) {
	if _, err := loadVehicle(ctx, s.stores.Vehicles, p, vehicleID); err != nil {
		return nil, err
	}
	score, err := s.stores.Scores.LatestScore(ctx, vehicleID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return score, nil
}

func (s *QueryService) authorize(ctx context.Context, p model.Principal, filter model.VehicleFilter) error {
	w := filter.Window
	if !w.From.IsZero() && !w.To.IsZero() && w.From.After(w.To) {
		return fmt.Errorf("%w: from must be before or equal to to", ErrInvalidInput)
	}
	_, err := loadVehicle(ctx, s.stores.Vehicles, p, filter.VehicleID)
	return err
}
