package analytics

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/geo"
	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/repository"
)

// TripManager opens a trip when a vehicle starts moving and closes it once it is stopped.
type TripManager struct {
	store     TripStore
	telemetry TelemetryReader
}

func NewTripManager(store TripStore, telemetry TelemetryReader) *TripManager {
	return &TripManager{store: store, telemetry: telemetry}
}

func (m *TripManager) Kind() Kind { return KindTrip }

func (m *TripManager) Analyze(ctx context.Context, sample Sample) error {
	_, err := m.Track(ctx, sample)
	return err
}

// Track applies the sample's motion state. Idle samples never change the trip.
func (m *TripManager) Track(ctx context.Context, sample Sample) (*model.Trip, error) {
	switch sample.State {
	case model.StateMoving:
		open, err := m.findOpen(ctx, sample)
		if err != nil || open != nil {
			return open, err
		}
		trip, err := m.store.CreateTrip(ctx, model.Trip{
			VehicleID: sample.Vehicle.ID,
			StartTime: sample.Current.Timestamp,
		})
		if errors.Is(err, repository.ErrDuplicate) {
			return m.store.FindOpenTrip(ctx, sample.Vehicle.ID)
		}
		return trip, err

	case model.StateStopped:
		open, err := m.findOpen(ctx, sample)
		if err != nil || open == nil {
			return nil, err
		}
		events, err := m.telemetry.ListTelemetry(ctx, sample.Vehicle.ID, open.StartTime, sample.Current.Timestamp)
		if err != nil {
			return nil, err
		}
		return m.store.CloseTrip(ctx, open.ID, sample.Current.Timestamp, TripDistanceKm(events))
	}
	return nil, nil
}

func (m *TripManager) findOpen(ctx context.Context, sample Sample) (*model.Trip, error) {
	open, err := m.store.FindOpenTrip(ctx, sample.Vehicle.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return open, err
}

// TripDistanceKm sums the haversine distance between consecutive samples.
func TripDistanceKm(events []model.TelemetryEvent) float64 {
	points := make([]geo.Point, len(events))
	for i, e := range events {
		points[i] = geo.Point{Lat: e.Latitude, Lng: e.Longitude}
	}
	return geo.PathKm(points)
}
