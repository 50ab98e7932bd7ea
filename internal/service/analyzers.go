package service

import (
	"github.com/nurpe/fleetwatch/internal/analytics"
	"github.com/nurpe/fleetwatch/internal/config"
)

// Analyzers holds the per-packet analyzers wired to one backend.
type Analyzers struct {
	Stop     *analytics.StopDetector
	Trip     *analytics.TripManager
	Fuel     *analytics.FuelDetector
	Odometer *analytics.OdometerDetector
	Geofence *analytics.GeofenceEngine
	Score    *analytics.ScoreEngine
}

// NewAnalyzers builds every analyzer. deduper may be nil, in which case deadline-miss alerts
// repeat on every packet.
func NewAnalyzers(stores Stores, alerts *analytics.AlertRecorder, cfg config.AnalyticsConfig, deduper analytics.AlertDeduper) Analyzers {
	var geoOpts []analytics.GeofenceOption
	if cfg.DeadlineDedup && deduper != nil {
		geoOpts = append(geoOpts, analytics.WithDeadlineDeduper(deduper))
	}
	return Analyzers{
		Stop:     analytics.NewStopDetector(stores.Stops, cfg.StopDistanceKm, cfg.StopDurationSec),
		Trip:     analytics.NewTripManager(stores.Trips, stores.Telemetry),
		Fuel:     analytics.NewFuelDetector(stores.Fuel),
		Odometer: analytics.NewOdometerDetector(stores.Vehicles, alerts),
		Geofence: analytics.NewGeofenceEngine(stores.Geofences, alerts, cfg.OffZoneSpeedKmh, geoOpts...),
		Score: analytics.NewScoreEngine(
			stores.Telemetry,
			stores.Scores,
			cfg.SpeedLimitKmh,
			cfg.ScoreIngestTrigger,
			cfg.ScoreTriggerWindow,
		),
	}
}

// All lists the analyzers fanned out for every packet.
func (a Analyzers) All() []analytics.Analyzer {
	return []analytics.Analyzer{a.Stop, a.Trip, a.Fuel, a.Odometer, a.Geofence, a.Score}
}
