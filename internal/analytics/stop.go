package analytics

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/geo"
	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/repository"
)

const (
	DefaultStopDistanceKm  = 0.05
	DefaultStopDurationSec = 120
	stationarySpeedKmh     = 5
)

// StopDetector opens, merges and closes stop records per vehicle.
type StopDetector struct {
	store          StopStore
	distanceKm     float64
	minDurationSec int64
}

func NewStopDetector(store StopStore, distanceKm float64, minDurationSec int64) *StopDetector {
	if distanceKm <= 0 {
		distanceKm = DefaultStopDistanceKm
	}
	if minDurationSec <= 0 {
		minDurationSec = DefaultStopDurationSec
	}
	return &StopDetector{store: store, distanceKm: distanceKm, minDurationSec: minDurationSec}
}

func (d *StopDetector) Kind() Kind { return KindStop }

func (d *StopDetector) Analyze(ctx context.Context, sample Sample) error {
	_, err := d.Detect(ctx, sample)
	return err
}

// Detect returns the stop the vehicle is in after this sample, or nil when it is not stopped.
func (d *StopDetector) Detect(ctx context.Context, sample Sample) (*model.Stop, error) {
	vehicleID := sample.Vehicle.ID
	current := sample.Current

	active, err := d.store.FindOpenStop(ctx, vehicleID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		active = nil
	}

	if !IsStationary(current.Speed, current.Motion) {
		if active != nil {
			if _, err := d.closeStop(ctx, *active, current.Timestamp); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	if active == nil {
		return d.openStop(ctx, sample)
	}

	drift := geo.DistanceKm(active.Latitude, active.Longitude, current.Latitude, current.Longitude)
	if drift <= d.distanceKm {
		return active, nil
	}

	if _, err := d.closeStop(ctx, *active, current.Timestamp); err != nil {
		return nil, err
	}
	return d.openStop(ctx, sample)
}

// IsStationary reports whether a sample counts towards a stop.
func IsStationary(speed float64, motion bool) bool {
	return speed < stationarySpeedKmh && !motion
}

func (d *StopDetector) openStop(ctx context.Context, sample Sample) (*model.Stop, error) {
	stop, err := d.store.CreateStop(ctx, model.Stop{
		VehicleID: sample.Vehicle.ID,
		Latitude:  sample.Current.Latitude,
		Longitude: sample.Current.Longitude,
		StartTime: sample.Current.Timestamp,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// a previous attempt already opened it
		return d.store.FindOpenStop(ctx, sample.Vehicle.ID)
	}
	return stop, err
}

// closeStop stamps the end of a stop, or deletes it when it was too short to report.
func (d *StopDetector) closeStop(ctx context.Context, stop model.Stop, endTime time.Time) (*model.Stop, error) {
	duration := int64(math.Round(endTime.Sub(stop.StartTime).Seconds()))
	if duration < d.minDurationSec {
		return nil, d.store.DeleteStop(ctx, stop.ID)
	}
	return d.store.CloseStop(ctx, stop.ID, endTime, duration)
}
