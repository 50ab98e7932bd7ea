package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/model"
)

// FuelDetector compares consecutive fuel readings against distance travelled.
type FuelDetector struct {
	store FuelStore
}

func NewFuelDetector(store FuelStore) *FuelDetector {
	return &FuelDetector{store: store}
}

func (d *FuelDetector) Kind() Kind { return KindFuel }

func (d *FuelDetector) Analyze(ctx context.Context, sample Sample) error {
	_, err := d.Inspect(ctx, sample)
	return err
}

// Inspect appends a fuel log when both the current and previous levels are known.
// It returns Green without writing anything when either level is missing.
func (d *FuelDetector) Inspect(ctx context.Context, sample Sample) (model.Suspicion, error) {
	current := currentFuel(sample.Current)
	if current == nil {
		return model.SuspicionGreen, nil
	}

	previous, err := d.previousFuel(ctx, sample)
	if err != nil {
		return model.SuspicionGreen, err
	}
	if previous == nil {
		return model.SuspicionGreen, nil
	}

	delta := *current - *previous
	absDrop := math.Max(0, -delta)
	suspicion := ClassifyFuelDrop(absDrop, sample.DistanceKm)

	notes := "No significant drop"
	if absDrop > 0 {
		notes = fmt.Sprintf("Detected drop %.2fL", absDrop)
	}

	if _, err := d.store.CreateFuelLog(ctx, model.FuelLog{
		VehicleID:    sample.Vehicle.ID,
		PreviousFuel: *previous,
		CurrentFuel:  *current,
		Delta:        delta,
		DistanceKm:   sample.DistanceKm,
		Suspicion:    suspicion,
		Notes:        notes,
	}); err != nil {
		return suspicion, err
	}
	return suspicion, nil
}

// ClassifyFuelDrop grades a fuel drop; the first matching rule wins.
func ClassifyFuelDrop(absDrop, distanceKm float64) model.Suspicion {
	switch {
	case absDrop >= 25 && distanceKm < 1:
		return model.SuspicionRed
	case absDrop >= 10 && distanceKm < 2:
		return model.SuspicionBlue
	case absDrop >= 2 && distanceKm < 1:
		return model.SuspicionBlue
	default:
		return model.SuspicionGreen
	}
}

func currentFuel(event model.TelemetryEvent) *float64 {
	if event.Charge != nil {
		return event.Charge
	}
	return event.FuelLevel
}

func (d *FuelDetector) previousFuel(ctx context.Context, sample Sample) (*float64, error) {
	last, err := d.store.LatestFuelLog(ctx, sample.Vehicle.ID)
	switch {
	case err == nil:
		return &last.CurrentFuel, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	if sample.Previous != nil {
		return sample.Previous.FuelLevel, nil
	}
	return nil, nil
}
