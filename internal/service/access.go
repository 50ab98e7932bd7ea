package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/nurpe/fleetwatch/internal/model"
)

const (
	defaultHistoryLimit  = 1000
	defaultStopLimit     = 100
	defaultTripLimit     = 50
	defaultOdometerLimit = 50
	defaultFuelLogLimit  = 200
	fuelSummaryWindow    = 1000
	defaultScoreLimit    = 30
	defaultAlertLimit    = 500
	maxLimit             = 5000
)

func limitOr(limit, fallback int) int {
	switch {
	case limit <= 0:
		return fallback
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}

// canView lets admins and operators see the whole fleet; drivers only see vehicles they own.
func canView(p model.Principal, v model.Vehicle) bool {
	if !p.IsDriver() {
		return true
	}
	return v.OwnerID != nil && *v.OwnerID == p.UserID
}

func loadVehicle(ctx context.Context, store VehicleStore, p model.Principal, id uuid.UUID) (*model.Vehicle, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidInput
	}
	vehicle, err := store.GetVehicle(ctx, id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if !canView(p, *vehicle) {
		return nil, ErrPermissionDenied
	}
	return vehicle, nil
}
