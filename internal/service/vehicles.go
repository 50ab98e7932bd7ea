package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nurpe/fleetwatch/internal/analytics"
	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/repository"
)

type LiveStateReader interface {
	GetState(ctx context.Context, vehicleID uuid.UUID) (*model.LivePosition, error)
}

type VehicleService struct {
	vehicles VehicleStore
	odometer *analytics.OdometerDetector
	live     LiveStateReader
}

func NewVehicleService(vehicles VehicleStore, odometer *analytics.OdometerDetector, live LiveStateReader) *VehicleService {
	return &VehicleService{vehicles: vehicles, odometer: odometer, live: live}
}

type CreateVehicleInput struct {
	IMEI           string
	RegistrationNo *string
	Make           *string
	Model          *string
	Year           *int
	FuelCapacity   *float64
	Odometer       *float64
	Principal      model.Principal
}

func (s *VehicleService) Create(ctx context.Context, input CreateVehicleInput) (*model.Vehicle, error) {
	imei := strings.TrimSpace(input.IMEI)
	if imei == "" {
		return nil, fmt.Errorf("%w: imei is required", ErrInvalidInput)
	}
	if input.Year != nil && (*input.Year < 1900 || *input.Year > 2100) {
		return nil, fmt.Errorf("%w: year is out of range", ErrInvalidInput)
	}
	if input.FuelCapacity != nil && *input.FuelCapacity < 0 {
		return nil, fmt.Errorf("%w: fuel_capacity must be positive", ErrInvalidInput)
	}

	owner := input.Principal.UserID
	vehicle, err := s.vehicles.CreateVehicle(ctx, model.Vehicle{
		IMEI:           imei,
		RegistrationNo: input.RegistrationNo,
		Make:           input.Make,
		Model:          input.Model,
		Year:           input.Year,
		FuelCapacity:   input.FuelCapacity,
		Odometer:       input.Odometer,
		OwnerID:        &owner,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("%w: vehicle with imei %s", ErrConflict, imei)
	}
	return vehicle, err
}

func (s *VehicleService) List(ctx context.Context, p model.Principal) ([]model.Vehicle, error) {
	all, err := s.vehicles.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]model.Vehicle, 0, len(all))
	for _, v := range all {
		if canView(p, v) {
			visible = append(visible, v)
		}
	}
	return visible, nil
}

func (s *VehicleService) Get(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Vehicle, error) {
	return loadVehicle(ctx, s.vehicles, p, id)
}

func (s *VehicleService) UpdateOdometer(ctx context.Context, p model.Principal, id uuid.UUID, reading float64) (*model.Vehicle, error) {
	if reading < 0 {
		return nil, fmt.Errorf("%w: odometer must not be negative", ErrInvalidInput)
	}
	if _, err := loadVehicle(ctx, s.vehicles, p, id); err != nil {
		return nil, err
	}
	vehicle, err := s.odometer.UpdateOdometer(ctx, id, reading)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return vehicle, nil
}

func (s *VehicleService) OdometerHistory(ctx context.Context, p model.Principal, id uuid.UUID, limit int) ([]model.OdometerSample, error) {
	if _, err := loadVehicle(ctx, s.vehicles, p, id); err != nil {
		return nil, err
	}
	return s.odometer.History(ctx, id, limitOr(limit, defaultOdometerLimit))
}

func (s *VehicleService) Live(ctx context.Context, p model.Principal, id uuid.UUID) (*model.LivePosition, error) {
	vehicle, err := loadVehicle(ctx, s.vehicles, p, id)
	if err != nil {
		return nil, err
	}
	if s.live == nil {
		return fallbackPosition(*vehicle)
	}
	state, err := s.live.GetState(ctx, id)
	if err != nil {
		return fallbackPosition(*vehicle)
	}
	return state, nil
}

// fallbackPosition serves the last position stored on the vehicle row when the cache has nothing.
func fallbackPosition(v model.Vehicle) (*model.LivePosition, error) {
	if v.LastLat == nil || v.LastLng == nil || v.LastSeen == nil {
		return nil, ErrLiveUnavailable
	}
	return &model.LivePosition{
		VehicleID: v.ID,
		IMEI:      v.IMEI,
		Latitude:  *v.LastLat,
		Longitude: *v.LastLng,
		Timestamp: *v.LastSeen,
	}, nil
}
