package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/repository"
)

type GeofenceService struct {
	store GeofenceStore
}

func NewGeofenceService(store GeofenceStore) *GeofenceService {
	return &GeofenceService{store: store}
}

type CreateGeofenceInput struct {
	Name        string
	Type        model.GeofenceType
	CenterLat   *float64
	CenterLng   *float64
	Radius      *float64
	Polygon     json.RawMessage
	ScheduledAt *time.Time
	Principal   model.Principal
}

func (s *GeofenceService) Create(ctx context.Context, input CreateGeofenceInput) (*model.Geofence, error) {
	if input.Principal.IsDriver() {
		return nil, ErrPermissionDenied
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if input.Type == "" {
		input.Type = model.GeofenceCircle
	}

	g := model.Geofence{Name: name, Type: input.Type, ScheduledAt: input.ScheduledAt}
	switch input.Type {
	case model.GeofenceCircle:
		if input.CenterLat == nil || input.CenterLng == nil || input.Radius == nil {
			return nil, fmt.Errorf("%w: circle requires center_lat, center_lng and radius", ErrInvalidInput)
		}
		if *input.Radius <= 0 {
			return nil, fmt.Errorf("%w: radius must be positive", ErrInvalidInput)
		}
		if !validCoordinate(*input.CenterLat, *input.CenterLng) {
			return nil, fmt.Errorf("%w: center is out of range", ErrInvalidInput)
		}
		g.CenterLat, g.CenterLng, g.Radius = input.CenterLat, input.CenterLng, input.Radius
	case model.GeofencePolygon:
		if len(input.Polygon) == 0 || !json.Valid(input.Polygon) {
			return nil, fmt.Errorf("%w: polygon must be valid JSON", ErrInvalidInput)
		}
		g.Polygon = datatypes.JSON(input.Polygon)
	default:
		return nil, fmt.Errorf("%w: unknown geofence type %q", ErrInvalidInput, input.Type)
	}

	saved, err := s.store.CreateGeofence(ctx, g)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("%w: geofence %s", ErrConflict, name)
	}
	return saved, err
}

func (s *GeofenceService) List(ctx context.Context) ([]model.Geofence, error) {
	return s.store.ListGeofences(ctx)
}

// Alerts lists alerts newest first across the fleet. Drivers may not read them.
func (s *GeofenceService) Alerts(ctx context.Context, p model.Principal, filter model.AlertFilter) ([]model.GeofenceAlert, error) {
	if p.IsDriver() {
		return nil, ErrPermissionDenied
	}
	filter.Limit = limitOr(filter.Limit, defaultAlertLimit)
	return s.store.ListAlerts(ctx, filter)
}

func validCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
