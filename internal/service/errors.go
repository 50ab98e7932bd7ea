package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/analytics"
	"github.com/nurpe/fleetwatch/internal/repository"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("already exists")
	ErrUnknownVehicle   = errors.New("unknown vehicle")
	ErrLiveUnavailable  = errors.New("live state unavailable")
)

// IsPermanent reports errors that a retry cannot fix.
func IsPermanent(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, analytics.ErrAlertsPartiallyRecorded),
		repository.IsIntegrityViolation(err):
		return true
	}
	return false
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
