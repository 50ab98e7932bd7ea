package model

import (
	"time"

	"github.com/google/uuid"
)

type Vehicle struct {
	ID             uuid.UUID  `json:"id"`
	IMEI           string     `json:"imei"`
	RegistrationNo *string    `json:"registration_no,omitempty"`
	Make           *string    `json:"make,omitempty"`
	Model          *string    `json:"model,omitempty"`
	Year           *int       `json:"year,omitempty"`
	FuelCapacity   *float64   `json:"fuel_capacity,omitempty"`
	OwnerID        *uuid.UUID `json:"owner_id,omitempty"`
	LastLat        *float64   `json:"last_lat,omitempty"`
	LastLng        *float64   `json:"last_lng,omitempty"`
	LastSeen       *time.Time `json:"last_seen,omitempty"`
	Odometer       *float64   `json:"odometer,omitempty"`
	LastOdometer   *float64   `json:"last_odometer,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Label identifies the vehicle in alert messages.
func (v Vehicle) Label() string {
	if v.RegistrationNo != nil && *v.RegistrationNo != "" {
		return *v.RegistrationNo + " (" + v.IMEI + ")"
	}
	return v.IMEI
}

// LivePosition is the cached last-known state of a vehicle.
type LivePosition struct {
	VehicleID uuid.UUID   `json:"vehicle_id"`
	IMEI      string      `json:"imei"`
	Latitude  float64     `json:"lat"`
	Longitude float64     `json:"lng"`
	Speed     float64     `json:"speed"`
	Ignition  bool        `json:"ignition"`
	Motion    bool        `json:"motion"`
	State     MotionState `json:"state"`
	Timestamp time.Time   `json:"timestamp"`
}
