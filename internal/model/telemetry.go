package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Packet is the canonical inbound sample after vendor parsing. Its json tags follow the
// upstream collector field names.
type Packet struct {
	IMEI          string         `json:"imei"`
	Timestamp     time.Time      `json:"timestamp"`
	Latitude      float64        `json:"latitude"`
	Longitude     float64        `json:"longitude"`
	Speed         float64        `json:"speed"`
	Ignition      bool           `json:"ignition"`
	Motion        bool           `json:"motion"`
	Power         *float64       `json:"power,omitempty"`
	Charge        *float64       `json:"charge,omitempty"`
	FuelLevel     *float64       `json:"fuelLevel,omitempty"`
	TotalDistance *float64       `json:"totalDistance,omitempty"`
	TodayDistance *float64       `json:"todayDistance,omitempty"`
	Raw           datatypes.JSON `json:"raw,omitempty"`
}

// TelemetryEvent is the persisted, immutable form of a Packet.
type TelemetryEvent struct {
	ID            uuid.UUID      `json:"id"`
	Seq           int64          `json:"-"`
	VehicleID     uuid.UUID      `json:"vehicle_id"`
	IMEI          string         `json:"imei"`
	Timestamp     time.Time      `json:"timestamp"`
	Latitude      float64        `json:"latitude"`
	Longitude     float64        `json:"longitude"`
	Speed         float64        `json:"speed"`
	Ignition      bool           `json:"ignition"`
	Motion        bool           `json:"motion"`
	Power         *float64       `json:"power,omitempty"`
	Charge        *float64       `json:"charge,omitempty"`
	FuelLevel     *float64       `json:"fuel_level,omitempty"`
	TotalDistance *float64       `json:"total_distance,omitempty"`
	TodayDistance *float64       `json:"today_distance,omitempty"`
	Raw           datatypes.JSON `json:"raw,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ReplayPoint is the trimmed sample served for route playback.
type ReplayPoint struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`
	Ignition  bool      `json:"ignition"`
	Motion    bool      `json:"motion"`
}

type OdometerSample struct {
	ID            uuid.UUID `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	TotalDistance float64   `json:"total_distance"`
	TodayDistance *float64  `json:"today_distance,omitempty"`
}

type MotionState string

const (
	StateMoving  MotionState = "moving"
	StateIdle    MotionState = "idle"
	StateStopped MotionState = "stopped"
)

// ClassifyMotion derives the per-packet state shared by every analyzer.
func ClassifyMotion(speed float64, motion bool) MotionState {
	switch {
	case speed > 5 || motion:
		return StateMoving
	case speed > 0:
		return StateIdle
	default:
		return StateStopped
	}
}

// IngestResult is returned synchronously to the packet source.
type IngestResult struct {
	Event      TelemetryEvent `json:"event"`
	DistanceKm float64        `json:"distance_km"`
	State      MotionState    `json:"state"`
}
