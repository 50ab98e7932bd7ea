package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Stop struct {
	ID        uuid.UUID  `json:"id"`
	VehicleID uuid.UUID  `json:"vehicle_id"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Duration  *int64     `json:"duration,omitempty"` // seconds
	CreatedAt time.Time  `json:"created_at"`
}

type StopStats struct {
	TotalStops    int   `json:"total_stops"`
	TotalDuration int64 `json:"total_duration"`
	AvgDuration   int64 `json:"avg_duration"`
	MaxDuration   int64 `json:"max_duration"`
}

type Trip struct {
	ID         uuid.UUID  `json:"id"`
	VehicleID  uuid.UUID  `json:"vehicle_id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	DistanceKm *float64   `json:"distance_km,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Suspicion string

const (
	SuspicionGreen Suspicion = "Green"
	SuspicionBlue  Suspicion = "Blue"
	SuspicionRed   Suspicion = "Red"
)

type FuelLog struct {
	ID           uuid.UUID `json:"id"`
	VehicleID    uuid.UUID `json:"vehicle_id"`
	PreviousFuel float64   `json:"previous_fuel"`
	CurrentFuel  float64   `json:"current_fuel"`
	Delta        float64   `json:"delta"`
	DistanceKm   float64   `json:"distance_km"`
	Suspicion    Suspicion `json:"suspicion"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}

type FuelSummary struct {
	VehicleID  uuid.UUID `json:"vehicle_id"`
	TotalDelta float64   `json:"total_delta"`
	Count      int       `json:"count"`
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type AlertKind string

const (
	AlertDeadlineMissed   AlertKind = "deadline_missed"
	AlertOffZoneSpeeding  AlertKind = "off_zone_speeding"
	AlertOdometerRollback AlertKind = "odometer_rollback"
	AlertOdometerFrozen   AlertKind = "odometer_frozen"
	AlertOdometerJump     AlertKind = "odometer_jump"
)

type GeofenceAlert struct {
	ID         uuid.UUID  `json:"id"`
	GeofenceID *uuid.UUID `json:"geofence_id,omitempty"`
	VehicleID  uuid.UUID  `json:"vehicle_id"`
	Kind       AlertKind  `json:"kind"`
	Message    string     `json:"message"`
	Severity   Severity   `json:"severity"`
	CreatedAt  time.Time  `json:"created_at"`
}

type GeofenceType string

const (
	GeofenceCircle  GeofenceType = "circle"
	GeofencePolygon GeofenceType = "polygon"
)

type Geofence struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Type        GeofenceType   `json:"type"`
	CenterLat   *float64       `json:"center_lat,omitempty"`
	CenterLng   *float64       `json:"center_lng,omitempty"`
	Radius      *float64       `json:"radius,omitempty"` // meters
	Polygon     datatypes.JSON `json:"polygon,omitempty"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

type ScorePeriod string

const (
	PeriodDaily  ScorePeriod = "daily"
	PeriodWeekly ScorePeriod = "weekly"
)

type DriverScore struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	VehicleID   uuid.UUID   `json:"vehicle_id"`
	Period      ScorePeriod `json:"period"`
	PeriodStart time.Time   `json:"period_start"`
	PeriodEnd   time.Time   `json:"period_end"`
	Score       int         `json:"score"`
	Rating      Suspicion   `json:"rating"`
	SpeedEvents int         `json:"speed_events"`
	BrakeEvents int         `json:"brake_events"`
	IdleEvents  int         `json:"idle_events"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
