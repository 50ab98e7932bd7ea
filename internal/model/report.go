package model

import (
	"time"

	"github.com/google/uuid"
)

// VehicleReport is the activity summary exported to XLSX and PDF.
type VehicleReport struct {
	Vehicle     Vehicle
	PeriodStart time.Time
	PeriodEnd   time.Time
	Trips       []Trip
	Stops       []Stop
	StopStats   StopStats
	FuelLogs    []FuelLog
	Alerts      []GeofenceAlert
	Score       *DriverScore
}

// TotalDistanceKm sums the distance of closed trips.
func (r VehicleReport) TotalDistanceKm() float64 {
	total := 0.0
	for _, trip := range r.Trips {
		if trip.DistanceKm != nil {
			total += *trip.DistanceKm
		}
	}
	return total
}

// SuspiciousFuelEvents counts fuel logs flagged above Green.
func (r VehicleReport) SuspiciousFuelEvents() int {
	count := 0
	for _, log := range r.FuelLogs {
		if log.Suspicion != SuspicionGreen {
			count++
		}
	}
	return count
}

// TimeWindow is an inclusive [From, To] filter; zero bounds are open.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

func (w TimeWindow) Bounded() bool {
	return !w.From.IsZero() && !w.To.IsZero()
}

type VehicleFilter struct {
	VehicleID uuid.UUID
	Window    TimeWindow
	Limit     int
}

type AlertFilter struct {
	VehicleID *uuid.UUID
	Window    TimeWindow
	Limit     int
}
