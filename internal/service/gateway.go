package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/analytics"
	"github.com/nurpe/fleetwatch/internal/geo"
	"github.com/nurpe/fleetwatch/internal/metrics"
	"github.com/nurpe/fleetwatch/internal/model"
	"github.com/nurpe/fleetwatch/internal/pipeline"
)

type TaskSubmitter interface {
	Submit(task pipeline.Task) bool
}

type LiveStateWriter interface {
	PushState(ctx context.Context, p model.LivePosition) error
}

// Gateway persists inbound packets and fans them out to the analyzers.
type Gateway struct {
	vehicles   VehicleStore
	telemetry  TelemetryStore
	analyzers  []analytics.Analyzer
	dispatcher TaskSubmitter
	live       LiveStateWriter
	log        zerolog.Logger
	now        func() time.Time

	locks sync.Map // vehicle id -> *sync.Mutex
}

func NewGateway(stores Stores, analyzers []analytics.Analyzer, dispatcher TaskSubmitter, live LiveStateWriter, log zerolog.Logger) *Gateway {
	return &Gateway{
		vehicles:   stores.Vehicles,
		telemetry:  stores.Telemetry,
		analyzers:  analyzers,
		dispatcher: dispatcher,
		live:       live,
		log:        log.With().Str("component", "gateway").Logger(),
		now:        time.Now,
	}
}

// Ingest stores the packet and returns once it is persisted; analyzer work continues in the
// background. Unknown hardware yields ErrUnknownVehicle, which callers are expected to log
// and swallow.
func (g *Gateway) Ingest(ctx context.Context, packet model.Packet) (*model.IngestResult, error) {
	packet.IMEI = strings.TrimSpace(packet.IMEI)
	if packet.IMEI == "" {
		metrics.TelemetryRejected.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: imei is required", ErrInvalidInput)
	}

	vehicle, err := g.vehicles.GetVehicleByIMEI(ctx, packet.IMEI)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.TelemetryRejected.WithLabelValues("unknown_imei").Inc()
			g.log.Warn().Str("imei", packet.IMEI).Msg("telemetry for unknown vehicle dropped")
			return nil, ErrUnknownVehicle
		}
		return nil, err
	}

	// previous-sample lookup and insert must not interleave for one vehicle
	unlock := g.lock(vehicle.ID)
	defer unlock()

	// stamped under the lock so defaulted timestamps follow insert order
	if packet.Timestamp.IsZero() {
		packet.Timestamp = g.now().UTC()
	}

	var previous *model.TelemetryEvent
	prev, err := g.telemetry.LatestTelemetry(ctx, vehicle.ID)
	switch {
	case err == nil:
		previous = prev
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	distanceKm := 0.0
	if previous != nil {
		distanceKm = geo.DistanceKm(previous.Latitude, previous.Longitude, packet.Latitude, packet.Longitude)
	}
	state := model.ClassifyMotion(packet.Speed, packet.Motion)

	saved, err := g.telemetry.InsertTelemetry(ctx, model.TelemetryEvent{
		VehicleID:     vehicle.ID,
		IMEI:          packet.IMEI,
		Timestamp:     packet.Timestamp,
		Latitude:      packet.Latitude,
		Longitude:     packet.Longitude,
		Speed:         packet.Speed,
		Ignition:      packet.Ignition,
		Motion:        packet.Motion,
		Power:         packet.Power,
		Charge:        packet.Charge,
		FuelLevel:     packet.FuelLevel,
		TotalDistance: packet.TotalDistance,
		TodayDistance: packet.TodayDistance,
		Raw:           packet.Raw,
	})
	if err != nil {
		return nil, err
	}
	metrics.TelemetryIngested.Inc()

	if err := g.vehicles.UpdatePosition(ctx, vehicle.ID, saved.Latitude, saved.Longitude, saved.Timestamp); err != nil {
		g.log.Error().Err(err).Str("vehicle_id", vehicle.ID.String()).Msg("update last position failed")
	}
	g.pushLive(ctx, *vehicle, *saved, state)

	g.fanOut(analytics.Sample{
		Vehicle:    *vehicle,
		Previous:   previous,
		Current:    *saved,
		DistanceKm: distanceKm,
		State:      state,
	})

	return &model.IngestResult{Event: *saved, DistanceKm: distanceKm, State: state}, nil
}

func (g *Gateway) fanOut(sample analytics.Sample) {
	if g.dispatcher == nil {
		return
	}
	for _, a := range g.analyzers {
		a := a
		g.dispatcher.Submit(pipeline.Task{
			Kind:      string(a.Kind()),
			VehicleID: sample.Vehicle.ID,
			Run: func(ctx context.Context) error {
				return a.Analyze(ctx, sample)
			},
		})
	}
}

func (g *Gateway) pushLive(ctx context.Context, vehicle model.Vehicle, e model.TelemetryEvent, state model.MotionState) {
	if g.live == nil {
		return
	}
	err := g.live.PushState(ctx, model.LivePosition{
		VehicleID: vehicle.ID,
		IMEI:      vehicle.IMEI,
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		Speed:     e.Speed,
		Ignition:  e.Ignition,
		Motion:    e.Motion,
		State:     state,
		Timestamp: e.Timestamp,
	})
	if err != nil {
		g.log.Warn().Err(err).Str("vehicle_id", vehicle.ID.String()).Msg("live state update failed")
	}
}

func (g *Gateway) lock(vehicleID uuid.UUID) func() {
	v, _ := g.locks.LoadOrStore(vehicleID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
