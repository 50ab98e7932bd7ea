package analytics

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nurpe/fleetwatch/internal/metrics"
	"github.com/nurpe/fleetwatch/internal/model"
)

type AlertStore interface {
	CreateAlert(ctx context.Context, alert model.GeofenceAlert) (*model.GeofenceAlert, error)
}

// AlertPublisher fans a persisted alert out to live subscribers.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert model.GeofenceAlert) error
}

// AlertRecorder persists alerts and then publishes them best-effort.
type AlertRecorder struct {
	store     AlertStore
	publisher AlertPublisher
	log       zerolog.Logger
}

func NewAlertRecorder(store AlertStore, publisher AlertPublisher, log zerolog.Logger) *AlertRecorder {
	return &AlertRecorder{store: store, publisher: publisher, log: log}
}

func (r *AlertRecorder) Record(ctx context.Context, alert model.GeofenceAlert) (*model.GeofenceAlert, error) {
	saved, err := r.store.CreateAlert(ctx, alert)
	if err != nil {
		return nil, err
	}
	metrics.AlertsRaised.WithLabelValues(string(saved.Severity), string(saved.Kind)).Inc()

	if r.publisher != nil {
		if err := r.publisher.PublishAlert(ctx, *saved); err != nil {
			r.log.Warn().Err(err).Str("vehicle_id", saved.VehicleID.String()).Msg("publish alert failed")
		}
	}
	return saved, nil
}
