// Package scheduler runs periodic background jobs owned by the composition root.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/fleetwatch/internal/analytics"
	"github.com/nurpe/fleetwatch/internal/metrics"
	"github.com/nurpe/fleetwatch/internal/model"
)

const defaultScoreInterval = time.Hour

type VehicleLister interface {
	ListVehicles(ctx context.Context) ([]model.Vehicle, error)
}

type ScoreCalculator interface {
	Calculate(ctx context.Context, userID, vehicleID uuid.UUID, period model.ScorePeriod, start, end time.Time) (*model.DriverScore, error)
}

// ScoreScheduler recomputes the daily and weekly score of every owned vehicle on a fixed interval.
type ScoreScheduler struct {
	vehicles VehicleLister
	scores   ScoreCalculator
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScoreScheduler(vehicles VehicleLister, scores ScoreCalculator, interval time.Duration, log zerolog.Logger) *ScoreScheduler {
	if interval <= 0 {
		interval = defaultScoreInterval
	}
	return &ScoreScheduler{
		vehicles: vehicles,
		scores:   scores,
		interval: interval,
		log:      log.With().Str("component", "score_scheduler").Logger(),
		now:      time.Now,
	}
}

// Start launches the loop. Calling Start on a running scheduler is a no-op.
func (s *ScoreScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.log.Info().Dur("interval", s.interval).Msg("score scheduler started")
}

// Stop cancels the loop and waits for an in-flight run to return.
func (s *ScoreScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info().Msg("score scheduler stopped")
}

func (s *ScoreScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("score run finished with errors")
			}
		}
	}
}

// RunOnce scores every owned vehicle for the current day and week. Vehicles without telemetry
// in a period are skipped. A failing vehicle does not stop the others; all failures are
// returned joined.
func (s *ScoreScheduler) RunOnce(ctx context.Context) error {
	vehicles, err := s.vehicles.ListVehicles(ctx)
	if err != nil {
		return fmt.Errorf("list vehicles: %w", err)
	}

	now := s.now()
	periods := []struct {
		period model.ScorePeriod
		start  time.Time
	}{
		{model.PeriodDaily, analytics.DayStart(now)},
		{model.PeriodWeekly, analytics.WeekStart(now)},
	}

	var errs []error
	for _, v := range vehicles {
		if v.OwnerID == nil {
			continue
		}
		for _, p := range periods {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			score, err := s.scores.Calculate(ctx, *v.OwnerID, v.ID, p.period, p.start, now)
			if err != nil {
				metrics.ScoresScheduled.WithLabelValues(string(p.period), "error").Inc()
				s.log.Warn().Err(err).Str("vehicle_id", v.ID.String()).Str("period", string(p.period)).Msg("failed to compute score")
				errs = append(errs, fmt.Errorf("vehicle %s %s: %w", v.ID, p.period, err))
				continue
			}
			if score == nil {
				// no telemetry in the period
				metrics.ScoresScheduled.WithLabelValues(string(p.period), "skipped").Inc()
				continue
			}
			metrics.ScoresScheduled.WithLabelValues(string(p.period), "ok").Inc()
		}
	}
	return errors.Join(errs...)
}
