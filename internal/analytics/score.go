package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/fleetwatch/internal/model"
)

const (
	DefaultSpeedLimitKmh = 80
	hardBrakeDropKmh     = 20
)

type ScoreBreakdown struct {
	Score       int
	Rating      model.Suspicion
	SpeedEvents int
	BrakeEvents int
	IdleEvents  int
}

// ComputeScore scores samples ordered by timestamp. An empty window scores 100.
func ComputeScore(events []model.TelemetryEvent, speedLimit float64) ScoreBreakdown {
	var b ScoreBreakdown
	for i, e := range events {
		if e.Speed > speedLimit {
			b.SpeedEvents++
		}
		if i > 0 && events[i-1].Speed-e.Speed > hardBrakeDropKmh {
			b.BrakeEvents++
		}
		if e.Ignition && e.Speed == 0 && !e.Motion {
			b.IdleEvents++
		}
	}

	score := 100.0
	if total := float64(len(events)); total > 0 {
		speedPenalty := math.Min(30, float64(b.SpeedEvents)/total*100)
		brakePenalty := math.Min(30, float64(b.BrakeEvents)/total*100)
		idlePenalty := math.Min(20, float64(b.IdleEvents)/total*50)
		score = 100 - speedPenalty - brakePenalty - idlePenalty
	}

	b.Score = int(math.Max(0, math.Min(100, math.Round(score))))
	b.Rating = RatingFor(b.Score)
	return b
}

func RatingFor(score int) model.Suspicion {
	switch {
	case score < 50:
		return model.SuspicionRed
	case score < 80:
		return model.SuspicionBlue
	default:
		return model.SuspicionGreen
	}
}

// DayStart returns local midnight of the day containing t.
func DayStart(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// WeekStart returns local midnight of the Monday on or before t.
func WeekStart(t time.Time) time.Time {
	day := DayStart(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// PeriodStart returns the start of the scoring period containing t.
func PeriodStart(period model.ScorePeriod, t time.Time) (time.Time, error) {
	switch period {
	case model.PeriodDaily:
		return DayStart(t), nil
	case model.PeriodWeekly:
		return WeekStart(t), nil
	default:
		return time.Time{}, fmt.Errorf("unknown score period %q", period)
	}
}

type ScoreEngine struct {
	telemetry     TelemetryReader
	store         ScoreStore
	speedLimit    float64
	ingestTrigger bool
	window        time.Duration
}

func NewScoreEngine(telemetry TelemetryReader, store ScoreStore, speedLimit float64, ingestTrigger bool, window time.Duration) *ScoreEngine {
	if speedLimit <= 0 {
		speedLimit = DefaultSpeedLimitKmh
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &ScoreEngine{
		telemetry:     telemetry,
		store:         store,
		speedLimit:    speedLimit,
		ingestTrigger: ingestTrigger,
		window:        window,
	}
}

func (e *ScoreEngine) Kind() Kind { return KindScore }

// Analyze recomputes today's score when the sample lands in the first minutes of an hour.
func (e *ScoreEngine) Analyze(ctx context.Context, sample Sample) error {
	if !e.ingestTrigger || sample.Vehicle.OwnerID == nil {
		return nil
	}
	ts := sample.Current.Timestamp.In(time.Local)
	intoHour := time.Duration(ts.Minute())*time.Minute + time.Duration(ts.Second())*time.Second
	if intoHour >= e.window {
		return nil
	}
	_, err := e.Calculate(ctx, *sample.Vehicle.OwnerID, sample.Vehicle.ID, model.PeriodDaily, DayStart(ts), ts)
	return err
}

// Calculate scores the vehicle over [start, end] and upserts the result. A window without
// telemetry yields (nil, nil) and writes nothing.
func (e *ScoreEngine) Calculate(ctx context.Context, userID, vehicleID uuid.UUID, period model.ScorePeriod, start, end time.Time) (*model.DriverScore, error) {
	events, err := e.telemetry.ListTelemetry(ctx, vehicleID, start, end)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	b := ComputeScore(events, e.speedLimit)

	return e.store.UpsertScore(ctx, model.DriverScore{
		UserID:      userID,
		VehicleID:   vehicleID,
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end,
		Score:       b.Score,
		Rating:      b.Rating,
		SpeedEvents: b.SpeedEvents,
		BrakeEvents: b.BrakeEvents,
		IdleEvents:  b.IdleEvents,
	})
}
