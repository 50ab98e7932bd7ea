package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/fleetwatch/internal/model"
)

const scoreColumns = `
	id,
	user_id,
	vehicle_id,
	period,
	period_start,
	period_end,
	score,
	rating,
	speed_events,
	brake_events,
	idle_events,
	created_at,
	updated_at`

type ScoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

func (r *ScoreRepository) UpsertScore(ctx context.Context, s model.DriverScore) (*model.DriverScore, error) {
	var saved model.DriverScore
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO driver_scores (
			user_id,
			vehicle_id,
			period,
			period_start,
			period_end,
			score,
			rating,
			speed_events,
			brake_events,
			idle_events
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, vehicle_id, period, period_start) DO UPDATE SET
			period_end = EXCLUDED.period_end,
			score = EXCLUDED.score,
			rating = EXCLUDED.rating,
			speed_events = EXCLUDED.speed_events,
			brake_events = EXCLUDED.brake_events,
			idle_events = EXCLUDED.idle_events,
			updated_at = NOW()
		RETURNING`+scoreColumns,
		s.UserID,
		s.VehicleID,
		s.Period,
		s.PeriodStart,
		s.PeriodEnd,
		s.Score,
		s.Rating,
		s.SpeedEvents,
		s.BrakeEvents,
		s.IdleEvents,
	).Scan(&saved).Error
	if err != nil {
		return nil, translate(err)
	}
	return &saved, nil
}

func (r *ScoreRepository) ListScores(ctx context.Context, userID uuid.UUID, period model.ScorePeriod, limit int) ([]model.DriverScore, error) {
	var rows []model.DriverScore
	if err := r.db.WithContext(ctx).Raw(`SELECT`+scoreColumns+`
		FROM driver_scores
		WHERE user_id = ?
			AND period = ?
		ORDER BY period_start DESC
		LIMIT ?
	`, userID, period, limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScoreRepository) LatestScore(ctx context.Context, vehicleID uuid.UUID) (*model.DriverScore, error) {
	var s model.DriverScore
	err := r.db.WithContext(ctx).Raw(`SELECT`+scoreColumns+`
		FROM driver_scores
		WHERE vehicle_id = ?
		ORDER BY period_end DESC, updated_at DESC
		LIMIT 1
	`, vehicleID).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}
