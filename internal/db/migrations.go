package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		imei VARCHAR(32) NOT NULL,
		registration_no VARCHAR(64),
		make VARCHAR(128),
		model VARCHAR(128),
		year INTEGER,
		fuel_capacity NUMERIC(10,2),
		owner_id UUID,
		last_lat DOUBLE PRECISION,
		last_lng DOUBLE PRECISION,
		last_seen TIMESTAMPTZ,
		odometer DOUBLE PRECISION,
		last_odometer DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_vehicles_imei ON vehicles (imei);`,
	`CREATE INDEX IF NOT EXISTS idx_vehicles_owner_id ON vehicles (owner_id) WHERE owner_id IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS telemetry (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		seq BIGSERIAL NOT NULL,
		vehicle_id UUID NOT NULL REFERENCES vehicles(id),
		imei VARCHAR(32) NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		speed DOUBLE PRECISION NOT NULL DEFAULT 0,
		ignition BOOLEAN NOT NULL DEFAULT FALSE,
		motion BOOLEAN NOT NULL DEFAULT FALSE,
		power DOUBLE PRECISION,
		charge DOUBLE PRECISION,
		fuel_level DOUBLE PRECISION,
		total_distance DOUBLE PRECISION,
		today_distance DOUBLE PRECISION,
		raw JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_telemetry_vehicle_ts ON telemetry (vehicle_id, timestamp DESC, seq DESC);`,
	`CREATE TABLE IF NOT EXISTS stops (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		vehicle_id UUID NOT NULL REFERENCES vehicles(id),
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		duration BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_stops_open_vehicle ON stops (vehicle_id) WHERE end_time IS NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_stops_vehicle_start ON stops (vehicle_id, start_time DESC);`,
	`CREATE TABLE IF NOT EXISTS trips (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		vehicle_id UUID NOT NULL REFERENCES vehicles(id),
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		distance_km DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_trips_open_vehicle ON trips (vehicle_id) WHERE end_time IS NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_trips_vehicle_start ON trips (vehicle_id, start_time DESC);`,
	`CREATE TABLE IF NOT EXISTS fuel_logs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		seq BIGSERIAL NOT NULL,
		vehicle_id UUID NOT NULL REFERENCES vehicles(id),
		previous_fuel DOUBLE PRECISION NOT NULL,
		current_fuel DOUBLE PRECISION NOT NULL,
		delta DOUBLE PRECISION NOT NULL,
		distance_km DOUBLE PRECISION NOT NULL,
		suspicion VARCHAR(16) NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_fuel_logs_vehicle_created ON fuel_logs (vehicle_id, created_at DESC, seq DESC);`,
	`CREATE TABLE IF NOT EXISTS geofences (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		type VARCHAR(16) NOT NULL DEFAULT 'circle',
		center_lat DOUBLE PRECISION,
		center_lng DOUBLE PRECISION,
		radius DOUBLE PRECISION,
		polygon JSONB,
		scheduled_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_geofences_name ON geofences (name);`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'alert_severity') THEN
			CREATE TYPE alert_severity AS ENUM ('info', 'warning', 'critical');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS geofence_alerts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		geofence_id UUID REFERENCES geofences(id),
		vehicle_id UUID NOT NULL REFERENCES vehicles(id),
		kind VARCHAR(32) NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		severity alert_severity NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'geofence_alerts' AND column_name = 'kind') THEN
			ALTER TABLE geofence_alerts ADD COLUMN kind VARCHAR(32) NOT NULL DEFAULT '';
		END IF;
	END
	$$;`,
	`CREATE INDEX IF NOT EXISTS idx_geofence_alerts_created ON geofence_alerts (created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_geofence_alerts_vehicle ON geofence_alerts (vehicle_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS driver_scores (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL,
		vehicle_id UUID NOT NULL REFERENCES vehicles(id),
		period VARCHAR(16) NOT NULL,
		period_start TIMESTAMPTZ NOT NULL,
		period_end TIMESTAMPTZ NOT NULL,
		score INTEGER NOT NULL,
		rating VARCHAR(16) NOT NULL,
		speed_events INTEGER NOT NULL DEFAULT 0,
		brake_events INTEGER NOT NULL DEFAULT 0,
		idle_events INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_driver_scores_period ON driver_scores (user_id, vehicle_id, period, period_start);`,
	`CREATE INDEX IF NOT EXISTS idx_driver_scores_vehicle_end ON driver_scores (vehicle_id, period_end DESC);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
