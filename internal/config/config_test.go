package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}
	if cfg.HTTP.Port != 7090 {
		t.Errorf("HTTP.Port = %d, want 7090", cfg.HTTP.Port)
	}
	if cfg.Analytics.StopDistanceKm != 0.05 {
		t.Errorf("StopDistanceKm = %v, want 0.05", cfg.Analytics.StopDistanceKm)
	}
	if cfg.Analytics.StopDurationSec != 120 {
		t.Errorf("StopDurationSec = %v, want 120", cfg.Analytics.StopDurationSec)
	}
	if cfg.Analytics.SpeedLimitKmh != 80 {
		t.Errorf("SpeedLimitKmh = %v, want 80", cfg.Analytics.SpeedLimitKmh)
	}
	if cfg.Vendor.Timeout != 8*time.Second {
		t.Errorf("Vendor.Timeout = %v, want 8s", cfg.Vendor.Timeout)
	}
	if cfg.Vendor.BatchSize != 20 {
		t.Errorf("Vendor.BatchSize = %d, want 20", cfg.Vendor.BatchSize)
	}
	if !cfg.Analytics.ScoreIngestTrigger {
		t.Error("ScoreIngestTrigger should default to true")
	}
	if cfg.Analytics.DeadlineDedup {
		t.Error("DeadlineDedup should default to false")
	}
	if cfg.Pipeline.MaxAttempts != 3 {
		t.Errorf("Pipeline.MaxAttempts = %d, want 3", cfg.Pipeline.MaxAttempts)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("STOP_DISTANCE_KM", "0.1")
	t.Setenv("STOP_DURATION_SEC", "300")
	t.Setenv("SPEED_LIMIT_KMH", "60")
	t.Setenv("GEOFENCE_DEADLINE_DEDUP", "true")
	t.Setenv("VENDOR_TIMEOUT", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Analytics.StopDistanceKm != 0.1 {
		t.Errorf("StopDistanceKm = %v, want 0.1", cfg.Analytics.StopDistanceKm)
	}
	if cfg.Analytics.StopDurationSec != 300 {
		t.Errorf("StopDurationSec = %v, want 300", cfg.Analytics.StopDurationSec)
	}
	if cfg.Analytics.SpeedLimitKmh != 60 {
		t.Errorf("SpeedLimitKmh = %v, want 60", cfg.Analytics.SpeedLimitKmh)
	}
	if !cfg.Analytics.DeadlineDedup {
		t.Error("DeadlineDedup should be true")
	}
	if cfg.Vendor.Timeout != 3*time.Second {
		t.Errorf("Vendor.Timeout = %v, want 3s", cfg.Vendor.Timeout)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DB:       DBConfig{Driver: "postgres", DSN: "postgres://localhost/fleet"},
			Auth:     AuthConfig{AccessSecret: "secret"},
			Vendor:   VendorConfig{BatchSize: 20},
			Pipeline: PipelineConfig{Concurrency: 4, MaxAttempts: 3},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid postgres", func(*Config) {}, false},
		{"postgres without dsn", func(c *Config) { c.DB.DSN = "" }, true},
		{"memory without dsn", func(c *Config) { c.DB.Driver = "memory"; c.DB.DSN = "" }, false},
		{"unknown driver", func(c *Config) { c.DB.Driver = "sqlite" }, true},
		{"missing secret", func(c *Config) { c.Auth.AccessSecret = "" }, true},
		{"zero concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }, true},
		{"zero attempts", func(c *Config) { c.Pipeline.MaxAttempts = 0 }, true},
		{"zero batch", func(c *Config) { c.Vendor.BatchSize = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
