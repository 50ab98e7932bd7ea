package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host        string
	Port        int
	CORSOrigins string
}

type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	StateTTL time.Duration
}

type MQTTConfig struct {
	URL      string
	Topic    string
	ClientID string
}

type VendorConfig struct {
	BaseURL      string
	Token        string
	PollInterval time.Duration
	Timeout      time.Duration
	BatchSize    int
}

type AnalyticsConfig struct {
	StopDistanceKm     float64
	StopDurationSec    int64
	SpeedLimitKmh      float64
	OffZoneSpeedKmh    float64
	DeadlineDedup      bool
	DeadlineDedupTTL   time.Duration
	ScoreIngestTrigger bool
	ScoreTriggerWindow time.Duration
	ScoreInterval      time.Duration
}

type PipelineConfig struct {
	Concurrency int
	QueueSize   int
	MaxAttempts int
	RetryBase   time.Duration
}

type Config struct {
	Environment string
	LogLevel    string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Redis       RedisConfig
	MQTT        MQTTConfig
	Vendor      VendorConfig
	Analytics   AnalyticsConfig
	Pipeline    PipelineConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AutomaticEnv()

	setDefaults(v)
	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Host:        v.GetString("HTTP_HOST"),
			Port:        v.GetInt("HTTP_PORT"),
			CORSOrigins: v.GetString("HTTP_CORS_ORIGINS"),
		},
		DB: DBConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			StateTTL: v.GetDuration("LIVE_STATE_TTL"),
		},
		MQTT: MQTTConfig{
			URL:      v.GetString("MQTT_URL"),
			Topic:    v.GetString("MQTT_TOPIC"),
			ClientID: v.GetString("MQTT_CLIENT_ID"),
		},
		Vendor: VendorConfig{
			BaseURL:      v.GetString("VENDOR_BASE_URL"),
			Token:        v.GetString("VENDOR_TOKEN"),
			PollInterval: v.GetDuration("VENDOR_POLL_INTERVAL"),
			Timeout:      v.GetDuration("VENDOR_TIMEOUT"),
			BatchSize:    v.GetInt("VENDOR_BATCH_SIZE"),
		},
		Analytics: AnalyticsConfig{
			StopDistanceKm:     v.GetFloat64("STOP_DISTANCE_KM"),
			StopDurationSec:    v.GetInt64("STOP_DURATION_SEC"),
			SpeedLimitKmh:      v.GetFloat64("SPEED_LIMIT_KMH"),
			OffZoneSpeedKmh:    v.GetFloat64("OFFZONE_SPEED_KMH"),
			DeadlineDedup:      v.GetBool("GEOFENCE_DEADLINE_DEDUP"),
			DeadlineDedupTTL:   v.GetDuration("GEOFENCE_DEDUP_TTL"),
			ScoreIngestTrigger: v.GetBool("SCORE_INGEST_TRIGGER"),
			ScoreTriggerWindow: v.GetDuration("SCORE_TRIGGER_WINDOW"),
			ScoreInterval:      v.GetDuration("SCORE_INTERVAL"),
		},
		Pipeline: PipelineConfig{
			Concurrency: v.GetInt("PIPELINE_CONCURRENCY"),
			QueueSize:   v.GetInt("PIPELINE_QUEUE_SIZE"),
			MaxAttempts: v.GetInt("PIPELINE_MAX_ATTEMPTS"),
			RetryBase:   v.GetDuration("PIPELINE_RETRY_BASE"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", 7090)
	v.SetDefault("HTTP_CORS_ORIGINS", "*")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("LIVE_STATE_TTL", "10m")
	v.SetDefault("MQTT_TOPIC", "fleet/telemetry/+")
	v.SetDefault("MQTT_CLIENT_ID", "fleetwatch")
	v.SetDefault("VENDOR_POLL_INTERVAL", "10s")
	v.SetDefault("VENDOR_TIMEOUT", "8s")
	v.SetDefault("VENDOR_BATCH_SIZE", 20)
	v.SetDefault("STOP_DISTANCE_KM", 0.05)
	v.SetDefault("STOP_DURATION_SEC", 120)
	v.SetDefault("SPEED_LIMIT_KMH", 80)
	v.SetDefault("OFFZONE_SPEED_KMH", 40)
	v.SetDefault("GEOFENCE_DEADLINE_DEDUP", false)
	v.SetDefault("GEOFENCE_DEDUP_TTL", "30m")
	v.SetDefault("SCORE_INGEST_TRIGGER", true)
	v.SetDefault("SCORE_TRIGGER_WINDOW", "5m")
	v.SetDefault("SCORE_INTERVAL", "1h")
	v.SetDefault("PIPELINE_CONCURRENCY", 32)
	v.SetDefault("PIPELINE_QUEUE_SIZE", 1024)
	v.SetDefault("PIPELINE_MAX_ATTEMPTS", 3)
	v.SetDefault("PIPELINE_RETRY_BASE", "100ms")
}

func validate(cfg *Config) error {
	switch cfg.DB.Driver {
	case "postgres":
		if cfg.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("PIPELINE_CONCURRENCY must be positive")
	}
	if cfg.Pipeline.MaxAttempts <= 0 {
		return fmt.Errorf("PIPELINE_MAX_ATTEMPTS must be positive")
	}
	if cfg.Vendor.BatchSize <= 0 {
		return fmt.Errorf("VENDOR_BATCH_SIZE must be positive")
	}
	return nil
}
