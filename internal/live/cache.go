// Package live keeps the last-known vehicle state in Redis and fans out telemetry and alerts
// over pub/sub.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nurpe/fleetwatch/internal/config"
	"github.com/nurpe/fleetwatch/internal/model"
)

const (
	geoKey           = "fleet:geo"
	telemetryChannel = "fleet:telemetry"
	alertChannel     = "fleet:alerts"
)

var ErrNoState = errors.New("no live state")

type Cache struct {
	client   *redis.Client
	stateTTL time.Duration
	dedupTTL time.Duration
}

func New(ctx context.Context, cfg config.RedisConfig, dedupTTL time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 5,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Cache{client: client, stateTTL: cfg.StateTTL, dedupTTL: dedupTTL}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func stateKey(vehicleID uuid.UUID) string {
	return fmt.Sprintf("vehicle:%s:state", vehicleID)
}

type stateHash struct {
	VehicleID string  `redis:"vehicle_id"`
	IMEI      string  `redis:"imei"`
	Lat       float64 `redis:"lat"`
	Lng       float64 `redis:"lng"`
	Speed     float64 `redis:"speed"`
	Ignition  bool    `redis:"ignition"`
	Motion    bool    `redis:"motion"`
	State     string  `redis:"state"`
	Timestamp int64   `redis:"timestamp"`
}

func toHash(p model.LivePosition) stateHash {
	return stateHash{
		VehicleID: p.VehicleID.String(),
		IMEI:      p.IMEI,
		Lat:       p.Latitude,
		Lng:       p.Longitude,
		Speed:     p.Speed,
		Ignition:  p.Ignition,
		Motion:    p.Motion,
		State:     string(p.State),
		Timestamp: p.Timestamp.UnixMilli(),
	}
}

func (h stateHash) position() (*model.LivePosition, error) {
	id, err := uuid.Parse(h.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("corrupt live state: %w", err)
	}
	return &model.LivePosition{
		VehicleID: id,
		IMEI:      h.IMEI,
		Latitude:  h.Lat,
		Longitude: h.Lng,
		Speed:     h.Speed,
		Ignition:  h.Ignition,
		Motion:    h.Motion,
		State:     model.MotionState(h.State),
		Timestamp: time.UnixMilli(h.Timestamp).UTC(),
	}, nil
}

// PushState writes the state hash, the geo index entry and the telemetry broadcast in one round trip.
func (c *Cache) PushState(ctx context.Context, p model.LivePosition) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	key := stateKey(p.VehicleID)
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, toHash(p))
	pipe.Expire(ctx, key, c.stateTTL)
	pipe.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      p.VehicleID.String(),
		Longitude: p.Longitude,
		Latitude:  p.Latitude,
	})
	pipe.Publish(ctx, telemetryChannel, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

func (c *Cache) GetState(ctx context.Context, vehicleID uuid.UUID) (*model.LivePosition, error) {
	res := c.client.HGetAll(ctx, stateKey(vehicleID))
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("redis get state failed: %w", err)
	}
	if len(res.Val()) == 0 {
		return nil, ErrNoState
	}
	var h stateHash
	if err := res.Scan(&h); err != nil {
		return nil, fmt.Errorf("redis scan state failed: %w", err)
	}
	return h.position()
}

func (c *Cache) PublishAlert(ctx context.Context, alert model.GeofenceAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	return c.client.Publish(ctx, alertChannel, payload).Err()
}

// Acquire sets the dedup key if absent and reports whether this call set it.
func (c *Cache) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := c.client.SetNX(ctx, "alert:"+key, "1", c.dedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return ok, nil
}

type Topic string

const (
	TopicTelemetry Topic = telemetryChannel
	TopicAlerts    Topic = alertChannel
)

// Subscribe forwards payloads published on topic until ctx is cancelled, then closes the channel.
func (c *Cache) Subscribe(ctx context.Context, topic Topic) (<-chan string, error) {
	pubsub := c.client.Subscribe(ctx, string(topic))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	out := make(chan string, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
