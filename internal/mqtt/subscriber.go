// Package mqtt ingests canonical telemetry packets published to an MQTT broker.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/nurpe/fleetwatch/internal/config"
	"github.com/nurpe/fleetwatch/internal/metrics"
	"github.com/nurpe/fleetwatch/internal/service"
	"github.com/nurpe/fleetwatch/internal/vendor"
)

const (
	defaultTopic      = "fleet/telemetry/+"
	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250
)

type Subscriber struct {
	url      string
	topic    string
	clientID string
	parser   vendor.Parser
	ingester vendor.Ingester
	log      zerolog.Logger

	client paho.Client
}

func NewSubscriber(cfg config.MQTTConfig, ingester vendor.Ingester, log zerolog.Logger) *Subscriber {
	topic := cfg.Topic
	if topic == "" {
		topic = defaultTopic
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "fleetwatch-" + time.Now().Format("20060102150405")
	}
	return &Subscriber{
		url:      cfg.URL,
		topic:    topic,
		clientID: clientID,
		parser:   vendor.GenericParser{},
		ingester: ingester,
		log:      log.With().Str("component", "mqtt").Logger(),
	}
}

// Start connects and subscribes; the subscription is renewed on every reconnect. Messages are
// ingested with ctx until Stop.
func (s *Subscriber) Start(ctx context.Context) error {
	opts := paho.NewClientOptions()
	opts.AddBroker(s.url)
	opts.SetClientID(s.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.OnConnect = func(client paho.Client) {
		token := client.Subscribe(s.topic, 1, func(_ paho.Client, msg paho.Message) {
			s.handle(ctx, msg.Topic(), msg.Payload())
		})
		token.Wait()
		if err := token.Error(); err != nil {
			s.log.Error().Err(err).Str("topic", s.topic).Msg("mqtt subscribe failed")
			return
		}
		s.log.Info().Str("topic", s.topic).Msg("mqtt subscribed")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		s.log.Warn().Err(err).Msg("mqtt connection lost")
	}

	s.client = paho.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect to %s timed out", s.url)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect failed: %w", err)
	}
	return nil
}

func (s *Subscriber) Stop() {
	if s.client == nil {
		return
	}
	s.client.Disconnect(disconnectQuiesce)
	s.log.Info().Msg("mqtt subscriber stopped")
}

func (s *Subscriber) handle(ctx context.Context, topic string, payload []byte) {
	packets, err := s.parser.Parse(payload)
	if err != nil {
		metrics.TelemetryRejected.WithLabelValues("decode").Inc()
		s.log.Warn().Err(err).Str("topic", topic).Msg("invalid mqtt payload")
		return
	}
	for _, packet := range packets {
		if _, err := s.ingester.Ingest(ctx, packet); err != nil {
			if errors.Is(err, service.ErrUnknownVehicle) {
				continue
			}
			s.log.Error().Err(err).Str("topic", topic).Str("imei", packet.IMEI).Msg("failed to ingest mqtt packet")
		}
	}
}
