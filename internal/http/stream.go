package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/fleetwatch/internal/live"
	"github.com/nurpe/fleetwatch/internal/metrics"
)

const streamWriteTimeout = 10 * time.Second

type LiveFeed interface {
	Subscribe(ctx context.Context, topic live.Topic) (<-chan string, error)
}

func (h *Handler) streamAlerts(c *gin.Context) {
	h.stream(c, live.TopicAlerts, "alert")
}

func (h *Handler) streamTelemetry(c *gin.Context) {
	h.stream(c, live.TopicTelemetry, "position")
}

// stream relays a fleet-wide pub/sub topic to a websocket. Drivers may not subscribe.
func (h *Handler) stream(c *gin.Context, topic live.Topic, messageType string) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	if principal.IsDriver() {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		return
	}
	if h.feed == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live stream unavailable"})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	messages, err := h.feed.Subscribe(ctx, topic)
	if err != nil {
		h.log.Error().Err(err).Str("topic", string(topic)).Msg("subscribe failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live stream unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	// read pump: detect client disconnect
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-messages:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(gin.H{"type": messageType, "data": rawJSON(payload)}); err != nil {
				h.log.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

// rawJSON embeds an already-encoded payload without re-quoting it.
type rawJSON string

func (r rawJSON) MarshalJSON() ([]byte, error) {
	return []byte(r), nil
}
