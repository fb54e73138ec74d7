package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSPublisherConfig holds configuration for the NATS event feed
type NATSPublisherConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSPublisherConfig returns default NATS publisher configuration
func DefaultNATSPublisherConfig() NATSPublisherConfig {
	return NATSPublisherConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "lunch.rooms",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher mirrors every room notification onto a NATS subject so
// external observers (history dashboards, bots) can follow games without a
// websocket. Publishing is best-effort: failures are logged, never surfaced
// to players.
type NATSPublisher struct {
	nc     *nats.Conn
	config NATSPublisherConfig
}

type publishedEvent struct {
	RoomID    string      `json:"room_id"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewNATSPublisher connects to NATS and returns a publisher
func NewNATSPublisher(config NATSPublisherConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	log.Info().Str("url", config.URL).Msg("NATS event publisher connected")
	return &NATSPublisher{nc: nc, config: config}, nil
}

// Publish sends one room notification to its subject
func (p *NATSPublisher) Publish(roomID uuid.UUID, messageType MessageType, message interface{}) {
	subject := fmt.Sprintf("%s.%s.%s", p.config.SubjectPrefix, roomID, messageType)

	data, err := json.Marshal(publishedEvent{
		RoomID:    roomID.String(),
		Type:      messageType,
		Timestamp: time.Now().UTC(),
		Payload:   message,
	})
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to marshal event for NATS")
		return
	}

	if err := p.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to publish event to NATS")
	}
}

// Close drains the NATS connection
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		log.Error().Err(err).Msg("failed to drain NATS connection")
	}
}
