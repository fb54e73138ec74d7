package gateway

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service is the room gateway: websocket connections, per-room state and the
// event dispatcher, wired together.
type Service struct {
	connectionManager *ConnectionManager
	stateStore        *RoomStateStore
	dispatcher        *Dispatcher
	wsHandler         *WebSocketHandler
	publisher         *NATSPublisher
}

// Config holds configuration for the room gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	// NATSURL enables the external event feed when non-empty
	NATSURL string
	// NATSSubjectPrefix defaults to "lunch.rooms"
	NATSSubjectPrefix string
}

// DefaultConfig returns default configuration for the room gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a new room gateway service
func NewService(config Config, gameStore GameStore, rooms RoomActivator) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	stateStore := NewRoomStateStore(connectionManager)

	var publisher *NATSPublisher
	var eventPublisher EventPublisher
	if config.NATSURL != "" {
		natsConfig := DefaultNATSPublisherConfig()
		natsConfig.URL = config.NATSURL
		if config.NATSSubjectPrefix != "" {
			natsConfig.SubjectPrefix = config.NATSSubjectPrefix
		}

		p, err := NewNATSPublisher(natsConfig)
		if err != nil {
			return nil, err
		}
		publisher = p
		eventPublisher = p
	}

	dispatcher := NewDispatcher(connectionManager, stateStore, gameStore, rooms, eventPublisher)
	connectionManager.SetHandler(dispatcher)

	return &Service{
		connectionManager: connectionManager,
		stateStore:        stateStore,
		dispatcher:        dispatcher,
		wsHandler:         NewWebSocketHandler(connectionManager),
		publisher:         publisher,
	}, nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("room gateway routes registered")
}

// Stop releases gateway resources
func (s *Service) Stop() {
	if s.publisher != nil {
		s.publisher.Close()
	}
	log.Info().Msg("room gateway service stopped")
}

// Stats returns statistics about the gateway service
func (s *Service) Stats() map[string]interface{} {
	stats := s.connectionManager.Stats()
	stats["service"] = "room_gateway"
	return stats
}
