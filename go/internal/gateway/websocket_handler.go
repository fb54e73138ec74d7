package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for room connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandleRoomConnection handles WebSocket connections for a specific room
func (h *WebSocketHandler) HandleRoomConnection(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.PathValue("room_id"))
	if err != nil {
		http.Error(w, "invalid room_id format", http.StatusBadRequest)
		return
	}

	player := r.URL.Query().Get("player")
	if player == "" {
		http.Error(w, "player is required", http.StatusBadRequest)
		return
	}

	if _, err := h.connectionManager.UpgradeConnection(w, r, roomID, player); err != nil {
		log.Error().
			Err(err).
			Str("room_id", roomID.String()).
			Str("player", player).
			Msg("failed to upgrade WebSocket connection")
		return
	}

	// Connection is now handled by the connection manager's pumps.
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/ws/rooms/{room_id}", h.HandleRoomConnection)
	mux.HandleFunc("GET /v1/ws/stats", h.HandleConnectionStats)
}
