package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// MessageHandler receives inbound frames and disconnect events from the
// connection manager. The dispatcher implements it.
type MessageHandler interface {
	HandleMessage(ctx context.Context, conn *Connection, raw []byte)
	HandleDisconnect(conn *Connection)
}

// ConnectionManager is the connection registry and broadcast engine for room
// websockets. Per room it tracks one live connection per player, ordered by
// join time.
type ConnectionManager struct {
	// Connection lists organized by room ID, join order preserved
	roomConnections map[uuid.UUID][]*Connection
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  MessageHandler
}

// Connection represents one player's WebSocket attachment to a room
type Connection struct {
	ID      string
	Player  string
	RoomID  uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		roomConnections: make(map[uuid.UUID][]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// SetHandler wires the inbound message handler. Must be called before any
// connection is upgraded.
func (cm *ConnectionManager) SetHandler(handler MessageHandler) {
	cm.handler = handler
}

// UpgradeConnection upgrades an HTTP request to a WebSocket and registers the
// player in the room. Registration is idempotent per (room, player): if the
// player already holds a live connection in the room the new socket stays
// open but unregistered, and a later Join for that name reports it as taken.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, roomID uuid.UUID, player string) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Player:      player,
		RoomID:      roomID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.Register(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("player", player).
		Str("room_id", roomID.String()).
		Msg("WebSocket connection established")

	return connection, nil
}

// Register adds a connection to its room unless the player already holds a
// live connection there. Returns true if the connection was added or is
// already the registered one, false if another connection owns the name.
func (cm *ConnectionManager) Register(conn *Connection) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for _, existing := range cm.roomConnections[conn.RoomID] {
		if existing.Player == conn.Player {
			if existing == conn {
				return true
			}
			log.Info().
				Str("player", conn.Player).
				Str("room_id", conn.RoomID.String()).
				Msg("player already connected to room, not adding again")
			return false
		}
	}

	cm.roomConnections[conn.RoomID] = append(cm.roomConnections[conn.RoomID], conn)
	log.Debug().
		Str("connection_id", conn.ID).
		Str("player", conn.Player).
		Str("room_id", conn.RoomID.String()).
		Int("total_connections", len(cm.roomConnections[conn.RoomID])).
		Msg("connection registered")
	return true
}

// Deregister removes a connection from its room by connection identity.
// An emptied room is deleted from the registry.
func (cm *ConnectionManager) Deregister(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conns := cm.roomConnections[conn.RoomID]
	for i, existing := range conns {
		if existing == conn {
			cm.roomConnections[conn.RoomID] = append(conns[:i], conns[i+1:]...)
			log.Info().
				Str("connection_id", conn.ID).
				Str("player", conn.Player).
				Str("room_id", conn.RoomID.String()).
				Msg("connection deregistered")
			break
		}
	}

	if len(cm.roomConnections[conn.RoomID]) == 0 {
		delete(cm.roomConnections, conn.RoomID)
		log.Info().Str("room_id", conn.RoomID.String()).Msg("no connections left in room")
	}
}

// RemovePlayer removes a player from a room by name, the voluntary-leave
// path. Returns the removed connection, if any.
func (cm *ConnectionManager) RemovePlayer(roomID uuid.UUID, player string) *Connection {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conns := cm.roomConnections[roomID]
	for i, conn := range conns {
		if conn.Player == player {
			cm.roomConnections[roomID] = append(conns[:i], conns[i+1:]...)
			if len(cm.roomConnections[roomID]) == 0 {
				delete(cm.roomConnections, roomID)
			}
			log.Info().
				Str("player", player).
				Str("room_id", roomID.String()).
				Msg("player removed from room")
			return conn
		}
	}
	return nil
}

// Players returns the room roster in join order
func (cm *ConnectionManager) Players(roomID uuid.UUID) []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	conns := cm.roomConnections[roomID]
	players := make([]string, 0, len(conns))
	for _, conn := range conns {
		players = append(players, conn.Player)
	}
	return players
}

// PlayerFor attributes a connection to its registered player name
func (cm *ConnectionManager) PlayerFor(roomID uuid.UUID, conn *Connection) (string, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, existing := range cm.roomConnections[roomID] {
		if existing == conn {
			return existing.Player, true
		}
	}
	return "", false
}

// HasConnections reports whether any connection is registered in the room
func (cm *ConnectionManager) HasConnections(roomID uuid.UUID) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.roomConnections[roomID]) > 0
}

// Broadcast delivers a message to every connection registered in the room.
// Delivery is fire-and-forget per connection: one dead peer never blocks the
// others or the triggering event.
func (cm *ConnectionManager) Broadcast(roomID uuid.UUID, message interface{}) {
	cm.broadcast(roomID, message, nil)
}

// BroadcastExcluding delivers to all room connections but one, for notifying
// others without echoing to the sender.
func (cm *ConnectionManager) BroadcastExcluding(roomID uuid.UUID, message interface{}, exclude *Connection) {
	cm.broadcast(roomID, message, exclude)
}

func (cm *ConnectionManager) broadcast(roomID uuid.UUID, message interface{}, exclude *Connection) {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.roomConnections[roomID]))
	for _, conn := range cm.roomConnections[roomID] {
		if conn == exclude {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal message for broadcast")
		return
	}

	for _, conn := range targets {
		if !conn.trySend(data) {
			log.Warn().
				Str("connection_id", conn.ID).
				Str("player", conn.Player).
				Str("room_id", roomID.String()).
				Msg("failed to deliver broadcast to connection")
		}
	}

	log.Debug().
		Str("room_id", roomID.String()).
		Int("connections", len(targets)).
		Msg("message broadcasted")
}

// SendTo delivers a message to a single connection, registered or not.
// Used for targeted error notifications and rejoin snapshots.
func (cm *ConnectionManager) SendTo(conn *Connection, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal message for send")
		return
	}
	if !conn.trySend(data) {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("player", conn.Player).
			Msg("failed to deliver message to connection")
	}
}

// Stats returns counts of active connections per room
func (cm *ConnectionManager) Stats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	total := 0
	roomCounts := make(map[string]int)
	for roomID, conns := range cm.roomConnections {
		total += len(conns)
		roomCounts[roomID.String()] = len(conns)
	}

	return map[string]interface{}{
		"total_connections": total,
		"active_rooms":      len(cm.roomConnections),
		"room_connections":  roomCounts,
	}
}

// trySend queues data on the connection's send buffer without blocking.
func (c *Connection) trySend(data []byte) bool {
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump reads inbound frames and feeds them to the message handler one at
// a time. The handler owns per-room serialization; this loop only guarantees
// per-connection ordering.
func (c *Connection) readPump() {
	defer func() {
		if c.Manager.handler != nil {
			c.Manager.handler.HandleDisconnect(c)
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		if c.Manager.handler != nil {
			c.Manager.handler.HandleMessage(context.Background(), c, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
