package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/rapidpoker/go/internal/models"
	"github.com/rs/zerolog/log"
)

// FrameHandler processes a single inbound frame for a connection
type FrameHandler interface {
	HandleFrame(ctx context.Context, c *Connection, data []byte)
}

// ConnectionManager manages WebSocket connections and their game subscriptions
type ConnectionManager struct {
	// Every live connection
	connections map[*Connection]bool
	// Connection pools organized by game ID
	gameConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	// gameID is the game the connection is subscribed to, guarded by Manager.mu
	gameID string
	closed bool

	handler FrameHandler
	ctx     context.Context
	cancel  context.CancelFunc

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
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
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 256
	}
	return &ConnectionManager{
		connections:     make(map[*Connection]bool),
		gameConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and starts its pumps
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, handler FrameHandler) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		handler:     handler,
		ctx:         ctx,
		cancel:      cancel,
		ConnectedAt: time.Now(),
	}

	cm.registerConnection(connection)

	if data, err := encodeEvent(EventConnect); err == nil {
		cm.SendTo(connection, data)
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return connection, nil
}

// registerConnection adds a connection to the manager without a game
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// unregisterConnection removes a connection and its subscription. It is
// safe to call more than once.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn.closed {
		return
	}
	conn.closed = true
	gameID := conn.gameID
	cm.removeFromGameLocked(conn)
	delete(cm.connections, conn)
	close(conn.Send)
	if conn.cancel != nil {
		conn.cancel()
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("game_id", gameID).
		Msg("connection unregistered")
}

// Subscribe moves the connection onto gameID's topic. A connection watches
// exactly one game at a time.
func (cm *ConnectionManager) Subscribe(conn *Connection, gameID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if gameID == "" || conn.closed || conn.gameID == gameID {
		return
	}
	cm.removeFromGameLocked(conn)

	if cm.gameConnections[gameID] == nil {
		cm.gameConnections[gameID] = make(map[*Connection]bool)
	}
	cm.gameConnections[gameID][conn] = true
	conn.gameID = gameID

	log.Debug().
		Str("connection_id", conn.ID).
		Str("game_id", gameID).
		Int("game_connections", len(cm.gameConnections[gameID])).
		Msg("connection subscribed")
}

// Unsubscribe drops the connection's subscription if it is for gameID
func (cm *ConnectionManager) Unsubscribe(conn *Connection, gameID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn.gameID != gameID {
		return
	}
	cm.removeFromGameLocked(conn)
}

func (cm *ConnectionManager) removeFromGameLocked(conn *Connection) {
	if conn.gameID == "" {
		return
	}
	if connections, exists := cm.gameConnections[conn.gameID]; exists {
		delete(connections, conn)
		// Clean up empty game connection pools
		if len(connections) == 0 {
			delete(cm.gameConnections, conn.gameID)
		}
	}
	conn.gameID = ""
}

// SubscribedGame returns the game the connection currently watches
func (cm *ConnectionManager) SubscribedGame(conn *Connection) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return conn.gameID
}

// SubscriberCount returns how many connections watch gameID
func (cm *ConnectionManager) SubscriberCount(gameID string) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.gameConnections[gameID])
}

// GameUpdated pushes the snapshot to every subscriber of the game. It is
// called while the game is locked and only enqueues.
func (cm *ConnectionManager) GameUpdated(g *models.Game) {
	data, err := encodeEvent(EventUpdateGame, g)
	if err != nil {
		log.Error().Err(err).Str("game_id", g.ID).Msg("failed to marshal game update")
		return
	}
	cm.BroadcastToGame(g.ID, data)
}

// PlayingCardsRestarted tells subscribers to reset their hands
func (cm *ConnectionManager) PlayingCardsRestarted(gameID string) {
	data, err := encodeEvent(EventRestartPlayingCards, gameID)
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID).Msg("failed to marshal restart event")
		return
	}
	cm.BroadcastToGame(gameID, data)
}

// BroadcastToGame enqueues data on every connection subscribed to gameID and
// returns the number of connections it was delivered to
func (cm *ConnectionManager) BroadcastToGame(gameID string, data []byte) int {
	cm.mu.RLock()
	var slow []*Connection
	delivered := 0
	for conn := range cm.gameConnections[gameID] {
		select {
		case conn.Send <- data:
			delivered++
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	// Connection is slow/dead, close it
	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("game_id", gameID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	log.Debug().
		Str("game_id", gameID).
		Int("connections", delivered).
		Msg("event broadcasted")

	return delivered
}

// SendTo enqueues data for a single connection. It reports false when the
// connection is closed or its buffer is full.
func (cm *ConnectionManager) SendTo(conn *Connection, data []byte) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if conn.closed {
		return false
	}
	select {
	case conn.Send <- data:
		return true
	default:
		log.Warn().Str("connection_id", conn.ID).Msg("connection send buffer full, dropping reply")
		return false
	}
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	gameCounts := make(map[string]int, len(cm.gameConnections))
	for gameID, connections := range cm.gameConnections {
		gameCounts[gameID] = len(connections)
	}

	return map[string]interface{}{
		"total_connections": len(cm.connections),
		"active_games":      len(cm.gameConnections),
		"game_connections":  gameCounts,
	}
}

// CloseAll closes every connection, used on shutdown
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for conn := range cm.connections {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range conns {
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
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
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection. Dropping
// the connection never removes the player from a game, only leaveGame does.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		if c.handler != nil {
			c.handler.HandleFrame(c.ctx, c, message)
		}
	}
}
