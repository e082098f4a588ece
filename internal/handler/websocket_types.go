// internal/handler/websocket_types.go
package handler

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"escpos-service/internal/model"
)

// Client represents a WebSocket client
type Client struct {
	ID             string
	Connection     *websocket.Conn
	Send           chan []byte
	SubscriptionID uuid.UUID
	Filter         *model.EventFilter
	UserAgent      string
	RemoteAddr     string
	ConnectedAt    time.Time

	mu     sync.Mutex
	closed bool
}

// trySend queues message without blocking; false when the client is gone or slow
func (c *Client) trySend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

// setFilter replaces the filter reported in connection stats
func (c *Client) setFilter(filter *model.EventFilter) {
	c.mu.Lock()
	c.Filter = filter
	c.mu.Unlock()
}

// info snapshots the client for connection stats
func (c *Client) info() ClientInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ClientInfo{
		ID:          c.ID,
		Filter:      c.Filter,
		UserAgent:   c.UserAgent,
		RemoteAddr:  c.RemoteAddr,
		ConnectedAt: c.ConnectedAt,
	}
}

// close releases the send channel exactly once
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// WebSocketMessage represents a WebSocket message
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// Message types
const (
	MessageJobEvent   = "job_event"
	MessageSubscribe  = "subscribe"
	MessageSubscribed = "subscription_confirmed"
	MessagePing       = "ping"
	MessagePong       = "pong"
	MessageError      = "error"
	MessageConnected  = "connected"
)

// ConnectionManager tracks connected WebSocket clients
type ConnectionManager struct {
	clients map[string]*Client
	mutex   sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{clients: make(map[string]*Client)}
}

// Register registers a new client
func (cm *ConnectionManager) Register(client *Client) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.clients[client.ID] = client
}

// Unregister unregisters a client
func (cm *ConnectionManager) Unregister(client *Client) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	delete(cm.clients, client.ID)
}

// Count is the number of connected clients
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.clients)
}

// GetStats returns connection statistics
func (cm *ConnectionManager) GetStats() *ConnectionStats {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	stats := &ConnectionStats{
		TotalConnections: len(cm.clients),
		Clients:          make([]ClientInfo, 0, len(cm.clients)),
	}
	for _, client := range cm.clients {
		stats.Clients = append(stats.Clients, client.info())
	}
	return stats
}

// ConnectionStats represents connection statistics
type ConnectionStats struct {
	TotalConnections int       `json:"total_connections"`
	Clients          []ClientInfo `json:"clients"`
}

// ClientInfo describes one connected client
type ClientInfo struct {
	ID          string             `json:"id"`
	Filter      *model.EventFilter `json:"filter,omitempty"`
	UserAgent   string             `json:"user_agent"`
	RemoteAddr  string             `json:"remote_addr"`
	ConnectedAt time.Time          `json:"connected_at"`
}
