// internal/handler/websocket_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"escpos-service/internal/model"
	"escpos-service/internal/service"
	"escpos-service/internal/utils"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// WebSocketHandler streams job and printer events to WebSocket clients
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	connections *ConnectionManager
	eventBus    *service.EventBus
	logger      *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler. Origins are checked
// against allowedOrigins; "*" allows any.
func NewWebSocketHandler(eventBus *service.EventBus, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		connections: NewConnectionManager(),
		eventBus:    eventBus,
		logger:      utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/jobs", h.HandleJobStream)
	router.GET("/stats", h.GetConnectionStats)
}

// parseFilter reads printer_id, job_id and event_types query parameters
func parseFilter(c *gin.Context) (*model.EventFilter, error) {
	filter := &model.EventFilter{}
	for _, v := range c.QueryArray("printer_id") {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		filter.PrinterIDs = append(filter.PrinterIDs, id)
	}
	for _, v := range c.QueryArray("job_id") {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		filter.JobIDs = append(filter.JobIDs, id)
	}
	if v := c.Query("event_types"); v != "" {
		for _, t := range strings.Split(v, ",") {
			filter.EventTypes = append(filter.EventTypes, model.EventType(strings.ToUpper(strings.TrimSpace(t))))
		}
	}
	return filter, nil
}

// HandleJobStream upgrades the connection and streams matching events
// @Summary Job event stream
// @Description WebSocket stream of job and printer events. Send {"type":"subscribe","data":{...filter}} to change the filter.
// @Tags Events
// @Param printer_id query string false "Only events for this printer (repeatable)"
// @Param job_id query string false "Only events for this job (repeatable)"
// @Param event_types query string false "Comma separated event types"
// @Success 101 "Switching protocols"
// @Failure 400 {object} utils.APIResponse "Invalid filter"
// @Router /ws/jobs [get]
func (h *WebSocketHandler) HandleJobStream(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid event filter", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	subID, events := h.eventBus.Subscribe(filter)
	client := &Client{
		ID:             uuid.New().String(),
		Connection:     conn,
		Send:           make(chan []byte, 256),
		SubscriptionID: subID,
		Filter:         filter,
		UserAgent:      c.Request.UserAgent(),
		RemoteAddr:     c.Request.RemoteAddr,
		ConnectedAt:    time.Now(),
	}
	h.connections.Register(client)
	h.logger.Info("Event WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	h.sendMessage(client, &WebSocketMessage{
		Type:      MessageConnected,
		Data:      map[string]interface{}{"client_id": client.ID, "filter": filter},
		Timestamp: time.Now(),
	})

	go h.pumpEvents(client, events)
	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// pumpEvents forwards bus events until the subscription is closed
func (h *WebSocketHandler) pumpEvents(client *Client, events <-chan *model.JobEvent) {
	defer client.close()
	for ev := range events {
		h.sendMessage(client, &WebSocketMessage{
			Type:      MessageJobEvent,
			Data:      ev,
			Timestamp: ev.Timestamp,
		})
	}
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.eventBus.Unsubscribe(client.SubscriptionID)
		h.connections.Unregister(client)
		client.Connection.Close()
		h.logger.Info("Event WebSocket client disconnected", zap.String("client_id", client.ID))
	}()

	client.Connection.SetReadLimit(64 << 10)
	client.Connection.SetReadDeadline(time.Now().Add(pongWait))
	client.Connection.SetPongHandler(func(string) error {
		return client.Connection.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			return
		}

		var message struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.sendError(client, "invalid message")
			continue
		}
		h.handleClientMessage(client, message.Type, message.Data)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, messageType string, data json.RawMessage) {
	switch messageType {
	case MessageSubscribe:
		var filter model.EventFilter
		if len(data) > 0 {
			if err := json.Unmarshal(data, &filter); err != nil {
				h.sendError(client, "invalid filter: "+err.Error())
				return
			}
		}
		h.eventBus.SetFilter(client.SubscriptionID, &filter)
		client.setFilter(&filter)
		h.sendMessage(client, &WebSocketMessage{
			Type:      MessageSubscribed,
			Data:      &filter,
			Timestamp: time.Now(),
		})
	case MessagePing:
		h.sendMessage(client, &WebSocketMessage{Type: MessagePong, Timestamp: time.Now()})
	default:
		h.sendError(client, "unknown message type: "+messageType)
	}
}

// sendMessage sends a message to a client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}
	if !client.trySend(messageBytes) {
		h.logger.Warn("Client send channel full or closed, dropping message",
			zap.String("client_id", client.ID),
		)
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, errorMsg string) {
	h.sendMessage(client, &WebSocketMessage{
		Type:      MessageError,
		Data:      map[string]interface{}{"error": errorMsg},
		Timestamp: time.Now(),
	})
}

// GetConnectionStats returns connection statistics
// @Summary WebSocket connection statistics
// @Tags Events
// @Produce json
// @Success 200 {object} utils.APIResponse{data=ConnectionStats}
// @Router /ws/stats [get]
func (h *WebSocketHandler) GetConnectionStats(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Connection stats retrieved", h.connections.GetStats())
}
