package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/codefionn/chatschnell/internal/logger"
	"github.com/codefionn/chatschnell/internal/orchestrator"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

// Client is one WebSocket connection. Its ID doubles as the conversation ID.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan *WebMessage
	orch *orchestrator.Orchestrator
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, orch *orchestrator.Orchestrator) *Client {
	id, _ := generateConversationID()

	return &Client{
		ID:   id,
		hub:  hub,
		conn: conn,
		send: make(chan *WebMessage, 256),
		orch: orch,
	}
}

// ReadPump pumps messages from the WebSocket connection to the orchestrator
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error: %v", err)
			}
			break
		}

		var msg WebMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Error("Failed to unmarshal message: %v", err)
			continue
		}

		c.handleMessage(&msg)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				logger.Error("Failed to marshal message: %v", err)
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Error("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage routes one inbound frame. Only chat frames are accepted from
// the client; everything the task produces flows back through the Messenger.
func (c *Client) handleMessage(msg *WebMessage) {
	if msg.Type != MessageTypeChat {
		logger.Warn("Unknown message type from client %s: %s", c.ID, msg.Type)
		return
	}

	reply, err := c.orch.HandleMessage(context.Background(), c.ID, msg.Content)
	if err != nil {
		content := "Something went wrong handling that message."
		if errors.Is(err, orchestrator.ErrBusy) {
			content = err.Error()
		} else {
			logger.Error("Handling message for %s failed: %v", c.ID, err)
		}
		c.sendResponse(&WebMessage{Type: MessageTypeError, Content: content, Timestamp: time.Now()})
		return
	}

	if reply != "" {
		c.sendResponse(&WebMessage{Type: MessageTypeSystem, Content: reply, Timestamp: time.Now()})
	}
}

// sendResponse sends a response message to the client
func (c *Client) sendResponse(msg *WebMessage) {
	select {
	case c.send <- msg:
	default:
		logger.Warn("Client send channel full, dropping message")
	}
}

// generateConversationID generates a random conversation ID
func generateConversationID() (string, error) {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
