package web

import (
	"sync"

	"github.com/codefionn/chatschnell/internal/logger"
)

// Hub maintains the set of active clients. Every client is one conversation;
// task updates are routed to the owning conversation, never broadcast.
type Hub struct {
	clients    map[*Client]bool
	byConv     map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	quit       chan struct{}
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byConv:     make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	logger.Info("WebSocket hub started")
	defer logger.Info("WebSocket hub stopped")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.byConv[client.ID] = client
			h.mu.Unlock()
			logger.Debug("Client registered: %s", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				delete(h.byConv, client.ID)
				close(client.send)
			}
			h.mu.Unlock()
			logger.Debug("Client unregistered: %s", client.ID)

		case <-h.quit:
			return
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	close(h.quit)
}

// Register registers a new client. A registration racing with shutdown is
// dropped instead of blocking the caller forever.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister unregisters a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// SendTo delivers a message to the client owning the conversation. It
// reports false when the conversation has no connected client or the
// client's send buffer is full.
func (h *Hub) SendTo(conversationID string, message *WebMessage) bool {
	h.mu.RLock()
	client := h.byConv[conversationID]
	h.mu.RUnlock()

	if client == nil {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		logger.Warn("Send buffer full for conversation %s, dropping message", conversationID)
		return false
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
