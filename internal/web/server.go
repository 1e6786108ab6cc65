package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/codefionn/chatschnell/internal/config"
	"github.com/codefionn/chatschnell/internal/logger"
	"github.com/codefionn/chatschnell/internal/orchestrator"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const authTokenLength = 32

// Server is the HTTP and WebSocket front of the bridge.
type Server struct {
	addr       string
	authToken  string
	httpServer *http.Server
	cfg        *config.Config
	orch       *orchestrator.Orchestrator
	hub        *Hub
	messenger  *Messenger
}

// NewServer creates a new web server. The hub and messenger must be the same
// instances the orchestrator was built with.
func NewServer(cfg *config.Config, hub *Hub, messenger *Messenger, orch *orchestrator.Orchestrator) (*Server, error) {
	token, err := generateAuthToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate auth token: %w", err)
	}

	return &Server{
		addr:      cfg.ListenAddr,
		authToken: token,
		cfg:       cfg,
		orch:      orch,
		hub:       hub,
		messenger: messenger,
	}, nil
}

// Start starts the web server
func (s *Server) Start() error {
	router := httprouter.New()
	router.GET("/healthz", s.handleHealth)
	router.GET("/api/status", s.requireToken(s.handleStatus))
	router.GET("/ws", s.requireToken(s.handleWebSocket))

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go s.hub.Run()

	go func() {
		logger.Info("Web server listening on %s", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Stop stops the web server
func (s *Server) Stop() error {
	logger.Info("Stopping web server...")

	s.hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}

// GetURL returns the WebSocket URL with auth token
func (s *Server) GetURL() string {
	return fmt.Sprintf("ws://%s/ws?token=%s", s.addr, s.authToken)
}

// requireToken rejects requests without the server's auth token.
func (s *Server) requireToken(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if r.URL.Query().Get("token") != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r, ps)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	info := StatusInfo{
		ActiveTasks: s.orch.ActiveTasks(),
		Sessions:    s.orch.Sessions().Len(),
		Clients:     s.hub.ClientCount(),
		Backend:     s.cfg.Backend.Type,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		logger.Error("Failed to encode status: %v", err)
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins for local development
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade WebSocket: %v", err)
		return
	}

	client := NewClient(s.hub, conn, s.orch)
	s.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// generateAuthToken generates a random auth token
func generateAuthToken() (string, error) {
	bytes := make([]byte, authTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
