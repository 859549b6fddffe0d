package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// WebSocketHandler upgrades authenticated agents onto the order event feed.
type WebSocketHandler struct {
	logger           *slog.Logger
	agentService     AgentService
	websocketManager *Manager
}

func NewWebSocketHandler(logger *slog.Logger, agentService AgentService, websocketManager *Manager) *WebSocketHandler {
	return &WebSocketHandler{
		logger:           logger,
		agentService:     agentService,
		websocketManager: websocketManager,
	}
}

func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleConnection)
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := bearerToken(r)
	if !ok {
		// Browser websocket clients cannot set headers.
		apiKey = r.URL.Query().Get("apiKey")
	}
	if apiKey == "" {
		http.Error(w, "missing API key", http.StatusUnauthorized)
		return
	}

	agent, err := h.agentService.FindByAPIKey(r.Context(), apiKey)
	if err != nil {
		h.logger.Error("failed to resolve API key for websocket", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if agent == nil {
		http.Error(w, "invalid API key", http.StatusUnauthorized)
		return
	}

	conn, err := h.websocketManager.Upgrade(w, r)
	if err != nil {
		h.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	h.logger.Info("websocket connected", "agent_id", agent.ID)
	h.websocketManager.Register(agent.ID, conn)

	// The feed is push-only; the read loop just detects disconnects.
	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			h.websocketManager.Unregister(agent.ID, conn)
			conn.Close()
			h.logger.Info("websocket disconnected", "agent_id", agent.ID)
			break
		}
	}
}
