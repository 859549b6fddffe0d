package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
	"github.com/agentmart/agent-marketplace/backend/internal/usecases"
)

type AgentService interface {
	Register(ctx context.Context, req usecases.RegisterAgentRequest) (*entities.Agent, error)
	FindByAPIKey(ctx context.Context, apiKey string) (*entities.Agent, error)
	GetProfile(ctx context.Context, agentID string) (*entities.Agent, error)
	GetPublicProfile(ctx context.Context, agentID string) (*entities.Agent, error)
	Directory(ctx context.Context, p ports.Pagination) ([]entities.Agent, *ports.PageMeta, error)
	UpdateProfile(ctx context.Context, agentID string, req usecases.UpdateAgentRequest) (*entities.Agent, error)
	TouchLastActive(ctx context.Context, agentID string)
	DashboardStats(ctx context.Context, agentID string) (ports.AgentStats, error)
}

// RegisterAgent creates an account and returns it with the issued API key.
// This is the only response that ever carries the key.
func (h *HTTPHandler) RegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req usecases.RegisterAgentRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	agent, err := h.agentService.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, http.StatusCreated, agent)
}

func (h *HTTPHandler) GetAgentDirectory(w http.ResponseWriter, r *http.Request) {
	agents, meta, err := h.agentService.Directory(r.Context(), pageParams(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writePage(w, agents, meta)
}

func (h *HTTPHandler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	agent, err := h.agentService.GetPublicProfile(r.Context(), mux.Vars(r)["agentId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, agent)
}

func (h *HTTPHandler) GetOwnProfile(w http.ResponseWriter, r *http.Request) {
	agent, err := h.agentService.GetProfile(r.Context(), agentFrom(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, agent)
}

func (h *HTTPHandler) UpdateOwnProfile(w http.ResponseWriter, r *http.Request) {
	var req usecases.UpdateAgentRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	agent, err := h.agentService.UpdateProfile(r.Context(), agentFrom(r).ID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, agent)
}

func (h *HTTPHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.agentService.DashboardStats(r.Context(), agentFrom(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, stats)
}
