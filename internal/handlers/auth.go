package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/agentmart/agent-marketplace/backend/internal/entities"
)

type contextKey string

const agentContextKey contextKey = "agent"

// RequireAgent resolves the Authorization bearer API key to an agent account
// and injects it into the request context. Handlers behind it never see the
// credential itself.
func (h *HTTPHandler) RequireAgent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey, ok := bearerToken(r)
		if !ok {
			h.writeJSON(w, http.StatusUnauthorized, apiResponse{Message: "missing or malformed authorization header"})
			return
		}

		agent, err := h.agentService.FindByAPIKey(r.Context(), apiKey)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if agent == nil {
			h.writeJSON(w, http.StatusUnauthorized, apiResponse{Message: "invalid API key"})
			return
		}

		h.agentService.TouchLastActive(r.Context(), agent.ID)

		ctx := context.WithValue(r.Context(), agentContextKey, agent)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// agentFrom returns the authenticated agent placed by RequireAgent.
func agentFrom(r *http.Request) *entities.Agent {
	agent, _ := r.Context().Value(agentContextKey).(*entities.Agent)
	return agent
}
