package handlers

import (
	"context"
	"net/http"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
)

type TransactionService interface {
	FindByAgent(ctx context.Context, agentID string, p ports.Pagination) ([]entities.Transaction, *ports.PageMeta, error)
	FindByOrder(ctx context.Context, orderID, agentID string) (*entities.Transaction, error)
	PlatformStats(ctx context.Context) (ports.PlatformStats, error)
}

func (h *HTTPHandler) GetOwnTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, meta, err := h.transactionService.FindByAgent(r.Context(), agentFrom(r).ID, pageParams(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writePage(w, transactions, meta)
}

func (h *HTTPHandler) GetPlatformStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.transactionService.PlatformStats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, stats)
}
