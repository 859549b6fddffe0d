package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
)

type OrderService interface {
	Create(ctx context.Context, requesterID, listingID, notes string) (*entities.Order, error)
	Verify(ctx context.Context, orderID, agentID string) (*entities.Order, error)
	Complete(ctx context.Context, orderID, agentID string) (*entities.Order, *entities.Transaction, error)
	Cancel(ctx context.Context, orderID, agentID string) (*entities.Order, error)
	FindByAgent(ctx context.Context, agentID string, p ports.Pagination) ([]entities.Order, *ports.PageMeta, error)
	FindByID(ctx context.Context, orderID, agentID string) (*entities.Order, error)
}

type createOrderRequest struct {
	ListingID string `json:"listingId"`
	Notes     string `json:"notes"`
}

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.ListingID == "" {
		h.writeError(w, r, ports.ErrValidation)
		return
	}

	order, err := h.orderService.Create(r.Context(), agentFrom(r).ID, req.ListingID, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusCreated, order)
}

func (h *HTTPHandler) GetOwnOrders(w http.ResponseWriter, r *http.Request) {
	orders, meta, err := h.orderService.FindByAgent(r.Context(), agentFrom(r).ID, pageParams(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writePage(w, orders, meta)
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.FindByID(r.Context(), mux.Vars(r)["orderId"], agentFrom(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, order)
}

func (h *HTTPHandler) VerifyOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.Verify(r.Context(), mux.Vars(r)["orderId"], agentFrom(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, order)
}

func (h *HTTPHandler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	order, txn, err := h.orderService.Complete(r.Context(), mux.Vars(r)["orderId"], agentFrom(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]any{"order": order, "transaction": txn})
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.Cancel(r.Context(), mux.Vars(r)["orderId"], agentFrom(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, order)
}
