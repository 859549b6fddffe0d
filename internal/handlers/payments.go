package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
	"github.com/agentmart/agent-marketplace/backend/internal/usecases"
)

type PaymentService interface {
	PlatformInfo() usecases.PlatformPaymentInfo
	GetPaymentInstructions(ctx context.Context, orderID, agentID string) (*usecases.PaymentInstructions, error)
	SubmitPayment(ctx context.Context, orderID, agentID string, proof entities.PaymentProof) (*entities.Order, *entities.Transaction, error)
	SetWalletAddress(ctx context.Context, agentID, walletAddress string) (*entities.Agent, error)
}

func (h *HTTPHandler) GetPaymentInfo(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.paymentService.PlatformInfo())
}

type setWalletRequest struct {
	WalletAddress string `json:"walletAddress"`
}

func (h *HTTPHandler) SetWalletAddress(w http.ResponseWriter, r *http.Request) {
	var req setWalletRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	agent, err := h.paymentService.SetWalletAddress(r.Context(), agentFrom(r).ID, req.WalletAddress)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, agent)
}

func (h *HTTPHandler) GetPaymentInstructions(w http.ResponseWriter, r *http.Request) {
	instructions, err := h.paymentService.GetPaymentInstructions(r.Context(), mux.Vars(r)["orderId"], agentFrom(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, instructions)
}

func (h *HTTPHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var proof entities.PaymentProof
	if err := decodeBody(r, &proof); err != nil {
		h.writeError(w, r, err)
		return
	}
	if proof.TxSignature == "" {
		h.writeError(w, r, ports.ErrValidation)
		return
	}

	order, txn, err := h.paymentService.SubmitPayment(r.Context(), mux.Vars(r)["orderId"], agentFrom(r).ID, proof)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]any{"order": order, "payment": txn})
}
