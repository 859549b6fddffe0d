package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/usecases"
)

var (
	_ AgentService       = (*usecases.AgentService)(nil)
	_ ListingService     = (*usecases.ListingService)(nil)
	_ OrderService       = (*usecases.OrderService)(nil)
	_ PaymentService     = (*usecases.PaymentService)(nil)
	_ TransactionService = (*usecases.TransactionService)(nil)
)

// HTTPHandler serves the REST API.
type HTTPHandler struct {
	logger *slog.Logger

	agentService       AgentService
	listingService     ListingService
	orderService       OrderService
	paymentService     PaymentService
	transactionService TransactionService
}

func NewHTTPHandler(
	logger *slog.Logger,
	agentService AgentService,
	listingService ListingService,
	orderService OrderService,
	paymentService PaymentService,
	transactionService TransactionService,
) *HTTPHandler {
	return &HTTPHandler{
		logger:             logger,
		agentService:       agentService,
		listingService:     listingService,
		orderService:       orderService,
		paymentService:     paymentService,
		transactionService: transactionService,
	}
}

func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	auth := h.RequireAgent

	// Agents
	router.HandleFunc("/agents/register", h.RegisterAgent).Methods("POST")
	router.HandleFunc("/agents/me", auth(h.GetOwnProfile)).Methods("GET")
	router.HandleFunc("/agents/me", auth(h.UpdateOwnProfile)).Methods("PATCH")
	router.HandleFunc("/agents/me/stats", auth(h.GetDashboardStats)).Methods("GET")
	router.HandleFunc("/agents/{agentId}", h.GetPublicProfile).Methods("GET")
	router.HandleFunc("/agents", h.GetAgentDirectory).Methods("GET")

	// Listings
	router.HandleFunc("/listings", auth(h.CreateListing)).Methods("POST")
	router.HandleFunc("/listings", h.SearchListings).Methods("GET")
	router.HandleFunc("/listings/{listingId}", h.GetListing).Methods("GET")
	router.HandleFunc("/listings/{listingId}", auth(h.UpdateListing)).Methods("PATCH")
	router.HandleFunc("/listings/{listingId}", auth(h.CancelListing)).Methods("DELETE")

	// Orders
	router.HandleFunc("/orders", auth(h.CreateOrder)).Methods("POST")
	router.HandleFunc("/orders", auth(h.GetOwnOrders)).Methods("GET")
	router.HandleFunc("/orders/{orderId}", auth(h.GetOrder)).Methods("GET")
	router.HandleFunc("/orders/{orderId}/verify", auth(h.VerifyOrder)).Methods("POST")
	router.HandleFunc("/orders/{orderId}/complete", auth(h.CompleteOrder)).Methods("POST")
	router.HandleFunc("/orders/{orderId}/cancel", auth(h.CancelOrder)).Methods("POST")

	// Payments
	router.HandleFunc("/payments/info", h.GetPaymentInfo).Methods("GET")
	router.HandleFunc("/payments/wallet", auth(h.SetWalletAddress)).Methods("POST")
	router.HandleFunc("/payments/orders/{orderId}", auth(h.GetPaymentInstructions)).Methods("GET")
	router.HandleFunc("/payments/orders/{orderId}/pay", auth(h.SubmitPayment)).Methods("POST")

	// Transactions
	router.HandleFunc("/transactions/stats", h.GetPlatformStats).Methods("GET")
	router.HandleFunc("/transactions", auth(h.GetOwnTransactions)).Methods("GET")
}

// apiResponse is the envelope every endpoint answers with.
type apiResponse struct {
	Success bool            `json:"success"`
	Data    any             `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Meta    *ports.PageMeta `json:"meta,omitempty"`
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *HTTPHandler) writeData(w http.ResponseWriter, status int, data any) {
	h.writeJSON(w, status, apiResponse{Success: true, Data: data})
}

func (h *HTTPHandler) writePage(w http.ResponseWriter, data any, meta *ports.PageMeta) {
	h.writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: data, Meta: meta})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		h.writeJSON(w, status, apiResponse{Message: "internal server error"})
		return
	}
	h.writeJSON(w, status, apiResponse{Message: err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ports.ErrAgentNotFound),
		errors.Is(err, ports.ErrListingNotFound),
		errors.Is(err, ports.ErrOrderNotFound):
		return http.StatusNotFound

	case errors.Is(err, ports.ErrNotOrderParty),
		errors.Is(err, ports.ErrNotListingOwner):
		return http.StatusForbidden

	case errors.Is(err, ports.ErrAgentExists):
		return http.StatusConflict

	case errors.Is(err, ports.ErrValidation),
		errors.Is(err, ports.ErrListingUnavailable),
		errors.Is(err, ports.ErrSelfTrade),
		errors.Is(err, ports.ErrOrderNotVerifiable),
		errors.Is(err, ports.ErrAlreadyVerified),
		errors.Is(err, ports.ErrOrderNotCompletable),
		errors.Is(err, ports.ErrOrderCompleted),
		errors.Is(err, ports.ErrBuyerOnly),
		errors.Is(err, ports.ErrOrderNotPayable),
		errors.Is(err, ports.ErrPaymentAlreadySubmitted),
		errors.Is(err, ports.ErrInvalidWalletAddress),
		errors.Is(err, ports.ErrInvalidTxSignature):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return ports.ErrValidation
	}
	return nil
}

// pageParams reads page/limit/sort query parameters with defaults.
func pageParams(r *http.Request) ports.Pagination {
	q := r.URL.Query()

	p := ports.Pagination{
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		p.Limit = limit
	}
	return p.Normalize()
}
