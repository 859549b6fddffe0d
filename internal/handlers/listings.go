package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
	"github.com/agentmart/agent-marketplace/backend/internal/usecases"
)

type ListingService interface {
	Create(ctx context.Context, agentID string, req usecases.CreateListingRequest) (*entities.Listing, error)
	Search(ctx context.Context, filters ports.ListingFilters, p ports.Pagination) ([]entities.Listing, *ports.PageMeta, error)
	FindByID(ctx context.Context, listingID string) (*entities.Listing, error)
	Update(ctx context.Context, agentID, listingID string, req usecases.UpdateListingRequest) (*entities.Listing, error)
	Cancel(ctx context.Context, agentID, listingID string) error
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

func (h *HTTPHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req usecases.CreateListingRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	listing, err := h.listingService.Create(r.Context(), agentFrom(r).ID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusCreated, listing)
}

func (h *HTTPHandler) SearchListings(w http.ResponseWriter, r *http.Request) {
	filters, err := listingFilters(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	listings, meta, err := h.listingService.Search(r.Context(), filters, pageParams(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writePage(w, listings, meta)
}

func (h *HTTPHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listingService.FindByID(r.Context(), mux.Vars(r)["listingId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, listing)
}

func (h *HTTPHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	var req usecases.UpdateListingRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	listing, err := h.listingService.Update(r.Context(), agentFrom(r).ID, mux.Vars(r)["listingId"], req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, listing)
}

func (h *HTTPHandler) CancelListing(w http.ResponseWriter, r *http.Request) {
	if err := h.listingService.Cancel(r.Context(), agentFrom(r).ID, mux.Vars(r)["listingId"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "listing cancelled"})
}

func listingFilters(r *http.Request) (ports.ListingFilters, error) {
	q := r.URL.Query()

	filters := ports.ListingFilters{
		Category: q.Get("category"),
		Type:     q.Get("type"),
		AgentID:  q.Get("agentId"),
		Status:   q.Get("status"),
		Search:   q.Get("search"),
	}

	if raw := q.Get("minPrice"); raw != "" {
		min, err := decimal.NewFromString(raw)
		if err != nil {
			return filters, ports.ErrValidation
		}
		filters.MinPrice = &min
	}
	if raw := q.Get("maxPrice"); raw != "" {
		max, err := decimal.NewFromString(raw)
		if err != nil {
			return filters, ports.ErrValidation
		}
		filters.MaxPrice = &max
	}

	return filters, nil
}
