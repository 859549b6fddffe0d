package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
)

var maxListingPrice = decimal.NewFromInt(1_000_000)

type ListingsRepository interface {
	InsertListing(ctx context.Context, listing *entities.Listing) error
	FindListingByID(ctx context.Context, listingID string) (*entities.Listing, error)
	SearchListings(ctx context.Context, filters ports.ListingFilters, p ports.Pagination) ([]entities.Listing, int, error)
	UpdateListing(ctx context.Context, listing *entities.Listing) error
	IncrementViewCount(ctx context.Context, listingID string) error
	ExpireDueListings(ctx context.Context, now time.Time) (int64, error)
}

// CreateListingRequest carries the fields a new listing is built from.
type CreateListingRequest struct {
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Category    entities.ListingCategory `json:"category"`
	Type        entities.ListingType     `json:"type"`
	Price       decimal.Decimal          `json:"price"`
	Currency    string                   `json:"currency"`
	Tags        []string                 `json:"tags"`
	Metadata    map[string]any           `json:"metadata"`
	ExpiresAt   *time.Time               `json:"expiresAt"`
}

// UpdateListingRequest carries the mutable listing fields; nil means keep.
type UpdateListingRequest struct {
	Title       *string                 `json:"title"`
	Description *string                 `json:"description"`
	Price       *decimal.Decimal        `json:"price"`
	Tags        *[]string               `json:"tags"`
	Status      *entities.ListingStatus `json:"status"`
	Metadata    *map[string]any         `json:"metadata"`
	ExpiresAt   *time.Time              `json:"expiresAt"`
}

// ListingService manages the marketplace catalog.
type ListingService struct {
	logger *slog.Logger

	repo ListingsRepository
}

func NewListingService(logger *slog.Logger, repo ListingsRepository) *ListingService {
	return &ListingService{logger: logger, repo: repo}
}

// Create validates and stores a new ACTIVE listing owned by the agent.
func (s *ListingService) Create(ctx context.Context, agentID string, req CreateListingRequest) (*entities.Listing, error) {
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}
	if err := validateDescription(req.Description); err != nil {
		return nil, err
	}
	if !entities.ValidCategory(req.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ports.ErrValidation, req.Category)
	}
	if req.Type != entities.ListingSell && req.Type != entities.ListingBuy {
		return nil, fmt.Errorf("%w: type must be SELL or BUY", ports.ErrValidation)
	}
	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}
	if err := validateTags(req.Tags); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = ports.DefaultCurrency
	}
	if utf8.RuneCountInString(currency) != 3 {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", ports.ErrValidation)
	}

	now := time.Now().UTC()
	listing := &entities.Listing{
		ID:          uuid.New().String(),
		AgentID:     agentID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Type:        req.Type,
		Price:       req.Price,
		Currency:    currency,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
		Status:      entities.ListingActive,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.InsertListing(ctx, listing); err != nil {
		return nil, err
	}

	s.logger.Info("listing created",
		"listing_id", listing.ID, "agent_id", agentID,
		"type", listing.Type, "price", listing.Price.String())

	return s.repo.FindListingByID(ctx, listing.ID)
}

// Search runs the filtered catalog search. Status defaults to ACTIVE.
func (s *ListingService) Search(ctx context.Context, filters ports.ListingFilters, p ports.Pagination) ([]entities.Listing, *ports.PageMeta, error) {
	if filters.Status == "" {
		filters.Status = string(entities.ListingActive)
	}
	p = p.Normalize()

	listings, total, err := s.repo.SearchListings(ctx, filters, p)
	if err != nil {
		return nil, nil, err
	}
	return listings, ports.NewPageMeta(p, total), nil
}

// FindByID loads one listing and bumps its view counter. Counter failures are
// logged, not surfaced.
func (s *ListingService) FindByID(ctx context.Context, listingID string) (*entities.Listing, error) {
	listing, err := s.repo.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ports.ErrListingNotFound
	}

	if err = s.repo.IncrementViewCount(ctx, listingID); err != nil {
		s.logger.Warn("failed to bump listing view count", "listing_id", listingID, "error", err)
	} else {
		listing.ViewCount++
	}

	return listing, nil
}

// Update applies the provided fields to the agent's own listing.
func (s *ListingService) Update(ctx context.Context, agentID, listingID string, req UpdateListingRequest) (*entities.Listing, error) {
	listing, err := s.repo.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ports.ErrListingNotFound
	}
	if listing.AgentID != agentID {
		return nil, ports.ErrNotListingOwner
	}

	if req.Title != nil {
		if err = validateTitle(*req.Title); err != nil {
			return nil, err
		}
		listing.Title = *req.Title
	}
	if req.Description != nil {
		if err = validateDescription(*req.Description); err != nil {
			return nil, err
		}
		listing.Description = *req.Description
	}
	if req.Price != nil {
		if err = validatePrice(*req.Price); err != nil {
			return nil, err
		}
		listing.Price = *req.Price
	}
	if req.Tags != nil {
		if err = validateTags(*req.Tags); err != nil {
			return nil, err
		}
		listing.Tags = *req.Tags
	}
	if req.Status != nil {
		if *req.Status != entities.ListingActive && *req.Status != entities.ListingPaused {
			return nil, fmt.Errorf("%w: status can only be set to ACTIVE or PAUSED", ports.ErrValidation)
		}
		listing.Status = *req.Status
	}
	if req.Metadata != nil {
		listing.Metadata = *req.Metadata
	}
	if req.ExpiresAt != nil {
		listing.ExpiresAt = req.ExpiresAt
	}

	if err = s.repo.UpdateListing(ctx, listing); err != nil {
		return nil, err
	}

	s.logger.Info("listing updated", "listing_id", listingID, "agent_id", agentID)
	return s.repo.FindListingByID(ctx, listingID)
}

// Cancel soft-deletes the agent's own listing.
func (s *ListingService) Cancel(ctx context.Context, agentID, listingID string) error {
	listing, err := s.repo.FindListingByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing == nil {
		return ports.ErrListingNotFound
	}
	if listing.AgentID != agentID {
		return ports.ErrNotListingOwner
	}

	listing.Status = entities.ListingCancelled
	if err = s.repo.UpdateListing(ctx, listing); err != nil {
		return err
	}

	s.logger.Info("listing cancelled", "listing_id", listingID, "agent_id", agentID)
	return nil
}

// ExpireDue marks active listings past their expiry as EXPIRED and returns
// the number affected. Called by the expiry worker.
func (s *ListingService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.ExpireDueListings(ctx, now)
}

func validateTitle(title string) error {
	if n := utf8.RuneCountInString(title); n < 3 || n > 200 {
		return fmt.Errorf("%w: title must be between 3 and 200 characters", ports.ErrValidation)
	}
	return nil
}

func validateDescription(description string) error {
	if n := utf8.RuneCountInString(description); n < 10 || n > 5000 {
		return fmt.Errorf("%w: description must be between 10 and 5000 characters", ports.ErrValidation)
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ports.ErrValidation)
	}
	if price.GreaterThan(maxListingPrice) {
		return fmt.Errorf("%w: price must not exceed %s", ports.ErrValidation, maxListingPrice.String())
	}
	return nil
}

func validateTags(tags []string) error {
	if len(tags) > 10 {
		return fmt.Errorf("%w: at most 10 tags allowed", ports.ErrValidation)
	}
	for _, tag := range tags {
		if tag == "" || utf8.RuneCountInString(tag) > 50 {
			return fmt.Errorf("%w: tags must be 1 to 50 characters", ports.ErrValidation)
		}
	}
	return nil
}
