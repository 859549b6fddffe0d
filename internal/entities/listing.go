package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ListingType distinguishes sell offers from buy requests.
type ListingType string

const (
	ListingSell ListingType = "SELL"
	ListingBuy  ListingType = "BUY"
)

// ListingStatus is the lifecycle state of a listing.
type ListingStatus string

const (
	ListingActive    ListingStatus = "ACTIVE"
	ListingPaused    ListingStatus = "PAUSED"
	ListingSold      ListingStatus = "SOLD"
	ListingExpired   ListingStatus = "EXPIRED"
	ListingCancelled ListingStatus = "CANCELLED"
)

// ListingCategory is the closed set of marketplace categories.
type ListingCategory string

const (
	CategoryData       ListingCategory = "DATA"
	CategoryAPIService ListingCategory = "API_SERVICE"
	CategoryModel      ListingCategory = "MODEL"
	CategoryCompute    ListingCategory = "COMPUTE"
	CategoryStorage    ListingCategory = "STORAGE"
	CategoryAutomation ListingCategory = "AUTOMATION"
	CategoryAnalysis   ListingCategory = "ANALYSIS"
	CategoryContent    ListingCategory = "CONTENT"
	CategoryOther      ListingCategory = "OTHER"
)

// ValidCategory reports whether c is one of the known listing categories.
func ValidCategory(c ListingCategory) bool {
	switch c {
	case CategoryData, CategoryAPIService, CategoryModel, CategoryCompute,
		CategoryStorage, CategoryAutomation, CategoryAnalysis, CategoryContent, CategoryOther:
		return true
	}
	return false
}

// Listing is a posted offer to sell or a posted request to buy.
type Listing struct {
	ID          string          `json:"id"`
	AgentID     string          `json:"agentId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    ListingCategory `json:"category"`
	Type        ListingType     `json:"type"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Tags        []string        `json:"tags"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	Status      ListingStatus   `json:"status"`
	ViewCount   int             `json:"viewCount"`
	ExpiresAt   *time.Time      `json:"expiresAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Agent *AgentSummary `json:"agent,omitempty"`
}

// ListingSummary is the denormalized listing view embedded in order responses.
type ListingSummary struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Type     ListingType     `json:"type,omitempty"`
	Category ListingCategory `json:"category,omitempty"`
}
