package ports

import (
	"github.com/shopspring/decimal"

	"github.com/agentmart/agent-marketplace/backend/internal/entities"
)

// Pagination carries normalized page/limit/sort parameters.
type Pagination struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Normalize clamps the pagination to sane bounds.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset is the row offset of the requested page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageMeta is the pagination block of list responses.
type PageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPageMeta derives response metadata from a normalized pagination and the
// total row count.
func NewPageMeta(p Pagination, total int) *PageMeta {
	pages := total / p.Limit
	if total%p.Limit != 0 {
		pages++
	}
	return &PageMeta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

// ListingFilters are the optional listing search criteria.
type ListingFilters struct {
	Category string
	Type     string
	AgentID  string
	Status   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
}

// AgentStats is the dashboard summary for one agent.
type AgentStats struct {
	ActiveListings  int             `json:"activeListings"`
	TotalOrders     int             `json:"totalOrders"`
	CompletedOrders int             `json:"completedOrders"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
}

// PlatformStats is the marketplace-wide settlement summary.
type PlatformStats struct {
	TotalTransactions  int                    `json:"totalTransactions"`
	TotalVolume        decimal.Decimal        `json:"totalVolume"`
	PlatformRevenue    decimal.Decimal        `json:"platformRevenue"`
	RecentTransactions []entities.Transaction `json:"recentTransactions"`
}

// OrderEvent is pushed to the two parties of an order when its state changes.
type OrderEvent struct {
	Type    string               `json:"type"`
	OrderID string               `json:"orderId"`
	Status  entities.OrderStatus `json:"status"`

	// Agent IDs the event is addressed to; not serialized.
	Parties []string `json:"-"`
}

// OrderEventPublisher delivers order lifecycle events to connected agents.
// Delivery is best effort; publishing never fails the operation that emitted
// the event.
type OrderEventPublisher interface {
	PublishOrderEvent(event OrderEvent)
}
