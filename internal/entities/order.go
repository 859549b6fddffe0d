package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPendingVerification OrderStatus = "PENDING_VERIFICATION"
	OrderVerified            OrderStatus = "VERIFIED"
	OrderInProgress          OrderStatus = "IN_PROGRESS"
	OrderCompleted           OrderStatus = "COMPLETED"
	OrderCancelled           OrderStatus = "CANCELLED"

	// Declared for forward compatibility. No operation currently
	// transitions an order into either of these states.
	OrderDisputed OrderStatus = "DISPUTED"
	OrderRefunded OrderStatus = "REFUNDED"
)

// OrderParty identifies which side of an order an agent is on.
type OrderParty string

const (
	PartyBuyer  OrderParty = "buyer"
	PartySeller OrderParty = "seller"
)

// Order pairs a buyer and a seller against a single listing. Amount is the
// listing price snapshotted at creation time; it is never re-read from the
// listing afterwards. PlatformFee and TotalAmount are derived once at creation
// and stay immutable for the life of the order.
type Order struct {
	ID               string          `json:"id"`
	ListingID        string          `json:"listingId"`
	BuyerID          string          `json:"buyerId"`
	SellerID         string          `json:"sellerId"`
	Amount           decimal.Decimal `json:"amount"`
	PlatformFee      decimal.Decimal `json:"platformFee"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	BuyerVerified    bool            `json:"buyerVerified"`
	SellerVerified   bool            `json:"sellerVerified"`
	Status           OrderStatus     `json:"status"`
	Notes            string          `json:"notes,omitempty"`
	VerificationHash string          `json:"verificationHash"`
	CompletedAt      *time.Time      `json:"completedAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`

	// Denormalized summaries for API responses.
	Listing     *ListingSummary `json:"listing,omitempty"`
	Buyer       *AgentSummary   `json:"buyer,omitempty"`
	Seller      *AgentSummary   `json:"seller,omitempty"`
	Transaction *Transaction    `json:"transaction,omitempty"`
}

// PartyOf reports which side of the order the given agent is on.
func (o *Order) PartyOf(agentID string) (OrderParty, bool) {
	switch agentID {
	case o.BuyerID:
		return PartyBuyer, true
	case o.SellerID:
		return PartySeller, true
	default:
		return "", false
	}
}

// IsParty reports whether the agent is the buyer or the seller of the order.
func (o *Order) IsParty(agentID string) bool {
	_, ok := o.PartyOf(agentID)
	return ok
}
